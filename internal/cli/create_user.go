package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/database"
	"github.com/mrlokans/animedex/internal/database/users"
)

var defaultReadPassword = term.ReadPassword

// readPassword is replaced in tests to avoid touching the terminal.
var readPassword = defaultReadPassword

// CreateUserCommand creates an account without going through the web form
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	ProfileImage string
	DatabasePath string

	Out io.Writer
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{Out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username, 3-64 letters, digits, '_' or '-' (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (prompted when omitted)")
	fs.StringVar(&cmd.ProfileImage, "image", "", "Profile image URL (default avatar when omitted)")
	fs.StringVar(&cmd.DatabasePath, "db", config.NewConfig().Database.Path, "Path to the database file (or set DATABASE_PATH)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a local account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -username alice -email alice@example.com\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	if cmd.Password == "" {
		password, err := cmd.promptPassword()
		if err != nil {
			return err
		}
		cmd.Password = password
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewQuietDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	authCfg := config.NewConfig().Auth
	service := auth.NewService(users.NewRepository(db.DB), authCfg)

	user, err := service.Register(cmd.Username, cmd.Email, cmd.Password, cmd.ProfileImage)
	if errors.Is(err, auth.ErrUserExists) {
		return fmt.Errorf("username or email already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created user %q (id %d) in %s\n", user.Username, user.ID, absDBPath)
	return nil
}

func (cmd *CreateUserCommand) promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(cmd.Out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(cmd.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(cmd.Out, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(cmd.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
