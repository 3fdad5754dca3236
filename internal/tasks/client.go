package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// ErrQueueNotRegistered is returned when a task is enqueued before its queue
// was registered, e.g. refresh tasks while the catalog client is unavailable.
var ErrQueueNotRegistered = errors.New("task queue not registered")

// Client runs the favourite refresh and audit cleanup queues on backlite.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.RWMutex
	started bool
	queues  map[string]bool
}

// TasksDBPath returns the path of the queue database kept next to the main
// database, e.g. ./animedex.db -> ./animedex-tasks.db.
func TasksDBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite database.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}

	db, err := sql.Open("sqlite3", TasksDBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &stdLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
		queues: make(map[string]bool),
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range queues {
		c.client.Register(q)
		c.queues[q.Config().Name] = true
	}
}

// Registered reports whether the named queue accepts tasks.
func (c *Client) Registered(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queues[name]
}

// Start begins processing tasks. Non-blocking; use Stop() for graceful shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	log.Printf("Task queue started with %d workers (%d queues)", c.config.Workers, len(c.queues))
	c.client.Start(ctx)
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	log.Println("Stopping task queue...")
	success := c.client.Stop(ctx)
	if success {
		log.Println("Task queue stopped gracefully")
	} else {
		log.Println("Task queue stopped with timeout (some tasks may not have completed)")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Enqueue saves tasks immediately and returns their IDs. Nothing is saved
// when any task targets an unregistered queue.
func (c *Client) Enqueue(tasks ...backlite.Task) ([]string, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	for _, t := range tasks {
		if name := t.Config().Name; !c.Registered(name) {
			return nil, fmt.Errorf("%w: %s", ErrQueueNotRegistered, name)
		}
	}

	ids, err := c.client.Add(tasks...).Save()
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue tasks: %w", err)
	}
	return ids, nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// stdLogger writes backlite's key/value log records through the log package.
type stdLogger struct{}

func (l *stdLogger) Info(message string, params ...any) {
	log.Print("[TASK] " + formatRecord(message, params))
}

func (l *stdLogger) Error(message string, params ...any) {
	log.Print("[TASK ERROR] " + formatRecord(message, params))
}

// formatRecord renders "message key=value ..."; a trailing key without a
// value is printed as is.
func formatRecord(message string, params []any) string {
	var b strings.Builder
	b.WriteString(message)
	for i := 0; i < len(params); i += 2 {
		b.WriteByte(' ')
		if i+1 == len(params) {
			fmt.Fprint(&b, params[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", params[i], params[i+1])
	}
	return b.String()
}
