package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mrlokans/animedex/internal/browse"
	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/jikan"
)

const maxTitleWidth = 48

// Searcher runs one catalog search (jikan.Client).
type Searcher interface {
	Search(ctx context.Context, params jikan.SearchParams) (*jikan.SearchResponse, error)
}

// SearchCommand prints one page of catalog results as a table
type SearchCommand struct {
	Params  jikan.SearchParams
	BaseURL string
	Timeout time.Duration

	Out     io.Writer
	Catalog Searcher
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{Out: os.Stdout}
}

func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	defaults := config.NewConfig().Jikan

	fs.StringVar(&cmd.Params.Query, "q", "", "Search text (empty lists the current season)")
	fs.StringVar(&cmd.Params.Type, "type", "", "Type filter: tv, movie, ova, special, ona, music")
	fs.StringVar(&cmd.Params.Status, "status", "", "Status filter: airing, complete, upcoming")
	fs.StringVar(&cmd.Params.Rating, "rating", "", "Age rating filter: g, pg, pg13, r17, r, rx")
	fs.StringVar(&cmd.Params.OrderBy, "order", "", "Order by: score, popularity, rank, members, favorites, title, start_date, episodes")
	fs.StringVar(&cmd.Params.Sort, "sort", "", "Sort direction: asc or desc")
	fs.Float64Var(&cmd.Params.MinScore, "min", 0, "Minimum score (0-10)")
	fs.Float64Var(&cmd.Params.MaxScore, "max", 0, "Maximum score (0-10)")
	fs.IntVar(&cmd.Params.Page, "page", 1, "Result page")
	fs.StringVar(&cmd.BaseURL, "base-url", defaults.BaseURL, "Jikan API base URL (or set JIKAN_BASE_URL)")
	fs.DurationVar(&cmd.Timeout, "timeout", 30*time.Second, "Overall timeout including retries")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Search the MyAnimeList catalog through the Jikan API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Current season:\n")
		fmt.Fprintf(os.Stderr, "  %s search\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Highly rated movies matching a title:\n")
		fmt.Fprintf(os.Stderr, "  %s search -q ghost -type movie -min 8 -order score\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 && cmd.Params.Query == "" {
		cmd.Params.Query = strings.Join(fs.Args(), " ")
	}

	cmd.Params = cmd.Params.Normalize()
	return nil
}

func (cmd *SearchCommand) Run() error {
	if cmd.Catalog == nil {
		cfg := config.NewConfig().Jikan
		if cmd.BaseURL != "" {
			cfg.BaseURL = cmd.BaseURL
		}
		client, err := jikan.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to create catalog client: %w", err)
		}
		cmd.Catalog = client
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := cmd.Catalog.Search(ctx, cmd.Params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return cmd.print(resp)
}

func (cmd *SearchCommand) print(resp *jikan.SearchResponse) error {
	if cmd.Params.HasFilters() {
		fmt.Fprintln(cmd.Out, "Search results")
	} else {
		fmt.Fprintln(cmd.Out, "Current season")
	}
	if chips := browse.ActiveFilters(browse.State{Params: cmd.Params}); len(chips) > 0 {
		labels := make([]string, 0, len(chips))
		for _, c := range chips {
			labels = append(labels, c.Label+": "+c.Value)
		}
		fmt.Fprintf(cmd.Out, "Filters: %s\n", strings.Join(labels, ", "))
	}
	fmt.Fprintln(cmd.Out)

	cards := browse.Cards(resp.Data, nil)
	if len(cards) == 0 {
		fmt.Fprintln(cmd.Out, "No results found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tEPS\tSCORE\tSTATUS")
	for _, c := range cards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, truncate(c.Title, maxTitleWidth), c.Type, c.Episodes, c.Score, c.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	page := cmd.Params.Page
	last, hasNext := page, false
	total := len(cards)
	if p := resp.Pagination; p != nil {
		last, hasNext = p.LastVisiblePage, p.HasNextPage
		if p.Items.Total > 0 {
			total = p.Items.Total
		}
	}
	pagination := browse.Paginate(page, last, hasNext, browse.DefaultWindow)

	fmt.Fprintf(cmd.Out, "\nPage %d of %d (%d results)\n", pagination.Current, pagination.Last, total)
	if pagination.HasNext {
		fmt.Fprintf(cmd.Out, "Next page: -page %d\n", pagination.NextPage)
	}
	return nil
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
