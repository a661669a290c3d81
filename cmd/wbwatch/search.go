package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wbpricebot/wbwatch/internal/config"
	"github.com/wbpricebot/wbwatch/internal/model"
	"github.com/wbpricebot/wbwatch/internal/report"
)

// errEmptyQuery is returned when the query argument is blank.
var errEmptyQuery = errors.New("query must not be empty")

// searcher runs a filtered catalogue search. *wildberries.Client implements it.
type searcher interface {
	Search(ctx context.Context, query string, keywords, exclusions []string) ([]model.RawProduct, error)
}

// searchOptions holds the flags shared by search and export.
type searchOptions struct {
	query      string
	keywords   []string
	exclusions []string
	discount   int

	// search only
	jsonOut     bool
	markdownOut bool
	sortByPrice bool
	limit       int
	verbose     bool
	output      string
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the Wildberries catalogue once",
		Long: `Search runs one catalogue search with the same filters the monitor uses
and prints the matching offers with the site discount applied.

Keywords select catalogue filters (SIM type, storage, colour) and must all
appear in a product's name or characteristics. Exclusions drop products that
mention any of them.

Examples:
  # Plain search
  wbwatch search "iPhone 16 Pro"

  # With keywords and exclusions, cheapest first
  wbwatch search "iPhone 16 Pro" -k 256GB -k Esim -x "б/у" --sort

  # Markdown report written to a file
  wbwatch search "iPhone 16 Pro" --markdown -o report.md`,
		Args: cobra.ExactArgs(1),
		RunE: runSearchCmd,
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("json", false, "Output the report as JSON")
	cmd.Flags().Bool("markdown", false, "Output the report as Markdown")
	cmd.Flags().Bool("sort", false, "Sort offers by discounted price, cheapest first")
	cmd.Flags().IntP("limit", "n", 0, "Show at most N offers in the text report (0 = all)")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// addFilterFlags registers the keyword, exclusion and discount flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("keyword", "k", nil, "Keyword a product must contain (repeatable)")
	cmd.Flags().StringSliceP("exclude", "x", nil, "Word that excludes a product (repeatable)")
	cmd.Flags().IntP("discount", "d", model.DefaultSiteBaseDiscount, "Site discount in percent")
}

// parseSearchOptions reads the flags of search and export.
func parseSearchOptions(cmd *cobra.Command, args []string) (searchOptions, error) {
	opts := searchOptions{query: strings.TrimSpace(args[0])}
	if opts.query == "" {
		return opts, errEmptyQuery
	}

	var err error
	if opts.keywords, err = cmd.Flags().GetStringSlice("keyword"); err != nil {
		return opts, err
	}
	if opts.exclusions, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
		return opts, err
	}
	if opts.discount, err = cmd.Flags().GetInt("discount"); err != nil {
		return opts, err
	}
	if opts.discount < 0 || opts.discount > 100 {
		return opts, fmt.Errorf("discount must be between 0 and 100, got %d", opts.discount)
	}

	// Flags below exist only on search.
	if cmd.Flags().Lookup("json") != nil {
		opts.jsonOut, _ = cmd.Flags().GetBool("json")
		opts.markdownOut, _ = cmd.Flags().GetBool("markdown")
		opts.sortByPrice, _ = cmd.Flags().GetBool("sort")
		opts.limit, _ = cmd.Flags().GetInt("limit")
		opts.verbose = getVerboseFlag(cmd)
	}
	opts.output, _ = cmd.Flags().GetString("output")

	return opts, nil
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseSearchOptions(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := setupLogger(cfg)
	defer closer.Close() //nolint:errcheck // Best effort flush on exit

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	s, err := newCLISearcher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	w, closeOutput, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // Write errors are reported by the writer

	// A report written to a file is summarized on the terminal as well.
	var summary io.Writer
	if opts.output != "" {
		summary = cmd.OutOrStdout()
	}
	return runSearch(ctx, s, opts, w, summary)
}

// newCLISearcher creates a client on the cached session, refreshing it when
// the cache is stale.
func newCLISearcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (searcher, error) {
	session := newCookieManager(cfg, cfg.CookiesCacheFile, logger)
	if err := session.Update(ctx, false); err != nil {
		logger.Warn("cookie refresh failed, searching without a fresh session", "error", err)
	}
	client, err := newSearchClient(cfg, session, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return client, nil
}

// runSearch searches once and writes the report to w, and a short text
// summary to summary when it is not nil. A failed search still produces a
// report carrying the error.
func runSearch(ctx context.Context, s searcher, opts searchOptions, w, summary io.Writer) error {
	raws, searchErr := s.Search(ctx, opts.query, opts.keywords, opts.exclusions)

	r := report.NewSearchReport(opts.query, raws, opts.discount)
	r.Keywords = opts.keywords
	r.Exclusions = opts.exclusions
	if searchErr != nil {
		r.Error = searchErr.Error()
	}
	if opts.sortByPrice {
		r.SortByPrice()
	}

	if err := writeReport(w, summary, r, opts); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if searchErr != nil {
		return fmt.Errorf("search failed: %w", searchErr)
	}
	return nil
}

// summaryLimit is the number of offers listed in a terminal summary.
const summaryLimit = 5

// writeReport selects the report writer from the output flags.
func writeReport(w, summary io.Writer, r *model.SearchReport, opts searchOptions) error {
	var writer report.Writer
	switch {
	case opts.jsonOut:
		writer = report.NewJSONWriter(w, report.WithPrettyPrint())
	case opts.markdownOut:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w,
			report.WithLimit(opts.limit),
			report.WithVerbose(opts.verbose),
		)
	}

	if summary != nil {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(summary, report.WithLimit(summaryLimit)))
	}

	_, err := writer.Write(r)
	return err
}
