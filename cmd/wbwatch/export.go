package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wbpricebot/wbwatch/internal/export"
)

// errNoOutput is returned when export is run without -o.
var errNoOutput = errors.New("an output file is required (-o results.xlsx)")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <query>",
		Short: "Export search results to an Excel workbook",
		Long: `Export runs one catalogue search and writes the best offers to an .xlsx
workbook with the same layout the bot sends for a product export: name,
SIM type, discounted price and link.

Examples:
  # Top 10 offers for a watched product
  wbwatch export "iPhone 16 Pro" -k 256GB -o iphone.xlsx

  # All offers, no discount
  wbwatch export "iPhone 16 Pro" --top 0 -d 0 -o iphone.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runExportCmd,
	}

	addFilterFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Workbook to write (required)")
	cmd.Flags().Int("top", 10, "Export at most N offers (0 = all)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseSearchOptions(cmd, args)
	if err != nil {
		return err
	}
	if opts.output == "" {
		return errNoOutput
	}
	top, err := cmd.Flags().GetInt("top")
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

	n, err := runExport(ctx, s, opts, top, w)
	if cerr := closeOutput(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close workbook: %w", cerr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d offers for %q to %s\n", n, opts.query, opts.output)
	return nil
}

// runExport searches once and writes at most top results to w.
// It returns the number of search results exported.
func runExport(ctx context.Context, s searcher, opts searchOptions, top int, w io.Writer) (int, error) {
	raws, err := s.Search(ctx, opts.query, opts.keywords, opts.exclusions)
	if err != nil {
		return 0, fmt.Errorf("search failed: %w", err)
	}
	if top > 0 && len(raws) > top {
		raws = raws[:top]
	}
	if err := export.WriteFoundProducts(w, raws, opts.discount); err != nil {
		return 0, err
	}
	return len(raws), nil
}
