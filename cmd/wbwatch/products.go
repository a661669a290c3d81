package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wbpricebot/wbwatch/internal/database"
	"github.com/wbpricebot/wbwatch/internal/export"
	"github.com/wbpricebot/wbwatch/internal/model"
)

// productStore is the part of the database the products commands use.
type productStore interface {
	GetGlobalProducts(ctx context.Context) ([]*model.GlobalProduct, error)
	SearchGlobalProducts(ctx context.Context, q string) ([]*model.GlobalProduct, error)
	ReplaceGlobalProducts(ctx context.Context, products []*model.GlobalProduct) (int64, error)
}

// NewProductsCmd creates the products command group.
func NewProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the watch list from the command line",
		Long: `Products lists, exports and imports the global watch list stored in
DATABASE_URL. The workbook layout is the one the bot uses for bulk edits.`,
	}

	cmd.AddCommand(newProductsListCmd())
	cmd.AddCommand(newProductsExportCmd())
	cmd.AddCommand(newProductsImportCmd())

	return cmd
}

func newProductsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [filter]",
		Short: "List watched products, optionally filtered by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return withStore(cmd, func(ctx context.Context, store productStore) error {
				return listProducts(ctx, store, filter, cmd.OutOrStdout())
			})
		},
	}
}

func newProductsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the watch list to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			if output == "" {
				return errNoOutput
			}
			return withStore(cmd, func(ctx context.Context, store productStore) error {
				n, err := exportProducts(ctx, cmd, store, output)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d products to %s\n", n, output)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Workbook to write (required)")
	return cmd
}

func newProductsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Replace the watch list with the rows of a workbook",
		Long: `Import reads a workbook in the bulk edit layout (name, threshold,
exclusions, keywords) and replaces the whole watch list with its rows.
Rows that cannot be read are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store productStore) error {
				return importProducts(ctx, store, args[0], cmd.OutOrStdout())
			})
		},
	}
}

// withStore opens the configured database for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store productStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	_, closer := setupLogger(cfg)
	defer closer.Close() //nolint:errcheck // Best effort flush on exit

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	store, err := database.Open(ctx, cfg.DatabaseURL, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close() //nolint:errcheck // Read-mostly session

	return fn(ctx, store)
}

// listProducts prints the products whose name contains filter as a table.
func listProducts(ctx context.Context, store productStore, filter string, w io.Writer) error {
	var (
		products []*model.GlobalProduct
		err      error
	)
	if strings.TrimSpace(filter) == "" {
		products, err = store.GetGlobalProducts(ctx)
	} else {
		products, err = store.SearchGlobalProducts(ctx, filter)
	}
	if err != nil {
		return err
	}

	if len(products) == 0 {
		fmt.Fprintln(w, "No products")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tWINDOW\tKEYWORDS\tEXCLUSIONS")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.ThresholdLabel(),
			strings.Join(p.Keywords, ", "), strings.Join(p.Exclusions, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d\n", len(products))
	return nil
}

// exportProducts writes the watch list to output and returns the row count.
func exportProducts(ctx context.Context, cmd *cobra.Command, store productStore, output string) (int, error) {
	products, err := store.GetGlobalProducts(ctx)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, export.ErrNoProducts
	}

	w, closeOutput, err := openOutput(cmd, output)
	if err != nil {
		return 0, err
	}
	err = export.WriteGlobalProducts(w, products)
	if cerr := closeOutput(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close workbook: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	return len(products), nil
}

// errNothingToImport is returned when a workbook yields no usable rows.
var errNothingToImport = errors.New("workbook has no usable rows, watch list left unchanged")

// importProducts replaces the watch list with the rows of the workbook at path.
func importProducts(ctx context.Context, store productStore, path string, w io.Writer) error {
	f, err := os.Open(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read only

	products, problems, err := export.ImportGlobalProducts(f)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Fprintln(w, p)
	}
	if len(products) == 0 {
		return errNothingToImport
	}

	deleted, err := store.ReplaceGlobalProducts(ctx, products)
	if err != nil {
		return fmt.Errorf("failed to replace products: %w", err)
	}
	fmt.Fprintf(w, "Imported %d products, replaced %d, skipped %d rows\n", len(products), deleted, len(problems))
	return nil
}
