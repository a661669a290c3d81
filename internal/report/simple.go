package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds seller, stock and SIM type lines to every item.
	verbose bool

	// limit caps the number of items printed. Zero prints all.
	limit int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLimit prints at most n items.
func WithLimit(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n >= 0 {
			w.limit = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.SearchReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeItems(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SearchReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("WILDBERRIES SEARCH\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Query:     %s\n", report.Query)
	if len(report.Keywords) > 0 {
		fmt.Fprintf(sb, "Keywords:  %s\n", strings.Join(report.Keywords, ", "))
	}
	if len(report.Exclusions) > 0 {
		fmt.Fprintf(sb, "Excluded:  %s\n", strings.Join(report.Exclusions, ", "))
	}
	fmt.Fprintf(sb, "Searched:  %s\n", report.SearchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Discount:  %d%%\n", report.Discount)
	fmt.Fprintf(sb, "Results:   %d\n", len(report.Items))
	if report.Error != "" {
		fmt.Fprintf(sb, "Status:    ERROR - %s\n", report.Error)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeItems(sb *strings.Builder, report *model.SearchReport) {
	if len(report.Items) == 0 {
		sb.WriteString("  No products found\n\n")
		return
	}

	items := report.Items
	if w.limit > 0 && len(items) > w.limit {
		items = items[:w.limit]
	}

	for i, it := range items {
		fmt.Fprintf(sb, "%3d. %s\n", i+1, it.Name)
		fmt.Fprintf(sb, "     %d ₽ (list %d ₽)\n", it.DiscountedPrice, it.Price)
		if w.verbose {
			fmt.Fprintf(sb, "     SIM: %s | Seller: %s | Stock: %d\n", it.SimType, it.Seller, it.Stock)
		}
		fmt.Fprintf(sb, "     %s\n", it.URL)
	}
	if len(items) < len(report.Items) {
		fmt.Fprintf(sb, "  ... and %d more\n", len(report.Items)-len(items))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.SearchReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if best := report.Cheapest(); best != nil {
		fmt.Fprintf(sb, "Cheapest: %d ₽ %s\n", best.DiscountedPrice, best.URL)
	}
}
