package report

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// MarkdownWriter outputs reports in Markdown, suitable for pasting into
// issues or chats that render GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.SearchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeItems(md, report)
	w.writeSimTypes(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SearchReport) {
	md.H1("Wildberries search: " + report.Query)
	md.PlainText("")

	rows := [][]string{
		{"Query", "`" + report.Query + "`"},
		{"Searched", report.SearchedAt.Format("2006-01-02 15:04:05 MST")},
		{"Site discount", strconv.Itoa(report.Discount) + "%"},
		{"Results", strconv.Itoa(len(report.Items))},
	}
	if len(report.Keywords) > 0 {
		rows = append(rows, []string{"Keywords", strings.Join(report.Keywords, ", ")})
	}
	if len(report.Exclusions) > 0 {
		rows = append(rows, []string{"Exclusions", strings.Join(report.Exclusions, ", ")})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Error != "" {
		md.Cautionf("Search failed: %s", report.Error)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeItems(md *markdown.Markdown, report *model.SearchReport) {
	md.H2("Products")
	md.PlainText("")

	if len(report.Items) == 0 {
		md.Note("No products matched the query.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Items))
	for i, it := range report.Items {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			markdown.Link(escapeCell(truncateString(it.Name, 60)), it.URL),
			it.SimType,
			strconv.FormatInt(it.DiscountedPrice, 10),
			strconv.FormatInt(it.Price, 10),
			escapeCell(it.Seller),
			strconv.FormatInt(it.Stock, 10),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Name", "SIM", "Price (₽)", "List price (₽)", "Seller", "Stock"},
		Rows:   rows,
	})
	md.PlainText("")

	if best := report.Cheapest(); best != nil {
		md.Tipf("Cheapest offer: %d ₽, %s", best.DiscountedPrice, best.URL)
		md.PlainText("")
	}
}

// writeSimTypes writes a mermaid pie chart of the SIM type distribution.
func (w *MarkdownWriter) writeSimTypes(md *markdown.Markdown, report *model.SearchReport) {
	counts := report.SimTypeCounts()
	if len(counts) < 2 {
		return
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("SIM types"),
		piechart.WithShowData(true),
	)
	for _, label := range labels {
		chart.LabelAndIntValue(label, uint64(counts[label])) //nolint:gosec // counts are positive
	}

	md.H2("SIM types")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by wbwatch*")
}

// escapeCell keeps pipes from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
