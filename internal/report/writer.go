package report

import (
	"io"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// Writer outputs search reports in one format.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.SearchReport) (int, error)
}

// MultiWriter writes to multiple Writers, for example the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// It returns the total bytes written and stops on the first error.
func (m *MultiWriter) Write(report *model.SearchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
