package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wbpricebot/wbwatch/internal/matcher"
	"github.com/wbpricebot/wbwatch/internal/model"
)

// ImportGlobalProducts reads a watch list workbook. The first sheet holds a
// header row followed by rows of name, threshold, exclusions and keywords.
//
// Rows that cannot be used are reported as problems, one message per row,
// and skipped. The error is non-nil only when the workbook cannot be read.
func ImportGlobalProducts(r io.Reader) ([]*model.GlobalProduct, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	var (
		products []*model.GlobalProduct
		problems []string
	)
	for i := 1; i < len(rows); i++ {
		line := i + 1
		cells := rows[i]
		if blank(cells) {
			continue
		}

		name := strings.TrimSpace(cell(cells, 0))
		threshold := strings.TrimSpace(cell(cells, 1))
		if name == "" || threshold == "" {
			problems = append(problems, fmt.Sprintf("Строка %d: отсутствует название или порог", line))
			continue
		}

		lo, hi, err := matcher.ParseThresholdCell(threshold, isNumeric(f, sheet, line))
		if err != nil {
			problems = append(problems, fmt.Sprintf("Строка %d: неверный формат порога", line))
			continue
		}

		products = append(products, &model.GlobalProduct{
			Name:         name,
			ThresholdMin: lo,
			ThresholdMax: model.Threshold(hi),
			Exclusions:   model.DecodeWords(cell(cells, 2)),
			Keywords:     model.DecodeWords(cell(cells, 3)),
		})
	}
	return products, problems, nil
}

// isNumeric reports whether the threshold cell of row holds a number
// rather than text.
func isNumeric(f *excelize.File, sheet string, row int) bool {
	axis, err := excelize.CoordinatesToCellName(2, row)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return false
	}
	return typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
