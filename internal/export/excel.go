package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/wbpricebot/wbwatch/internal/model"
	"github.com/wbpricebot/wbwatch/internal/wildberries"
)

// Sheet names and headers of the generated workbooks.
const (
	ResultsSheet  = "Результаты"
	ProductsSheet = "Глобальные товары"

	headerColor = "4472C4"
)

var (
	resultsHeader  = []any{"Название товара", "Тип симки", "Цена (₽)", "Ссылка на ВБ"}
	productsHeader = []any{"Название", "Пороговая цена", "Слова исключения (через запятую)", "Ключевые слова (через запятую)"}
)

// ErrNoProducts is returned when there is nothing to export.
var ErrNoProducts = errors.New("no products to export")

// WriteFoundProducts writes search results as a workbook to w.
// Prices carry the site discount. Products without a valid price are skipped.
func WriteFoundProducts(w io.Writer, raws []model.RawProduct, discount int) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := styleHeader(f, ResultsSheet, "D1"); err != nil {
		return err
	}

	row := 2
	for _, raw := range raws {
		info, ok := wildberries.ExtractProductInfo(raw)
		if !ok {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", row, err)
		}
		values := []any{info.Name, SimType(raw), wildberries.ApplyDiscount(info.Price, discount), info.URL}
		if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	if row > 2 {
		if err := styleResults(f, row-1); err != nil {
			return err
		}
	}

	for col, width := range map[string]float64{"A": 40, "B": 20, "C": 15, "D": 50} {
		if err := f.SetColWidth(ResultsSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// FoundProducts writes search results for query to a temporary file and
// returns its path. The caller removes the file.
func FoundProducts(query string, raws []model.RawProduct, discount int) (string, error) {
	name := fmt.Sprintf("export_%s_%s.xlsx", safeName(query), time.Now().Format("20060102_150405"))
	return writeTemp(name, func(w io.Writer) error {
		return WriteFoundProducts(w, raws, discount)
	})
}

// WriteGlobalProducts writes the watch list in the layout
// ImportGlobalProducts reads.
func WriteGlobalProducts(w io.Writer, products []*model.GlobalProduct) error {
	if len(products) == 0 {
		return ErrNoProducts
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ProductsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(ProductsSheet, "A1", &productsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		values := []any{p.Name, p.ThresholdLabel(), model.EncodeWords(p.Exclusions), model.EncodeWords(p.Keywords)}
		if err := f.SetSheetRow(ProductsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ProductsSheet, "A", "D", 30); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// GlobalProducts writes the watch list to a temporary file and returns its
// path. The caller removes the file.
func GlobalProducts(products []*model.GlobalProduct) (string, error) {
	name := "global_products_" + time.Now().Format("20060102_150405") + ".xlsx"
	return writeTemp(name, func(w io.Writer) error {
		return WriteGlobalProducts(w, products)
	})
}

func styleHeader(f *excelize.File, sheet, last string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return nil
}

// styleResults wraps text in every data row and centres the price column.
func styleResults(f *excelize.File, lastRow int) error {
	left, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}
	center, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}

	last := strconv.Itoa(lastRow)
	if err := f.SetCellStyle(ResultsSheet, "A2", "D"+last, left); err != nil {
		return fmt.Errorf("failed to style rows: %w", err)
	}
	if err := f.SetCellStyle(ResultsSheet, "C2", "C"+last, center); err != nil {
		return fmt.Errorf("failed to style prices: %w", err)
	}
	return nil
}

// writeTemp creates a unique temporary file whose name starts with the
// given name without its extension.
func writeTemp(name string, write func(io.Writer) error) (string, error) {
	ext := filepath.Ext(name)
	file, err := os.CreateTemp("", strings.TrimSuffix(name, ext)+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file %s: %w", name, err)
	}
	path := file.Name()

	if err := write(file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// safeName keeps letters, digits, spaces, underscores and dashes, at most
// 50 characters.
func safeName(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == 50 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
			n++
		}
	}
	return strings.TrimSpace(b.String())
}
