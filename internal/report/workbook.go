package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// Workbook builds an Excel workbook with one sheet per table. Numeric
// cells are stored as numbers.
func Workbook(tables ...Table) (*excelize.File, error) {
	f := excelize.NewFile()
	used := make(map[string]bool)

	for i, t := range tables {
		name := sheetName(t.Title, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, t); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbook writes tables as an .xlsx stream.
func WriteWorkbook(w io.Writer, tables ...Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table) error {
	row := 1
	for _, line := range strings.Split(t.Title, "\n") {
		if line == "" {
			continue
		}
		if err := f.SetCellValue(sheet, cell(1, row), line); err != nil {
			return err
		}
		row++
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, cell(1, row), &header); err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet, err)
	}
	row++

	for _, r := range t.Rows {
		values := make([]any, len(r))
		for i, v := range r {
			values[i] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
		}
		row++
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func cellValue(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func sheetName(title string, i int, used map[string]bool) string {
	name, _, _ := strings.Cut(title, "\n")
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return ' '
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Table %d", i+1)
	}
	name = truncate(name, maxSheetName)

	// Excel compares sheet names case-insensitively.
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
