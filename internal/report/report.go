// Package report renders accounting and inventory results as CSV tables,
// Excel workbooks and flux charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// separator is the number of blank lines between tables in a multi-table
// CSV file.
const separator = 5

// Table is a titled grid of cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// WriteCSV writes t as a single CSV table without its title.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write %s header: %w", t.Title, err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s rows: %w", t.Title, err)
	}
	return nil
}

// WriteTables writes several titled tables to one CSV stream separated by
// blank lines.
func WriteTables(w io.Writer, tables ...Table) error {
	for i, t := range tables {
		if t.Title != "" {
			if _, err := io.WriteString(w, t.Title+"\n"); err != nil {
				return err
			}
		}
		if err := WriteCSV(w, t); err != nil {
			return err
		}
		if i < len(tables)-1 {
			if _, err := io.WriteString(w, strings.Repeat("\n", separator)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Float formats v with the given decimals.
func Float(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Int formats v rounded half away from zero.
func Int(v float64) string {
	return strconv.FormatInt(int64(math.Round(v)), 10)
}
