package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"
)

// Format is an export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"

	// DefaultSheetName names the single worksheet of an xlsx export.
	DefaultSheetName = "Finviz Data"

	filenameBase = "finviz_data"
)

// ParseFormat accepts "xlsx", "excel", "csv" in any case. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want xlsx or csv)", s)
	}
}

// ContentType returns the MIME type served for downloads.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the fixed download filename.
func (f Format) Filename() string {
	if f == FormatCSV {
		return filenameBase + ".csv"
	}
	return filenameBase + ".xlsx"
}

// WriteCSV writes a header row followed by one row per record.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook holding a single sheet. Every cell is written
// as text; no type inference is attempted.
func (t *Table) WriteXLSX(w io.Writer, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	for i, values := range append([][]string{t.Columns}, t.Rows...) {
		cells := make([]any, len(values))
		for j, v := range values {
			if v != "" {
				cells[j] = excelize.Cell{Value: v}
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Encode serializes the table in format.
func (t *Table) Encode(format Format, sheet string) ([]byte, error) {
	var buf bytes.Buffer

	var err error
	switch format {
	case FormatCSV:
		err = t.WriteCSV(&buf)
	case FormatXLSX:
		err = t.WriteXLSX(&buf, sheet)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Render prints the table for a terminal. Only the first maxColumns columns
// are shown; zero shows all.
func (t *Table) Render(w io.Writer, maxColumns int) {
	columns := t.Columns
	if maxColumns > 0 && len(columns) > maxColumns {
		columns = columns[:maxColumns]
	}

	tw := prettytable.NewWriter()
	tw.SetOutputMirror(w)

	header := make(prettytable.Row, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	tw.AppendHeader(header)

	for _, values := range t.Rows {
		row := make(prettytable.Row, len(columns))
		for i := range columns {
			row[i] = values[i]
		}
		tw.AppendRow(row)
	}

	tw.SetStyle(prettytable.StyleRounded)
	tw.Render()
}
