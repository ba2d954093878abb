package tickers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// InputError reports an uploaded file that cannot be turned into tickers.
// It is the only error class that aborts a batch before any fetch begins.
type InputError struct {
	Filename string
	Message  string
	Cause    error
}

// Error implements the error interface
func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("input error (%s): %s: %v", e.Filename, e.Message, e.Cause)
	}
	return fmt.Sprintf("input error (%s): %s", e.Filename, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *InputError) Unwrap() error {
	return e.Cause
}

// IsInputError reports whether err is, or wraps, an *InputError.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

// FromFile reads the first column of a CSV or Excel workbook. The first row
// is treated as a header and skipped.
func FromFile(name string, r io.Reader) ([]string, error) {
	var (
		column []string
		err    error
	)

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		column, err = csvFirstColumn(r)
	case ".xlsx", ".xlsm":
		column, err = xlsxFirstColumn(r)
	case ".xls":
		return nil, &InputError{Filename: name, Message: "legacy .xls workbooks are not supported, save as .xlsx"}
	default:
		return nil, &InputError{Filename: name, Message: fmt.Sprintf("unsupported file type %q", ext)}
	}

	if err != nil {
		return nil, &InputError{Filename: name, Message: "failed to read file", Cause: err}
	}

	return Normalize(column), nil
}

func csvFirstColumn(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	return firstColumn(rows), nil
}

func xlsxFirstColumn(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return firstColumn(rows), nil
}

func firstColumn(rows [][]string) []string {
	if len(rows) <= 1 {
		return nil
	}

	column := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		column = append(column, row[0])
	}
	return column
}
