// Package dataset loads trade records from CSV and JSON files and reads the
// project configuration file.
//
// Readers produce []economy.Record, the row form consumed by the pipeline's
// build stage. Column names are configurable; the defaults match the
// canonical country/product/value layout.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Format identifies an input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "cannot infer format from %q (use .csv or .json)", path)
	}
}

// ReadFile loads records from a file, inferring the format from the
// extension.
func ReadFile(path string, cols economy.Columns) ([]economy.Record, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, err
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		return ReadCSV(f, cols)
	default:
		return ReadJSON(f)
	}
}

// ReadCSV reads records from CSV data. The first row must be a header
// containing the three configured column names; extra columns are carried
// through untouched.
func ReadCSV(r io.Reader, cols economy.Columns) ([]economy.Record, error) {
	if cols == (economy.Columns{}) {
		cols = economy.DefaultColumns()
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty CSV input")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read CSV header")
	}

	for _, required := range []string{cols.Country, cols.Product, cols.Value} {
		found := false
		for _, h := range header {
			if h == required {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "CSV header missing column %q", required)
		}
	}

	var rows []economy.Record
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read CSV row %d", len(rows)+2)
		}
		row := make(economy.Record, len(header))
		for i, h := range header {
			if i < len(fields) {
				row[h] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "CSV input has a header but no rows")
	}
	return rows, nil
}

// ReadJSON reads records from a JSON array of objects.
func ReadJSON(r io.Reader) ([]economy.Record, error) {
	var rows []economy.Record
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode JSON records")
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "JSON input has no records")
	}
	return rows, nil
}
