package ingest

import (
	"errors"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
	"github.com/odyssey-erp/invoice-insights/internal/validation"
)

// ParseCSV reads the whole file into memory as raw rows keyed by header. Every
// cell is kept as text; coercion happens in validation.
func ParseCSV(r io.Reader) ([]validation.RawRow, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
		dataframe.WithLazyQuotes(true),
	)
	if err := df.Error(); err != nil {
		return nil, shared.E(shared.KindValidationFailed, "ingest: parse csv", err)
	}

	records := df.Records()
	if len(records) == 0 {
		return nil, shared.E(shared.KindValidationFailed, "ingest: parse csv", errors.New("file has no header"))
	}
	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}
	if missing := validation.MissingColumns(header); len(missing) > 0 {
		fields := make([]shared.FieldError, 0, len(missing))
		for _, col := range missing {
			fields = append(fields, shared.FieldError{Field: col, Rule: "column", Message: "column is missing from the header"})
		}
		return nil, &shared.Error{Kind: shared.KindValidationFailed, Op: "ingest: header", Fields: fields}
	}

	rows := make([]validation.RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(validation.RawRow, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
