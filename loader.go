package main

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// ModelColumns lists the dataset columns in table order
var ModelColumns = []string{
	"model",
	"dtype",
	"brand",
	"brand_title",
	"code",
	"code_alias",
	"model_name",
	"ver_name",
}

// Header policies for ParseOptions.Header
const (
	HeaderAuto   = "auto"
	HeaderAlways = "true"
	HeaderNever  = "false"
)

// PhoneModel is one row of the dataset. Every field is opaque text; an invalid
// NullString stands for a missing value.
type PhoneModel struct {
	Model      sql.NullString
	Dtype      sql.NullString
	Brand      sql.NullString
	BrandTitle sql.NullString
	Code       sql.NullString
	CodeAlias  sql.NullString
	ModelName  sql.NullString
	VerName    sql.NullString
}

// Values returns the fields in ModelColumns order
func (m PhoneModel) Values() []sql.NullString {
	return []sql.NullString{
		m.Model, m.Dtype, m.Brand, m.BrandTitle,
		m.Code, m.CodeAlias, m.ModelName, m.VerName,
	}
}

// fields returns pointers to the fields in ModelColumns order
func (m *PhoneModel) fields() []*sql.NullString {
	return []*sql.NullString{
		&m.Model, &m.Dtype, &m.Brand, &m.BrandTitle,
		&m.Code, &m.CodeAlias, &m.ModelName, &m.VerName,
	}
}

// ParseOptions controls how the raw dataset is read
type ParseOptions struct {
	Delimiter  rune     // CSV delimiter character
	Header     string   // HeaderAuto, HeaderAlways or HeaderNever
	NullValues []string // Cell values treated as NULL in addition to the empty cell
}

// DefaultParseOptions returns comma-delimited parsing with header detection
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Delimiter: ',',
		Header:    HeaderAuto,
	}
}

// ParseModels parses the CSV dataset into rows, preserving source order.
// Malformed input is reported as *ParseError.
func ParseModels(data []byte, opts ParseOptions) ([]PhoneModel, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errors.New("dataset is empty")}
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.Delimiter
	// A quote inside an unquoted cell is literal text, e.g. an inch mark.
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // Field counts are checked below to report the expected count

	first, err := reader.Read()
	if err != nil {
		return nil, csvParseError(err)
	}

	// positions[i] is the record index holding ModelColumns[i]
	positions := make([]int, len(ModelColumns))
	for i := range positions {
		positions[i] = i
	}
	width := len(ModelColumns)

	var pending []string
	switch hasHeader := looksLikeHeader(first); {
	case opts.Header == HeaderAlways || (opts.Header != HeaderNever && hasHeader):
		positions, err = headerPositions(first)
		if err != nil {
			return nil, &ParseError{Line: 1, Err: err}
		}
		width = len(first)
	default:
		pending = first
	}

	nulls := make(map[string]bool, len(opts.NullValues))
	for _, v := range opts.NullValues {
		nulls[v] = true
	}

	var models []PhoneModel
	for {
		record := pending
		pending = nil
		if record == nil {
			record, err = reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, csvParseError(err)
			}
		}
		if len(record) != width {
			line, _ := reader.FieldPos(0)
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("column count (%d) does not match expected column count (%d)", len(record), width),
			}
		}

		var m PhoneModel
		for i, field := range m.fields() {
			v := record[positions[i]]
			if v == "" || nulls[v] {
				continue
			}
			*field = sql.NullString{String: v, Valid: true}
		}
		models = append(models, m)
	}
	return models, nil
}

// looksLikeHeader reports whether record names every dataset column
func looksLikeHeader(record []string) bool {
	names := make(map[string]bool, len(record))
	for _, name := range record {
		names[normalizeColumnName(name)] = true
	}
	for _, col := range ModelColumns {
		if !names[col] {
			return false
		}
	}
	return true
}

// headerPositions maps every dataset column to its index in the header row
func headerPositions(header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeColumnName(name)
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("duplicate header column '%s'", name)
		}
		index[key] = i
	}

	positions := make([]int, len(ModelColumns))
	for i, col := range ModelColumns {
		pos, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("header is missing required column '%s'", col)
		}
		positions[i] = pos
		delete(index, col)
	}
	for name := range index {
		log.Printf("Warning: ignoring unknown dataset column '%s'", name)
	}
	return positions, nil
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// csvParseError converts an encoding/csv error into a *ParseError
func csvParseError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{Line: perr.Line, Err: perr.Err}
	}
	if errors.Is(err, io.EOF) {
		return &ParseError{Err: errors.New("dataset is empty")}
	}
	return &ParseError{Err: err}
}
