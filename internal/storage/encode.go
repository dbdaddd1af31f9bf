package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gustavo84/jira-database-etl/pkg/records"
)

// EncodeValue converts one row value into a form a plain-text column can
// hold. This is the load-time boundary where nested JSON is resolved:
//
//   - nil stays nil (SQL NULL)
//   - strings pass through unchanged
//   - json.Number keeps its literal text (no float round-trip)
//   - bool renders as "true"/"false"
//   - maps and slices serialize to canonical JSON text with HTML escaping
//     off, so non-ASCII content is preserved byte-for-byte
//
// Structured values must never reach a driver as-is; a text column cannot
// store them and drivers reject or mangle them in backend-specific ways.
func EncodeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case map[string]any, []any:
		return marshalCanonical(t)
	default:
		return fmt.Sprint(t), nil
	}
}

// EncodeRow builds one positional row for InsertRows from a keyed record.
// Columns absent from the record become NULL, so every inserted row carries
// a value for every column of the table.
func EncodeRow(columns []string, rec records.Record) ([]any, error) {
	row := make([]any, len(columns))
	for i, c := range columns {
		v, err := EncodeValue(rec[c])
		if err != nil {
			return nil, fmt.Errorf("storage: encode column %q: %w", c, err)
		}
		row[i] = v
	}
	return row, nil
}

// EncodeRows applies EncodeRow across a record collection, producing the
// [][]any shape the Repository insert path expects.
func EncodeRows(columns []string, recs []records.Record) ([][]any, error) {
	rows := make([][]any, 0, len(recs))
	for i, rec := range recs {
		row, err := EncodeRow(columns, rec)
		if err != nil {
			return nil, fmt.Errorf("storage: row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// marshalCanonical renders a nested value as compact JSON text. A plain
// json.Marshal would escape <, >, and & to <-style sequences; the
// encoder with SetEscapeHTML(false) keeps the stored text identical to the
// source document, which matters for round-tripping values back out of the
// database.
func marshalCanonical(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder appends a newline after every value.
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
