package storage

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/gustavo84/jira-database-etl/pkg/records"
)

func TestEncodeValue_Scalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil stays nil", nil, nil},
		{"string passes through", "hello", "hello"},
		{"json number keeps literal", json.Number("10014"), "10014"},
		{"json number keeps decimal literal", json.Number("3.50"), "3.50"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"float", float64(2.5), "2.5"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := EncodeValue(tt.in)
			if err != nil {
				t.Fatalf("EncodeValue(%#v): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("EncodeValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

// Encoded nested values must parse back into an equivalent structure: the
// text column is the only copy, so the serialization cannot be lossy.
func TestEncodeValue_NestedRoundTrip(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"self": "https://example.atlassian.net/rest/api/2/issue/10001",
		"fields": map[string]any{
			"labels": []any{"backend", "märkë"},
			"votes":  json.Number("3"),
		},
	}

	got, err := EncodeValue(in)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	text, ok := got.(string)
	if !ok {
		t.Fatalf("EncodeValue returned %T, want string", got)
	}

	var back map[string]any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&back); err != nil {
		t.Fatalf("decode stored text: %v", err)
	}
	if !reflect.DeepEqual(back, in) {
		t.Fatalf("round trip changed value: got %#v, want %#v", back, in)
	}
}

// HTML-significant characters and non-ASCII text must be stored byte for
// byte, not as \u escapes.
func TestEncodeValue_NoHTMLEscaping(t *testing.T) {
	t.Parallel()

	got, err := EncodeValue(map[string]any{"html": "<b>&ü</b>"})
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	want := `{"html":"<b>&ü</b>"}`
	if got != want {
		t.Fatalf("EncodeValue = %q, want %q", got, want)
	}
}

func TestEncodeRow_MissingColumnsBecomeNull(t *testing.T) {
	t.Parallel()

	columns := []string{"id", "name", "extra"}
	row, err := EncodeRow(columns, records.Record{"id": json.Number("1"), "name": "one"})
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	want := []any{"1", "one", nil}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("EncodeRow = %#v, want %#v", row, want)
	}
}

func TestEncodeRows_PreservesOrder(t *testing.T) {
	t.Parallel()

	columns := []string{"id"}
	rows, err := EncodeRows(columns, []records.Record{
		{"id": "a"},
		{"id": "b"},
		{"id": "c"},
	})
	if err != nil {
		t.Fatalf("EncodeRows: %v", err)
	}
	want := [][]any{{"a"}, {"b"}, {"c"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("EncodeRows = %#v, want %#v", rows, want)
	}
}
