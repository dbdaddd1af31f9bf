// Package extract pulls dynamically-shaped rows out of nested issue
// documents: dot-path traversal, column-set inference over heterogeneous
// rows, and the fixed changelog/core projections.
package extract

import (
	"strings"

	"github.com/gustavo84/jira-database-etl/pkg/records"
)

// Path resolves a dot-separated path against a nested document and returns
// the value found there, or nil when the path does not resolve.
//
// Traversal is fail-soft: a missing segment, an explicit null, or a
// non-object intermediate node all yield nil rather than an error, so a
// malformed document never aborts the run; it just contributes no rows.
// The final value is returned as-is; callers must tolerate any type.
func Path(doc records.Record, path string) any {
	var cur any = map[string]any(doc)
	for _, seg := range strings.Split(path, ".") {
		m := asObject(cur)
		if m == nil {
			return nil
		}
		next, ok := m[seg]
		if !ok || next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// asObject unwraps a value as a JSON object. Both the named Record type and
// the raw map produced by encoding/json appear in practice.
func asObject(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case records.Record:
		return map[string]any(m)
	default:
		return nil
	}
}
