package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/gustavo84/jira-database-etl/pkg/records"
)

// InferColumns derives a table's column set from a heterogeneous row
// collection: the union of keys observed across all rows. Two rows need not
// share keys; a row missing a key loads as NULL for that column.
//
// The result is sorted so that one invocation's order is stable for the
// materialize and insert steps that immediately reuse it. An empty or
// all-nil input returns nil, which callers must treat as "nothing to load";
// no table is created for an empty column set.
func InferColumns(rows []records.Record) []string {
	set := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			set[k] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Fingerprint returns a short stable hash of a column set, independent of
// order. Logged at materialization time, it lets operators diff schema
// drift across runs without comparing full column lists.
func Fingerprint(columns []string) string {
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(sorted, "\x00")))
}
