package extract

import "github.com/gustavo84/jira-database-etl/pkg/records"

// FlatColumns is the fixed, hand-picked schema of the flattened changelog
// table. Unlike dynamic tables it is not inferred from data and is constant
// across runs.
var FlatColumns = []string{
	IssueKeyColumn,
	"author_name",
	"author_account_id",
	"created",
	"field",
	"from",
	"to",
}

// FlattenChangelog projects changelog history rows (as gathered for the
// dynamic changelog table) into one fixed-schema row each: the parent link,
// the author's display name and account id (null unless the author field is
// an object), the entry timestamp, and the changed field with its before and
// after strings.
//
// Only the FIRST element of each entry's items list is projected; a history
// entry recording several simultaneous field changes loses all but the
// first. Consumers needing one row per individual change must expand the
// items list from the dynamic changelog table instead.
func FlattenChangelog(rows []records.Record) []records.Record {
	flat := make([]records.Record, 0, len(rows))
	for _, r := range rows {
		out := records.Record{
			IssueKeyColumn:      r[IssueKeyColumn],
			"author_name":       nil,
			"author_account_id": nil,
			"created":           r["created"],
			"field":             nil,
			"from":              nil,
			"to":                nil,
		}
		if author := asObject(r["author"]); author != nil {
			out["author_name"] = author["displayName"]
			out["author_account_id"] = author["accountId"]
		}
		if items, ok := r["items"].([]any); ok && len(items) > 0 {
			if item := asObject(items[0]); item != nil {
				out["field"] = item["field"]
				out["from"] = item["fromString"]
				out["to"] = item["toString"]
			}
		}
		flat = append(flat, out)
	}
	return flat
}
