package extract

import "github.com/gustavo84/jira-database-etl/pkg/records"

const (
	// KeyField is the document field holding the parent issue's unique key.
	KeyField = "key"

	// IssueKeyColumn is the column injected into every gathered row linking
	// it back to its owning document.
	IssueKeyColumn = "issue_key"
)

// Gather explodes each document's sub-sequence at path into flat rows and
// tags every row with its parent's key under IssueKeyColumn.
//
// Documents where the path does not resolve to a list contribute nothing;
// list elements that are not objects are skipped. The tag is attached to the
// element map itself, the only mutation ever applied to an input document.
func Gather(docs []records.Record, path string) []records.Record {
	var rows []records.Record
	for _, doc := range docs {
		list, ok := Path(doc, path).([]any)
		if !ok {
			continue
		}
		for _, elem := range list {
			m := asObject(elem)
			if m == nil {
				continue
			}
			if key, ok := doc[KeyField].(string); ok {
				m[IssueKeyColumn] = key
			} else {
				m[IssueKeyColumn] = nil
			}
			rows = append(rows, records.Record(m))
		}
	}
	return rows
}
