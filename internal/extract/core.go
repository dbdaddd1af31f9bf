package extract

import "github.com/gustavo84/jira-database-etl/pkg/records"

// CoreColumns is the fixed schema of the core issues table: one row per
// issue with the handful of fields every downstream report needs.
var CoreColumns = []string{
	"key",
	"summary",
	"status",
	"project",
	"issuetype",
	"priority",
	"assignee",
	"created",
	"updated",
}

// CoreRow projects one issue document onto CoreColumns. Every nested lookup
// goes through Path, so an absent or null field (unassigned issues, missing
// priority) lands as NULL instead of failing the row.
func CoreRow(issue records.Record) records.Record {
	return records.Record{
		"key":       issue[KeyField],
		"summary":   Path(issue, "fields.summary"),
		"status":    Path(issue, "fields.status.name"),
		"project":   Path(issue, "fields.project.name"),
		"issuetype": Path(issue, "fields.issuetype.name"),
		"priority":  Path(issue, "fields.priority.name"),
		"assignee":  Path(issue, "fields.assignee.displayName"),
		"created":   Path(issue, "fields.created"),
		"updated":   Path(issue, "fields.updated"),
	}
}

// CoreRows applies CoreRow across a document collection.
func CoreRows(issues []records.Record) []records.Record {
	out := make([]records.Record, 0, len(issues))
	for _, issue := range issues {
		out = append(out, CoreRow(issue))
	}
	return out
}
