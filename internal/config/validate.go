// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of
// issues (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "dynamic.tables[1].path"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue
// values; callers decide whether to treat warnings as fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateJira(p.Jira)...)
	issues = append(issues, validateDynamic(p.Dynamic)...)
	issues = append(issues, validateStorage(p.Storage)...)

	return issues
}

func validateJira(j Jira) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Endpoint) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "jira.endpoint",
			Message:  "jira.endpoint must not be empty",
		})
	} else if !strings.HasPrefix(j.Endpoint, "http://") && !strings.HasPrefix(j.Endpoint, "https://") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "jira.endpoint",
			Message:  fmt.Sprintf("jira.endpoint %q is not an http(s) URL", j.Endpoint),
		})
	}
	if strings.TrimSpace(j.Username) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "jira.username",
			Message:  "jira.username is empty; set it in the file or via JIRA_USERNAME",
		})
	}
	if strings.TrimSpace(j.IssuesJQL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "jira.issues_jql",
			Message:  "jira.issues_jql must not be empty",
		})
	}
	if j.PageSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "jira.page_size",
			Message:  "page_size must not be negative",
		})
	}
	if j.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "jira.max_retries",
			Message:  "max_retries must not be negative",
		})
	}
	if j.InsecureSkipVerify {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "jira.insecure_skip_verify",
			Message:  "TLS certificate verification is disabled",
		})
	}

	return issues
}

func validateDynamic(d Dynamic) []Issue {
	var issues []Issue

	if len(d.Tables) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "dynamic.tables",
			Message:  "no dynamic tables configured; only the core table will be loaded",
		})
	}

	seen := map[string]int{}
	for i, t := range d.Tables {
		path := fmt.Sprintf("dynamic.tables[%d]", i)
		if strings.TrimSpace(t.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".table",
				Message:  "table name must not be empty",
			})
		}
		if strings.TrimSpace(t.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".path",
				Message:  "extraction path must not be empty",
			})
		}
		if prev, dup := seen[t.Table]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".table",
				Message:  fmt.Sprintf("table %q already defined at dynamic.tables[%d]; later targets would clobber earlier ones", t.Table, prev),
			})
		}
		seen[t.Table] = i

		// The flattened companion table is derived by suffix; a dynamic
		// table occupying that name would be overwritten.
		if d.ChangelogTable != "" && t.Table == d.ChangelogTable+"_flat" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".table",
				Message:  fmt.Sprintf("table %q collides with the flattened changelog table derived from %q", t.Table, d.ChangelogTable),
			})
		}
	}

	if d.ChangelogTable != "" {
		if _, ok := seen[d.ChangelogTable]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "dynamic.changelog_table",
				Message:  fmt.Sprintf("changelog_table %q is not among dynamic.tables; no flattening will happen", d.ChangelogTable),
			})
		}
	}

	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty; set it in the file or via DB_DSN",
		})
	}

	return issues
}
