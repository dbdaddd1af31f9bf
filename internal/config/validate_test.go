package config

import (
	"strings"
	"testing"
)

func validPipeline() Pipeline {
	return Pipeline{
		Job: "jira_etl",
		Jira: Jira{
			Endpoint:  "https://example.atlassian.net/rest/api/2/search",
			Username:  "bot@example.com",
			APIKey:    "token",
			IssuesJQL: "project = PROJ",
		},
		Dynamic: Dynamic{
			Tables: []DynamicTable{
				{Table: "jira_subtasks", Path: "fields.subtasks"},
				{Table: "jira_changelog", Path: "changelog.histories"},
			},
			ChangelogTable: "jira_changelog",
		},
		Core:    Core{Table: "jira_issues_core"},
		Storage: Storage{Kind: "postgres", DB: DBConfig{DSN: "postgresql://localhost/jira"}},
	}
}

func errorsOnly(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

func hasIssueAt(issues []Issue, path string, sev IssueSeverity) bool {
	for _, i := range issues {
		if i.Path == path && i.Severity == sev {
			return true
		}
	}
	return false
}

func TestValidatePipeline_ValidConfigHasNoErrors(t *testing.T) {
	t.Parallel()

	if errs := errorsOnly(ValidatePipeline(validPipeline())); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidatePipeline_RequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Pipeline)
		errPath string
	}{
		{"empty job", func(p *Pipeline) { p.Job = "" }, "job"},
		{"empty endpoint", func(p *Pipeline) { p.Jira.Endpoint = "" }, "jira.endpoint"},
		{"non-http endpoint", func(p *Pipeline) { p.Jira.Endpoint = "ftp://x" }, "jira.endpoint"},
		{"empty issues jql", func(p *Pipeline) { p.Jira.IssuesJQL = "" }, "jira.issues_jql"},
		{"negative page size", func(p *Pipeline) { p.Jira.PageSize = -1 }, "jira.page_size"},
		{"negative retries", func(p *Pipeline) { p.Jira.MaxRetries = -1 }, "jira.max_retries"},
		{"empty table name", func(p *Pipeline) { p.Dynamic.Tables[0].Table = "" }, "dynamic.tables[0].table"},
		{"empty path", func(p *Pipeline) { p.Dynamic.Tables[1].Path = "" }, "dynamic.tables[1].path"},
		{"empty storage kind", func(p *Pipeline) { p.Storage.Kind = "" }, "storage.kind"},
		{"empty dsn", func(p *Pipeline) { p.Storage.DB.DSN = "" }, "storage.db.dsn"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssueAt(issues, tt.errPath, SeverityError) {
				t.Fatalf("no error at %s; issues: %v", tt.errPath, issues)
			}
		})
	}
}

func TestValidatePipeline_DuplicateTableIsError(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Dynamic.Tables = append(p.Dynamic.Tables, DynamicTable{
		Table: "jira_subtasks", Path: "fields.issuelinks",
	})
	issues := ValidatePipeline(p)
	if !hasIssueAt(issues, "dynamic.tables[2].table", SeverityError) {
		t.Fatalf("duplicate table not flagged; issues: %v", issues)
	}
}

func TestValidatePipeline_Warnings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Pipeline)
		warnPath string
	}{
		{"empty username", func(p *Pipeline) { p.Jira.Username = "" }, "jira.username"},
		{"tls verification off", func(p *Pipeline) { p.Jira.InsecureSkipVerify = true }, "jira.insecure_skip_verify"},
		{"no dynamic tables", func(p *Pipeline) { p.Dynamic.Tables = nil; p.Dynamic.ChangelogTable = "" }, "dynamic.tables"},
		{"changelog table not a target", func(p *Pipeline) { p.Dynamic.ChangelogTable = "nowhere" }, "dynamic.changelog_table"},
		{"unknown storage kind", func(p *Pipeline) { p.Storage.Kind = "oracle" }, "storage.kind"},
		{
			"flat name collision",
			func(p *Pipeline) {
				p.Dynamic.Tables = append(p.Dynamic.Tables, DynamicTable{
					Table: "jira_changelog_flat", Path: "changelog.histories",
				})
			},
			"dynamic.tables[2].table",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssueAt(issues, tt.warnPath, SeverityWarning) {
				t.Fatalf("no warning at %s; issues: %v", tt.warnPath, issues)
			}
			if errs := errorsOnly(issues); len(errs) != 0 {
				t.Fatalf("warning case produced errors: %v", errs)
			}
		})
	}
}

func TestIssue_ErrorString(t *testing.T) {
	t.Parallel()

	i := Issue{Severity: SeverityError, Path: "storage.kind", Message: "missing"}
	if got := i.Error(); !strings.Contains(got, "storage.kind") || !strings.Contains(got, "error") {
		t.Fatalf("Error() = %q", got)
	}
}

func TestApplyEnv_OverlaysSecrets(t *testing.T) {
	t.Setenv("JIRA_USERNAME", "env-user@example.com")
	t.Setenv("JIRA_API_KEY", "env-token")
	t.Setenv("DB_DSN", "postgresql://env/jira")

	p := validPipeline()
	p.ApplyEnv()

	if p.Jira.Username != "env-user@example.com" {
		t.Fatalf("Username = %q", p.Jira.Username)
	}
	if p.Jira.APIKey != "env-token" {
		t.Fatalf("APIKey = %q", p.Jira.APIKey)
	}
	if p.Storage.DB.DSN != "postgresql://env/jira" {
		t.Fatalf("DSN = %q", p.Storage.DB.DSN)
	}
}

func TestApplyEnv_EmptyEnvKeepsFileValues(t *testing.T) {
	t.Setenv("JIRA_USERNAME", "")
	t.Setenv("JIRA_API_KEY", "")
	t.Setenv("DB_DSN", "")

	p := validPipeline()
	p.ApplyEnv()

	if p.Jira.Username != "bot@example.com" || p.Jira.APIKey != "token" {
		t.Fatalf("file values clobbered: %q %q", p.Jira.Username, p.Jira.APIKey)
	}
}
