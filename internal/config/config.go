// Package config defines the canonical, JSON-serializable configuration
// model for the JIRA ETL. It is intentionally small and explicit so that
// pipelines can be loaded from disk and passed through the program without
// additional glue code; decoding is performed by the standard library.
//
// Example (trimmed):
//
//	{
//	  "job":  "jira_etl",
//	  "jira": { "endpoint": "https://x.atlassian.net/rest/api/2/search",
//	            "username": "bot@example.com", "issues_jql": "project = X" },
//	  "dynamic": {
//	    "tables": [
//	      { "table": "jira_subtasks",  "path": "fields.subtasks" },
//	      { "table": "jira_changelog", "path": "changelog.histories" }
//	    ],
//	    "changelog_table": "jira_changelog"
//	  },
//	  "core":    { "table": "jira_issues_core" },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgresql://..." } }
//	}
package config

import "os"

// Pipeline describes a full ETL run. It is the top-level object decoded from
// a pipeline file (e.g., configs/pipelines/*.json).
type Pipeline struct {
	// Job is the logical job name, used for metrics labeling and logs.
	Job string `json:"job"`

	// Jira configures the upstream issue source.
	Jira Jira `json:"jira"`

	// Dynamic configures the dynamically-schemed extraction targets.
	Dynamic Dynamic `json:"dynamic"`

	// Core configures the fixed-column issues table.
	Core Core `json:"core"`

	// Storage describes where extracted tables are written.
	Storage Storage `json:"storage"`
}

// Jira holds connection and query settings for the issue source.
type Jira struct {
	// Endpoint is the JQL search URL of the instance, e.g.
	// "https://example.atlassian.net/rest/api/2/search". Per-issue detail
	// URLs are derived from it.
	Endpoint string `json:"endpoint"`

	// Username and APIKey form the basic-auth pair. APIKey is usually left
	// empty in the file and supplied via the JIRA_API_KEY environment
	// variable (see ApplyEnv).
	Username string `json:"username"`
	APIKey   string `json:"api_key"`

	// IssuesJQL selects the non-epic issues; EpicsJQL selects epics. An
	// empty EpicsJQL disables the epics fetch.
	IssuesJQL string `json:"issues_jql"`
	EpicsJQL  string `json:"epics_jql"`

	// PageSize bounds each search page. Zero means the default of 100.
	PageSize int `json:"page_size"`

	// MaxRetries is the number of retry attempts after the initial request
	// for transient failures (429/5xx/transport errors).
	MaxRetries int `json:"max_retries"`

	// TimeoutSeconds is the per-request timeout. Zero means the client
	// default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// InsecureSkipVerify disables TLS certificate verification; useful for
	// internal test endpoints only.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// Dynamic lists the extraction targets whose schemas are discovered from the
// data at run time.
type Dynamic struct {
	// Tables maps dynamic table names to the dot-path into each issue
	// document that yields that table's rows, in processing order.
	Tables []DynamicTable `json:"tables"`

	// ChangelogTable names the one target whose rows are additionally
	// flattened into a second, fixed-schema "<table>_flat" table. Empty
	// disables flattening.
	ChangelogTable string `json:"changelog_table"`
}

// DynamicTable is one (table name, extraction path) pair.
type DynamicTable struct {
	Table string `json:"table"`
	Path  string `json:"path"`
}

// Core configures the fixed-column issues table. An empty Table disables the
// core load.
type Core struct {
	Table string `json:"table"`
}

// Storage selects the sink used to persist extracted tables.
type Storage struct {
	// Kind selects the storage backend: "postgres", "mysql", "sqlite", or
	// "mssql".
	Kind string `json:"kind"`

	// DB carries the backend connection settings.
	DB DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the backend connection string. Usually supplied via the DB_DSN
	// environment variable rather than committed to the pipeline file.
	DSN string `json:"dsn"`
}

// ApplyEnv overlays secret-bearing fields from the environment, 12-factor
// style. A set environment variable always wins over the file value.
//
//	JIRA_USERNAME → Jira.Username
//	JIRA_API_KEY  → Jira.APIKey
//	DB_DSN        → Storage.DB.DSN
func (p *Pipeline) ApplyEnv() {
	if v := os.Getenv("JIRA_USERNAME"); v != "" {
		p.Jira.Username = v
	}
	if v := os.Getenv("JIRA_API_KEY"); v != "" {
		p.Jira.APIKey = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		p.Storage.DB.DSN = v
	}
}
