package jira

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gustavo84/jira-database-etl/internal/config"
	"github.com/gustavo84/jira-database-etl/pkg/records"
)

// defaultPageSize bounds one search page when the config does not say
// otherwise; 100 is the instance-side maximum on JIRA Cloud anyway.
const defaultPageSize = 100

// expandParams is sent with every per-issue detail fetch so that the full
// document (field names, changelog, rendered fields) comes back in one call.
const expandParams = "names,changelog,renderedFields"

// Fetcher retrieves full issue documents matching a JQL query.
//
// The fetch is two-phase: a paginated /search collecting only issue keys,
// then one detail GET per key with the changelog expanded. The detail
// endpoint is the only way to get the complete changelog; /search truncates
// it.
type Fetcher struct {
	client    *Client
	searchURL string
	issueBase string
	issuesJQL string
	epicsJQL  string
	pageSize  int
}

// NewFetcher builds a Fetcher from the pipeline's jira section.
func NewFetcher(cfg config.Jira) *Fetcher {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	client := NewClient(ClientConfig{
		Username:           cfg.Username,
		APIKey:             cfg.APIKey,
		Timeout:            time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:         cfg.MaxRetries,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})

	return &Fetcher{
		client:    client,
		searchURL: cfg.Endpoint,
		issueBase: issueBaseURL(cfg.Endpoint),
		issuesJQL: cfg.IssuesJQL,
		epicsJQL:  cfg.EpicsJQL,
		pageSize:  pageSize,
	}
}

// Issues fetches the full documents for all issues matching the issues JQL.
func (f *Fetcher) Issues(ctx context.Context) ([]records.Record, error) {
	return f.fetchAll(ctx, f.issuesJQL)
}

// Epics fetches the full documents for all issues matching the epics JQL.
// Returns nil when no epics JQL is configured.
func (f *Fetcher) Epics(ctx context.Context) ([]records.Record, error) {
	if strings.TrimSpace(f.epicsJQL) == "" {
		return nil, nil
	}
	return f.fetchAll(ctx, f.epicsJQL)
}

// Sample fetches the full documents for at most n issues matching the
// issues JQL, pulling a single search page. Used by the probe tool; a real
// run goes through Issues/Epics.
func (f *Fetcher) Sample(ctx context.Context, n int) ([]records.Record, error) {
	if n <= 0 {
		n = 1
	}

	q := url.Values{}
	q.Set("jql", f.issuesJQL)
	q.Set("fields", "key")
	q.Set("maxResults", strconv.Itoa(n))
	q.Set("startAt", "0")

	var page searchPage
	if err := f.client.GetJSON(ctx, f.searchURL+"?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("jira: sample search: %w", err)
	}

	docs := make([]records.Record, 0, len(page.Issues))
	for _, iss := range page.Issues {
		var doc records.Record
		if err := f.client.GetJSON(ctx, f.issueURL(iss.Key), &doc); err != nil {
			return docs, fmt.Errorf("jira: sample fetch %s: %w", iss.Key, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// searchPage mirrors the slice of the /search response body we care about.
type searchPage struct {
	Issues []struct {
		Key string `json:"key"`
	} `json:"issues"`
}

func (f *Fetcher) fetchAll(ctx context.Context, jql string) ([]records.Record, error) {
	keys, err := f.searchKeys(ctx, jql)
	if err != nil {
		return nil, err
	}
	log.Printf("jira: found %d issues for jql=%q", len(keys), jql)

	docs := make([]records.Record, 0, len(keys))
	for _, key := range keys {
		var doc records.Record
		if err := f.client.GetJSON(ctx, f.issueURL(key), &doc); err != nil {
			if ctx.Err() != nil {
				return docs, ctx.Err()
			}
			// One unfetchable issue should not sink the run.
			log.Printf("jira: failed to fetch %s: %v", key, err)
			continue
		}
		docs = append(docs, doc)
	}
	log.Printf("jira: fetched %d of %d issue documents", len(docs), len(keys))
	return docs, nil
}

// searchKeys pages through /search requesting only the key field, which is
// far cheaper than pulling full documents page by page. Pagination stops on
// a short page; JIRA Cloud does not reliably send isLast.
func (f *Fetcher) searchKeys(ctx context.Context, jql string) ([]string, error) {
	var keys []string
	startAt := 0

	for {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("fields", "key")
		q.Set("maxResults", strconv.Itoa(f.pageSize))
		q.Set("startAt", strconv.Itoa(startAt))

		var page searchPage
		if err := f.client.GetJSON(ctx, f.searchURL+"?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("jira: search startAt=%d: %w", startAt, err)
		}

		for _, iss := range page.Issues {
			keys = append(keys, iss.Key)
		}
		if len(page.Issues) < f.pageSize {
			return keys, nil
		}
		startAt += len(page.Issues)
	}
}

func (f *Fetcher) issueURL(key string) string {
	return f.issueBase + "/issue/" + url.PathEscape(key) + "?expand=" + expandParams
}

// issueBaseURL derives the REST base from the search endpoint by stripping
// the trailing /search segment, e.g.
// ".../rest/api/2/search" → ".../rest/api/2".
func issueBaseURL(endpoint string) string {
	if i := strings.LastIndex(endpoint, "/search"); i >= 0 {
		return endpoint[:i]
	}
	return strings.TrimSuffix(endpoint, "/")
}
