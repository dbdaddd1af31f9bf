// Command jiraprobe samples a handful of issues from the configured JIRA
// instance and prints, for each dynamic extraction target, the column set
// the pipeline would infer: observed JSON keys, a normalized snake_case
// suggestion for awkward names, and the schema fingerprint the pipeline logs
// at load time. Diffing fingerprints across probes is a cheap way to spot
// upstream schema drift before a full run.
//
// Example:
//
//	jiraprobe -config=configs/pipelines/jira.json -max=25 -table=jira_changelog
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gustavo84/jira-database-etl/internal/config"
	"github.com/gustavo84/jira-database-etl/internal/extract"
	"github.com/gustavo84/jira-database-etl/internal/jira"
)

func main() {
	var (
		cfgPath string
		table   string
		maxDocs int
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/jira.json", "pipeline config JSON path")
	flag.StringVar(&table, "table", "", "probe only this dynamic table (default: all)")
	flag.IntVar(&maxDocs, "max", 10, "number of issues to sample")
	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		log.Fatalf("open config: %v", err)
	}

	var p config.Pipeline
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		f.Close()
		log.Fatalf("decode config: %v", err)
	}
	f.Close()
	p.ApplyEnv()

	ctx := context.Background()
	docs, err := jira.NewFetcher(p.Jira).Sample(ctx, maxDocs)
	if err != nil {
		log.Fatalf("sample: %v", err)
	}
	if len(docs) == 0 {
		log.Fatalf("no issues matched %q; nothing to probe", p.Jira.IssuesJQL)
	}
	fmt.Printf("sampled %d issues\n", len(docs))

	probed := 0
	for _, target := range p.Dynamic.Tables {
		if table != "" && target.Table != table {
			continue
		}
		probed++

		rows := extract.Gather(docs, target.Path)
		cols := extract.InferColumns(rows)
		fmt.Printf("\ntable %s (path %s): %d rows, %d columns",
			target.Table, target.Path, len(rows), len(cols))
		if len(cols) == 0 {
			fmt.Printf("\n  no rows in sample; table would be skipped\n")
			continue
		}
		fmt.Printf(", fingerprint=%s\n", extract.Fingerprint(cols))

		for _, c := range cols {
			if suggested := normalizeFieldName(c); suggested != c {
				fmt.Printf("  %-40q suggested: %s\n", c, suggested)
			} else {
				fmt.Printf("  %-40q\n", c)
			}
		}
	}

	if probed == 0 {
		log.Fatalf("table %q is not among dynamic.tables", table)
	}
}

// normalizeFieldName lowercases a JSON key, strips accents, and squashes
// separators into underscores. It is only a suggestion for consumers who want
// plain identifiers instead of quoted ones; the pipeline itself never renames
// columns; it quotes whatever keys the documents carry.
func normalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevUnderscore = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	return strings.Trim(b.String(), "_")
}
