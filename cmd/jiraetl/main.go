package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gustavo84/jira-database-etl/internal/config"
	"github.com/gustavo84/jira-database-etl/internal/jira"
	"github.com/gustavo84/jira-database-etl/internal/metrics"
	"github.com/gustavo84/jira-database-etl/internal/metrics/datadog"
	"github.com/gustavo84/jira-database-etl/internal/metrics/prompush"
	"github.com/gustavo84/jira-database-etl/internal/pipeline"
	"github.com/gustavo84/jira-database-etl/internal/storage"
	"github.com/gustavo84/jira-database-etl/pkg/records"

	// register all backends with the storage factory.
	// config specifies which to use but we build in support for all of them.
	_ "github.com/gustavo84/jira-database-etl/internal/storage/all"
)

// main is the entry point for the jiraetl binary. It loads the pipeline
// config, optionally initializes a metrics backend, fetches the issue
// documents, and executes the table loads.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/jira.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}

	var p config.Pipeline
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		f.Close()
		fatalf("decode config: %v", err)
	}
	f.Close()
	p.ApplyEnv()

	// Validate pipeline config.
	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit.
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(p.Job, metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: endpoint=%s storage=%s dynamic_tables=%d",
			p.Jira.Endpoint, p.Storage.Kind, len(p.Dynamic.Tables))
	}

	docs, err := fetchDocuments(ctx, p)
	if err != nil {
		log.Fatalf("fetch: %v", err)
	}

	repo, err := storage.New(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DB.DSN})
	if err != nil {
		// Without a store connection there is no per-table recovery.
		log.Fatalf("storage: %v", err)
	}
	defer repo.Close()

	pl := pipeline.New(p.Job, repo)
	if p.Core.Table != "" {
		if err := pl.LoadCore(ctx, p.Core.Table, docs); err != nil {
			// Contained: the dynamic targets can still run.
			log.Printf("%v", err)
		}
	}
	if err := pl.LoadDynamic(ctx, p.Dynamic, docs); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// fetchDocuments pulls the issue and epic document sets. The two JQL queries
// are independent upstream calls, so they run concurrently; everything after
// the fetch stays strictly sequential.
func fetchDocuments(ctx context.Context, p config.Pipeline) ([]records.Record, error) {
	fetcher := jira.NewFetcher(p.Jira)
	start := time.Now()

	var issues, epics []records.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issues, err = fetcher.Issues(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		epics, err = fetcher.Epics(gctx)
		return err
	})
	err := g.Wait()

	metrics.RecordStep(p.Job, "fetch", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	docs := append(issues, epics...)
	metrics.RecordRow(p.Job, "fetched", int64(len(docs)))
	return docs, nil
}

// setupMetrics installs the selected metrics backend, resolving settings
// flag → env → default. Unknown or failing backends degrade to nop.
func setupMetrics(job, backendName, gwURL, ddAddr string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "jira_etl"
	}

	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DOGSTATSD_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: ddAddr, GlobalTags: []string{"job:" + job}})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", ddAddr, backendName, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
