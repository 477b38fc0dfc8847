// EventMind pipeline driver.
//
// Two phase entry points, run as separate invocations:
//
//	eventmind discover -state CA -city "San Francisco" -category tech -max-events 30
//	eventmind enrich
//
// plus a small read-side helper:
//
//	eventmind top -limit 20
//
// Exit status is 0 on success and nonzero on fatal failure; per-record
// outcomes go to the log stream on stderr.
//
// Configuration is primarily via environment variables (flags override):
//
//	EVENTBRITE_TOKEN, EVENTMIND_DB, EVENTMIND_PG_DSN, REGIONS_FILE,
//	LLM_BASE_URL, LLM_API_KEY, LLM_MODEL, METRICS_ADDR, LOG_LEVEL, ...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Naga-Manohar-Y/EventMind/internal/browser"
	"github.com/Naga-Manohar-Y/EventMind/internal/catalog"
	"github.com/Naga-Manohar-Y/EventMind/internal/config"
	"github.com/Naga-Manohar-Y/EventMind/internal/crawl"
	"github.com/Naga-Manohar-Y/EventMind/internal/discovery"
	"github.com/Naga-Manohar-Y/EventMind/internal/enrich"
	"github.com/Naga-Manohar-Y/EventMind/internal/metrics"
	"github.com/Naga-Manohar-Y/EventMind/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if lvl, err := zerolog.ParseLevel(config.EnvString("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if config.LoadDotenv() {
		log.Debug().Msg("loaded .env")
	}

	if len(args) < 1 {
		usage()
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runLog := log.With().Str("run_id", uuid.NewString()).Logger()

	var err error
	switch args[0] {
	case "discover":
		err = runDiscover(ctx, args[1:], runLog)
	case "enrich":
		err = runEnrich(ctx, args[1:], runLog)
	case "top":
		err = runTop(ctx, args[1:], runLog)
	default:
		usage()
		return 2
	}
	if err != nil {
		runLog.Error().Err(err).Msg("run failed")
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: eventmind <discover|enrich|top> [flags]")
}

// storeFlags are the persistence options shared by every subcommand.
type storeFlags struct {
	dbPath     string
	pgDSN      string
	pgMaxConns int
}

func addStoreFlags(fs *flag.FlagSet) *storeFlags {
	var sf storeFlags
	fs.StringVar(&sf.dbPath, "db", config.EnvString("EVENTMIND_DB", "data/events.db"),
		"SQLite store path. Env: EVENTMIND_DB")
	fs.StringVar(&sf.pgDSN, "pg-dsn", config.EnvString("EVENTMIND_PG_DSN", ""),
		"Postgres DSN (enables the Postgres backend). Env: EVENTMIND_PG_DSN")
	fs.IntVar(&sf.pgMaxConns, "pg-max-conns", config.EnvInt("EVENTMIND_PG_MAX_CONNS", 4),
		"Postgres max connections. Env: EVENTMIND_PG_MAX_CONNS")
	return &sf
}

func openStore(ctx context.Context, sf *storeFlags, logger zerolog.Logger) (store.Store, error) {
	retry := store.DefaultRetryPolicy()
	if sf.pgDSN != "" {
		return store.OpenPostgres(ctx, sf.pgDSN, sf.pgMaxConns, retry, logger)
	}
	return store.OpenSQLite(sf.dbPath, retry, logger)
}

func runDiscover(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	state := fs.String("state", config.EnvString("EVENTMIND_STATE", "CA"), "State code. Env: EVENTMIND_STATE")
	city := fs.String("city", config.EnvString("EVENTMIND_CITY", "San Francisco"), "City display name. Env: EVENTMIND_CITY")
	category := fs.String("category", config.EnvString("EVENTMIND_CATEGORY", "tech"), "Listing category. Env: EVENTMIND_CATEGORY")
	maxEvents := fs.Int("max-events", config.EnvInt("EVENTMIND_MAX_EVENTS", 20), "Target identifier count (1-100). Env: EVENTMIND_MAX_EVENTS")
	regionsPath := fs.String("regions", config.EnvString("REGIONS_FILE", "regions.yml"), "Regions table. Env: REGIONS_FILE")
	baseURL := fs.String("listing-base-url", config.EnvString("LISTING_BASE_URL", crawl.DefaultBaseURL), "Listing site root. Env: LISTING_BASE_URL")
	settle := fs.Duration("settle", config.EnvDuration("CRAWL_SETTLE", crawl.DefaultSettleDelay), "Per-page settle delay. Env: CRAWL_SETTLE")
	maxPages := fs.Int("max-pages", config.EnvInt("CRAWL_MAX_PAGES", crawl.DefaultMaxPages), "Hard page ceiling. Env: CRAWL_MAX_PAGES")
	chromePath := fs.String("chrome", config.EnvString("CHROME_PATH", ""), "Browser binary override. Env: CHROME_PATH")
	metricsAddr := fs.String("metrics", config.EnvString("METRICS_ADDR", ""), "Serve /metrics and pprof here. Env: METRICS_ADDR")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *maxEvents < 1 || *maxEvents > 100 {
		return fmt.Errorf("max-events must be in 1..100, got %d", *maxEvents)
	}
	regions, err := config.LoadRegions(*regionsPath)
	if err != nil {
		return err
	}
	if err := regions.Validate(*state, *city, *category); err != nil {
		return err
	}

	metrics.Serve(*metricsAddr)

	st, err := openStore(ctx, sf, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.InitSchema(ctx); err != nil {
		return err
	}

	logger.Info().Str("state", *state).Str("city", *city).Str("category", *category).
		Int("max_events", *maxEvents).Msg("starting discovery")

	session, err := browser.NewChromeSession(ctx, browser.Options{ExecPath: *chromePath})
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	runner := &discovery.Runner{
		Collector: &crawl.Crawler{
			Session:     session,
			BaseURL:     *baseURL,
			SettleDelay: *settle,
			MaxPages:    *maxPages,
			Log:         logger,
		},
		Catalog: catalog.New(catalog.Options{
			Token: config.EnvString("EVENTBRITE_TOKEN", ""),
			Log:   logger,
		}),
		Store: st,
		Log:   logger,
	}

	_, err = runner.Run(ctx, crawl.Query{
		State:     *state,
		City:      *city,
		Category:  *category,
		MaxEvents: *maxEvents,
	})
	return err
}

func runEnrich(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	workers := fs.Int("workers", config.EnvInt("ENRICH_WORKERS", enrich.DefaultWorkers), "Worker pool size. Env: ENRICH_WORKERS")
	batch := fs.Int("batch", config.EnvInt("ENRICH_BATCH", enrich.DefaultBatchSize), "Max records per run. Env: ENRICH_BATCH")
	pacing := fs.Duration("pacing", config.EnvDuration("ENRICH_PACING", enrich.DefaultPacing), "Per-task delay before the enrichment call. Env: ENRICH_PACING")
	metricsAddr := fs.String("metrics", config.EnvString("METRICS_ADDR", ""), "Serve /metrics and pprof here. Env: METRICS_ADDR")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	metrics.Serve(*metricsAddr)

	st, err := openStore(ctx, sf, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.InitSchema(ctx); err != nil {
		return err
	}

	enricher, err := enrich.NewLLMEnricher(enrich.LLMOptions{
		BaseURL: config.EnvString("LLM_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		APIKey:  config.EnvString("LLM_API_KEY", ""),
		Model:   config.EnvString("LLM_MODEL", "meta/llama-3.1-8b-instruct"),
	})
	if err != nil {
		return err
	}

	o := &enrich.Orchestrator{
		Store:     st,
		Enricher:  enricher,
		Workers:   *workers,
		BatchSize: *batch,
		Pacing:    *pacing,
		Log:       logger,
	}
	results, err := o.Run(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info().Int("completed", len(results)-failed).Int("failed", failed).
		Msg("enrichment run complete")
	if failed > 0 && failed == len(results) {
		return fmt.Errorf("all %d enrichment tasks failed", failed)
	}
	return nil
}

func runTop(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Rows to print")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(ctx, sf, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.InitSchema(ctx); err != nil {
		return err
	}

	events, err := st.TopScored(ctx, *limit)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Printf("%2d  %-12s %-24s %s\n", *ev.LeadScore, ev.ID, ev.City, ev.Name)
	}
	if len(events) == 0 {
		fmt.Println("no scored events yet")
	}
	return nil
}
