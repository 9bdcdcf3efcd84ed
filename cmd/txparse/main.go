package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rumor-ml/commons.systems/txparse/internal/config"
	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
	"github.com/rumor-ml/commons.systems/txparse/internal/extract"
	"github.com/rumor-ml/commons.systems/txparse/internal/llm"
	"github.com/rumor-ml/commons.systems/txparse/internal/output"
	"github.com/rumor-ml/commons.systems/txparse/internal/pipeline"
	"github.com/rumor-ml/commons.systems/txparse/internal/scanner"
	"github.com/rumor-ml/commons.systems/txparse/internal/server"
	"github.com/rumor-ml/commons.systems/txparse/internal/store"
	"github.com/rumor-ml/commons.systems/txparse/internal/ui"
	"github.com/rumor-ml/commons.systems/txparse/internal/validate"
)

const version = "0.1.0"

var (
	versionFlag = flag.Bool("version", false, "Show version")
	configFile  = flag.String("config", "", "Config file (YAML)")

	// CLI mode
	inputPath  = flag.String("input", "", "PDF file or directory of statements")
	outputFile = flag.String("output", "", "Output file (default: stdout)")
	formatFlag = flag.String("format", "json", "Output format: json or csv")
	aggregate  = flag.Bool("aggregate", false, "Add per-instrument totals to results")
	cachePath  = flag.String("cache", "", "SQLite cache file for parse results")
	dryRun     = flag.Bool("dry-run", false, "Show what would be parsed without calling the backend")
	verbose    = flag.Bool("verbose", false, "Show detailed logs")

	// Server mode
	serveFlag = flag.Bool("serve", false, "Run the HTTP API server")
	addrFlag  = flag.String("addr", "", "Listen address (default from config)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `txparse - Extract transactions from PDF broker statements

Usage:
  txparse [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Parse one statement to stdout
  txparse -input statement.pdf

  # Parse a directory with aggregation and a local cache
  txparse -input ~/statements -aggregate -cache cache.db -output report.json

  # Export all transactions as CSV
  txparse -input ~/statements -format csv -output transactions.csv

  # Run the HTTP API
  txparse -serve -addr :8080

`)
	}
	flag.Parse()

	if *versionFlag {
		fmt.Printf("txparse version %s\n", version)
		os.Exit(0)
	}
	if !*serveFlag && *inputPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required (or -serve)\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *cachePath != "" {
		cfg.CacheBackend = "sqlite"
		cfg.CachePath = *cachePath
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	format, err := output.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	if *dryRun && !*serveFlag {
		return dryRunScan()
	}

	client, err := llm.New(llm.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout.Std(),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Retry: llm.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay.Std(),
			Multiplier:  cfg.RetryMultiplier,
		},
	})
	if err != nil {
		return err
	}

	pipeCfg := pipeline.Config{
		Extractor: extract.NewPDFExtractor(),
		Client:    client,
		Validator: validate.NewWithDropLimit(cfg.MaxDropFraction),
	}

	var fsClient *store.FirestoreClient
	switch cfg.CacheBackend {
	case "sqlite":
		sqliteStore, err := store.OpenSQLite(cfg.CachePath)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		pipeCfg.Records = sqliteStore
	case "firestore":
		fsClient, err = store.NewFirestoreClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return err
		}
		defer fsClient.Close()
		pipeCfg.Records = fsClient
		pipeCfg.History = fsClient
	}

	if cfg.StorageBucket != "" {
		blobs, err := store.NewGCSBlobStore(ctx, cfg.StorageBucket)
		if err != nil {
			return err
		}
		defer blobs.Close()
		pipeCfg.Blobs = blobs
	}

	pipe, err := pipeline.New(pipeCfg)
	if err != nil {
		return err
	}

	if *serveFlag {
		return serve(ctx, cfg, pipe, fsClient)
	}
	return parseLocal(ctx, pipe, format)
}

// dryRunScan lists the files a real run would process.
func dryRunScan() error {
	files, err := scanner.New(*inputPath).Scan()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	fmt.Printf("Dry run complete. Would process %d files.\n", len(files))
	return nil
}

func serve(ctx context.Context, cfg config.Config, pipe *pipeline.Pipeline, fsClient *store.FirestoreClient) error {
	srvCfg := server.Config{Parser: pipe}
	if fsClient != nil {
		srvCfg.History = fsClient
		if cfg.AuthEnabled {
			srvCfg.Verifier = fsClient.Auth
		}
	} else if cfg.AuthEnabled {
		return fmt.Errorf("auth_enabled requires the firestore cache backend")
	}

	fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Addr)
	return server.New(srvCfg).ListenAndServe(ctx, cfg.Addr)
}

func parseLocal(ctx context.Context, pipe *pipeline.Pipeline, format output.Format) error {
	if !*verbose {
		ui.Header("Parsing Broker Statements")
		ui.Step(1, 3, "Scanning for PDF statements")
	}

	files, err := scanner.New(*inputPath).Scan()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF files found under %s", *inputPath)
	}
	if !*verbose {
		ui.Success(fmt.Sprintf("Found %d statement(s)", len(files)))
		ui.Step(2, 3, "Extracting transactions")
	}

	opts := pipeline.Options{Aggregate: *aggregate}
	results := make([]*domain.ParseResult, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Parsing %s\n", path)
		} else {
			fmt.Fprintf(os.Stderr, "\r  Progress: %d/%d files...", i+1, len(files))
		}

		result, cached, err := pipe.ParseFile(ctx, path, opts)
		if err != nil {
			return fmt.Errorf("parse failed for %s: %w", filepath.Base(path), err)
		}
		if *verbose && cached {
			fmt.Fprintf(os.Stderr, "  (served from cache)\n")
		}
		results = append(results, result)
	}
	if !*verbose {
		fmt.Fprintf(os.Stderr, "\r  Progress: %d/%d files - Complete!\n", len(files), len(files))
		ui.Step(3, 3, "Writing output")
	}

	if err := output.WriteResults(results, output.WriteOptions{Format: format, FilePath: *outputFile}); err != nil {
		return err
	}

	transactions, dropped := summarize(results)
	if dropped > 0 {
		ui.Warning(fmt.Sprintf("Validator dropped %d element(s); check statements for unusual entries", dropped))
	}
	if *outputFile != "" {
		ui.Success(fmt.Sprintf("Wrote %d transaction(s) to %s", transactions, *outputFile))
	}
	return nil
}

// summarize totals transactions and validator drops across results.
func summarize(results []*domain.ParseResult) (transactions, dropped int) {
	for _, r := range results {
		transactions += r.TransactionCount
		dropped += r.DroppedCount
	}
	return transactions, dropped
}
