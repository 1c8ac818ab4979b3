package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
	"github.com/aluiziolira/go-inventory-bridge/delivery"
	"github.com/aluiziolira/go-inventory-bridge/models"
	"github.com/aluiziolira/go-inventory-bridge/parser"
	"github.com/aluiziolira/go-inventory-bridge/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: ./bridge.yaml when present)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	workers := flag.Int("workers", 0, "Number of files processed concurrently")
	dryRun := flag.Bool("dry-run", false, "Write normalized vehicles to -output instead of posting them")
	outputFile := flag.String("output", "", "Dry-run output file path")
	outputFormat := flag.String("format", "", "Dry-run output format: csv, json, or dual")
	reprocessLatest := flag.Bool("reprocess-latest", false, "Submit a copy of the most recent backup")
	sender := flag.String("sender", "manual", "Username recorded as the uploader")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] FILE...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	bootLogger, _ := newLogger(levelName(*verbose, "info"), "auto")
	slog.SetDefault(bootLogger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	applyFlags(cfg, *verbose, *metricsAddr, *workers, *outputFile, *outputFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger, level := newLogger(levelName(cfg.Verbose, cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if flag.NArg() == 0 && !*reprocessLatest {
		flag.Usage()
		os.Exit(2)
	}

	vocab := parser.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		vocab, err = parser.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			slog.Error("loading vocabulary", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, interrupting pending retries")
	}()

	metrics := pipeline.NewMetrics()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	client := delivery.NewClient(cfg)
	var (
		deliverer pipeline.Deliverer = client
		reporter  pipeline.StatusReporter
		writer    pipeline.OutputWriter
	)
	if *dryRun {
		writer, err = pipeline.NewOutputWriter(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			slog.Error("creating writer", slog.Any("error", err))
			os.Exit(1)
		}
		deliverer = pipeline.NewWriterDeliverer(writer)
		reporter = pipeline.NewLogReporter(logger)
	} else {
		reporter = pipeline.MultiReporter{
			pipeline.NewLogReporter(logger),
			pipeline.NewRemoteReporter(client, cfg.NotifySuccess, metrics),
		}
	}

	processor := pipeline.NewProcessor(cfg, parser.NewNormalizer(vocab), deliverer, reporter, metrics)
	p := pipeline.NewPipeline(ctx, processor, cfg)

	var (
		resultsMu sync.Mutex
		results   []models.FileResult
	)
	p.OnResult(func(r models.FileResult) {
		resultsMu.Lock()
		results = append(results, r)
		resultsMu.Unlock()
	})
	p.Start(cfg.Workers)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbDone sync.WaitGroup
	if !*dryRun {
		hbDone.Add(1)
		go func() {
			defer hbDone.Done()
			pipeline.NewHeartbeat(client, cfg, metrics).Run(hbCtx)
		}()
	}

	files := flag.Args()
	if *reprocessLatest {
		path, err := stageLatestBackup(processor.Store())
		if err != nil {
			slog.Error("reprocess latest backup", slog.Any("error", err))
			os.Exit(1)
		}
		files = append(files, path)
	}

	slog.Info("starting ingestion",
		slog.Int("files", len(files)),
		slog.Int("workers", cfg.Workers),
		slog.String("endpoint", cfg.Endpoint),
		slog.Bool("dry_run", *dryRun),
	)

	startTime := time.Now()
	rejected := 0
	for _, file := range files {
		if _, err := p.Submit(file, models.Sender{Username: *sender, Address: "local"}); err != nil {
			rejected++
			slog.Error("submit failed", slog.String("file", file), slog.Any("error", err))
		}
	}

	closeErr := p.Close()
	if closeErr != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", closeErr))
	}
	stopHeartbeat()
	hbDone.Wait()

	if writer != nil {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
		if err := writer.Validate(); err != nil {
			slog.Warn("output validation failed", slog.Any("error", err))
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	resultsMu.Lock()
	failed := printSummary(results, time.Since(startTime), p.GetMetrics())
	resultsMu.Unlock()

	if failed > 0 || rejected > 0 || closeErr != nil {
		os.Exit(1)
	}
}

// applyFlags overrides file and environment settings with flags given on the
// command line.
func applyFlags(cfg *config.Config, verbose bool, metricsAddr string, workers int, outputFile, outputFormat string) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "metrics-addr":
			cfg.MetricsAddr = metricsAddr
		case "workers":
			cfg.Workers = workers
		case "output":
			cfg.OutputFile = outputFile
		case "format":
			cfg.OutputFormat = strings.ToLower(outputFormat)
		}
	})
	cfg.Verbose = verbose
}

// stageLatestBackup copies the newest backup into a scratch directory so that
// the backup itself survives the disposition move.
func stageLatestBackup(store *pipeline.FileStore) (string, error) {
	latest, err := store.LatestBackup()
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "bridge-reprocess-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	staged, err := store.Restore(latest, dir)
	if err != nil {
		return "", err
	}
	slog.Info("reprocessing backup", slog.String("backup", latest), slog.String("staged", staged))
	return staged, nil
}

func printSummary(results []models.FileResult, duration time.Duration, metrics map[string]interface{}) int {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Ingestion complete")

	byState := make(map[models.FileState]int)
	failed, rows, accepted, skipped, attempts := 0, 0, 0, 0, 0
	for _, r := range results {
		byState[r.State]++
		rows += r.TotalRows
		accepted += r.Accepted
		skipped += r.Skipped
		attempts += len(r.Attempts)
		if r.State == models.StateFailed {
			failed++
		}
	}

	fmt.Printf("  Files:         %d\n", len(results))
	for _, state := range []models.FileState{models.StateSucceeded, models.StateFailed, models.StateIgnored, models.StateInterrupted} {
		if n := byState[state]; n > 0 {
			fmt.Printf("    %-12s %d\n", string(state)+":", n)
		}
	}
	fmt.Printf("  Rows:          %d (accepted %d, skipped %d)\n", rows, accepted, skipped)
	fmt.Printf("  Attempts:      %d\n", attempts)
	if retries, ok := metrics["retries"].(int); ok {
		fmt.Printf("  Retries:       %d\n", retries)
	}
	if dups, ok := metrics["duplicate_files"].(int64); ok && dups > 0 {
		fmt.Printf("  Duplicates:    %d\n", dups)
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	for _, r := range results {
		if r.State != models.StateFailed && r.DispositionErr == nil {
			continue
		}
		detail := ""
		if n := len(r.Attempts); n > 0 {
			detail = r.Attempts[n-1].Detail
		}
		fmt.Printf("  ! %s: %s %s\n", filepath.Base(r.File), r.State, detail)
	}
	fmt.Println(separator)
	return failed
}

func levelName(verbose bool, configured string) string {
	if verbose {
		return "debug"
	}
	return configured
}

func newLogger(levelText, format string) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch {
	case format == "json", format != "text" && !isTerminal(os.Stdout):
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
