// server runs the operator dashboard: it follows the intake controller's
// serial feed (or replays recorded lines), keeps recent readings in memory,
// optionally archives them to Postgres, polls the water level service and
// pushes everything to connected dashboards over WebSocket.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/auth"
	"tidal_efficiency/internal/config"
	"tidal_efficiency/internal/dashboard"
	"tidal_efficiency/internal/ingest"
	"tidal_efficiency/internal/live"
	"tidal_efficiency/internal/metrics"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/store"
	"tidal_efficiency/internal/store/postgres"
	"tidal_efficiency/internal/waterapi"
	"tidal_efficiency/internal/ws"
)

func main() {
	configPath := flag.String("config", "config/tidal.yaml", "YAML config file")
	addr := flag.String("addr", "", "listen address (overrides dashboard.addr)")
	historyDir := flag.String("history-dir", "", "directory of level CSVs (overrides dashboard.history_dir)")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	retention := flag.Duration("retention", 7*24*time.Hour, "how long live readings stay in memory (0 keeps all)")
	mergedPath := flag.String("merged", "", "merged generation+rainfall CSV analysed at startup")
	issueToken := flag.String("issue-token", "", "print a dashboard token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of -issue-token tokens")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	if *addr != "" {
		cfg.Dashboard.Addr = *addr
	}
	if *historyDir != "" {
		cfg.Dashboard.HistoryDir = *historyDir
	}

	if *issueToken != "" {
		token, err := auth.IssueToken([]byte(cfg.Dashboard.JWTSecret), *issueToken, cfg.WaterAPI.Station, *tokenTTL)
		if err != nil {
			log.Fatalf("Issuing token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	metrics.Init()

	// Load recorded levels
	dataStore := store.New(*retention)
	if cfg.Dashboard.HistoryDir != "" {
		tr, err := loadLevelCSVs(cfg.Dashboard.HistoryDir, dataStore)
		if err != nil {
			log.Printf("History data: %v", err)
		} else if !tr.Start.IsZero() {
			log.Printf("History loaded: %s to %s", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"))
		}
	}

	// Optional Postgres archive
	var recorder live.Recorder = dataStore
	var archive dashboard.Archive
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Opening database: %v", err)
		}
		defer db.Close()
		repo := postgres.NewRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("Migrating database: %v", err)
		}
		arch := newArchiver(dataStore, repo, logger, 1024)
		go arch.Run(ctx)
		recorder = arch
		archive = repo
		log.Printf("Archiving live readings to Postgres")
	}

	var levels dashboard.LevelSource
	if cfg.WaterAPI.BaseURL != "" {
		levels = waterapi.New(cfg.WaterAPI, logger)
	}

	// Live feed and WebSocket hub
	feed := live.NewFeed(logger, recorder)
	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)
	go bridge.Run(ctx, feed)
	go runFeed(ctx, feed, cfg.Live)

	dash := dashboard.New(dashboard.Options{
		Feed:      feed,
		History:   dataStore,
		Levels:    levels,
		Archive:   archive,
		Location:  waterapi.KST,
		OnSummary: bridge.OnSummary,
		Logger:    logger,
	})

	if *mergedPath != "" {
		if err := analyse(*mergedPath, cfg, dash); err != nil {
			log.Printf("Startup analysis: %v", err)
		}
	}

	// Routes
	mux := http.NewServeMux()
	dash.Register(mux)
	mux.Handle("/ws", ws.NewHandler(hub, feed, dataStore, dash, waterapi.KST))

	// Serve frontend static files
	if _, err := os.Stat(*frontendDir); err == nil {
		log.Printf("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	if cfg.Dashboard.JWTSecret != "" {
		log.Printf("Bearer auth enabled on /api/")
	}
	srv := &http.Server{
		Addr:              cfg.Dashboard.Addr,
		Handler:           auth.NewMiddleware([]byte(cfg.Dashboard.JWTSecret)).Wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.Dashboard.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// runFeed follows the serial device when one is configured and falls back to
// replaying recorded lines when it cannot be opened or stops.
func runFeed(ctx context.Context, feed *live.Feed, cfg config.LiveConfig) {
	if cfg.Device != "" {
		dev, err := os.Open(cfg.Device)
		if err != nil {
			log.Printf("Device %s unavailable, replaying instead: %v", cfg.Device, err)
		} else {
			log.Printf("Reading live data from %s", cfg.Device)
			go func() {
				<-ctx.Done()
				dev.Close()
			}()
			err := feed.Run(ctx, dev)
			if ctx.Err() != nil {
				return
			}
			log.Printf("Device %s stopped (%v), replaying instead", cfg.Device, err)
		}
	}

	lines := live.SampleLines
	if cfg.Replay != "" {
		recorded, err := readReplayLines(cfg.Replay)
		if err != nil {
			log.Printf("Replay file: %v, using built-in sample", err)
		} else {
			lines = recorded
		}
	}
	log.Printf("Replaying %d lines every %s", len(lines), cfg.Interval)
	if err := feed.Replay(ctx, lines, cfg.Interval); err != nil && ctx.Err() == nil {
		log.Printf("Replay stopped: %v", err)
	}
}

// readReplayLines returns the non-empty lines of a recorded device log.
func readReplayLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: no lines", path)
	}
	return lines, nil
}

// analyse runs the pipeline on a merged CSV and publishes its summary.
func analyse(path string, cfg config.Config, dash *dashboard.Server) error {
	p := &ingest.MergedParser{}
	records, err := ingest.ParseFile(path, p.Parse)
	if err != nil {
		return err
	}
	metrics.AddSkippedRows("merged", p.Skipped)

	var opts analysis.Options
	if cfg.Baseline != "" {
		f, err := os.Open(cfg.Baseline)
		if err != nil {
			return err
		}
		b, _, err := analysis.LoadBaseline(f)
		f.Close()
		if err != nil {
			return err
		}
		opts.Baseline = b
	}

	start := time.Now()
	res, err := analysis.RunMerged(records, cfg.Analysis, opts)
	metrics.ObservePipeline(err, time.Since(start))
	if err != nil {
		return err
	}
	dash.SetSummary(res.Summarize(cfg.Analysis.Currency))
	log.Printf("Analysed %d hours from %s", len(res.Merged), path)
	return nil
}

// loadLevelCSVs loads every level CSV in dir into the store. Returns the
// combined time range of all loaded readings.
func loadLevelCSVs(dir string, s *store.Store) (model.TimeRange, error) {
	var tr model.TimeRange
	entries, err := os.ReadDir(dir)
	if err != nil {
		return tr, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	parser := &ingest.LevelsParser{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		log.Printf("Loading %s...", path)

		readings, err := ingest.ParseFile(path, parser.Parse)
		if err != nil {
			return tr, err
		}

		if len(readings) > 0 {
			s.AddReadings(readings)
			tr = extendTimeRange(tr, readings)
			log.Printf("  Loaded %d readings from %s", len(readings), entry.Name())
		}
	}

	return tr, nil
}

// extendTimeRange extends tr to include the min/max timestamps from readings.
func extendTimeRange(tr model.TimeRange, readings []model.Reading) model.TimeRange {
	for _, r := range readings {
		if tr.Start.IsZero() || r.Timestamp.Before(tr.Start) {
			tr.Start = r.Timestamp
		}
		if r.Timestamp.After(tr.End) {
			tr.End = r.Timestamp
		}
	}
	return tr
}
