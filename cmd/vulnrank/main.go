package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/sbomtools/vulnrank/pkg/config"
	"github.com/sbomtools/vulnrank/pkg/feeds"
	"github.com/sbomtools/vulnrank/pkg/fusion"
	"github.com/sbomtools/vulnrank/pkg/inventory"
	"github.com/sbomtools/vulnrank/pkg/logging"
	"github.com/sbomtools/vulnrank/pkg/model"
	"github.com/sbomtools/vulnrank/pkg/output"
	"github.com/sbomtools/vulnrank/pkg/pubsub"
	"github.com/sbomtools/vulnrank/pkg/watcher"
	"github.com/sbomtools/vulnrank/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("vulnrank", pflag.ExitOnError)
	f.String("inventory", "inventory.json", "Path to the assembled inventory JSON")
	f.Bool("web", false, "Start the API server instead of printing to console")
	f.Int("port", 8080, "Port for the API server (only used with --web)")
	f.Bool("watch", false, "Re-analyze when the inventory file changes")
	f.Bool("open", true, "Open the browser when starting in web mode")
	f.String("verbosity", "", "Log level: debug, info, warn, error")
	f.CountP("verbose", "v", "Increase verbosity (-v for debug)")
	f.Float64("scoring.depth-weight", 0.5, "Weight of inverted depth vs centrality in the topology score")
	f.Int("scoring.entropy-bins", 10, "Histogram bins for entropy weighting")
	f.Bool("feeds.enabled", false, "Fetch EPSS/KEV threat signals for advisories without inline signals")
	f.Parse(os.Args[1:])

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	configureLogging(cfg)

	scoring := fusion.Config{
		DepthWeight:   cfg.Scoring.DepthWeight,
		EntropyBins:   cfg.Scoring.EntropyBins,
		SeverityScale: cfg.Scoring.SeverityScale,
		HubThreshold:  cfg.Scoring.HubThreshold,
	}

	if cfg.WebMode {
		runWebMode(cfg, scoring)
		return
	}

	report, err := runOnce(context.Background(), cfg, scoring)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	output.PrintReport(report)

	if cfg.Watch {
		runConsoleWatch(cfg, scoring)
	}
}

func configureLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Verbosity {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "", "info":
		if cfg.VerboseCnt > 0 {
			level = slog.LevelDebug
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown verbosity %q, using info\n", cfg.Verbosity)
	}
	logging.SetLevel(level)
}

// runOnce loads the inventory, optionally collects external threat
// signals, and executes one analysis run.
func runOnce(ctx context.Context, cfg *config.Config, scoring fusion.Config) (*model.Report, error) {
	inv, err := inventory.Load(cfg.Inventory)
	if err != nil {
		return nil, err
	}

	if cfg.Feeds.Enabled {
		collectSignals(ctx, cfg, &inv)
	}

	return fusion.Analyze(&inv, scoring)
}

// collectSignals fetches EPSS/KEV signals for advisories the inventory
// carries no inline signal for. Feed failures degrade to absent signals
// and never fail the run.
func collectSignals(ctx context.Context, cfg *config.Config, inv *model.Inventory) {
	var missing []string
	for _, v := range inv.Vulnerabilities {
		if _, ok := inv.Signals[v.ID]; !ok {
			missing = append(missing, v.ID)
		}
	}
	if len(missing) == 0 {
		return
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Feeds.TimeoutSec) * time.Second}
	kev := feeds.NewKEVCatalog(cfg.Feeds.KEVURL, httpClient)
	if err := kev.Refresh(ctx); err != nil {
		logging.Warn("KEV refresh failed, exploited flags may be missing", "error", err)
	}

	provider := &feeds.Combined{
		EPSS: feeds.NewEPSSClient(cfg.Feeds.EPSSURL, httpClient),
		KEV:  kev,
	}

	collector := feeds.NewCollector(provider, feeds.CollectorOptions{
		Concurrency: cfg.Feeds.Concurrency,
		RatePerSec:  cfg.Feeds.RatePerSec,
		ItemTimeout: time.Duration(cfg.Feeds.TimeoutSec) * time.Second,
	})

	logging.Info("collecting threat signals", "advisories", len(missing))
	collected, failed := collector.Collect(ctx, missing)
	if len(failed) > 0 {
		logging.Warn("some threat lookups failed", "count", len(failed))
	}

	if inv.Signals == nil {
		inv.Signals = make(map[string]model.ThreatSignal, len(collected))
	}
	for id, sig := range collected {
		inv.Signals[id] = sig
	}
}

func runWebMode(cfg *config.Config, scoring fusion.Config) {
	server := web.NewServer(func(inv model.Inventory) (*model.Report, error) {
		if cfg.Feeds.Enabled {
			collectSignals(context.Background(), cfg, &inv)
		}
		return fusion.Analyze(&inv, scoring)
	})

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)

	go func() {
		if err := server.Start(cfg.Port); err != nil {
			logging.Fatal("server failed", "error", err)
		}
	}()

	// Initial analysis of the configured inventory runs in the
	// background so the API is reachable immediately.
	go analyzeAndStore(cfg, scoring, server)

	if cfg.OpenBrowser {
		time.Sleep(500 * time.Millisecond)
		openBrowser(url)
	}

	if cfg.Watch {
		ctx := context.Background()
		if err := startWatch(ctx, cfg, func() {
			analyzeAndStore(cfg, scoring, server)
		}); err != nil {
			logging.Fatal("failed to start watch mode", "error", err)
		}
	}

	select {}
}

func analyzeAndStore(cfg *config.Config, scoring fusion.Config, server *web.Server) {
	server.PublishStatus(pubsub.AnalysisStatus{State: "started", Message: "analyzing " + cfg.Inventory})

	report, err := runOnce(context.Background(), cfg, scoring)
	if err != nil {
		logging.Error("analysis failed", "error", err)
		server.PublishStatus(pubsub.AnalysisStatus{State: "failed", Message: err.Error()})
		return
	}

	id := server.StoreReport(report)
	server.PublishStatus(pubsub.AnalysisStatus{
		ReportID: id,
		State:    "completed",
		Message:  "analysis completed",
		Findings: len(report.Records),
	})
	logging.Info("analysis completed", "reportID", id, "findings", len(report.Records))
}

func runConsoleWatch(cfg *config.Config, scoring fusion.Config) {
	ctx := context.Background()
	err := startWatch(ctx, cfg, func() {
		report, err := runOnce(ctx, cfg, scoring)
		if err != nil {
			logging.Error("analysis failed", "error", err)
			return
		}
		output.PrintReport(report)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	select {}
}

// startWatch wires the file watcher through the debouncer and invokes
// rerun on each settled batch of inventory changes.
func startWatch(ctx context.Context, cfg *config.Config, rerun func()) error {
	fw, err := watcher.NewFileWatcher(cfg.Inventory)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	deb := watcher.NewDebouncer(fw.Events(), 300*time.Millisecond, 2*time.Second)
	deb.Start(ctx)

	go func() {
		for range deb.Output() {
			logging.Info("inventory changed, re-analyzing", "path", cfg.Inventory)
			rerun()
		}
	}()

	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser", "platform", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
