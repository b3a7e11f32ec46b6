package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/p2ptracker/config"
	"github.com/alejandrodnm/p2ptracker/internal/adapters/bybit"
	"github.com/alejandrodnm/p2ptracker/internal/adapters/notify"
	"github.com/alejandrodnm/p2ptracker/internal/adapters/storage"
	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/alejandrodnm/p2ptracker/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	syncOnce := flag.Bool("sync", false, "run one sync pass and exit")
	report := flag.String("report", "", "print a report and exit: daily|weekly|monthly|today|yesterday|week|month|year")
	days := flag.Int("days", 0, "print a summary of the last N days and exit")
	detail := flag.Bool("detail", false, "print the full matched-trades audit report and exit")
	startDay := flag.Bool("start-day", false, "open a new trading day and exit")
	endDay := flag.Bool("end-day", false, "close the open trading day and exit")
	addSide := flag.String("add-trade", "", "add a manual trade and exit: buy|sell (requires -qty and -price)")
	qty := flag.Float64("qty", 0, "crypto quantity for -add-trade")
	price := flag.Float64("price", 0, "fiat price per unit for -add-trade")
	opening := flag.Float64("opening", 0, "record today's opening balance and exit")
	closing := flag.Float64("closing", 0, "record today's closing balance and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer ledger.Close()

	client := bybit.NewClient(bybit.Options{
		BaseURL:      cfg.API.BaseURL,
		Key:          cfg.API.Key,
		Secret:       cfg.API.Secret,
		RecvWindowMs: cfg.API.RecvWindowMs,
	})
	norm := bybit.Normalizer{
		Asset:   cfg.Tracker.Asset,
		Fiat:    cfg.Tracker.Fiat,
		FeeRate: cfg.Tracker.FeeRate,
	}
	source := bybit.NewSource(client, norm, cfg.API.PageSize)

	beginMs, err := cfg.SyncBeginMs()
	if err != nil {
		slog.Error("invalid sync_start_date", "err", err)
		os.Exit(1)
	}

	syncer := tracker.NewSyncer(source, ledger, beginMs)
	resolver := tracker.NewResolver(ledger)
	reporter := tracker.NewReporter(ledger, resolver)
	manual := tracker.NewManual(ledger, cfg.Tracker.Asset)
	console := notify.NewConsole(cfg.Tracker.Asset, cfg.Tracker.Fiat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *startDay:
		exitOn(manual.StartDay(ctx), "start day")
		fmt.Println("trading day started")
	case *endDay:
		err := manual.EndDay(ctx)
		if errors.Is(err, tracker.ErrNoWindow) {
			fmt.Println("no open trading day")
			os.Exit(1)
		}
		exitOn(err, "end day")
		fmt.Println("trading day ended")
	case *addSide != "":
		side, err := parseSide(*addSide)
		exitOn(err, "add trade")
		t, err := manual.AddManualTrade(ctx, side, *qty, *price)
		exitOn(err, "add trade")
		fmt.Printf("manual trade added: %s %s %.4f %s @ %.2f %s\n",
			t.ID, t.Side, t.Quantity, cfg.Tracker.Asset, t.Price, cfg.Tracker.Fiat)
	case *opening > 0:
		exitOn(ledger.SetOpeningBalance(ctx, time.Now().Format(domain.DateLayout), *opening), "opening balance")
		fmt.Println("opening balance saved")
	case *closing > 0:
		ok, err := ledger.SetClosingBalance(ctx, time.Now().Format(domain.DateLayout), *closing)
		exitOn(err, "closing balance")
		if !ok {
			fmt.Println("no opening balance for today — open the day first")
			os.Exit(1)
		}
		fmt.Println("closing balance saved")
	case *syncOnce:
		res, err := syncer.Sync(ctx)
		exitOn(err, "sync")
		fmt.Printf("sync: %d fetched, %d new", res.Fetched, res.New)
		if res.Incomplete {
			fmt.Print(" (incomplete — source unavailable, retry later)")
		}
		fmt.Println()
	case *detail:
		matches, summary, err := reporter.Detail(ctx, "all trades", 0, time.Now().UnixMilli())
		exitOn(err, "detail report")
		exitOn(console.PublishDetail(ctx, matches, summary), "detail report")
	case *days > 0:
		summary, err := reporter.LastNDays(ctx, *days)
		exitOn(err, "report")
		exitOn(console.PublishSummary(ctx, summary), "report")
	case *report != "":
		summary, err := runReport(ctx, reporter, *report)
		if errors.Is(err, tracker.ErrNoWindow) {
			fmt.Println("no data for period — no trading day / closed dates recorded")
			os.Exit(1)
		}
		exitOn(err, "report")
		exitOn(console.PublishSummary(ctx, summary), "report")
	default:
		t := tracker.New(tracker.Config{
			SyncSchedule:  cfg.Tracker.SyncSchedule,
			DailySchedule: cfg.Tracker.DailySchedule,
		}, syncer, reporter, console)

		slog.Info("p2ptracker starting",
			"config", *configPath,
			"asset", cfg.Tracker.Asset,
			"fiat", cfg.Tracker.Fiat,
		)
		if err := t.Run(ctx); err != nil {
			slog.Error("tracker exited with error", "err", err)
			os.Exit(1)
		}
		slog.Info("p2ptracker stopped cleanly")
	}
}

// runReport despacha el token de periodo al método de Reporter que toca:
// daily usa la sesión manual, weekly/monthly los días cerrados, el resto
// son ventanas rodantes continuas.
func runReport(ctx context.Context, r *tracker.Reporter, period string) (domain.Summary, error) {
	switch period {
	case "daily":
		return r.Daily(ctx)
	case "weekly":
		return r.Weekly(ctx)
	case "monthly":
		return r.Monthly(ctx)
	case "today", "yesterday", "week", "month", "year":
		return r.Rolling(ctx, domain.Period(period))
	default:
		return domain.Summary{}, fmt.Errorf("unknown report period %q", period)
	}
}

func parseSide(s string) (domain.Side, error) {
	switch s {
	case "buy":
		return domain.SideBuy, nil
	case "sell":
		return domain.SideSell, nil
	default:
		return 0, fmt.Errorf("side must be buy or sell, got %q", s)
	}
}

func exitOn(err error, what string) {
	if err != nil {
		slog.Error(what+" failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
