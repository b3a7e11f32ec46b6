package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/p2ptracker/internal/ports"
	"github.com/robfig/cron/v3"
)

// Config contiene los schedules de los jobs de fondo.
type Config struct {
	SyncSchedule  string // spec de cron para el autosync; vacío = desactivado
	DailySchedule string // spec de cron para el reporte diario; vacío = desactivado
}

// Tracker es el orquestador: jobs programados de sync y reporting sobre
// los servicios inyectados.
type Tracker struct {
	cfg      Config
	syncer   *Syncer
	reporter *Reporter
	notifier ports.Notifier
	cron     *cron.Cron
}

// New crea un Tracker con todas las dependencias inyectadas.
func New(cfg Config, syncer *Syncer, reporter *Reporter, notifier ports.Notifier) *Tracker {
	return &Tracker{
		cfg:      cfg,
		syncer:   syncer,
		reporter: reporter,
		notifier: notifier,
		cron:     cron.New(),
	}
}

// Run registra los jobs programados y bloquea hasta que el contexto se
// cancele. Los jobs son idempotentes: un fallo se loguea y se reintenta
// en el siguiente tick.
func (t *Tracker) Run(ctx context.Context) error {
	if t.cfg.SyncSchedule != "" {
		if _, err := t.cron.AddFunc(t.cfg.SyncSchedule, func() {
			res, err := t.syncer.Sync(context.Background())
			if err != nil {
				slog.Error("scheduled sync failed", "err", err)
				return
			}
			if res.New > 0 {
				slog.Info("auto-sync picked up new trades", "new", res.New)
			}
		}); err != nil {
			return fmt.Errorf("tracker.Run: register sync job: %w", err)
		}
	}

	if t.cfg.DailySchedule != "" {
		if _, err := t.cron.AddFunc(t.cfg.DailySchedule, func() {
			if err := t.ReportDaily(context.Background()); err != nil {
				slog.Error("scheduled daily report failed", "err", err)
			}
		}); err != nil {
			return fmt.Errorf("tracker.Run: register daily report job: %w", err)
		}
	}

	t.cron.Start()
	slog.Info("tracker running",
		"sync_schedule", t.cfg.SyncSchedule,
		"daily_schedule", t.cfg.DailySchedule,
	)

	<-ctx.Done()

	stopped := t.cron.Stop()
	<-stopped.Done()
	slog.Info("tracker stopped")
	return nil
}

// SyncOnce ejecuta exactamente una pasada de ingestión.
func (t *Tracker) SyncOnce(ctx context.Context) (SyncResult, error) {
	return t.syncer.Sync(ctx)
}

// ReportDaily genera y publica el reporte de la sesión de trading vigente.
// Si nunca se abrió un trading day, devuelve ErrNoWindow sin publicar
// nada — "sin ventana" no es un reporte en cero.
func (t *Tracker) ReportDaily(ctx context.Context) error {
	summary, err := t.reporter.Daily(ctx)
	if errors.Is(err, ErrNoWindow) {
		return err
	}
	if err != nil {
		return fmt.Errorf("tracker.ReportDaily: %w", err)
	}
	return t.notifier.PublishSummary(ctx, summary)
}
