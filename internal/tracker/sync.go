package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/p2ptracker/internal/ports"
)

// SyncResult resume una pasada de ingestión.
type SyncResult struct {
	Fetched    int  // trades aceptados por el normalizador en esta pasada
	New        int  // ids que no existían en el ledger antes de la pasada
	Incomplete bool // la fuente falló a mitad de paginación; re-ejecutar es seguro
}

// Syncer ingiere trades de la fuente externa al ledger, idempotente por id.
type Syncer struct {
	source  ports.TradeSource
	ledger  ports.Ledger
	beginMs int64 // inicio del histórico a sincronizar
	now     func() time.Time
}

// NewSyncer crea el servicio de ingestión.
func NewSyncer(source ports.TradeSource, ledger ports.Ledger, beginMs int64) *Syncer {
	return &Syncer{source: source, ledger: ledger, beginMs: beginMs, now: time.Now}
}

// Sync trae los trades completados en [beginMs, now] y hace upsert por id.
// Cuenta como nuevos solo los ids que no estaban antes de la pasada: un
// re-sync con los mismos datos devuelve New == 0.
//
// Un fallo transitorio de la fuente no es fatal: el progreso parcial ya
// upserteado se conserva y el resultado marca Incomplete.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	trades, err := s.source.FetchCompleted(ctx, s.beginMs, s.now().UnixMilli())
	if err != nil {
		if !errors.Is(err, ports.ErrIncompleteSync) {
			return result, fmt.Errorf("tracker.Sync: fetch: %w", err)
		}
		result.Incomplete = true
	}

	for _, t := range trades {
		inserted, err := s.ledger.UpsertTrade(ctx, t)
		if err != nil {
			return result, fmt.Errorf("tracker.Sync: upsert %s: %w", t.ID, err)
		}
		result.Fetched++
		if inserted {
			result.New++
		}
	}

	slog.Info("sync complete",
		"fetched", result.Fetched,
		"new", result.New,
		"incomplete", result.Incomplete,
	)
	return result, nil
}
