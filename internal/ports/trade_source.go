package ports

import (
	"context"
	"errors"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
)

// ErrIncompleteSync indica que la fuente falló a mitad de paginación: los
// trades devueltos junto al error son progreso parcial válido y el caller
// debe conservarlos. Re-ejecutar el sync es seguro (idempotente).
var ErrIncompleteSync = errors.New("trade source: sync incomplete")

// TradeSource lista trades completados desde el feed externo.
type TradeSource interface {
	// FetchCompleted pagina el listado remoto en [beginMs, endMs] y
	// devuelve trades ya normalizados, deduplicados dentro de la pasada.
	// Puede devolver resultados parciales junto con ErrIncompleteSync.
	FetchCompleted(ctx context.Context, beginMs, endMs int64) ([]domain.Trade, error)
}
