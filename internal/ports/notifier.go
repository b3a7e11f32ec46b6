package ports

import (
	"context"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
)

// Notifier presenta reportes al usuario.
type Notifier interface {
	// PublishSummary muestra el resumen agregado de una ventana.
	PublishSummary(ctx context.Context, s domain.Summary) error

	// PublishDetail muestra el reporte de auditoría línea a línea: cada
	// match en orden de emisión del motor, más los totales.
	PublishDetail(ctx context.Context, matches []domain.Match, s domain.Summary) error
}
