package repository

import (
	"context"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// MovementRepository define el puerto del libro de movimientos. Sólo inserta: no hay Update ni Delete.
type MovementRepository interface {
	// Create inserta la fila y asigna Seq.
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	ListByCorrelation(ctx context.Context, correlationID string) ([]*entity.Movement, error)
	// CountCorrections cuenta las filas que compensan la correlación indicada.
	CountCorrections(ctx context.Context, correlationID string) (int, error)
	// ListBySKU pagina en orden de registro ascendente a partir de afterSeq.
	// location nil significa todas las ubicaciones.
	ListBySKU(ctx context.Context, sku string, location *entity.Location, afterSeq int64, limit int) ([]*entity.Movement, error)
}
