package repository

import (
	"context"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// PendingConsumptionRepository define el puerto de consumos reportados sin confirmar.
type PendingConsumptionRepository interface {
	Create(ctx context.Context, pending *entity.PendingConsumption) error
	ListByMobile(ctx context.Context, mobile string) ([]*entity.PendingConsumption, error)
	DeleteByMobile(ctx context.Context, mobile string) (int64, error)
}
