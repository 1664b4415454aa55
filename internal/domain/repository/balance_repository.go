package repository

import (
	"context"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// BalanceRepository define el puerto de la tabla de saldos derivados.
// Get y GetForUpdate devuelven saldo cero cuando la celda no existe.
type BalanceRepository interface {
	Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error)
	// GetForUpdate bloquea la celda hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error)
	Upsert(ctx context.Context, balance *entity.Balance) error
	ListByLocation(ctx context.Context, location entity.Location) ([]*entity.Balance, error)
	ListBySKU(ctx context.Context, sku string) ([]*entity.Balance, error)
}
