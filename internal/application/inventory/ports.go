package inventory

import (
	"context"

	"github.com/jhoicas/inventario-movil/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma conexión o transacción.
type Repos struct {
	Products  repository.ProductRepository
	Movements repository.MovementRepository
	Balances  repository.BalanceRepository
	Serials   repository.SerialRepository
	Pending   repository.PendingConsumptionRepository
}

// Tx es una unidad de trabajo abierta.
type Tx interface {
	Repos() Repos
	// Savepoint ejecuta fn en una transacción anidada: si fn falla sólo se revierte
	// lo hecho dentro de ella y la transacción externa sigue utilizable.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil, Rollback en cualquier otro caso. Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx Tx) error) error
}
