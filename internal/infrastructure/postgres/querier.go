package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx; los repositorios sirven para ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Una ubicación se guarda en dos columnas: tipo y nombre del móvil ('' fuera de móviles).
func locationArgs(l entity.Location) (string, string) {
	return string(l.Kind), l.Mobile
}

func locationFrom(kind, mobile string) entity.Location {
	return entity.Location{Kind: entity.LocationKind(kind), Mobile: mobile}
}
