package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `sku, location_kind, location_mobile, package, quantity, updated_at`

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	var kind, mobile, pkg string
	if err := row.Scan(&b.SKU, &kind, &mobile, &pkg, &b.Quantity, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Location = locationFrom(kind, mobile)
	b.Package = entity.Package(pkg)
	return &b, nil
}

func zeroBalance(key entity.BalanceKey) *entity.Balance {
	return &entity.Balance{SKU: key.SKU, Location: key.Location, Package: key.Package.OrNone()}
}

// Get obtiene el saldo actual de una celda; cero si no existe.
func (r *BalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	kind, mobile := locationArgs(key.Location)
	query := `SELECT ` + balanceColumns + ` FROM balances
		WHERE sku = $1 AND location_kind = $2 AND location_mobile = $3 AND package = $4`
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.SKU, kind, mobile, string(key.Package.OrNone())))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroBalance(key), nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetForUpdate obtiene el saldo y bloquea la fila (SELECT FOR UPDATE). La celda se crea
// antes en cero para que también quede bloqueada la primera vez que se usa.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	kind, mobile := locationArgs(key.Location)
	pkg := string(key.Package.OrNone())
	_, err := r.q.Exec(ctx, `
		INSERT INTO balances (sku, location_kind, location_mobile, package, quantity, updated_at)
		VALUES ($1, $2, $3, $4, 0, now())
		ON CONFLICT (sku, location_kind, location_mobile, package) DO NOTHING`,
		key.SKU, kind, mobile, pkg)
	if err != nil {
		return nil, fmt.Errorf("ensure balance: %w", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM balances
		WHERE sku = $1 AND location_kind = $2 AND location_mobile = $3 AND package = $4
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.SKU, kind, mobile, pkg))
	if err != nil {
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Upsert inserta o actualiza la cantidad de la celda.
func (r *BalanceRepo) Upsert(ctx context.Context, b *entity.Balance) error {
	kind, mobile := locationArgs(b.Location)
	query := `
		INSERT INTO balances (sku, location_kind, location_mobile, package, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sku, location_kind, location_mobile, package)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, b.SKU, kind, mobile, string(b.Package.OrNone()), b.Quantity, b.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return &domain.InsufficientStockError{SKU: b.SKU, Cell: b.Key().String(), Requested: -b.Quantity}
		}
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// ListByLocation celdas de una ubicación, por sku y paquete.
func (r *BalanceRepo) ListByLocation(ctx context.Context, location entity.Location) ([]*entity.Balance, error) {
	kind, mobile := locationArgs(location)
	return r.list(ctx, `SELECT `+balanceColumns+` FROM balances
		WHERE location_kind = $1 AND location_mobile = $2 ORDER BY sku, package`, kind, mobile)
}

// ListBySKU celdas de un sku en todas las ubicaciones.
func (r *BalanceRepo) ListBySKU(ctx context.Context, sku string) ([]*entity.Balance, error) {
	return r.list(ctx, `SELECT `+balanceColumns+` FROM balances
		WHERE sku = $1 ORDER BY location_kind, location_mobile, package`, sku)
}

func (r *BalanceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Balance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()
	var list []*entity.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
