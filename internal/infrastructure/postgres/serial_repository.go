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

var _ repository.SerialRepository = (*SerialRepo)(nil)

// SerialRepo implementación del registro de seriales sobre PostgreSQL.
type SerialRepo struct {
	q Querier
}

// NewSerialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSerialRepository(q Querier) *SerialRepo {
	return &SerialRepo{q: q}
}

const serialColumns = `serial_number, sku, location_kind, location_mobile, package, ingest_date, updated_at`

func scanSerial(row pgx.Row) (*entity.SerialUnit, error) {
	var u entity.SerialUnit
	var kind, mobile, pkg string
	if err := row.Scan(&u.SerialNumber, &u.SKU, &kind, &mobile, &pkg, &u.IngestDate, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Location = locationFrom(kind, mobile)
	u.Package = entity.Package(pkg)
	return &u, nil
}

// Create registra un serial nuevo.
func (r *SerialRepo) Create(ctx context.Context, u *entity.SerialUnit) error {
	kind, mobile := locationArgs(u.Location)
	_, err := r.q.Exec(ctx, `INSERT INTO serial_units (`+serialColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.SerialNumber, u.SKU, kind, mobile, string(u.Package.OrNone()), u.IngestDate, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSerial
		}
		return fmt.Errorf("insert serial: %w", err)
	}
	return nil
}

// Get obtiene un serial; (nil, nil) si no existe.
func (r *SerialRepo) Get(ctx context.Context, serial string) (*entity.SerialUnit, error) {
	u, err := scanSerial(r.q.QueryRow(ctx, `SELECT `+serialColumns+` FROM serial_units WHERE serial_number = $1`, serial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get serial: %w", err)
	}
	return u, nil
}

// UpdateLocation mueve un serial en una sola sentencia.
func (r *SerialRepo) UpdateLocation(ctx context.Context, serial string, location entity.Location, pkg entity.Package) error {
	kind, mobile := locationArgs(location)
	cmd, err := r.q.Exec(ctx, `
		UPDATE serial_units SET location_kind = $2, location_mobile = $3, package = $4, updated_at = now()
		WHERE serial_number = $1`, serial, kind, mobile, string(pkg.OrNone()))
	if err != nil {
		return fmt.Errorf("update serial location: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrSerialNotFound
	}
	return nil
}

// BulkUpdateLocation mueve todos los seriales con un solo UPDATE ... = ANY($1).
func (r *SerialRepo) BulkUpdateLocation(ctx context.Context, serials []string, location entity.Location, pkg entity.Package) (int64, error) {
	kind, mobile := locationArgs(location)
	cmd, err := r.q.Exec(ctx, `
		UPDATE serial_units SET location_kind = $2, location_mobile = $3, package = $4, updated_at = now()
		WHERE serial_number = ANY($1)`, serials, kind, mobile, string(pkg.OrNone()))
	if err != nil {
		return 0, fmt.Errorf("bulk update serial location: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// ListByLocation seriales de una ubicación.
func (r *SerialRepo) ListByLocation(ctx context.Context, location entity.Location) ([]*entity.SerialUnit, error) {
	kind, mobile := locationArgs(location)
	rows, err := r.q.Query(ctx, `SELECT `+serialColumns+` FROM serial_units
		WHERE location_kind = $1 AND location_mobile = $2 ORDER BY sku, serial_number`, kind, mobile)
	if err != nil {
		return nil, fmt.Errorf("list serials: %w", err)
	}
	defer rows.Close()
	var list []*entity.SerialUnit
	for rows.Next() {
		u, err := scanSerial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan serial: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
