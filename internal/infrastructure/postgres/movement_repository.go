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

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del libro de movimientos sobre PostgreSQL. Sólo INSERT y SELECT.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `seq, id, correlation_id, sku, type, quantity, location_kind, location_mobile, package,
	event_date, recorded_at, reference_document, observations, created_by, corrects_id`

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var kind, mobile, pkg string
	var corrects *string
	err := row.Scan(&m.Seq, &m.ID, &m.CorrelationID, &m.SKU, &m.Type, &m.Quantity, &kind, &mobile, &pkg,
		&m.EventDate, &m.RecordedAt, &m.ReferenceDocument, &m.Observations, &m.CreatedBy, &corrects)
	if err != nil {
		return nil, err
	}
	m.Location = locationFrom(kind, mobile)
	m.Package = entity.Package(pkg)
	if corrects != nil {
		m.CorrectsID = *corrects
	}
	return &m, nil
}

// Create inserta una fila del libro y asigna Seq.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	kind, mobile := locationArgs(m.Location)
	var corrects *string
	if m.CorrectsID != "" {
		corrects = &m.CorrectsID
	}
	query := `
		INSERT INTO movements (id, correlation_id, sku, type, quantity, location_kind, location_mobile, package,
			event_date, recorded_at, reference_document, observations, created_by, corrects_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.CorrelationID, m.SKU, string(m.Type), m.Quantity, kind, mobile, string(m.Package.OrNone()),
		m.EventDate, m.RecordedAt, m.ReferenceDocument, m.Observations, m.CreatedBy, corrects,
	).Scan(&m.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// GetByID obtiene una fila por id.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByCorrelation filas de una misma solicitud en orden de registro.
func (r *MovementRepo) ListByCorrelation(ctx context.Context, correlationID string) ([]*entity.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements WHERE correlation_id = $1 ORDER BY seq`, correlationID)
}

// CountCorrections cuenta las filas que compensan la correlación.
func (r *MovementRepo) CountCorrections(ctx context.Context, correlationID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM movements WHERE corrects_id = $1`, correlationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count corrections: %w", err)
	}
	return n, nil
}

// ListBySKU pagina por seq ascendente; location nil incluye todas las ubicaciones.
func (r *MovementRepo) ListBySKU(ctx context.Context, sku string, location *entity.Location, afterSeq int64, limit int) ([]*entity.Movement, error) {
	if location == nil {
		return r.list(ctx, `SELECT `+movementColumns+` FROM movements
			WHERE sku = $1 AND seq > $2 ORDER BY seq LIMIT $3`, sku, afterSeq, limit)
	}
	kind, mobile := locationArgs(*location)
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE sku = $1 AND seq > $2 AND location_kind = $4 AND location_mobile = $5
		ORDER BY seq LIMIT $3`, sku, afterSeq, limit, kind, mobile)
}

func (r *MovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
