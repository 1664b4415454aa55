package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/repository"
)

var _ repository.PendingConsumptionRepository = (*PendingConsumptionRepo)(nil)

// PendingConsumptionRepo consumos reportados sin confirmar, sobre PostgreSQL.
type PendingConsumptionRepo struct {
	q Querier
}

// NewPendingConsumptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPendingConsumptionRepository(q Querier) *PendingConsumptionRepo {
	return &PendingConsumptionRepo{q: q}
}

// Create persiste un consumo reportado.
func (r *PendingConsumptionRepo) Create(ctx context.Context, pc *entity.PendingConsumption) error {
	serials := pc.UsedSerials
	if serials == nil {
		serials = []string{}
	}
	query := `
		INSERT INTO pending_consumptions (id, mobile, sku, quantity, technician, ticket_ref, event_date,
			contract_ref, helper, used_serials, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query, pc.ID, pc.Mobile, pc.SKU, pc.Quantity, pc.Technician, pc.TicketRef,
		pc.EventDate, pc.ContractRef, pc.Helper, serials, pc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending consumption: %w", err)
	}
	return nil
}

// ListByMobile consumos pendientes de un móvil en orden de llegada.
func (r *PendingConsumptionRepo) ListByMobile(ctx context.Context, mobile string) ([]*entity.PendingConsumption, error) {
	query := `
		SELECT id, mobile, sku, quantity, technician, ticket_ref, event_date, contract_ref, helper, used_serials, created_at
		FROM pending_consumptions WHERE mobile = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, mobile)
	if err != nil {
		return nil, fmt.Errorf("list pending consumptions: %w", err)
	}
	defer rows.Close()
	var list []*entity.PendingConsumption
	for rows.Next() {
		var pc entity.PendingConsumption
		if err := rows.Scan(&pc.ID, &pc.Mobile, &pc.SKU, &pc.Quantity, &pc.Technician, &pc.TicketRef,
			&pc.EventDate, &pc.ContractRef, &pc.Helper, &pc.UsedSerials, &pc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending consumption: %w", err)
		}
		list = append(list, &pc)
	}
	return list, rows.Err()
}

// DeleteByMobile borra los consumos pendientes de un móvil.
func (r *PendingConsumptionRepo) DeleteByMobile(ctx context.Context, mobile string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM pending_consumptions WHERE mobile = $1`, mobile)
	if err != nil {
		return 0, fmt.Errorf("delete pending consumptions: %w", err)
	}
	return cmd.RowsAffected(), nil
}
