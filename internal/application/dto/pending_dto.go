package dto

import (
	"time"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// ReportConsumptionRequest consumo reportado por un técnico desde campo.
type ReportConsumptionRequest struct {
	Mobile      string     `json:"mobile"`
	SKU         string     `json:"sku"`
	Quantity    int        `json:"quantity"`
	Technician  string     `json:"technician"`
	TicketRef   string     `json:"ticket_ref"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	ContractRef string     `json:"contract_ref"`
	Helper      string     `json:"helper"`
	UsedSerials []string   `json:"used_serials,omitempty"`
}

// ToEntity convierte la entrada en entidad.
func (r ReportConsumptionRequest) ToEntity() *entity.PendingConsumption {
	pc := &entity.PendingConsumption{
		Mobile:      r.Mobile,
		SKU:         r.SKU,
		Quantity:    r.Quantity,
		Technician:  r.Technician,
		TicketRef:   r.TicketRef,
		ContractRef: r.ContractRef,
		Helper:      r.Helper,
		UsedSerials: r.UsedSerials,
	}
	if r.EventDate != nil {
		pc.EventDate = *r.EventDate
	}
	return pc
}

// PendingConsumptionResponse consumo pendiente.
type PendingConsumptionResponse struct {
	ID          string    `json:"id"`
	Mobile      string    `json:"mobile"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	Technician  string    `json:"technician,omitempty"`
	TicketRef   string    `json:"ticket_ref,omitempty"`
	EventDate   time.Time `json:"event_date"`
	ContractRef string    `json:"contract_ref,omitempty"`
	Helper      string    `json:"helper,omitempty"`
	UsedSerials []string  `json:"used_serials,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromPendingConsumption mapea la entidad.
func FromPendingConsumption(pc *entity.PendingConsumption) PendingConsumptionResponse {
	return PendingConsumptionResponse{
		ID:          pc.ID,
		Mobile:      pc.Mobile,
		SKU:         pc.SKU,
		Quantity:    pc.Quantity,
		Technician:  pc.Technician,
		TicketRef:   pc.TicketRef,
		EventDate:   pc.EventDate,
		ContractRef: pc.ContractRef,
		Helper:      pc.Helper,
		UsedSerials: pc.UsedSerials,
		CreatedAt:   pc.CreatedAt,
	}
}
