package entity

import "time"

// PendingConsumption es un consumo reportado desde campo aún no confirmado por una conciliación.
type PendingConsumption struct {
	ID          string
	Mobile      string
	SKU         string
	Quantity    int
	Technician  string
	TicketRef   string
	EventDate   time.Time
	ContractRef string
	Helper      string
	UsedSerials []string
	CreatedAt   time.Time
}
