package dto

import (
	"time"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// RegisterSerialRequest alta de una unidad serializada.
type RegisterSerialRequest struct {
	Serial   string `json:"serial"`
	SKU      string `json:"sku"`
	Location string `json:"location"`
	Package  string `json:"package,omitempty"`
}

// MoveSerialRequest traslado de un serial. Expected es opcional: si viene y no coincide con
// lo registrado, el traslado se hace igual y se devuelve una advertencia.
type MoveSerialRequest struct {
	Location string       `json:"location"`
	Package  string       `json:"package,omitempty"`
	Expected *EndpointDTO `json:"expected,omitempty"`
}

// MoveSerialResponse resultado del traslado.
type MoveSerialResponse struct {
	Serial  string `json:"serial"`
	Warning string `json:"warning,omitempty"`
}

// SerialResponse unidad serializada.
type SerialResponse struct {
	Serial     string    `json:"serial"`
	SKU        string    `json:"sku"`
	Location   string    `json:"location"`
	Package    string    `json:"package"`
	IngestDate time.Time `json:"ingest_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FromSerial mapea la entidad.
func FromSerial(u *entity.SerialUnit) SerialResponse {
	return SerialResponse{
		Serial:     u.SerialNumber,
		SKU:        u.SKU,
		Location:   u.Location.String(),
		Package:    string(u.Package.OrNone()),
		IngestDate: u.IngestDate,
		UpdatedAt:  u.UpdatedAt,
	}
}

// FromSerials mapea varias unidades.
func FromSerials(us []*entity.SerialUnit) []SerialResponse {
	out := make([]SerialResponse, 0, len(us))
	for _, u := range us {
		out = append(out, FromSerial(u))
	}
	return out
}
