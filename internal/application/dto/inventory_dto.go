package dto

import (
	"strings"
	"time"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

// EndpointDTO extremo de un movimiento: "BODEGA", "SUCURSAL", "DESCARTE" o "MOVIL:<nombre>".
type EndpointDTO struct {
	Location string `json:"location"`
	Package  string `json:"package,omitempty"`
}

func (e *EndpointDTO) toEndpoint() (ledger.Endpoint, error) {
	if e == nil || strings.TrimSpace(e.Location) == "" {
		return ledger.Endpoint{}, nil
	}
	loc, ok := entity.ParseLocation(e.Location)
	if !ok {
		return ledger.Endpoint{}, domain.ErrInvalidInput
	}
	return ledger.At(loc, entity.Package(strings.ToUpper(strings.TrimSpace(e.Package)))), nil
}

// MovementRequest body para POST /api/inventory/movements y cada línea de un lote.
type MovementRequest struct {
	SKU               string       `json:"sku"`
	Type              string       `json:"type"`
	Quantity          int          `json:"quantity"`
	From              *EndpointDTO `json:"from,omitempty"`
	To                *EndpointDTO `json:"to,omitempty"`
	EventDate         *time.Time   `json:"event_date,omitempty"`
	ReferenceDocument string       `json:"reference_document"`
	Observations      string       `json:"observations"`
	CreatedBy         string       `json:"created_by"`
	Serials           []string     `json:"serials,omitempty"`
}

// ToLine convierte la entrada en una línea del procesador.
func (r MovementRequest) ToLine() (inventory.Line, error) {
	from, err := r.From.toEndpoint()
	if err != nil {
		return inventory.Line{}, err
	}
	to, err := r.To.toEndpoint()
	if err != nil {
		return inventory.Line{}, err
	}
	req := ledger.Request{
		SKU:               strings.TrimSpace(r.SKU),
		Type:              entity.MovementType(strings.ToUpper(strings.TrimSpace(r.Type))),
		Quantity:          r.Quantity,
		From:              from,
		To:                to,
		ReferenceDocument: r.ReferenceDocument,
		Observations:      r.Observations,
		CreatedBy:         r.CreatedBy,
	}
	if r.EventDate != nil {
		req.EventDate = *r.EventDate
	}
	return inventory.Line{Request: req, Serials: r.Serials}, nil
}

// BatchRequest body para POST /api/inventory/batches.
type BatchRequest struct {
	Lines []MovementRequest `json:"lines"`
}

// CorrectionRequest body para corregir la cantidad de un movimiento.
type CorrectionRequest struct {
	Quantity     int    `json:"quantity"`
	CreatedBy    string `json:"created_by"`
	Observations string `json:"observations"`
}

// MovementResponse fila del libro.
type MovementResponse struct {
	Seq               int64     `json:"seq"`
	ID                string    `json:"id"`
	CorrelationID     string    `json:"correlation_id"`
	SKU               string    `json:"sku"`
	Type              string    `json:"type"`
	Quantity          int       `json:"quantity"`
	Location          string    `json:"location"`
	Package           string    `json:"package"`
	EventDate         time.Time `json:"event_date"`
	RecordedAt        time.Time `json:"recorded_at"`
	ReferenceDocument string    `json:"reference_document,omitempty"`
	Observations      string    `json:"observations,omitempty"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CorrectsID        string    `json:"corrects_id,omitempty"`
}

// FromMovement mapea una fila del libro.
func FromMovement(m entity.Movement) MovementResponse {
	return MovementResponse{
		Seq:               m.Seq,
		ID:                m.ID,
		CorrelationID:     m.CorrelationID,
		SKU:               m.SKU,
		Type:              string(m.Type),
		Quantity:          m.Quantity,
		Location:          m.Location.String(),
		Package:           string(m.Package.OrNone()),
		EventDate:         m.EventDate,
		RecordedAt:        m.RecordedAt,
		ReferenceDocument: m.ReferenceDocument,
		Observations:      m.Observations,
		CreatedBy:         m.CreatedBy,
		CorrectsID:        m.CorrectsID,
	}
}

// FromMovements mapea varias filas.
func FromMovements(ms []entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromMovement(m))
	}
	return out
}

// BalanceResponse saldo de una celda.
type BalanceResponse struct {
	SKU       string    `json:"sku"`
	Location  string    `json:"location"`
	Package   string    `json:"package"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// FromBalance mapea un saldo.
func FromBalance(b entity.Balance) BalanceResponse {
	return BalanceResponse{
		SKU:       b.SKU,
		Location:  b.Location.String(),
		Package:   string(b.Package.OrNone()),
		Quantity:  b.Quantity,
		UpdatedAt: b.UpdatedAt,
	}
}

// FromBalances mapea saldos omitiendo celdas en cero.
func FromBalances(bs []*entity.Balance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(bs))
	for _, b := range bs {
		if b.Quantity == 0 {
			continue
		}
		out = append(out, FromBalance(*b))
	}
	return out
}

// ApplyResponse resultado de registrar o corregir un movimiento.
type ApplyResponse struct {
	CorrelationID string             `json:"correlation_id"`
	Movements     []MovementResponse `json:"movements"`
	Balances      []BalanceResponse  `json:"balances"`
	Warnings      []string           `json:"warnings,omitempty"`
}

// FromApplyResult mapea el resultado del libro.
func FromApplyResult(r *inventory.ApplyResult) ApplyResponse {
	out := ApplyResponse{CorrelationID: r.CorrelationID, Movements: FromMovements(r.Movements)}
	for _, b := range r.Balances {
		out.Balances = append(out.Balances, FromBalance(b))
	}
	return out
}

// LineResultResponse resultado de una línea de lote.
type LineResultResponse struct {
	Index     int                `json:"index"`
	OK        bool               `json:"ok"`
	Message   string             `json:"message"`
	Movements []MovementResponse `json:"movements,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// FromLineResults mapea los resultados por línea.
func FromLineResults(results []inventory.LineResult) []LineResultResponse {
	out := make([]LineResultResponse, 0, len(results))
	for _, r := range results {
		lr := LineResultResponse{Index: r.Index, OK: r.OK, Message: r.Message}
		if r.OK {
			lr.Movements = FromMovements(r.Movements)
		}
		for _, w := range r.Warnings {
			lr.Warnings = append(lr.Warnings, w.Error())
		}
		out = append(out, lr)
	}
	return out
}

// BatchResponse resultado de un lote.
type BatchResponse struct {
	Policy  string               `json:"policy"`
	Applied int                  `json:"applied"`
	Failed  int                  `json:"failed"`
	Results []LineResultResponse `json:"results"`
}

// NewBatchResponse resume los resultados del lote.
func NewBatchResponse(policy string, results []inventory.LineResult) BatchResponse {
	out := BatchResponse{Policy: policy, Results: FromLineResults(results)}
	for _, r := range results {
		if r.OK {
			out.Applied++
		} else {
			out.Failed++
		}
	}
	return out
}

// VerifyStockResponse lectura previa de disponibilidad.
type VerifyStockResponse struct {
	Cell      string `json:"cell"`
	Requested int    `json:"requested"`
	Current   int    `json:"current"`
	Available bool   `json:"available"`
}

// DriftResponse celda cuyo saldo no coincide con el libro.
type DriftResponse struct {
	Cell    string `json:"cell"`
	Ledger  int    `json:"ledger"`
	Balance int    `json:"balance"`
}

// FromDrifts mapea el resultado de la verificación.
func FromDrifts(ds []inventory.Drift) []DriftResponse {
	out := make([]DriftResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DriftResponse{Cell: d.Key.String(), Ledger: d.Ledger, Balance: d.Balance})
	}
	return out
}
