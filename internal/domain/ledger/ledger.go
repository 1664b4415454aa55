// Package ledger contiene las reglas puras del libro de inventario: validación de
// solicitudes, expansión en filas con signo y reconstrucción de saldos por replay.
package ledger

import (
	"fmt"
	"time"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// Endpoint es un extremo (ubicación + paquete) de un movimiento.
type Endpoint struct {
	Location entity.Location
	Package  entity.Package
}

func At(loc entity.Location, pkg entity.Package) Endpoint {
	return Endpoint{Location: loc, Package: pkg.OrNone()}
}

func (e Endpoint) String() string {
	return e.Location.String() + "/" + string(e.Package.OrNone())
}

// Request es la intención de movimiento que envía el llamador. Quantity siempre positiva;
// el signo de cada fila lo decide Expand según el tipo.
type Request struct {
	SKU               string
	Type              entity.MovementType
	Quantity          int
	From              Endpoint
	To                Endpoint
	EventDate         time.Time
	ReferenceDocument string
	Observations      string
	CreatedBy         string
	CorrectsID        string
}

// shape dice qué extremos usa cada tipo y cuáles ubicaciones son fijas.
type shape struct {
	from, to       bool
	fixedFrom      *entity.Location
	fixedTo        *entity.Location
	fromMobileOnly bool
	toMobileOnly   bool
}

func loc(l entity.Location) *entity.Location { return &l }

var shapes = map[entity.MovementType]shape{
	entity.MovementTypeEntry:            {to: true, fixedTo: loc(entity.Warehouse())},
	entity.MovementTypeOutboundDirect:   {from: true, fixedFrom: loc(entity.Warehouse())},
	entity.MovementTypeOutboundToMobile: {from: true, to: true, fixedFrom: loc(entity.Warehouse()), toMobileOnly: true},
	entity.MovementTypeReturnFromMobile: {from: true, to: true, fromMobileOnly: true, fixedTo: loc(entity.Warehouse())},
	entity.MovementTypeConsumption:      {from: true, fromMobileOnly: true},
	entity.MovementTypeTransfer:         {from: true, to: true},
	entity.MovementTypeDiscard:          {from: true, to: true, fixedTo: loc(entity.Discard())},
	entity.MovementTypeLoanToBranch:     {from: true, to: true, fixedFrom: loc(entity.Warehouse()), fixedTo: loc(entity.Branch())},
	entity.MovementTypeReturnFromBranch: {from: true, to: true, fixedFrom: loc(entity.Branch()), fixedTo: loc(entity.Warehouse())},
	entity.MovementTypeAdjustmentIn:     {to: true},
	entity.MovementTypeAdjustmentOut:    {from: true},
}

// KnownType indica si el tipo de movimiento existe.
func KnownType(t entity.MovementType) bool {
	_, ok := shapes[t]
	return ok
}

// Normalize completa las ubicaciones fijas del tipo (p.ej. ABASTO siempre entra a BODEGA)
// para que el llamador sólo tenga que indicar las variables.
func Normalize(req Request) Request {
	sh, ok := shapes[req.Type]
	if !ok {
		return req
	}
	if sh.fixedFrom != nil && req.From.Location.Kind == "" {
		req.From = At(*sh.fixedFrom, entity.PackageNone)
	}
	if sh.fixedTo != nil && req.To.Location.Kind == "" {
		req.To = At(*sh.fixedTo, entity.PackageNone)
	}
	req.From.Package = req.From.Package.OrNone()
	req.To.Package = req.To.Package.OrNone()
	return req
}

// Validate comprueba la forma de la solicitud ya normalizada.
func Validate(req Request) error {
	sh, ok := shapes[req.Type]
	if !ok || req.SKU == "" || req.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	if sh.from {
		if err := validateEndpoint(req.From, sh.fixedFrom, sh.fromMobileOnly); err != nil {
			return err
		}
	}
	if sh.to {
		if err := validateEndpoint(req.To, sh.fixedTo, sh.toMobileOnly); err != nil {
			return err
		}
	}
	if sh.from && sh.to && req.From == req.To {
		return domain.ErrInvalidInput
	}
	return nil
}

func validateEndpoint(e Endpoint, fixed *entity.Location, mobileOnly bool) error {
	if !e.Location.Valid() || !e.Package.Valid() {
		return domain.ErrInvalidInput
	}
	if fixed != nil && e.Location != *fixed {
		return domain.ErrInvalidInput
	}
	if mobileOnly && !e.Location.IsMobile() {
		return domain.ErrInvalidInput
	}
	if e.Package.OrNone() != entity.PackageNone && !e.Location.IsMobile() {
		return domain.ErrInvalidPackageForLocation
	}
	return nil
}

// HasSource indica si el tipo descuenta de un extremo origen.
func HasSource(t entity.MovementType) bool { return shapes[t].from }

// HasDestination indica si el tipo acredita un extremo destino.
func HasDestination(t entity.MovementType) bool { return shapes[t].to }

// Expand convierte una solicitud válida en las filas del libro (origen negativo primero).
func Expand(req Request, correlationID string, newID func() string, now time.Time) []entity.Movement {
	sh := shapes[req.Type]
	eventDate := req.EventDate
	if eventDate.IsZero() {
		eventDate = now
	}
	row := func(e Endpoint, qty int) entity.Movement {
		return entity.Movement{
			ID:                newID(),
			CorrelationID:     correlationID,
			SKU:               req.SKU,
			Type:              req.Type,
			Quantity:          qty,
			Location:          e.Location,
			Package:           e.Package.OrNone(),
			EventDate:         eventDate,
			RecordedAt:        now,
			ReferenceDocument: req.ReferenceDocument,
			Observations:      req.Observations,
			CreatedBy:         req.CreatedBy,
			CorrectsID:        req.CorrectsID,
		}
	}
	rows := make([]entity.Movement, 0, 2)
	if sh.from {
		rows = append(rows, row(req.From, -req.Quantity))
	}
	if sh.to {
		rows = append(rows, row(req.To, req.Quantity))
	}
	return rows
}

// ApplyDelta calcula el nuevo saldo de una celda y rechaza (sin recortar) los negativos.
func ApplyDelta(key entity.BalanceKey, current, delta int) (int, error) {
	next := current + delta
	if next < 0 {
		return current, &domain.InsufficientStockError{
			SKU:       key.SKU,
			Cell:      fmt.Sprintf("%s/%s", key.Location, key.Package.OrNone()),
			Available: current,
			Requested: -delta,
		}
	}
	return next, nil
}

// Replay reconstruye los saldos a partir del historial.
func Replay(movements []entity.Movement) map[entity.BalanceKey]int {
	out := make(map[entity.BalanceKey]int)
	for _, m := range movements {
		out[m.Key()] += m.Quantity
	}
	return out
}

// Reverse arma la solicitud que reproduce las filas de una correlación con otra cantidad:
// la fila negativa es el origen y la positiva el destino.
func Reverse(rows []entity.Movement) (Request, error) {
	if len(rows) == 0 || len(rows) > 2 {
		return Request{}, domain.ErrInvalidInput
	}
	req := Request{
		SKU:               rows[0].SKU,
		Type:              rows[0].Type,
		EventDate:         rows[0].EventDate,
		ReferenceDocument: rows[0].ReferenceDocument,
	}
	for _, r := range rows {
		if r.SKU != req.SKU || r.Type != req.Type {
			return Request{}, domain.ErrInvalidInput
		}
		if r.Quantity < 0 {
			req.From = At(r.Location, r.Package)
			req.Quantity = -r.Quantity
		} else {
			req.To = At(r.Location, r.Package)
			req.Quantity = r.Quantity
		}
	}
	return req, nil
}

// Compensation devuelve los ajustes que anulan una fila del libro.
func Compensation(row entity.Movement) Request {
	req := Request{SKU: row.SKU, EventDate: row.EventDate, ReferenceDocument: row.ReferenceDocument}
	if row.Quantity > 0 {
		req.Type = entity.MovementTypeAdjustmentOut
		req.Quantity = row.Quantity
		req.From = At(row.Location, row.Package)
	} else {
		req.Type = entity.MovementTypeAdjustmentIn
		req.Quantity = -row.Quantity
		req.To = At(row.Location, row.Package)
	}
	return req
}
