package entity

import "time"

// MovementType tipos de movimiento del libro de inventario.
type MovementType string

const (
	MovementTypeEntry            MovementType = "ABASTO"
	MovementTypeOutboundDirect   MovementType = "SALIDA"
	MovementTypeOutboundToMobile MovementType = "SALIDA_MOVIL"
	MovementTypeReturnFromMobile MovementType = "RETORNO_MOVIL"
	MovementTypeConsumption      MovementType = "CONSUMO_MOVIL"
	MovementTypeTransfer         MovementType = "TRASLADO"
	MovementTypeDiscard          MovementType = "DESCARTE"
	MovementTypeLoanToBranch     MovementType = "PRESTAMO_SUCURSAL"
	MovementTypeReturnFromBranch MovementType = "RETORNO_SUCURSAL"
	MovementTypeAdjustmentIn     MovementType = "AJUSTE_POSITIVO"
	MovementTypeAdjustmentOut    MovementType = "AJUSTE_NEGATIVO"
)

// Movement es un registro inmutable del libro. Quantity lleva signo: positivo entra a la
// celda (sku, ubicación, paquete), negativo sale. Los movimientos de dos celdas
// (traslados, salidas a móvil, retornos) generan dos filas con el mismo CorrelationID.
type Movement struct {
	Seq               int64 // orden de registro, asignado por el almacenamiento
	ID                string
	CorrelationID     string
	SKU               string
	Type              MovementType
	Quantity          int
	Location          Location
	Package           Package
	EventDate         time.Time
	RecordedAt        time.Time
	ReferenceDocument string
	Observations      string
	CreatedBy         string
	CorrectsID        string // correlación corregida, sólo en compensaciones
}

// Key devuelve la celda de saldo que toca el movimiento.
func (m Movement) Key() BalanceKey {
	return BalanceKey{SKU: m.SKU, Location: m.Location, Package: m.Package.OrNone()}
}
