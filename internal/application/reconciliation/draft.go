package reconciliation

import (
	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

// DraftSource origen de un borrador de despacho.
type DraftSource string

const (
	DraftAutoFillMissing DraftSource = "AUTOCOMPLETAR_FALTANTES"
	DraftReuseReturned   DraftSource = "REUTILIZAR_RETORNADOS"
)

// OutboundDraft borrador de una nueva salida al móvil. No mueve saldos: lo confirma el
// flujo de despacho normal.
type OutboundDraft struct {
	Source  DraftSource
	Mobile  string
	Package entity.Package
	Lines   []DraftLine
}

// BatchLines convierte el borrador en líneas SALIDA_MOVIL para el procesador.
func (d *OutboundDraft) BatchLines(createdBy, reference string) []inventory.Line {
	lines := make([]inventory.Line, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, inventory.Line{
			Request: ledger.Request{
				SKU:               l.SKU,
				Type:              entity.MovementTypeOutboundToMobile,
				Quantity:          l.Quantity,
				From:              ledger.At(entity.Warehouse(), entity.PackageNone),
				To:                ledger.At(entity.Mobile(d.Mobile), d.Package),
				ReferenceDocument: reference,
				CreatedBy:         createdBy,
			},
			Serials: append([]string(nil), l.Serials...),
		})
	}
	return lines
}
