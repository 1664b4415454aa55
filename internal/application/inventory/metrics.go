package inventory

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/inventario-movil/internal/domain"
)

var (
	// MovementsApplied cuenta las filas escritas en el libro.
	// Labels: type
	MovementsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventario",
			Subsystem: "ledger",
			Name:      "movements_applied_total",
			Help:      "Total de filas de movimiento registradas en el libro",
		},
		[]string{"type"},
	)

	// MovementsRejected cuenta solicitudes rechazadas.
	// Labels: reason (stock_insuficiente, paquete_invalido, entrada_invalida, no_encontrado, otro)
	MovementsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventario",
			Subsystem: "ledger",
			Name:      "movements_rejected_total",
			Help:      "Total de solicitudes de movimiento rechazadas",
		},
		[]string{"reason"},
	)

	// SerialLocationMismatches cuenta seriales movidos desde una ubicación distinta a la esperada.
	SerialLocationMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inventario",
			Subsystem: "serials",
			Name:      "location_mismatches_total",
			Help:      "Seriales cuya ubicación registrada no coincidía con la esperada",
		},
	)
)

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "stock_insuficiente"
	case errors.Is(err, domain.ErrInvalidPackageForLocation):
		return "paquete_invalido"
	case errors.Is(err, domain.ErrInvalidInput):
		return "entrada_invalida"
	case errors.Is(err, domain.ErrNotFound):
		return "no_encontrado"
	default:
		return "otro"
	}
}
