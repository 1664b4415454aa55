package reconciliation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal cuenta lecturas del escáner.
	// Labels: result (serial, codigo_barras, sku, duplicado, desconocido, error)
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventario",
			Subsystem: "conciliacion",
			Name:      "scans_total",
			Help:      "Total de lecturas procesadas en conciliaciones",
		},
		[]string{"result"},
	)

	// FinalizeTotal cuenta cierres de conciliación.
	// Labels: result (confirmada, revertida)
	FinalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventario",
			Subsystem: "conciliacion",
			Name:      "finalize_total",
			Help:      "Total de cierres de conciliación por resultado",
		},
		[]string{"result"},
	)

	// FinalizeDuration duración del cierre transaccional.
	FinalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inventario",
			Subsystem: "conciliacion",
			Name:      "finalize_duration_seconds",
			Help:      "Duración del cierre de una conciliación en segundos",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ActiveSessions conciliaciones cargadas que aún no llegan a CERRADA.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inventario",
			Subsystem: "conciliacion",
			Name:      "active_sessions",
			Help:      "Conciliaciones sin cerrar en memoria",
		},
	)
)
