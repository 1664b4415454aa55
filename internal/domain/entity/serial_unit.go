package entity

import "time"

// SerialUnit es una unidad identificada individualmente (serial o MAC).
// Tiene exactamente una ubicación y paquete vigentes.
type SerialUnit struct {
	SerialNumber string
	SKU          string
	Location     Location
	Package      Package
	IngestDate   time.Time
	UpdatedAt    time.Time
}
