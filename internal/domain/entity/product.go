package entity

import "time"

// Product representa un material del catálogo. Los saldos no viven aquí: se derivan de los movimientos.
type Product struct {
	SKU           string // clave única
	Name          string
	Category      string
	Brand         string
	MinStock      int
	LegacyBarcode string
	MasterBarcode string
	Serialized    bool // se controla por unidad (serial/MAC)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MatchesBarcode indica si el código corresponde al código de barras antiguo o maestro.
func (p *Product) MatchesBarcode(code string) bool {
	if code == "" {
		return false
	}
	return p.LegacyBarcode == code || p.MasterBarcode == code
}
