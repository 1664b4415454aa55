package dto

import (
	"time"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Brand         string `json:"brand"`
	MinStock      int    `json:"min_stock"`
	LegacyBarcode string `json:"legacy_barcode"`
	MasterBarcode string `json:"master_barcode"`
	Serialized    bool   `json:"serialized"`
}

// ToEntity convierte la entrada en entidad.
func (r CreateProductRequest) ToEntity() *entity.Product {
	return &entity.Product{
		SKU:           r.SKU,
		Name:          r.Name,
		Category:      r.Category,
		Brand:         r.Brand,
		MinStock:      r.MinStock,
		LegacyBarcode: r.LegacyBarcode,
		MasterBarcode: r.MasterBarcode,
		Serialized:    r.Serialized,
	}
}

// UpdateProductRequest entrada para actualizar metadatos (nunca cantidades). Campos nil no cambian.
type UpdateProductRequest struct {
	Name          *string `json:"name"`
	Category      *string `json:"category"`
	Brand         *string `json:"brand"`
	MinStock      *int    `json:"min_stock"`
	LegacyBarcode *string `json:"legacy_barcode"`
	MasterBarcode *string `json:"master_barcode"`
	Serialized    *bool   `json:"serialized"`
}

// Apply aplica los campos presentes sobre p.
func (r UpdateProductRequest) Apply(p *entity.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.Brand != nil {
		p.Brand = *r.Brand
	}
	if r.MinStock != nil {
		p.MinStock = *r.MinStock
	}
	if r.LegacyBarcode != nil {
		p.LegacyBarcode = *r.LegacyBarcode
	}
	if r.MasterBarcode != nil {
		p.MasterBarcode = *r.MasterBarcode
	}
	if r.Serialized != nil {
		p.Serialized = *r.Serialized
	}
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand"`
	MinStock      int       `json:"min_stock"`
	LegacyBarcode string    `json:"legacy_barcode,omitempty"`
	MasterBarcode string    `json:"master_barcode,omitempty"`
	Serialized    bool      `json:"serialized"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FromProduct mapea la entidad a respuesta.
func FromProduct(p *entity.Product) ProductResponse {
	return ProductResponse{
		SKU:           p.SKU,
		Name:          p.Name,
		Category:      p.Category,
		Brand:         p.Brand,
		MinStock:      p.MinStock,
		LegacyBarcode: p.LegacyBarcode,
		MasterBarcode: p.MasterBarcode,
		Serialized:    p.Serialized,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// LowStockResponse producto bajo mínimo en bodega.
type LowStockResponse struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	MinStock int    `json:"min_stock"`
	Current  int    `json:"current"`
	Missing  int    `json:"missing"`
}

// FromLowStock mapea el reporte de stock bajo.
func FromLowStock(items []inventory.LowStockItem) []LowStockResponse {
	out := make([]LowStockResponse, 0, len(items))
	for _, it := range items {
		out = append(out, LowStockResponse{
			SKU:      it.Product.SKU,
			Name:     it.Product.Name,
			MinStock: it.Product.MinStock,
			Current:  it.Current,
			Missing:  it.Product.MinStock - it.Current,
		})
	}
	return out
}
