package repository

import (
	"context"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia del catálogo (DIP).
// Los Get devuelven (nil, nil) cuando no existe el producto.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// GetByBarcode busca por código de barras antiguo o maestro.
	GetByBarcode(ctx context.Context, code string) (*entity.Product, error)
	// Update sólo modifica metadatos; nunca cantidades.
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context) ([]*entity.Product, error)
}
