package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// CatalogService expone el catálogo de materiales. Las cantidades nunca se editan aquí.
type CatalogService struct {
	repos Repos
	now   func() time.Time
}

// NewCatalogService construye el servicio de catálogo.
func NewCatalogService(repos Repos) *CatalogService {
	return &CatalogService{repos: repos, now: time.Now}
}

// Create registra un producto nuevo.
func (c *CatalogService) Create(ctx context.Context, p *entity.Product) error {
	p.SKU = strings.TrimSpace(p.SKU)
	if p.SKU == "" || strings.TrimSpace(p.Name) == "" || p.MinStock < 0 {
		return domain.ErrInvalidInput
	}
	existing, err := c.repos.Products.GetBySKU(ctx, p.SKU)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrDuplicate
	}
	now := c.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return c.repos.Products.Create(ctx, p)
}

// UpdateMetadata cambia datos descriptivos de un producto existente.
func (c *CatalogService) UpdateMetadata(ctx context.Context, p *entity.Product) error {
	existing, err := c.repos.Products.GetBySKU(ctx, p.SKU)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	if p.MinStock < 0 {
		return domain.ErrInvalidInput
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = c.now()
	return c.repos.Products.Update(ctx, p)
}

// Get devuelve un producto por sku.
func (c *CatalogService) Get(ctx context.Context, sku string) (*entity.Product, error) {
	p, err := c.repos.Products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// ListProducts lista todo el catálogo ordenado por sku.
func (c *CatalogService) ListProducts(ctx context.Context) ([]*entity.Product, error) {
	list, err := c.repos.Products.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SKU < list[j].SKU })
	return list, nil
}

// ResolveBarcode traduce un código de barras (antiguo o maestro) a sku.
func (c *CatalogService) ResolveBarcode(ctx context.Context, code string) (string, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false, nil
	}
	p, err := c.repos.Products.GetByBarcode(ctx, code)
	if err != nil {
		return "", false, err
	}
	if p == nil {
		return "", false, nil
	}
	return p.SKU, true, nil
}

// LowStockItem producto bajo su stock mínimo en bodega.
type LowStockItem struct {
	Product *entity.Product
	Current int
}

// LowStock devuelve los productos cuyo saldo en bodega es inferior a MinStock.
func (c *CatalogService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := c.repos.Balances.ListByLocation(ctx, entity.Warehouse())
	if err != nil {
		return nil, err
	}
	bySKU := make(map[string]int, len(balances))
	for _, b := range balances {
		bySKU[b.SKU] += b.Quantity
	}
	var out []LowStockItem
	for _, p := range products {
		if p.MinStock > 0 && bySKU[p.SKU] < p.MinStock {
			out = append(out, LowStockItem{Product: p, Current: bySKU[p.SKU]})
		}
	}
	return out, nil
}
