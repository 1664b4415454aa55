package inventory_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
	"github.com/jhoicas/inventario-movil/internal/infrastructure/memory"
)

type fixture struct {
	store     *memory.Store
	ledger    *inventory.StockLedger
	serials   *inventory.SerialRegistry
	processor *inventory.MovementProcessor
	catalog   *inventory.CatalogService
	pending   *inventory.PendingConsumptionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	repos := store.Repos()
	l := inventory.NewStockLedger(store, repos, log)
	s := inventory.NewSerialRegistry(store, repos, log)
	return &fixture{
		store:     store,
		ledger:    l,
		serials:   s,
		processor: inventory.NewMovementProcessor(store, l, s, log),
		catalog:   inventory.NewCatalogService(repos),
		pending:   inventory.NewPendingConsumptionService(repos, log),
	}
}

func (f *fixture) product(t *testing.T, sku string) {
	t.Helper()
	require.NoError(t, f.catalog.Create(context.Background(), &entity.Product{SKU: sku, Name: "Material " + sku}))
}

func (f *fixture) entry(t *testing.T, sku string, qty int) *inventory.ApplyResult {
	t.Helper()
	res, err := f.ledger.Apply(context.Background(), ledger.Request{SKU: sku, Type: entity.MovementTypeEntry, Quantity: qty})
	require.NoError(t, err)
	return res
}

func (f *fixture) balance(t *testing.T, sku string, loc entity.Location, pkg entity.Package) int {
	t.Helper()
	q, err := f.ledger.Balance(context.Background(), entity.BalanceKey{SKU: sku, Location: loc, Package: pkg})
	require.NoError(t, err)
	return q
}

func toMobile(sku, mobile string, pkg entity.Package, qty int) ledger.Request {
	return ledger.Request{
		SKU:      sku,
		Type:     entity.MovementTypeOutboundToMobile,
		Quantity: qty,
		To:       ledger.At(entity.Mobile(mobile), pkg),
	}
}
