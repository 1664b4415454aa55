package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

func TestCatalog_CrearYActualizar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := &entity.Product{SKU: " CAB-01 ", Name: "Cable drop", MinStock: 10, LegacyBarcode: "770001", MasterBarcode: "M-CAB-01"}
	require.NoError(t, f.catalog.Create(ctx, p))
	assert.Equal(t, "CAB-01", p.SKU)

	err := f.catalog.Create(ctx, &entity.Product{SKU: "CAB-01", Name: "otro"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	err = f.catalog.Create(ctx, &entity.Product{SKU: "SIN-NOMBRE"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.catalog.UpdateMetadata(ctx, &entity.Product{SKU: "CAB-01", Name: "Cable drop 2 hilos", MinStock: 5}))
	got, err := f.catalog.Get(ctx, "CAB-01")
	require.NoError(t, err)
	assert.Equal(t, "Cable drop 2 hilos", got.Name)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)

	err = f.catalog.UpdateMetadata(ctx, &entity.Product{SKU: "NOPE", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.catalog.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_ResolveBarcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.catalog.Create(ctx, &entity.Product{SKU: "CAB-01", Name: "Cable", LegacyBarcode: "770001", MasterBarcode: "M-1"}))

	for _, code := range []string{"770001", " M-1 "} {
		sku, ok, err := f.catalog.ResolveBarcode(ctx, code)
		require.NoError(t, err)
		assert.True(t, ok, code)
		assert.Equal(t, "CAB-01", sku)
	}

	_, ok, err := f.catalog.ResolveBarcode(ctx, "999")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.catalog.ResolveBarcode(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalog_LowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.catalog.Create(ctx, &entity.Product{SKU: "A", Name: "a", MinStock: 10}))
	require.NoError(t, f.catalog.Create(ctx, &entity.Product{SKU: "B", Name: "b", MinStock: 2}))
	require.NoError(t, f.catalog.Create(ctx, &entity.Product{SKU: "C", Name: "c"}))
	f.entry(t, "A", 4)
	f.entry(t, "B", 5)

	items, err := f.catalog.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Product.SKU)
	assert.Equal(t, 4, items[0].Current)

	all, err := f.catalog.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].SKU)
}

func TestPendingConsumption_Report(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "ONT")

	pc := &entity.PendingConsumption{
		Mobile:      " M1 ",
		SKU:         "ONT",
		Quantity:    1,
		Technician:  "tecnico-7",
		TicketRef:   "OT-551",
		UsedSerials: []string{" abc1 "},
	}
	require.NoError(t, f.pending.Report(ctx, pc))
	assert.NotEmpty(t, pc.ID)
	assert.False(t, pc.EventDate.IsZero())
	assert.WithinDuration(t, time.Now(), pc.CreatedAt, time.Minute)

	list, err := f.pending.ListByMobile(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"ABC1"}, list[0].UsedSerials)

	err = f.pending.Report(ctx, &entity.PendingConsumption{Mobile: "M1", SKU: "NOPE", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.pending.Report(ctx, &entity.PendingConsumption{Mobile: "M1", SKU: "ONT", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.pending.ListByMobile(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Zero(t, f.balance(t, "ONT", entity.Mobile("M1"), entity.PackageNone), "reportar no mueve saldos")
}
