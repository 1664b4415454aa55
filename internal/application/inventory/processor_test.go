package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

func batch() []inventory.Line {
	return []inventory.Line{
		{Request: toMobile("X", "M1", entity.PackageA, 5)},
		{Request: toMobile("X", "M1", entity.PackageB, 20)},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Con TodoONada una sola línea fallida revierte el lote completo: la línea que sí
// se había aplicado queda marcada como revertida y los saldos no cambian.
// ─────────────────────────────────────────────────────────────────────────────
func TestApplyBatch_TodoONada(t *testing.T) {
	f := newFixture(t)
	f.product(t, "X")
	f.entry(t, "X", 10)

	results, err := f.processor.ApplyBatch(context.Background(), batch(), inventory.AllOrNothing)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchPartialFailure)
	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Message, "revertido")
	assert.Empty(t, results[0].Movements)
	assert.False(t, results[1].OK)
	assert.ErrorIs(t, results[1].Err, domain.ErrInsufficientStock)

	assert.Equal(t, 10, f.balance(t, "X", entity.Warehouse(), entity.PackageNone))
	assert.Equal(t, 0, f.balance(t, "X", entity.Mobile("M1"), entity.PackageA))
}

func TestApplyBatch_ConfirmacionParcial(t *testing.T) {
	f := newFixture(t)
	f.product(t, "X")
	f.entry(t, "X", 10)

	results, err := f.processor.ApplyBatch(context.Background(), batch(), inventory.PartialCommit)
	require.Error(t, err)
	var partial *domain.BatchPartialFailureError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []int{0}, partial.Succeeded)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, 1, partial.Failed[0].Index)

	assert.True(t, results[0].OK)
	assert.Len(t, results[0].Movements, 2)
	assert.False(t, results[1].OK)

	assert.Equal(t, 5, f.balance(t, "X", entity.Warehouse(), entity.PackageNone))
	assert.Equal(t, 5, f.balance(t, "X", entity.Mobile("M1"), entity.PackageA))
	assert.Equal(t, 0, f.balance(t, "X", entity.Mobile("M1"), entity.PackageB))
}

func TestApplyBatch_LoteVacio(t *testing.T) {
	f := newFixture(t)
	_, err := f.processor.ApplyBatch(context.Background(), nil, inventory.AllOrNothing)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ─────────────────────────────────────────────────────────────────────────────
// Los seriales viajan con su línea: la cantidad debe coincidir y cada serial
// termina en el destino de la línea.
// ─────────────────────────────────────────────────────────────────────────────
func TestApplyBatch_MueveSerialesConLaLinea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "ONT")
	f.entry(t, "ONT", 2)
	for _, sn := range []string{"S1", "S2"} {
		_, err := f.serials.Register(ctx, sn, "ONT", entity.Warehouse(), "")
		require.NoError(t, err)
	}

	results, err := f.processor.ApplyBatch(ctx, []inventory.Line{
		{Request: toMobile("ONT", "M1", entity.PackageA, 2), Serials: []string{"s1", "s2"}},
	}, inventory.AllOrNothing)
	require.NoError(t, err)
	require.True(t, results[0].OK)
	assert.Empty(t, results[0].Warnings)

	list, err := f.serials.ListAt(ctx, entity.Mobile("M1"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, u := range list {
		assert.Equal(t, entity.PackageA, u.Package)
	}
}

func TestApplyBatch_SerialesNoCuadran(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "ONT")
	f.entry(t, "ONT", 2)
	_, err := f.serials.Register(ctx, "S1", "ONT", entity.Warehouse(), "")
	require.NoError(t, err)

	results, err := f.processor.ApplyBatch(ctx, []inventory.Line{
		{Request: toMobile("ONT", "M1", entity.PackageA, 2), Serials: []string{"S1"}},
	}, inventory.AllOrNothing)
	require.Error(t, err)
	assert.ErrorIs(t, results[0].Err, domain.ErrInvalidInput)
	assert.Equal(t, 2, f.balance(t, "ONT", entity.Warehouse(), entity.PackageNone))
}

func TestVerifyStock(t *testing.T) {
	f := newFixture(t)
	f.product(t, "X")
	f.entry(t, "X", 4)
	key := entity.BalanceKey{SKU: "X", Location: entity.Warehouse()}

	ok, current, err := f.processor.VerifyStock(context.Background(), key, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, current)

	ok, _, err = f.processor.VerifyStock(context.Background(), key, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = f.processor.VerifyStock(context.Background(), key, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
