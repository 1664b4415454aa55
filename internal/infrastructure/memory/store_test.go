package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/infrastructure/memory"
)

var errBoom = errors.New("boom")

func TestRun_RevierteAlFallar(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.Repos().Products.Create(ctx, &entity.Product{SKU: "A", Name: "a"}))

	err := s.Run(ctx, func(tx inventory.Tx) error {
		r := tx.Repos()
		require.NoError(t, r.Products.Create(ctx, &entity.Product{SKU: "B", Name: "b"}))
		require.NoError(t, r.Balances.Upsert(ctx, &entity.Balance{SKU: "A", Location: entity.Warehouse(), Quantity: 5}))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	b, err := s.Repos().Products.GetBySKU(ctx, "B")
	require.NoError(t, err)
	assert.Nil(t, b)
	bal, err := s.Repos().Balances.Get(ctx, entity.BalanceKey{SKU: "A", Location: entity.Warehouse()})
	require.NoError(t, err)
	assert.Zero(t, bal.Quantity)
}

// ─────────────────────────────────────────────────────────────────────────────
// Un savepoint fallido deshace sólo su parte; la transacción externa sigue y
// confirma lo que hizo antes y después.
// ─────────────────────────────────────────────────────────────────────────────
func TestSavepoint_RevierteSoloSuParte(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	err := s.Run(ctx, func(tx inventory.Tx) error {
		require.NoError(t, tx.Repos().Products.Create(ctx, &entity.Product{SKU: "A", Name: "a"}))
		spErr := tx.Savepoint(ctx, func(sp inventory.Tx) error {
			require.NoError(t, sp.Repos().Products.Create(ctx, &entity.Product{SKU: "B", Name: "b"}))
			return errBoom
		})
		assert.ErrorIs(t, spErr, errBoom)
		return tx.Repos().Products.Create(ctx, &entity.Product{SKU: "C", Name: "c"})
	})
	require.NoError(t, err)

	list, err := s.Repos().Products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].SKU)
	assert.Equal(t, "C", list[1].SKU)
}

func TestFaultHook_FallaLaEscrituraIndicada(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	s.SetFaultHook(func(op string) error {
		if op == memory.OpMovementCreate {
			return errBoom
		}
		return nil
	})

	require.NoError(t, s.Repos().Products.Create(ctx, &entity.Product{SKU: "A", Name: "a"}))
	err := s.Repos().Movements.Create(ctx, &entity.Movement{ID: "m1", SKU: "A"})
	assert.ErrorIs(t, err, errBoom)

	s.SetFaultHook(nil)
	m := &entity.Movement{ID: "m1", SKU: "A"}
	require.NoError(t, s.Repos().Movements.Create(ctx, m))
	assert.EqualValues(t, 1, m.Seq)
	assert.ErrorIs(t, s.Repos().Movements.Create(ctx, &entity.Movement{ID: "m1", SKU: "A"}), domain.ErrDuplicate)
}

func TestRun_ContextoCancelado(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Run(ctx, func(tx inventory.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBalanceRepo_RechazaNegativo(t *testing.T) {
	s := memory.NewStore()
	err := s.Repos().Balances.Upsert(context.Background(), &entity.Balance{SKU: "A", Location: entity.Warehouse(), Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestPendingRepo_BorraPorMovil(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	r := s.Repos().Pending
	require.NoError(t, r.Create(ctx, &entity.PendingConsumption{ID: "1", Mobile: "M1", SKU: "A", Quantity: 1}))
	require.NoError(t, r.Create(ctx, &entity.PendingConsumption{ID: "2", Mobile: "M2", SKU: "A", Quantity: 1}))
	require.NoError(t, r.Create(ctx, &entity.PendingConsumption{ID: "3", Mobile: "M1", SKU: "B", Quantity: 2}))

	n, err := r.DeleteByMobile(ctx, "M1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rest, err := r.ListByMobile(ctx, "M2")
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
