//go:build integration

package postgres_test

// Pruebas contra PostgreSQL real levantado con testcontainers.
// Ejecutar con: go test -tags integration ./internal/infrastructure/postgres/... -v

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/application/reconciliation"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
	"github.com/jhoicas/inventario-movil/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-movil/pkg/config"
)

// ── Setup ────────────────────────────────────────────────────────────────────

type pgEnv struct {
	pool    *pgxpool.Pool
	ledger  *inventory.StockLedger
	serials *inventory.SerialRegistry
	proc    *inventory.MovementProcessor
	catalog *inventory.CatalogService
	pending *inventory.PendingConsumptionService
	engine  *reconciliation.Engine
}

func setupPostgres(t *testing.T) *pgEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("inventario_test"),
		tcpostgres.WithUsername("inventario"),
		tcpostgres.WithPassword("inventario"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "la migración es idempotente")

	log := zerolog.Nop()
	runner := postgres.NewTxRunner(pool)
	repos := postgres.NewRepos(pool)
	l := inventory.NewStockLedger(runner, repos, log)
	s := inventory.NewSerialRegistry(runner, repos, log)
	p := inventory.NewMovementProcessor(runner, l, s, log)
	return &pgEnv{
		pool:    pool,
		ledger:  l,
		serials: s,
		proc:    p,
		catalog: inventory.NewCatalogService(repos),
		pending: inventory.NewPendingConsumptionService(repos, log),
		engine:  reconciliation.NewEngine(reconciliation.Config{Branch: "CENTRO"}, runner, repos, p, s, log),
	}
}

func (e *pgEnv) product(t *testing.T, sku string) {
	t.Helper()
	require.NoError(t, e.catalog.Create(context.Background(), &entity.Product{SKU: sku, Name: "Material " + sku}))
}

func (e *pgEnv) apply(t *testing.T, req ledger.Request) *inventory.ApplyResult {
	t.Helper()
	res, err := e.ledger.Apply(context.Background(), req)
	require.NoError(t, err)
	return res
}

func (e *pgEnv) balance(t *testing.T, sku string, loc entity.Location, pkg entity.Package) int {
	t.Helper()
	q, err := e.ledger.Balance(context.Background(), entity.BalanceKey{SKU: sku, Location: loc, Package: pkg})
	require.NoError(t, err)
	return q
}

func entry(sku string, qty int) ledger.Request {
	return ledger.Request{SKU: sku, Type: entity.MovementTypeEntry, Quantity: qty}
}

func toMobile(sku, mobile string, pkg entity.Package, qty int) ledger.Request {
	return ledger.Request{
		SKU: sku, Type: entity.MovementTypeOutboundToMobile, Quantity: qty,
		To: ledger.At(entity.Mobile(mobile), pkg),
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPostgres(t *testing.T) {
	e := setupPostgres(t)
	ctx := context.Background()

	t.Run("libro y replay coinciden", func(t *testing.T) {
		e.product(t, "LIB")
		e.apply(t, entry("LIB", 50))
		out := e.apply(t, toMobile("LIB", "M1", entity.PackageA, 30))
		require.Len(t, out.Movements, 2)
		assert.Positive(t, out.Movements[0].Seq)

		_, err := e.ledger.Correct(ctx, out.Movements[0].ID, 20, "supervisor", "")
		require.NoError(t, err)
		_, err = e.ledger.Correct(ctx, out.Movements[1].ID, 10, "supervisor", "")
		assert.ErrorIs(t, err, domain.ErrConflict)

		assert.Equal(t, 30, e.balance(t, "LIB", entity.Warehouse(), entity.PackageNone))
		assert.Equal(t, 20, e.balance(t, "LIB", entity.Mobile("M1"), entity.PackageA))

		drifts, err := e.ledger.Verify(ctx, "LIB")
		require.NoError(t, err)
		assert.Empty(t, drifts)
	})

	t.Run("saldo insuficiente no escribe", func(t *testing.T) {
		e.product(t, "INS")
		e.apply(t, entry("INS", 2))
		_, err := e.ledger.Apply(ctx, toMobile("INS", "M1", entity.PackageNone, 3))
		var insufficient *domain.InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, 2, insufficient.Available)

		n := 0
		for _, err := range e.ledger.History(ctx, "INS", nil) {
			require.NoError(t, err)
			n++
		}
		assert.Equal(t, 1, n)
	})

	// Dos salidas concurrentes compiten por el mismo saldo: el bloqueo de fila
	// garantiza que sólo una pasa y el saldo nunca queda negativo.
	t.Run("salidas concurrentes", func(t *testing.T) {
		e.product(t, "CON")
		e.apply(t, entry("CON", 10))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = e.ledger.Apply(ctx, toMobile("CON", fmt.Sprintf("M%d", i+1), entity.PackageNone, 6))
			}(i)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				failed++
			}
		}
		assert.Equal(t, 1, failed)
		assert.Equal(t, 4, e.balance(t, "CON", entity.Warehouse(), entity.PackageNone))
	})

	t.Run("lote con savepoints", func(t *testing.T) {
		e.product(t, "LOT")
		e.apply(t, entry("LOT", 10))
		lines := []inventory.Line{
			{Request: toMobile("LOT", "M1", entity.PackageA, 4)},
			{Request: toMobile("LOT", "M1", entity.PackageB, 40)},
		}

		_, err := e.proc.ApplyBatch(ctx, lines, inventory.AllOrNothing)
		assert.ErrorIs(t, err, domain.ErrBatchPartialFailure)
		assert.Equal(t, 10, e.balance(t, "LOT", entity.Warehouse(), entity.PackageNone))

		results, err := e.proc.ApplyBatch(ctx, lines, inventory.PartialCommit)
		assert.ErrorIs(t, err, domain.ErrBatchPartialFailure)
		assert.True(t, results[0].OK)
		assert.Equal(t, 6, e.balance(t, "LOT", entity.Warehouse(), entity.PackageNone))
		assert.Equal(t, 4, e.balance(t, "LOT", entity.Mobile("M1"), entity.PackageA))
	})

	t.Run("seriales", func(t *testing.T) {
		e.product(t, "ONT")
		for _, sn := range []string{"P-1", "P-2"} {
			_, err := e.serials.Register(ctx, sn, "ONT", entity.Mobile("M3"), entity.PackageCart)
			require.NoError(t, err)
		}
		_, err := e.serials.Register(ctx, "P-1", "ONT", entity.Warehouse(), "")
		assert.ErrorIs(t, err, domain.ErrDuplicateSerial)

		require.NoError(t, e.serials.BulkMoveTo(ctx, []string{"P-1", "P-2"}, entity.Warehouse(), ""))
		list, err := e.serials.ListAt(ctx, entity.Warehouse())
		require.NoError(t, err)
		assert.Len(t, list, 2)

		err = e.serials.BulkMoveTo(ctx, []string{"P-1", "NO-EXISTE"}, entity.Mobile("M3"), "")
		var bulk *inventory.BulkMoveError
		require.True(t, errors.As(err, &bulk))
		unit, err := e.serials.Resolve(ctx, "P-1")
		require.NoError(t, err)
		assert.Equal(t, entity.Warehouse(), unit.Location, "el lote fallido no deja efectos")
	})

	// Escenario de cierre con 20 asignados: 7 consumos + 18 retornos no caben y
	// nada se aplica. Con 30 asignados el cierre confirma todo.
	t.Run("cierre de conciliación", func(t *testing.T) {
		e.product(t, "X")
		e.apply(t, entry("X", 50))
		e.apply(t, toMobile("X", "MR", entity.PackageA, 20))
		require.NoError(t, e.pending.Report(ctx, &entity.PendingConsumption{Mobile: "MR", SKU: "X", Quantity: 7}))

		_, err := e.engine.LoadSession(ctx, "MR", time.Time{})
		require.NoError(t, err)
		require.NoError(t, e.engine.SetManualCount("MR", "X", 18))

		_, err = e.engine.Finalize(ctx, "MR", "auditor")
		require.ErrorIs(t, err, domain.ErrFinalizeRolledBack)
		assert.Equal(t, 20, e.balance(t, "X", entity.Mobile("MR"), entity.PackageA))
		pend, err := e.pending.ListByMobile(ctx, "MR")
		require.NoError(t, err)
		assert.Len(t, pend, 1)

		e.apply(t, toMobile("X", "MR", entity.PackageA, 10))
		require.NoError(t, e.engine.Close("MR"))
		_, err = e.engine.LoadSession(ctx, "MR", time.Time{})
		require.NoError(t, err)
		require.NoError(t, e.engine.SetManualCount("MR", "X", 18))

		report, err := e.engine.Finalize(ctx, "MR", "auditor")
		require.NoError(t, err)
		assert.Equal(t, reconciliation.StateClosed, report.State)
		assert.EqualValues(t, 1, report.PendingCleared)
		assert.Equal(t, 5, e.balance(t, "X", entity.Mobile("MR"), entity.PackageA))
		assert.Equal(t, 38, e.balance(t, "X", entity.Warehouse(), entity.PackageNone))

		drifts, err := e.ledger.Verify(ctx, "X")
		require.NoError(t, err)
		assert.Empty(t, drifts)
	})
}
