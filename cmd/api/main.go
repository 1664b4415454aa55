package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/application/reconciliation"
	"github.com/jhoicas/inventario-movil/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-movil/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-movil/internal/interfaces/http"
	"github.com/jhoicas/inventario-movil/internal/worker"
	"github.com/jhoicas/inventario-movil/pkg/config"
	"github.com/jhoicas/inventario-movil/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Strs("moviles", cfg.Reconciliation.Mobiles).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		txRunner inventory.TxRunner
		repos    inventory.Repos
	)
	switch cfg.Store.Driver {
	case "memory":
		store := memory.NewStore()
		txRunner, repos = store, store.Repos()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		txRunner, repos = postgres.NewTxRunner(pool), postgres.NewRepos(pool)
	}

	zl := log.Zerolog()
	catalog := inventory.NewCatalogService(repos)
	stockLedger := inventory.NewStockLedger(txRunner, repos, zl)
	serials := inventory.NewSerialRegistry(txRunner, repos, zl)
	processor := inventory.NewMovementProcessor(txRunner, stockLedger, serials, zl)
	pending := inventory.NewPendingConsumptionService(repos, zl)
	engine := reconciliation.NewEngine(reconciliation.Config{
		Branch:          cfg.Reconciliation.Branch,
		Mobiles:         cfg.Reconciliation.Mobiles,
		LoadTimeout:     cfg.Reconciliation.LoadTimeout,
		FinalizeTimeout: cfg.Reconciliation.FinalizeTimeout,
	}, txRunner, repos, processor, serials, zl)

	workers := worker.NewPool(cfg.Worker.PoolSize, zl)
	workers.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Reconciliation.FinalizeTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Inventario Móvil API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:   cfg.App.Name,
		Catalog:   catalog,
		Ledger:    stockLedger,
		Processor: processor,
		Serials:   serials,
		Pending:   pending,
		Engine:    engine,
		Pool:      workers,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Reconciliation.FinalizeTimeout+10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Los cierres en curso terminan antes de soltar la base
	workers.Stop()

	log.Info().Msg("aplicación detenida")
}
