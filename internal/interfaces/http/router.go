package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/application/reconciliation"
	"github.com/jhoicas/inventario-movil/internal/worker"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName   string
	Catalog   *inventory.CatalogService
	Ledger    *inventory.StockLedger
	Processor *inventory.MovementProcessor
	Serials   *inventory.SerialRegistry
	Pending   *inventory.PendingConsumptionService
	Engine    *reconciliation.Engine
	Pool      *worker.Pool
}

// Router registra las rutas de la API. La autenticación la resuelve el proxy delante del servicio.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	products := api.Group("/products")
	productHandler := NewProductHandler(deps.Catalog)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/low-stock", productHandler.LowStock)
	products.Get("/barcode/:code", productHandler.ResolveBarcode)
	products.Get("/:sku", productHandler.Get)
	products.Put("/:sku", productHandler.Update)

	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Processor)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Post("/movements/:id/correction", inventoryHandler.Correct)
	invGroup.Post("/batches", inventoryHandler.ApplyBatch)
	invGroup.Get("/balances", inventoryHandler.BalancesByLocation)
	invGroup.Get("/verify-stock", inventoryHandler.VerifyStock)
	invGroup.Get("/history/:sku", inventoryHandler.History)
	invGroup.Get("/ledger/:sku/verify", inventoryHandler.VerifyLedger)

	serials := api.Group("/serials")
	serialHandler := NewSerialHandler(deps.Serials)
	serials.Post("/", serialHandler.Register)
	serials.Get("/", serialHandler.ListAt)
	serials.Get("/:serial", serialHandler.Get)
	serials.Post("/:serial/move", serialHandler.Move)

	pending := api.Group("/pending-consumptions")
	pendingHandler := NewPendingHandler(deps.Pending)
	pending.Post("/", pendingHandler.Report)
	pending.Get("/", pendingHandler.List)

	recon := api.Group("/reconciliations")
	reconHandler := NewReconciliationHandler(deps.Engine, deps.Pool)
	recon.Get("/", reconHandler.Mobiles)
	recon.Post("/:mobile", reconHandler.Load)
	recon.Get("/:mobile", reconHandler.Get)
	recon.Delete("/:mobile", reconHandler.Close)
	recon.Put("/:mobile/activations", reconHandler.UploadActivations)
	recon.Post("/:mobile/scans", reconHandler.Scan)
	recon.Put("/:mobile/counts", reconHandler.ManualCount)
	recon.Put("/:mobile/package-filter", reconHandler.PackageFilter)
	recon.Get("/:mobile/discrepancies", reconHandler.Discrepancies)
	recon.Post("/:mobile/finalize", reconHandler.Finalize)
	recon.Get("/:mobile/drafts/missing", reconHandler.AutoFillMissing)
	recon.Get("/:mobile/drafts/returned", reconHandler.ReuseReturned)
}
