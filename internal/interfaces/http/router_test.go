package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/application/reconciliation"
	"github.com/jhoicas/inventario-movil/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventario-movil/internal/interfaces/http"
	"github.com/jhoicas/inventario-movil/internal/worker"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildTestApp arma la API completa sobre el almacenamiento en memoria.
func buildTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	repos := store.Repos()
	l := inventory.NewStockLedger(store, repos, log)
	s := inventory.NewSerialRegistry(store, repos, log)
	p := inventory.NewMovementProcessor(store, l, s, log)

	pool := worker.NewPool(2, log)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AppName:   "inventario-test",
		Catalog:   inventory.NewCatalogService(repos),
		Ledger:    l,
		Processor: p,
		Serials:   s,
		Pending:   inventory.NewPendingConsumptionService(repos, log),
		Engine:    reconciliation.NewEngine(reconciliation.Config{Branch: "CENTRO"}, store, repos, p, s, log),
		Pool:      pool,
	})
	return app
}

// call lanza la petición y decodifica el cuerpo JSON (si lo hay) en un mapa.
func call(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "respuesta: %s", raw)
	}
	return resp.StatusCode, out
}

func mustCall(t *testing.T, app *fiber.App, method, path string, body any, want int) map[string]any {
	t.Helper()
	status, out := call(t, app, method, path, body)
	require.Equal(t, want, status, "%s %s → %v", method, path, out)
	return out
}

// seed crea el producto X y deja qty en el paquete A del móvil M1.
func seed(t *testing.T, app *fiber.App, qty int) {
	t.Helper()
	mustCall(t, app, http.MethodPost, "/api/products", fiber.Map{"sku": "X", "name": "Cable drop"}, fiber.StatusCreated)
	mustCall(t, app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"sku": "X", "type": "ABASTO", "quantity": qty,
	}, fiber.StatusCreated)
	mustCall(t, app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"sku": "X", "type": "SALIDA_MOVIL", "quantity": qty,
		"to": fiber.Map{"location": "MOVIL:M1", "package": "PAQUETE_A"},
	}, fiber.StatusCreated)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthYMetricas(t *testing.T) {
	app := buildTestApp(t)
	out := mustCall(t, app, http.MethodGet, "/health", nil, fiber.StatusOK)
	assert.Equal(t, "ok", out["status"])

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "inventario_conciliacion_active_sessions")
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo: despacho, consumo reportado, conteo físico y cierre. El móvil
// queda con 30 - 7 - 18 = 5 en el paquete A y el libro sigue consistente.
// ──────────────────────────────────────────────────────────────────────────────
func TestConciliacion_FlujoCompleto(t *testing.T) {
	app := buildTestApp(t)
	seed(t, app, 30)
	mustCall(t, app, http.MethodPost, "/api/pending-consumptions", fiber.Map{
		"mobile": "M1", "sku": "X", "quantity": 7, "technician": "tec-1", "ticket_ref": "OT-1",
	}, fiber.StatusCreated)

	session := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1", nil, fiber.StatusCreated)
	assert.Equal(t, "LISTA", session["state"])

	scan := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1/scans", fiber.Map{"code": "x"}, fiber.StatusOK)
	assert.Equal(t, "SKU", scan["kind"])
	assert.Equal(t, true, scan["needs_count"])

	mustCall(t, app, http.MethodPut, "/api/reconciliations/M1/counts", fiber.Map{"sku": "X", "quantity": 18}, fiber.StatusNoContent)

	disc := mustCall(t, app, http.MethodGet, "/api/reconciliations/M1/discrepancies", nil, fiber.StatusOK)
	items := disc["items"].([]any)
	require.Len(t, items, 1)
	row := items[0].(map[string]any)
	assert.Equal(t, "FALTANTE", row["status"])
	assert.EqualValues(t, 12, row["difference"])

	report := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1/finalize", fiber.Map{"created_by": "auditor"}, fiber.StatusOK)
	assert.Equal(t, "CERRADA", report["state"])
	assert.EqualValues(t, 1, report["pending_cleared"])

	balances := mustCall(t, app, http.MethodGet, "/api/inventory/balances?location=MOVIL:M1", nil, fiber.StatusOK)
	cells := balances["items"].([]any)
	require.Len(t, cells, 1)
	assert.EqualValues(t, 5, cells[0].(map[string]any)["quantity"])

	verify := mustCall(t, app, http.MethodGet, "/api/inventory/ledger/X/verify", nil, fiber.StatusOK)
	assert.Equal(t, true, verify["consistent"])

	pending := mustCall(t, app, http.MethodGet, "/api/pending-consumptions?mobile=M1", nil, fiber.StatusOK)
	assert.EqualValues(t, 0, pending["total"])
}

func TestConciliacion_CierreRevertido(t *testing.T) {
	app := buildTestApp(t)
	seed(t, app, 20)
	mustCall(t, app, http.MethodPut, "/api/reconciliations/M1/activations", fiber.Map{
		"lines": []fiber.Map{{"sku": "X", "quantity": "7.0"}},
	}, fiber.StatusAccepted)
	session := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1", nil, fiber.StatusCreated)
	assert.Equal(t, true, session["has_activations"])
	mustCall(t, app, http.MethodPut, "/api/reconciliations/M1/counts", fiber.Map{"sku": "X", "quantity": 18}, fiber.StatusNoContent)

	out := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1/finalize", fiber.Map{"created_by": "auditor"}, fiber.StatusConflict)
	errBody := out["error"].(map[string]any)
	assert.Equal(t, "FINALIZE_ROLLED_BACK", errBody["code"])
	assert.Equal(t, "ERROR", out["report"].(map[string]any)["state"])

	balances := mustCall(t, app, http.MethodGet, "/api/inventory/balances?location=MOVIL:M1", nil, fiber.StatusOK)
	assert.EqualValues(t, 20, balances["items"].([]any)[0].(map[string]any)["quantity"])

	session = mustCall(t, app, http.MethodGet, "/api/reconciliations/M1", nil, fiber.StatusOK)
	assert.Equal(t, "ERROR", session["state"])

	busy := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1", nil, fiber.StatusConflict)
	assert.Equal(t, "SESSION_BUSY", busy["code"])

	mustCall(t, app, http.MethodDelete, "/api/reconciliations/M1", nil, fiber.StatusNoContent)
}

func TestConciliacion_Errores(t *testing.T) {
	app := buildTestApp(t)

	out := mustCall(t, app, http.MethodPost, "/api/reconciliations/M1/scans", fiber.Map{"code": "X"}, fiber.StatusNotFound)
	assert.Equal(t, "SESSION_NOT_FOUND", out["code"])

	out = mustCall(t, app, http.MethodPut, "/api/reconciliations/M1/activations", fiber.Map{
		"lines": []fiber.Map{{"sku": "X", "quantity": 3.5}},
	}, fiber.StatusBadRequest)
	assert.Equal(t, "VALIDATION", out["code"])

	mustCall(t, app, http.MethodPost, "/api/reconciliations/M1", nil, fiber.StatusCreated)
	out = mustCall(t, app, http.MethodPost, "/api/reconciliations/M1/scans", fiber.Map{"code": "NADA"}, fiber.StatusNotFound)
	assert.Equal(t, "UNKNOWN_CODE", out["code"])

	out = mustCall(t, app, http.MethodPut, "/api/reconciliations/M1/package-filter", fiber.Map{"package": "MALETA"}, fiber.StatusBadRequest)
	assert.Equal(t, "INVALID_PACKAGE", out["code"])
	mustCall(t, app, http.MethodPut, "/api/reconciliations/M1/package-filter", fiber.Map{"package": "paquete_a"}, fiber.StatusNoContent)

	draft := mustCall(t, app, http.MethodGet, "/api/reconciliations/M1/drafts/missing", nil, fiber.StatusOK)
	assert.Equal(t, "AUTOCOMPLETAR_FALTANTES", draft["source"])
	assert.Equal(t, "PAQUETE_A", draft["package"])
}

func TestMovimientos_StockInsuficiente(t *testing.T) {
	app := buildTestApp(t)
	mustCall(t, app, http.MethodPost, "/api/products", fiber.Map{"sku": "X", "name": "Cable"}, fiber.StatusCreated)

	out := mustCall(t, app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"sku": "X", "type": "SALIDA_MOVIL", "quantity": 3,
		"to": fiber.Map{"location": "MOVIL:M1"},
	}, fiber.StatusConflict)
	assert.Equal(t, "INSUFFICIENT_STOCK", out["code"])
	details := out["details"].(map[string]any)
	assert.EqualValues(t, 0, details["available"])
	assert.EqualValues(t, 3, details["requested"])

	out = mustCall(t, app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"sku": "X", "type": "AJUSTE_POSITIVO", "quantity": 1,
		"to": fiber.Map{"location": "BODEGA", "package": "PAQUETE_A"},
	}, fiber.StatusBadRequest)
	assert.Equal(t, "INVALID_PACKAGE", out["code"])

	mustCall(t, app, http.MethodPost, "/api/products", fiber.Map{"sku": "X", "name": "Cable"}, fiber.StatusConflict)
}

func TestLote_ConfirmacionParcial(t *testing.T) {
	app := buildTestApp(t)
	mustCall(t, app, http.MethodPost, "/api/products", fiber.Map{"sku": "X", "name": "Cable"}, fiber.StatusCreated)
	mustCall(t, app, http.MethodPost, "/api/inventory/movements", fiber.Map{"sku": "X", "type": "ABASTO", "quantity": 10}, fiber.StatusCreated)

	body := fiber.Map{"lines": []fiber.Map{
		{"sku": "X", "type": "SALIDA_MOVIL", "quantity": 4, "to": fiber.Map{"location": "MOVIL:M1"}},
		{"sku": "X", "type": "SALIDA_MOVIL", "quantity": 40, "to": fiber.Map{"location": "MOVIL:M2"}},
	}}
	out := mustCall(t, app, http.MethodPost, "/api/inventory/batches?policy=partial", body, fiber.StatusUnprocessableEntity)
	assert.EqualValues(t, 1, out["applied"])
	assert.EqualValues(t, 1, out["failed"])

	out = mustCall(t, app, http.MethodPost, "/api/inventory/batches", body, fiber.StatusUnprocessableEntity)
	assert.EqualValues(t, 0, out["applied"], "todo o nada revierte la línea buena")

	check := mustCall(t, app, http.MethodGet, "/api/inventory/verify-stock?sku=X&location=BODEGA&quantity=6", nil, fiber.StatusOK)
	assert.Equal(t, true, check["available"])
	assert.EqualValues(t, 6, check["current"])

	hist := mustCall(t, app, http.MethodGet, "/api/inventory/history/X?limit=2", nil, fiber.StatusOK)
	assert.EqualValues(t, 2, hist["total"])

	mustCall(t, app, http.MethodPost, "/api/inventory/batches?policy=otra", body, fiber.StatusBadRequest)
}

func TestSeriales_RegistroYTraslado(t *testing.T) {
	app := buildTestApp(t)
	mustCall(t, app, http.MethodPost, "/api/products", fiber.Map{"sku": "ONT", "name": "ONT", "serialized": true}, fiber.StatusCreated)

	unit := mustCall(t, app, http.MethodPost, "/api/serials", fiber.Map{"serial": "abc-1", "sku": "ONT", "location": "BODEGA"}, fiber.StatusCreated)
	assert.Equal(t, "ABC-1", unit["serial"])
	mustCall(t, app, http.MethodPost, "/api/serials", fiber.Map{"serial": "ABC-1", "sku": "ONT", "location": "BODEGA"}, fiber.StatusConflict)

	moved := mustCall(t, app, http.MethodPost, "/api/serials/abc-1/move", fiber.Map{
		"location": "MOVIL:M1", "package": "CARRITO",
		"expected": fiber.Map{"location": "MOVIL:M2"},
	}, fiber.StatusOK)
	assert.NotEmpty(t, moved["warning"], "estaba en bodega, no en M2")

	got := mustCall(t, app, http.MethodGet, "/api/serials/ABC-1", nil, fiber.StatusOK)
	assert.Equal(t, "MOVIL:M1", got["location"])
	assert.Equal(t, "CARRITO", got["package"])

	mustCall(t, app, http.MethodGet, "/api/serials/NADA", nil, fiber.StatusNotFound)
}

func TestProductos_BarcodeYStockBajo(t *testing.T) {
	app := buildTestApp(t)
	mustCall(t, app, http.MethodPost, "/api/products", fiber.Map{
		"sku": "CAB", "name": "Cable", "min_stock": 5, "legacy_barcode": "770001",
	}, fiber.StatusCreated)

	out := mustCall(t, app, http.MethodGet, "/api/products/barcode/770001", nil, fiber.StatusOK)
	assert.Equal(t, "CAB", out["sku"])
	mustCall(t, app, http.MethodGet, "/api/products/barcode/000", nil, fiber.StatusNotFound)

	low := mustCall(t, app, http.MethodGet, "/api/products/low-stock", nil, fiber.StatusOK)
	assert.EqualValues(t, 1, low["total"])

	upd := mustCall(t, app, http.MethodPut, "/api/products/CAB", fiber.Map{"min_stock": 0}, fiber.StatusOK)
	assert.EqualValues(t, 0, upd["min_stock"])
	assert.Equal(t, "Cable", upd["name"])
}
