package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movil/internal/application/dto"
	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

const maxHistoryLimit = 5000

// InventoryHandler maneja movimientos, lotes, correcciones y consultas de saldo.
type InventoryHandler struct {
	ledger    *inventory.StockLedger
	processor *inventory.MovementProcessor
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.StockLedger, processor *inventory.MovementProcessor) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, processor: processor}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Una sola solicitud; con seriales se mueven junto con el saldo.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "sku, type, quantity, from/to según el tipo"
// @Success      201   {object}  dto.LineResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	line, err := in.ToLine()
	if err != nil {
		return writeError(c, err)
	}
	results, err := h.processor.ApplyBatch(c.UserContext(), []inventory.Line{line}, inventory.AllOrNothing)
	if err != nil {
		if len(results) == 1 && results[0].Err != nil {
			return writeError(c, results[0].Err)
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromLineResults(results)[0])
}

// ApplyBatch godoc
// @Summary      Aplicar un lote de movimientos
// @Description  policy=all (por defecto) confirma todo o nada; policy=partial confirma las líneas exitosas.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        policy  query  string  false  "all | partial"
// @Param        body    body   dto.BatchRequest  true  "Líneas"
// @Success      201     {object}  dto.BatchResponse
// @Failure      422     {object}  dto.BatchResponse
// @Router       /api/inventory/batches [post]
func (h *InventoryHandler) ApplyBatch(c *fiber.Ctx) error {
	var in dto.BatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	policyName := strings.ToLower(c.Query("policy", "all"))
	var policy inventory.Policy
	switch policyName {
	case "all":
		policy = inventory.AllOrNothing
	case "partial":
		policy = inventory.PartialCommit
	default:
		return writeError(c, domain.ErrInvalidInput)
	}
	lines := make([]inventory.Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		line, err := l.ToLine()
		if err != nil {
			return writeError(c, err)
		}
		lines = append(lines, line)
	}
	results, err := h.processor.ApplyBatch(c.UserContext(), lines, policy)
	if err != nil {
		if results == nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.NewBatchResponse(policyName, results))
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewBatchResponse(policyName, results))
}

// Correct godoc
// @Summary      Corregir la cantidad de un movimiento
// @Description  No edita el historial: registra compensaciones y el movimiento corregido.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de una fila del movimiento"
// @Param        body  body  dto.CorrectionRequest  true  "Nueva cantidad (0 anula)"
// @Success      201   {object}  dto.ApplyResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id}/correction [post]
func (h *InventoryHandler) Correct(c *fiber.Ctx) error {
	var in dto.CorrectionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.ledger.Correct(c.UserContext(), c.Params("id"), in.Quantity, in.CreatedBy, in.Observations)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromApplyResult(res))
}

// BalancesByLocation godoc
// @Summary      Saldos de una ubicación
// @Tags         inventory
// @Produce      json
// @Param        location  query  string  true  "BODEGA | SUCURSAL | DESCARTE | MOVIL:<nombre>"
// @Success      200  {object}  dto.ListResponse[dto.BalanceResponse]
// @Router       /api/inventory/balances [get]
func (h *InventoryHandler) BalancesByLocation(c *fiber.Ctx) error {
	loc, ok := entity.ParseLocation(c.Query("location"))
	if !ok {
		return writeError(c, domain.ErrInvalidInput)
	}
	list, err := h.ledger.BalancesByLocation(c.UserContext(), loc)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(dto.FromBalances(list)))
}

// VerifyStock godoc
// @Summary      Verificar disponibilidad antes de armar un lote
// @Tags         inventory
// @Produce      json
// @Param        sku       query  string  true   "SKU"
// @Param        location  query  string  true   "Ubicación"
// @Param        package   query  string  false  "Paquete (sólo móviles)"
// @Param        quantity  query  int     true   "Cantidad requerida"
// @Success      200  {object}  dto.VerifyStockResponse
// @Router       /api/inventory/verify-stock [get]
func (h *InventoryHandler) VerifyStock(c *fiber.Ctx) error {
	loc, ok := entity.ParseLocation(c.Query("location"))
	if !ok {
		return writeError(c, domain.ErrInvalidInput)
	}
	key := entity.BalanceKey{
		SKU:      c.Query("sku"),
		Location: loc,
		Package:  entity.Package(strings.ToUpper(c.Query("package"))).OrNone(),
	}
	if key.Package != entity.PackageNone && !loc.IsMobile() {
		return writeError(c, domain.ErrInvalidPackageForLocation)
	}
	qty := c.QueryInt("quantity", 0)
	available, current, err := h.processor.VerifyStock(c.UserContext(), key, qty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.VerifyStockResponse{Cell: key.String(), Requested: qty, Current: current, Available: available})
}

// History godoc
// @Summary      Historial de movimientos de un SKU
// @Tags         inventory
// @Produce      json
// @Param        sku       path   string  true   "SKU"
// @Param        location  query  string  false  "Filtrar por ubicación"
// @Param        limit     query  int     false  "Máximo de filas" default(500)
// @Success      200  {object}  dto.ListResponse[dto.MovementResponse]
// @Router       /api/inventory/history/{sku} [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	var location *entity.Location
	if raw := c.Query("location"); raw != "" {
		loc, ok := entity.ParseLocation(raw)
		if !ok {
			return writeError(c, domain.ErrInvalidInput)
		}
		location = &loc
	}
	limit := c.QueryInt("limit", 500)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	out := make([]dto.MovementResponse, 0)
	for m, err := range h.ledger.History(c.UserContext(), c.Params("sku"), location) {
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, dto.FromMovement(m))
		if len(out) == limit {
			break
		}
	}
	return c.JSON(dto.NewList(out))
}

// VerifyLedger godoc
// @Summary      Comparar saldos con el replay del libro
// @Tags         inventory
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/ledger/{sku}/verify [get]
func (h *InventoryHandler) VerifyLedger(c *fiber.Ctx) error {
	drifts, err := h.ledger.Verify(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"sku": c.Params("sku"), "consistent": len(drifts) == 0, "drifts": dto.FromDrifts(drifts)})
}
