package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movil/internal/application/dto"
	"github.com/jhoicas/inventario-movil/internal/application/reconciliation"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/worker"
)

// ReconciliationHandler expone la conciliación de móviles. La carga y el cierre se
// ejecutan en el pool de workers para no retener el goroutine de fiber.
type ReconciliationHandler struct {
	engine *reconciliation.Engine
	pool   *worker.Pool
}

// NewReconciliationHandler construye el handler.
func NewReconciliationHandler(engine *reconciliation.Engine, pool *worker.Pool) *ReconciliationHandler {
	return &ReconciliationHandler{engine: engine, pool: pool}
}

// Mobiles godoc
// @Summary      Móviles habilitados
// @Tags         reconciliation
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/reconciliations [get]
func (h *ReconciliationHandler) Mobiles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"mobiles": h.engine.Mobiles()})
}

// Load godoc
// @Summary      Abrir conciliación de un móvil
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Param        body    body  dto.LoadSessionRequest  false  "Fecha del evento"
// @Success      201  {object}  dto.SessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      504  {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{mobile} [post]
func (h *ReconciliationHandler) Load(c *fiber.Ctx) error {
	var in dto.LoadSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	var eventDate time.Time
	if in.EventDate != nil {
		eventDate = *in.EventDate
	}
	mobile := c.Params("mobile")
	v, err := h.pool.Do(c.UserContext(), "conciliacion.cargar", func(ctx context.Context) (any, error) {
		return h.engine.LoadSession(ctx, mobile, eventDate)
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromView(v.(*reconciliation.View)))
}

// Get godoc
// @Summary      Estado de la conciliación
// @Tags         reconciliation
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Success      200  {object}  dto.SessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{mobile} [get]
func (h *ReconciliationHandler) Get(c *fiber.Ctx) error {
	v, err := h.engine.Session(c.Params("mobile"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromView(v))
}

// UploadActivations godoc
// @Summary      Cargar activaciones del sistema externo
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Param        body    body  dto.UploadActivationsRequest  true  "Líneas sku/cantidad"
// @Success      200  {object}  dto.SessionResponse
// @Success      202  {object}  map[string]interface{}
// @Router       /api/reconciliations/{mobile}/activations [put]
func (h *ReconciliationHandler) UploadActivations(c *fiber.Ctx) error {
	var in dto.UploadActivationsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines, err := in.ToLines()
	if err != nil {
		return writeError(c, err)
	}
	v, err := h.engine.UploadActivations(c.Params("mobile"), lines)
	if err != nil {
		return writeError(c, err)
	}
	if v == nil {
		// sin sesión abierta: quedan guardadas para la próxima carga
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"mobile": c.Params("mobile"), "lines": len(lines)})
	}
	return c.JSON(dto.FromView(v))
}

// Scan godoc
// @Summary      Registrar una lectura del escáner
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Param        body    body  dto.ScanRequest  true  "Código leído"
// @Success      200  {object}  dto.ScanResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{mobile}/scans [post]
func (h *ReconciliationHandler) Scan(c *fiber.Ctx) error {
	var in dto.ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.Scan(c.UserContext(), c.Params("mobile"), in.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromScanResult(res))
}

// ManualCount godoc
// @Summary      Fijar conteo de un material a granel
// @Tags         reconciliation
// @Accept       json
// @Param        mobile  path  string  true  "Móvil"
// @Param        body    body  dto.ManualCountRequest  true  "sku y cantidad contada"
// @Success      204
// @Router       /api/reconciliations/{mobile}/counts [put]
func (h *ReconciliationHandler) ManualCount(c *fiber.Ctx) error {
	var in dto.ManualCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.engine.SetManualCount(c.Params("mobile"), in.SKU, in.Quantity); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PackageFilter godoc
// @Summary      Filtrar lo esperado por paquete
// @Tags         reconciliation
// @Accept       json
// @Param        mobile  path  string  true  "Móvil"
// @Param        body    body  dto.PackageFilterRequest  true  "Paquete; vacío = todos"
// @Success      204
// @Router       /api/reconciliations/{mobile}/package-filter [put]
func (h *ReconciliationHandler) PackageFilter(c *fiber.Ctx) error {
	var in dto.PackageFilterRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	pkg := parsePackage(in.Package)
	if in.Package == "" {
		pkg = ""
	}
	if err := h.engine.SetPackageFilter(c.Params("mobile"), pkg); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Discrepancies godoc
// @Summary      Revisión física: esperado contra escaneado
// @Tags         reconciliation
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Success      200  {object}  dto.ListResponse[dto.DiscrepancyResponse]
// @Router       /api/reconciliations/{mobile}/discrepancies [get]
func (h *ReconciliationHandler) Discrepancies(c *fiber.Ctx) error {
	ds, err := h.engine.CurrentDiscrepancies(c.Params("mobile"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(dto.FromDiscrepancies(ds)))
}

// Finalize godoc
// @Summary      Cerrar la conciliación
// @Description  Aplica consumos, retornos y seriales en una sola transacción. Si falla no queda ningún efecto.
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Param        body    body  dto.FinalizeRequest  true  "Usuario"
// @Success      200  {object}  dto.FinalizeResponse
// @Failure      409  {object}  dto.FinalizeResponse
// @Router       /api/reconciliations/{mobile}/finalize [post]
func (h *ReconciliationHandler) Finalize(c *fiber.Ctx) error {
	var in dto.FinalizeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	mobile := c.Params("mobile")
	type outcome struct {
		report *reconciliation.FinalizeReport
		err    error
	}
	v, err := h.pool.Do(c.UserContext(), "conciliacion.cerrar", func(ctx context.Context) (any, error) {
		report, err := h.engine.Finalize(ctx, mobile, in.CreatedBy)
		return outcome{report: report, err: err}, nil
	})
	if err != nil {
		return writeError(c, err)
	}
	out := v.(outcome)
	if out.err != nil {
		if errors.Is(out.err, domain.ErrFinalizeRolledBack) && out.report != nil {
			status, body := mapError(out.err)
			resp := dto.FromFinalizeReport(out.report)
			return c.Status(status).JSON(fiber.Map{"error": body, "report": resp})
		}
		return writeError(c, out.err)
	}
	return c.JSON(dto.FromFinalizeReport(out.report))
}

// AutoFillMissing godoc
// @Summary      Borrador de salida con lo faltante
// @Tags         reconciliation
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Success      200  {object}  dto.DraftResponse
// @Router       /api/reconciliations/{mobile}/drafts/missing [get]
func (h *ReconciliationHandler) AutoFillMissing(c *fiber.Ctx) error {
	d, err := h.engine.AutoFillMissing(c.Params("mobile"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDraft(d))
}

// ReuseReturned godoc
// @Summary      Borrador de salida con lo retornado
// @Tags         reconciliation
// @Produce      json
// @Param        mobile  path  string  true  "Móvil"
// @Success      200  {object}  dto.DraftResponse
// @Router       /api/reconciliations/{mobile}/drafts/returned [get]
func (h *ReconciliationHandler) ReuseReturned(c *fiber.Ctx) error {
	d, err := h.engine.ReuseReturned(c.Params("mobile"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDraft(d))
}

// Close godoc
// @Summary      Descartar la conciliación sin efectos
// @Tags         reconciliation
// @Param        mobile  path  string  true  "Móvil"
// @Success      204
// @Router       /api/reconciliations/{mobile} [delete]
func (h *ReconciliationHandler) Close(c *fiber.Ctx) error {
	if err := h.engine.Close(c.Params("mobile")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
