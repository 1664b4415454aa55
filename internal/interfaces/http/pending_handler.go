package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movil/internal/application/dto"
	"github.com/jhoicas/inventario-movil/internal/application/inventory"
)

// PendingHandler recibe los consumos reportados desde campo.
type PendingHandler struct {
	pending *inventory.PendingConsumptionService
}

// NewPendingHandler construye el handler.
func NewPendingHandler(pending *inventory.PendingConsumptionService) *PendingHandler {
	return &PendingHandler{pending: pending}
}

// Report godoc
// @Summary      Reportar consumo de un técnico
// @Tags         pending-consumptions
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReportConsumptionRequest  true  "Consumo"
// @Success      201   {object}  dto.PendingConsumptionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/pending-consumptions [post]
func (h *PendingHandler) Report(c *fiber.Ctx) error {
	var in dto.ReportConsumptionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	pc := in.ToEntity()
	if err := h.pending.Report(c.UserContext(), pc); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromPendingConsumption(pc))
}

// List godoc
// @Summary      Consumos pendientes de un móvil
// @Tags         pending-consumptions
// @Produce      json
// @Param        mobile  query  string  true  "Móvil"
// @Success      200  {object}  dto.ListResponse[dto.PendingConsumptionResponse]
// @Router       /api/pending-consumptions [get]
func (h *PendingHandler) List(c *fiber.Ctx) error {
	list, err := h.pending.ListByMobile(c.UserContext(), c.Query("mobile"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PendingConsumptionResponse, 0, len(list))
	for _, pc := range list {
		out = append(out, dto.FromPendingConsumption(pc))
	}
	return c.JSON(dto.NewList(out))
}
