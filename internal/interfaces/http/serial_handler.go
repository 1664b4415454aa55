package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movil/internal/application/dto"
	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

// SerialHandler maneja el registro de unidades serializadas.
type SerialHandler struct {
	serials *inventory.SerialRegistry
}

// NewSerialHandler construye el handler.
func NewSerialHandler(serials *inventory.SerialRegistry) *SerialHandler {
	return &SerialHandler{serials: serials}
}

func parsePackage(s string) entity.Package {
	return entity.Package(strings.ToUpper(strings.TrimSpace(s))).OrNone()
}

// Register godoc
// @Summary      Registrar serial
// @Tags         serials
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterSerialRequest  true  "serial, sku, ubicación"
// @Success      201   {object}  dto.SerialResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/serials [post]
func (h *SerialHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterSerialRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	loc, ok := entity.ParseLocation(in.Location)
	if !ok {
		return writeError(c, domain.ErrInvalidInput)
	}
	unit, err := h.serials.Register(c.UserContext(), in.Serial, in.SKU, loc, parsePackage(in.Package))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSerial(unit))
}

// Get godoc
// @Summary      Consultar ubicación de un serial
// @Tags         serials
// @Produce      json
// @Param        serial  path  string  true  "Serial o MAC"
// @Success      200  {object}  dto.SerialResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/serials/{serial} [get]
func (h *SerialHandler) Get(c *fiber.Ctx) error {
	unit, err := h.serials.Resolve(c.UserContext(), c.Params("serial"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSerial(unit))
}

// ListAt godoc
// @Summary      Seriales en una ubicación
// @Tags         serials
// @Produce      json
// @Param        location  query  string  true  "Ubicación"
// @Success      200  {object}  dto.ListResponse[dto.SerialResponse]
// @Router       /api/serials [get]
func (h *SerialHandler) ListAt(c *fiber.Ctx) error {
	loc, ok := entity.ParseLocation(c.Query("location"))
	if !ok {
		return writeError(c, domain.ErrInvalidInput)
	}
	list, err := h.serials.ListAt(c.UserContext(), loc)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(dto.FromSerials(list)))
}

// Move godoc
// @Summary      Trasladar un serial
// @Description  Si la ubicación esperada no coincide se traslada igual y se devuelve una advertencia.
// @Tags         serials
// @Accept       json
// @Produce      json
// @Param        serial  path  string  true  "Serial o MAC"
// @Param        body    body  dto.MoveSerialRequest  true  "Destino"
// @Success      200  {object}  dto.MoveSerialResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/serials/{serial}/move [post]
func (h *SerialHandler) Move(c *fiber.Ctx) error {
	var in dto.MoveSerialRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	loc, ok := entity.ParseLocation(in.Location)
	if !ok {
		return writeError(c, domain.ErrInvalidInput)
	}
	var expected *ledger.Endpoint
	if in.Expected != nil {
		eloc, ok := entity.ParseLocation(in.Expected.Location)
		if !ok {
			return writeError(c, domain.ErrInvalidInput)
		}
		e := ledger.At(eloc, parsePackage(in.Expected.Package))
		expected = &e
	}
	serial := inventory.NormalizeSerial(c.Params("serial"))
	warn, err := h.serials.MoveTo(c.UserContext(), serial, expected, loc, parsePackage(in.Package))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.MoveSerialResponse{Serial: serial}
	if warn != nil {
		out.Warning = warn.Error()
	}
	return c.JSON(out)
}
