package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movil/internal/application/dto"
	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/worker"
)

// writeError traduce un error de dominio a status HTTP y cuerpo dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, body := mapError(err)
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var stock *domain.InsufficientStockError
	var batch *domain.BatchPartialFailureError
	var rolled *domain.FinalizeRolledBackError
	var bulk *inventory.BulkMoveError

	switch {
	case errors.As(err, &rolled):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "FINALIZE_ROLLED_BACK", Message: rolled.Error()}
	case errors.As(err, &batch):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "BATCH_PARTIAL_FAILURE", Message: batch.Error(), Details: batchDetails(batch)}
	case errors.As(err, &stock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: stock.Error(), Details: fiber.Map{
			"sku": stock.SKU, "cell": stock.Cell, "available": stock.Available, "requested": stock.Requested,
		}}
	case errors.As(err, &bulk):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "SERIAL_BULK_MOVE", Message: bulk.Error()}
	case errors.Is(err, domain.ErrInvalidPackageForLocation):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_PACKAGE", Message: "el paquete sólo aplica a móviles"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrDuplicateSerial):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE_SERIAL", Message: "el serial ya está registrado"}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "el registro ya existe"}
	case errors.Is(err, domain.ErrDuplicateScanInSession):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE_SCAN", Message: "el serial ya fue escaneado en esta conciliación"}
	case errors.Is(err, domain.ErrUnknownCode):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "UNKNOWN_CODE", Message: "código no reconocido"}
	case errors.Is(err, domain.ErrSerialNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "SERIAL_NOT_FOUND", Message: "serial no encontrado"}
	case errors.Is(err, domain.ErrSessionNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "no hay conciliación abierta para el móvil"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrSessionBusy):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "SESSION_BUSY", Message: "el móvil ya tiene una conciliación en curso"}
	case errors.Is(err, domain.ErrInvalidSessionState):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_STATE", Message: "operación no permitida en el estado actual"}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto con el estado actual"}
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "DEADLINE_EXCEEDED", Message: "la operación superó el tiempo máximo"}
	case errors.Is(err, worker.ErrPoolStopped):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "SHUTTING_DOWN", Message: "el servicio se está deteniendo"}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
	}
}

func batchDetails(e *domain.BatchPartialFailureError) []fiber.Map {
	out := make([]fiber.Map, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, fiber.Map{"index": f.Index, "error": f.Err.Error()})
	}
	return out
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
