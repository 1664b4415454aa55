package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                  = errors.New("recurso no encontrado")
	ErrInvalidInput              = errors.New("entrada inválida")
	ErrDuplicate                 = errors.New("recurso duplicado")
	ErrConflict                  = errors.New("conflicto con el estado actual")
	ErrInsufficientStock         = errors.New("stock insuficiente")
	ErrInvalidPackageForLocation = errors.New("paquete inválido para la ubicación")
	ErrDuplicateSerial           = errors.New("el serial ya está registrado")
	ErrSerialNotFound            = errors.New("serial no encontrado")
	ErrLocationMismatch          = errors.New("la ubicación del serial no coincide")
	ErrDuplicateScanInSession    = errors.New("el serial ya fue escaneado en esta sesión")
	ErrUnknownCode               = errors.New("código no reconocido")
	ErrSessionBusy               = errors.New("ya existe una conciliación activa para el móvil")
	ErrSessionNotFound           = errors.New("no hay conciliación activa para el móvil")
	ErrInvalidSessionState       = errors.New("operación no permitida en el estado actual de la conciliación")
	ErrDeadlineExceeded          = errors.New("tiempo de espera agotado, reintente")
	ErrBatchPartialFailure       = errors.New("el lote se aplicó parcialmente")
	ErrFinalizeRolledBack        = errors.New("la conciliación se revirtió")
)

// InsufficientStockError detalla un rechazo por saldo insuficiente en una celda.
type InsufficientStockError struct {
	SKU       string
	Cell      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s en %s: disponible %d, solicitado %d",
		e.SKU, e.Cell, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// LocationMismatchWarning es una advertencia no fatal: el serial estaba en una
// ubicación distinta a la que el llamador suponía. La operación continúa.
type LocationMismatchWarning struct {
	Serial   string
	Expected string
	Actual   string
}

func (w *LocationMismatchWarning) Error() string {
	return fmt.Sprintf("serial %s: se esperaba en %s pero está en %s", w.Serial, w.Expected, w.Actual)
}

func (w *LocationMismatchWarning) Is(target error) bool { return target == ErrLocationMismatch }

// LineFailure describe una línea rechazada dentro de un lote.
type LineFailure struct {
	Index int
	Err   error
}

// BatchPartialFailureError agrupa los índices aplicados y los fallidos de un lote.
type BatchPartialFailureError struct {
	Succeeded []int
	Failed    []LineFailure
}

func (e *BatchPartialFailureError) Error() string {
	msgs := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		msgs = append(msgs, fmt.Sprintf("línea %d: %v", f.Index, f.Err))
	}
	return fmt.Sprintf("%d líneas aplicadas, %d fallidas (%s)",
		len(e.Succeeded), len(e.Failed), strings.Join(msgs, "; "))
}

func (e *BatchPartialFailureError) Is(target error) bool { return target == ErrBatchPartialFailure }

// Unwrap expone los errores de cada línea para errors.Is / errors.As.
func (e *BatchPartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// FinalizeRolledBackError indica que el cierre de una conciliación no dejó efectos.
type FinalizeRolledBackError struct {
	Mobile string
	Reason error
}

func (e *FinalizeRolledBackError) Error() string {
	return fmt.Sprintf("conciliación del móvil %s revertida: %v", e.Mobile, e.Reason)
}

func (e *FinalizeRolledBackError) Is(target error) bool { return target == ErrFinalizeRolledBack }

func (e *FinalizeRolledBackError) Unwrap() error { return e.Reason }
