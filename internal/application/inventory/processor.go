package inventory

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

// Policy decide qué hacer con las líneas exitosas cuando otra línea del lote falla.
type Policy int

const (
	// AllOrNothing confirma el lote sólo si todas las líneas se aplican.
	AllOrNothing Policy = iota
	// PartialCommit confirma las líneas exitosas y reporta las fallidas una a una.
	PartialCommit
)

// Line es una línea de un lote: una solicitud al libro y, opcionalmente, los seriales
// que acompañan a esa cantidad (se mueven junto con el saldo).
type Line struct {
	Request ledger.Request
	Serials []string
}

// LineResult resultado por línea.
type LineResult struct {
	Index     int
	Line      Line
	OK        bool
	Message   string
	Err       error
	Movements []entity.Movement
	Warnings  []*domain.LocationMismatchWarning
}

// MovementProcessor valida y aplica lotes de movimientos sobre una única transacción.
type MovementProcessor struct {
	txRunner TxRunner
	ledger   *StockLedger
	serials  *SerialRegistry
	log      zerolog.Logger
}

// NewMovementProcessor construye el procesador.
func NewMovementProcessor(txRunner TxRunner, ledger *StockLedger, serials *SerialRegistry, log zerolog.Logger) *MovementProcessor {
	return &MovementProcessor{
		txRunner: txRunner,
		ledger:   ledger,
		serials:  serials,
		log:      log.With().Str("component", "processor").Logger(),
	}
}

// VerifyStock es la lectura previa que usa la interfaz antes de armar un lote. ApplyBatch
// vuelve a validar con la fila bloqueada, así que este resultado es sólo orientativo.
func (p *MovementProcessor) VerifyStock(ctx context.Context, key entity.BalanceKey, quantity int) (bool, int, error) {
	if quantity <= 0 || !key.Location.Valid() || !key.Package.Valid() {
		return false, 0, domain.ErrInvalidInput
	}
	current, err := p.ledger.Balance(ctx, key)
	if err != nil {
		return false, 0, err
	}
	return current >= quantity, current, nil
}

// ApplyBatch abre una transacción y aplica el lote con la política indicada.
// Con PartialCommit las líneas exitosas quedan confirmadas aunque se devuelva
// *domain.BatchPartialFailureError; con AllOrNothing ese error implica que nada se aplicó.
func (p *MovementProcessor) ApplyBatch(ctx context.Context, lines []Line, policy Policy) ([]LineResult, error) {
	var results []LineResult
	var batchErr *domain.BatchPartialFailureError
	err := p.txRunner.Run(ctx, func(tx Tx) error {
		var err error
		results, err = p.ApplyBatchInTx(ctx, tx, lines, policy)
		if policy == PartialCommit && errors.As(err, &batchErr) {
			return nil
		}
		return err
	})
	if err != nil {
		if policy == AllOrNothing {
			MarkRolledBack(results)
		}
		return results, err
	}
	if batchErr != nil {
		return results, batchErr
	}
	return results, nil
}

// ApplyBatchInTx aplica cada línea en su propio savepoint de la transacción del llamador, de
// modo que una línea fallida no deja efectos parciales y el resto puede seguir evaluándose.
// Devuelve *domain.BatchPartialFailureError si alguna línea falla; el llamador decide si
// confirma (PartialCommit) o revierte (AllOrNothing) la transacción.
func (p *MovementProcessor) ApplyBatchInTx(ctx context.Context, tx Tx, lines []Line, policy Policy) ([]LineResult, error) {
	if len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	results := make([]LineResult, len(lines))
	summary := &domain.BatchPartialFailureError{}
	for i, line := range lines {
		res := LineResult{Index: i, Line: line}
		err := tx.Savepoint(ctx, func(sp Tx) error {
			return p.applyLine(ctx, sp.Repos(), &res)
		})
		if err != nil {
			res.Err = err
			res.Message = err.Error()
			summary.Failed = append(summary.Failed, domain.LineFailure{Index: i, Err: err})
		} else {
			res.OK = true
			res.Message = "aplicado"
			summary.Succeeded = append(summary.Succeeded, i)
		}
		results[i] = res
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	if len(summary.Failed) > 0 {
		p.log.Warn().
			Int("aplicadas", len(summary.Succeeded)).
			Int("fallidas", len(summary.Failed)).
			Bool("todo_o_nada", policy == AllOrNothing).
			Msg("lote con líneas fallidas")
		return results, summary
	}
	return results, nil
}

func (p *MovementProcessor) applyLine(ctx context.Context, r Repos, res *LineResult) error {
	req := ledger.Normalize(res.Line.Request)
	if len(res.Line.Serials) > 0 {
		// Los seriales deben ser del mismo sku, sin repetirse y cuadrar con la cantidad
		if !ledger.HasDestination(req.Type) || len(res.Line.Serials) != req.Quantity {
			return domain.ErrInvalidInput
		}
	}
	out, err := p.ledger.ApplyInTx(ctx, r, req)
	if err != nil {
		return err
	}
	res.Movements = out.Movements

	seen := make(map[string]bool, len(res.Line.Serials))
	for _, sn := range res.Line.Serials {
		sn = NormalizeSerial(sn)
		if seen[sn] {
			return domain.ErrInvalidInput
		}
		seen[sn] = true
		unit, err := r.Serials.Get(ctx, sn)
		if err != nil {
			return err
		}
		if unit == nil {
			return domain.ErrSerialNotFound
		}
		if unit.SKU != req.SKU {
			return domain.ErrInvalidInput
		}
		var expected *ledger.Endpoint
		if ledger.HasSource(req.Type) {
			from := req.From
			expected = &from
		}
		warn, err := p.serials.MoveToInTx(ctx, r, sn, expected, req.To.Location, req.To.Package)
		if err != nil {
			return err
		}
		if warn != nil {
			res.Warnings = append(res.Warnings, warn)
		}
	}
	return nil
}

// MarkRolledBack marca como revertidas las líneas que se habían aplicado dentro de una
// transacción que terminó en Rollback.
func MarkRolledBack(results []LineResult) {
	for i := range results {
		if results[i].OK {
			results[i].OK = false
			results[i].Message = "revertido: otra línea del lote falló"
			results[i].Movements = nil
		}
	}
}
