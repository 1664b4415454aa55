package inventory

import (
	"context"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

const historyPageSize = 500

// StockLedger registra movimientos de forma transaccional: cada solicitud agrega sus filas
// al libro inmutable y actualiza las celdas de saldo con bloqueo de fila (SELECT FOR UPDATE)
// dentro de la misma unidad de trabajo.
type StockLedger struct {
	txRunner TxRunner
	repos    Repos
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// NewStockLedger construye el libro. repos son los repositorios fuera de transacción (lecturas).
func NewStockLedger(txRunner TxRunner, repos Repos, log zerolog.Logger) *StockLedger {
	return &StockLedger{
		txRunner: txRunner,
		repos:    repos,
		log:      log.With().Str("component", "ledger").Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// ApplyResult filas escritas y saldos resultantes de una solicitud.
type ApplyResult struct {
	CorrelationID string
	Movements     []entity.Movement
	Balances      []entity.Balance
}

// Balance devuelve el saldo de una celda en la celda indicada.
func (l *StockLedger) Balance(ctx context.Context, key entity.BalanceKey) (int, error) {
	key.Package = key.Package.OrNone()
	b, err := l.repos.Balances.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return b.Quantity, nil
}

// BalancesByLocation lista las celdas de una ubicación (para un móvil, desglosadas por paquete).
func (l *StockLedger) BalancesByLocation(ctx context.Context, location entity.Location) ([]*entity.Balance, error) {
	if !location.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return l.repos.Balances.ListByLocation(ctx, location)
}

// Apply inicia una transacción, aplica la solicitud y hace Commit o Rollback.
func (l *StockLedger) Apply(ctx context.Context, req ledger.Request) (*ApplyResult, error) {
	var res *ApplyResult
	err := l.txRunner.Run(ctx, func(tx Tx) error {
		var err error
		res, err = l.ApplyInTx(ctx, tx.Repos(), req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyInTx aplica la solicitud usando los repositorios de la transacción del llamador.
func (l *StockLedger) ApplyInTx(ctx context.Context, r Repos, req ledger.Request) (*ApplyResult, error) {
	return l.apply(ctx, r, req, l.newID())
}

func (l *StockLedger) apply(ctx context.Context, r Repos, req ledger.Request, correlationID string) (*ApplyResult, error) {
	req = ledger.Normalize(req)
	if err := ledger.Validate(req); err != nil {
		MovementsRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	product, err := r.Products.GetBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if product == nil {
		MovementsRejected.WithLabelValues(rejectReason(domain.ErrNotFound)).Inc()
		return nil, domain.ErrNotFound
	}

	now := l.now()
	rows := ledger.Expand(req, correlationID, l.newID, now)

	// Bloquea las celdas en orden estable para que dos transacciones no se esperen en cruz
	keys := make([]entity.BalanceKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	locked := make(map[entity.BalanceKey]*entity.Balance, len(keys))
	for _, k := range keys {
		b, err := r.Balances.GetForUpdate(ctx, k)
		if err != nil {
			return nil, err
		}
		locked[k] = b
	}

	// Valida todas las filas antes de escribir
	next := make([]int, len(rows))
	for i, row := range rows {
		q, err := ledger.ApplyDelta(row.Key(), locked[row.Key()].Quantity, row.Quantity)
		if err != nil {
			MovementsRejected.WithLabelValues(rejectReason(err)).Inc()
			l.log.Warn().Err(err).Str("sku", req.SKU).Str("tipo", string(req.Type)).Msg("movimiento rechazado")
			return nil, err
		}
		next[i] = q
	}

	res := &ApplyResult{CorrelationID: correlationID}
	for i := range rows {
		mov := &rows[i]
		if err := r.Movements.Create(ctx, mov); err != nil {
			return nil, err
		}
		bal := locked[mov.Key()]
		bal.Quantity = next[i]
		bal.UpdatedAt = now
		if err := r.Balances.Upsert(ctx, bal); err != nil {
			return nil, err
		}
		MovementsApplied.WithLabelValues(string(mov.Type)).Inc()
		res.Movements = append(res.Movements, *mov)
		res.Balances = append(res.Balances, *bal)
	}
	l.log.Debug().
		Str("sku", req.SKU).
		Str("tipo", string(req.Type)).
		Int("cantidad", req.Quantity).
		Str("correlacion", correlationID).
		Msg("movimiento registrado")
	return res, nil
}

// Correct reemplaza la cantidad de un movimiento ya registrado sin tocar el historial:
// escribe ajustes que anulan cada fila de la correlación original y, si newQuantity > 0,
// una nueva solicitud del mismo tipo con la cantidad corregida. Todo comparte una correlación nueva.
func (l *StockLedger) Correct(ctx context.Context, movementID string, newQuantity int, createdBy, observations string) (*ApplyResult, error) {
	if newQuantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	var res *ApplyResult
	err := l.txRunner.Run(ctx, func(tx Tx) error {
		r := tx.Repos()
		orig, err := r.Movements.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if orig == nil {
			return domain.ErrNotFound
		}
		n, err := r.Movements.CountCorrections(ctx, orig.CorrelationID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrConflict
		}
		ptrs, err := r.Movements.ListByCorrelation(ctx, orig.CorrelationID)
		if err != nil {
			return err
		}
		rows := make([]entity.Movement, 0, len(ptrs))
		for _, p := range ptrs {
			rows = append(rows, *p)
		}
		base, err := ledger.Reverse(rows)
		if err != nil {
			return err
		}
		if base.Quantity == newQuantity {
			return domain.ErrInvalidInput
		}

		correlationID := l.newID()
		res = &ApplyResult{CorrelationID: correlationID}
		// Primero se devuelven las salidas para que el ajuste de la entrada tenga saldo
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Quantity < rows[j].Quantity })
		for _, row := range rows {
			comp := ledger.Compensation(row)
			comp.CorrectsID = orig.CorrelationID
			comp.CreatedBy = createdBy
			comp.Observations = observations
			out, err := l.apply(ctx, r, comp, correlationID)
			if err != nil {
				return err
			}
			res.Movements = append(res.Movements, out.Movements...)
			res.Balances = append(res.Balances, out.Balances...)
		}
		if newQuantity > 0 {
			base.Quantity = newQuantity
			base.CorrectsID = orig.CorrelationID
			base.CreatedBy = createdBy
			base.Observations = observations
			out, err := l.apply(ctx, r, base, correlationID)
			if err != nil {
				return err
			}
			res.Movements = append(res.Movements, out.Movements...)
			res.Balances = append(res.Balances, out.Balances...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Info().
		Str("movimiento", movementID).
		Int("nueva_cantidad", newQuantity).
		Str("correlacion", res.CorrelationID).
		Msg("movimiento corregido por compensación")
	return res, nil
}

// History recorre los movimientos de un sku en orden de registro, paginando de forma perezosa.
// location nil incluye todas las ubicaciones. Cada iteración vuelve a leer desde el inicio.
func (l *StockLedger) History(ctx context.Context, sku string, location *entity.Location) iter.Seq2[entity.Movement, error] {
	return func(yield func(entity.Movement, error) bool) {
		var after int64
		for {
			page, err := l.repos.Movements.ListBySKU(ctx, sku, location, after, historyPageSize)
			if err != nil {
				yield(entity.Movement{}, err)
				return
			}
			for _, m := range page {
				if !yield(*m, nil) {
					return
				}
				after = m.Seq
			}
			if len(page) < historyPageSize {
				return
			}
		}
	}
}

// Drift es una celda cuyo saldo materializado difiere del replay del libro.
type Drift struct {
	Key     entity.BalanceKey
	Ledger  int
	Balance int
}

// Verify recalcula los saldos de un sku desde el historial y los compara con la tabla de saldos.
func (l *StockLedger) Verify(ctx context.Context, sku string) ([]Drift, error) {
	var history []entity.Movement
	for m, err := range l.History(ctx, sku, nil) {
		if err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	replayed := ledger.Replay(history)
	stored, err := l.repos.Balances.ListBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	seen := make(map[entity.BalanceKey]bool, len(stored))
	for _, b := range stored {
		k := b.Key()
		seen[k] = true
		if replayed[k] != b.Quantity {
			drifts = append(drifts, Drift{Key: k, Ledger: replayed[k], Balance: b.Quantity})
		}
	}
	for k, q := range replayed {
		if !seen[k] && q != 0 {
			drifts = append(drifts, Drift{Key: k, Ledger: q})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].Key.String() < drifts[j].Key.String() })
	if len(drifts) > 0 {
		l.log.Error().Str("sku", sku).Int("celdas", len(drifts)).Msg("saldos no coinciden con el libro")
	}
	return drifts, nil
}
