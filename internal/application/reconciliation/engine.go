// Package reconciliation implementa la conciliación de stock de los móviles: cruza el consumo
// reportado en la app, las activaciones externas y el conteo físico, y cierra la auditoría
// aplicando todos los movimientos en una sola transacción.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// Config alcance y límites del motor. Reemplaza el contexto global de sucursal/móviles.
type Config struct {
	Branch          string
	Mobiles         []string // móviles habilitados; vacío acepta cualquiera
	LoadTimeout     time.Duration
	FinalizeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 15 * time.Second
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = 30 * time.Second
	}
	return c
}

type slot struct {
	mu      sync.Mutex
	session *Session
}

// Engine administra una conciliación por móvil. Sus métodos son síncronos; quien los llame
// decide si los despacha a un worker.
type Engine struct {
	cfg       Config
	txRunner  inventory.TxRunner
	repos     inventory.Repos
	processor *inventory.MovementProcessor
	serials   *inventory.SerialRegistry
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string

	mu          sync.Mutex
	slots       map[string]*slot
	activations map[string][]ActivationLine
}

// NewEngine construye el motor de conciliación.
func NewEngine(
	cfg Config,
	txRunner inventory.TxRunner,
	repos inventory.Repos,
	processor *inventory.MovementProcessor,
	serials *inventory.SerialRegistry,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg.withDefaults(),
		txRunner:    txRunner,
		repos:       repos,
		processor:   processor,
		serials:     serials,
		log:         log.With().Str("component", "conciliacion").Str("sucursal", cfg.Branch).Logger(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		slots:       make(map[string]*slot),
		activations: make(map[string][]ActivationLine),
	}
}

// Mobiles devuelve los móviles habilitados en la configuración.
func (e *Engine) Mobiles() []string { return append([]string(nil), e.cfg.Mobiles...) }

func (e *Engine) allowed(mobile string) bool {
	return len(e.cfg.Mobiles) == 0 || slices.Contains(e.cfg.Mobiles, mobile)
}

// View foto de una sesión para la interfaz.
type View struct {
	ID             string
	Mobile         string
	State          State
	EventDate      time.Time
	PackageFilter  entity.Package
	HasActivations bool
	Consumption    []ConsumptionStatus
	Discrepancies  []Discrepancy
	LastError      string
	LastResults    []inventory.LineResult
}

func viewOf(s *Session) *View {
	v := &View{
		ID:             s.ID,
		Mobile:         s.Mobile,
		State:          s.State,
		EventDate:      s.EventDate,
		PackageFilter:  s.packageFilter,
		HasActivations: s.activations != nil,
		Consumption:    s.Consumption(),
		Discrepancies:  s.Discrepancies(),
		LastResults:    s.lastResults,
	}
	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}
	return v
}

// LoadSession abre la conciliación de un móvil: carga en paralelo los saldos del móvil por
// paquete, los consumos pendientes y el catálogo, con un plazo máximo. Si ya existe una
// sesión abierta (no cerrada) para el móvil devuelve domain.ErrSessionBusy.
func (e *Engine) LoadSession(ctx context.Context, mobile string, eventDate time.Time) (*View, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" || !e.allowed(mobile) {
		return nil, domain.ErrNotFound
	}
	if eventDate.IsZero() {
		eventDate = e.now()
	}

	e.mu.Lock()
	if prev, ok := e.slots[mobile]; ok {
		if !prev.mu.TryLock() {
			e.mu.Unlock()
			return nil, domain.ErrSessionBusy
		}
		state := prev.session.State
		prev.mu.Unlock()
		if state != StateClosed {
			e.mu.Unlock()
			return nil, domain.ErrSessionBusy
		}
	}
	sess := newSession(e.newID(), mobile, eventDate, e.now())
	sl := &slot{session: sess}
	sl.mu.Lock()
	e.slots[mobile] = sl
	uploaded, hasUpload := e.activations[mobile]
	e.mu.Unlock()
	ActiveSessions.Inc()
	defer sl.mu.Unlock()

	data, err := e.load(ctx, mobile)
	if err != nil {
		e.mu.Lock()
		if e.slots[mobile] == sl {
			delete(e.slots, mobile)
			ActiveSessions.Dec()
		}
		e.mu.Unlock()
		e.log.Error().Err(err).Str("movil", mobile).Msg("carga de conciliación")
		return nil, err
	}
	sess.apply(data)
	if hasUpload {
		if err := sess.setActivations(uploaded); err != nil {
			return nil, err
		}
	}
	e.log.Info().
		Str("movil", mobile).
		Str("sesion", sess.ID).
		Int("saldos", len(data.balances)).
		Int("pendientes", len(data.pending)).
		Msg("conciliación cargada")
	return viewOf(sess), nil
}

func (e *Engine) load(ctx context.Context, mobile string) (loadData, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.LoadTimeout)
	defer cancel()

	var data loadData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.balances, err = e.repos.Balances.ListByLocation(gctx, entity.Mobile(mobile))
		return err
	})
	g.Go(func() error {
		var err error
		data.pending, err = e.repos.Pending.ListByMobile(gctx, mobile)
		return err
	})
	g.Go(func() error {
		var err error
		data.products, err = e.repos.Products.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return loadData{}, deadlineAware(ctx, err)
	}
	return data, nil
}

func deadlineAware(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrDeadlineExceeded, err)
	}
	return err
}

// with ejecuta fn con la sesión del móvil bloqueada.
func (e *Engine) with(mobile string, fn func(s *Session) error) error {
	e.mu.Lock()
	sl, ok := e.slots[mobile]
	e.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.session)
}

func requireState(s *Session, allowed ...State) error {
	if slices.Contains(allowed, s.State) {
		return nil
	}
	return domain.ErrInvalidSessionState
}

var editableStates = []State{StateReady, StateScanning, StateReviewing, StateError}

// UploadActivations recibe la lista de activaciones ya normalizada por el importador externo.
// Se guarda para el móvil y, si hay sesión abierta, recalcula su consumo verificado.
func (e *Engine) UploadActivations(mobile string, lines []ActivationLine) (*View, error) {
	mobile = strings.TrimSpace(mobile)
	if !e.allowed(mobile) {
		return nil, domain.ErrNotFound
	}
	probe := newSession("", mobile, time.Time{}, time.Time{})
	if err := probe.setActivations(lines); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.activations[mobile] = append([]ActivationLine(nil), lines...)
	e.mu.Unlock()

	var view *View
	err := e.with(mobile, func(s *Session) error {
		if err := requireState(s, editableStates...); err != nil {
			return err
		}
		if err := s.setActivations(lines); err != nil {
			return err
		}
		view = viewOf(s)
		return nil
	})
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	return view, err
}

// Scan identifica un código leído: primero como serial conocido, luego como código de
// barras del catálogo y por último como sku directo. Un código no reconocido o repetido
// no cambia el estado de la sesión.
func (e *Engine) Scan(ctx context.Context, mobile, code string) (*ScanResult, error) {
	code = strings.TrimSpace(code)
	var res *ScanResult
	err := e.with(mobile, func(s *Session) error {
		if err := requireState(s, editableStates...); err != nil {
			return err
		}
		if code == "" {
			return domain.ErrUnknownCode
		}
		unit, err := e.serials.Resolve(ctx, code)
		switch {
		case err == nil:
			res, err = s.acceptSerial(code, unit)
		case inventory.IsSerialNotFound(err):
			res, err = s.identifyCatalog(code)
		}
		return err
	})
	if err != nil {
		ScansTotal.WithLabelValues(scanFailure(err)).Inc()
		e.log.Debug().Err(err).Str("movil", mobile).Str("codigo", code).Msg("lectura descartada")
		return nil, err
	}
	ScansTotal.WithLabelValues(strings.ToLower(string(res.Kind))).Inc()
	if res.Warning != nil {
		e.log.Warn().Err(res.Warning).Str("movil", mobile).Msg("serial registrado en otra ubicación")
	}
	return res, nil
}

func scanFailure(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateScanInSession):
		return "duplicado"
	case errors.Is(err, domain.ErrUnknownCode):
		return "desconocido"
	default:
		return "error"
	}
}

// SetManualCount sobrescribe la cantidad contada de un material a granel.
func (e *Engine) SetManualCount(mobile, sku string, qty int) error {
	return e.with(mobile, func(s *Session) error {
		if err := requireState(s, editableStates...); err != nil {
			return err
		}
		return s.setManualCount(strings.TrimSpace(sku), qty)
	})
}

// SetPackageFilter filtra lo esperado por paquete; vacío vuelve a todos los paquetes.
func (e *Engine) SetPackageFilter(mobile string, pkg entity.Package) error {
	return e.with(mobile, func(s *Session) error {
		if err := requireState(s, editableStates...); err != nil {
			return err
		}
		return s.setPackageFilter(pkg)
	})
}

// CurrentDiscrepancies recalcula la revisión física.
func (e *Engine) CurrentDiscrepancies(mobile string) ([]Discrepancy, error) {
	var out []Discrepancy
	err := e.with(mobile, func(s *Session) error {
		if s.State == StateLoading {
			return domain.ErrInvalidSessionState
		}
		if s.State == StateScanning {
			s.State = StateReviewing
		}
		out = s.Discrepancies()
		return nil
	})
	return out, err
}

// Session devuelve la foto actual de la sesión del móvil.
func (e *Engine) Session(mobile string) (*View, error) {
	var v *View
	err := e.with(mobile, func(s *Session) error {
		v = viewOf(s)
		return nil
	})
	return v, err
}

// FinalizeReport resultado de un cierre.
type FinalizeReport struct {
	SessionID       string
	Mobile          string
	State           State
	Results         []inventory.LineResult
	SerialsReturned int
	PendingCleared  int64
	Returned        []DraftLine
}

// Finalize cierra la conciliación en una sola transacción: consumos verificados, retornos de
// lo escaneado, traslado de los seriales a bodega y borrado de los consumos pendientes del
// móvil. Si algo falla no queda ningún efecto y la sesión pasa a ERROR conservando lo
// escaneado para reintentar. Una vez iniciado no se cancela con el contexto del llamador;
// sólo lo acota FinalizeTimeout.
func (e *Engine) Finalize(ctx context.Context, mobile, createdBy string) (*FinalizeReport, error) {
	var report *FinalizeReport
	var finalErr error
	err := e.with(mobile, func(s *Session) error {
		if err := requireState(s, editableStates...); err != nil {
			return err
		}
		plan := s.buildFinalizePlan(createdBy)
		s.State = StateFinalizing
		start := e.now()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.FinalizeTimeout)
		defer cancel()

		var results []inventory.LineResult
		var cleared int64
		txErr := e.txRunner.Run(fctx, func(tx inventory.Tx) error {
			if len(plan.lines) > 0 {
				var err error
				results, err = e.processor.ApplyBatchInTx(fctx, tx, plan.lines, inventory.AllOrNothing)
				if err != nil {
					return err
				}
			}
			if err := e.serials.BulkMoveToInTx(fctx, tx, plan.serials, entity.Warehouse(), entity.PackageNone); err != nil {
				return err
			}
			var err error
			cleared, err = tx.Repos().Pending.DeleteByMobile(fctx, s.Mobile)
			return err
		})
		FinalizeDuration.Observe(time.Since(start).Seconds())

		report = &FinalizeReport{SessionID: s.ID, Mobile: s.Mobile, Results: results}
		if txErr != nil {
			inventory.MarkRolledBack(results)
			reason := deadlineAware(fctx, txErr)
			s.State = StateError
			s.lastErr = &domain.FinalizeRolledBackError{Mobile: s.Mobile, Reason: reason}
			s.lastResults = results
			report.State = s.State
			finalErr = s.lastErr
			FinalizeTotal.WithLabelValues("revertida").Inc()
			e.log.Error().Err(reason).Str("movil", s.Mobile).Str("sesion", s.ID).Msg("cierre de conciliación revertido")
			return nil
		}

		s.State = StateClosed
		ActiveSessions.Dec()
		s.lastErr = nil
		s.lastResults = results
		s.returned = plan.returned
		report.State = s.State
		report.SerialsReturned = len(plan.serials)
		report.PendingCleared = cleared
		report.Returned = plan.returned
		FinalizeTotal.WithLabelValues("confirmada").Inc()
		e.log.Info().
			Str("movil", s.Mobile).
			Str("sesion", s.ID).
			Int("lineas", len(plan.lines)).
			Int("seriales", len(plan.serials)).
			Int64("pendientes_borrados", cleared).
			Msg("conciliación cerrada")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if finalErr == nil {
		e.mu.Lock()
		delete(e.activations, mobile)
		e.mu.Unlock()
	}
	return report, finalErr
}

var draftStates = []State{StateReady, StateScanning, StateReviewing, StateClosed}

// AutoFillMissing arma un borrador de salida con todo lo faltante.
func (e *Engine) AutoFillMissing(mobile string) (*OutboundDraft, error) {
	var d *OutboundDraft
	err := e.with(mobile, func(s *Session) error {
		if err := requireState(s, draftStates...); err != nil {
			return err
		}
		d = &OutboundDraft{Source: DraftAutoFillMissing, Mobile: s.Mobile, Package: s.packageFilter.OrNone(), Lines: s.missingDraft()}
		return nil
	})
	return d, err
}

// ReuseReturned arma un borrador de salida con lo recién retornado.
func (e *Engine) ReuseReturned(mobile string) (*OutboundDraft, error) {
	var d *OutboundDraft
	err := e.with(mobile, func(s *Session) error {
		if err := requireState(s, draftStates...); err != nil {
			return err
		}
		d = &OutboundDraft{Source: DraftReuseReturned, Mobile: s.Mobile, Package: s.packageFilter.OrNone(), Lines: s.returnedDraft()}
		return nil
	})
	return d, err
}

// Close descarta la sesión sin efectos. No es posible mientras se está cargando o cerrando.
func (e *Engine) Close(mobile string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sl, ok := e.slots[mobile]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !sl.mu.TryLock() {
		return domain.ErrSessionBusy
	}
	defer sl.mu.Unlock()
	delete(e.slots, mobile)
	if sl.session.State != StateClosed {
		ActiveSessions.Dec()
	}
	e.log.Info().Str("movil", mobile).Str("sesion", sl.session.ID).Str("estado", string(sl.session.State)).Msg("conciliación descartada")
	return nil
}
