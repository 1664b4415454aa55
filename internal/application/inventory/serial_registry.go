package inventory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

// SerialRegistry mantiene la ubicación vigente de cada unidad serializada.
// Un serial siempre se mueve con una sola actualización (nunca borrar + insertar).
type SerialRegistry struct {
	txRunner TxRunner
	repos    Repos
	log      zerolog.Logger
	now      func() time.Time
}

// NewSerialRegistry construye el registro.
func NewSerialRegistry(txRunner TxRunner, repos Repos, log zerolog.Logger) *SerialRegistry {
	return &SerialRegistry{
		txRunner: txRunner,
		repos:    repos,
		log:      log.With().Str("component", "serials").Logger(),
		now:      time.Now,
	}
}

// NormalizeSerial limpia un código leído por escáner.
func NormalizeSerial(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Register da de alta un serial en la ubicación indicada.
func (s *SerialRegistry) Register(ctx context.Context, serial, sku string, location entity.Location, pkg entity.Package) (*entity.SerialUnit, error) {
	var unit *entity.SerialUnit
	err := s.txRunner.Run(ctx, func(tx Tx) error {
		var err error
		unit, err = s.RegisterInTx(ctx, tx.Repos(), serial, sku, location, pkg)
		return err
	})
	return unit, err
}

// RegisterInTx da de alta un serial dentro de la transacción del llamador.
func (s *SerialRegistry) RegisterInTx(ctx context.Context, r Repos, serial, sku string, location entity.Location, pkg entity.Package) (*entity.SerialUnit, error) {
	serial = NormalizeSerial(serial)
	pkg = pkg.OrNone()
	if serial == "" || sku == "" || !location.Valid() || !pkg.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if pkg != entity.PackageNone && !location.IsMobile() {
		return nil, domain.ErrInvalidPackageForLocation
	}
	product, err := r.Products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	now := s.now()
	unit := &entity.SerialUnit{
		SerialNumber: serial,
		SKU:          sku,
		Location:     location,
		Package:      pkg,
		IngestDate:   now,
		UpdatedAt:    now,
	}
	if err := r.Serials.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// Resolve busca un código como serial; domain.ErrSerialNotFound si no existe.
func (s *SerialRegistry) Resolve(ctx context.Context, code string) (*entity.SerialUnit, error) {
	unit, err := s.repos.Serials.Get(ctx, NormalizeSerial(code))
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrSerialNotFound
	}
	return unit, nil
}

// ListAt lista los seriales registrados en una ubicación.
func (s *SerialRegistry) ListAt(ctx context.Context, location entity.Location) ([]*entity.SerialUnit, error) {
	if !location.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return s.repos.Serials.ListByLocation(ctx, location)
}

// MoveTo mueve un serial. Si expected no es nil y la ubicación registrada no coincide, el
// movimiento se hace igual y se devuelve una advertencia (no es error): el libro y la
// realidad física pueden diferir cuando un técnico no reportó un traslado previo.
func (s *SerialRegistry) MoveTo(ctx context.Context, serial string, expected *ledger.Endpoint, location entity.Location, pkg entity.Package) (*domain.LocationMismatchWarning, error) {
	var warn *domain.LocationMismatchWarning
	err := s.txRunner.Run(ctx, func(tx Tx) error {
		var err error
		warn, err = s.MoveToInTx(ctx, tx.Repos(), serial, expected, location, pkg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return warn, nil
}

// MoveToInTx mueve un serial dentro de la transacción del llamador.
func (s *SerialRegistry) MoveToInTx(ctx context.Context, r Repos, serial string, expected *ledger.Endpoint, location entity.Location, pkg entity.Package) (*domain.LocationMismatchWarning, error) {
	serial = NormalizeSerial(serial)
	pkg = pkg.OrNone()
	if !location.Valid() || !pkg.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if pkg != entity.PackageNone && !location.IsMobile() {
		return nil, domain.ErrInvalidPackageForLocation
	}
	unit, err := r.Serials.Get(ctx, serial)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrSerialNotFound
	}
	var warn *domain.LocationMismatchWarning
	if expected != nil {
		actual := ledger.At(unit.Location, unit.Package)
		if actual != ledger.At(expected.Location, expected.Package) {
			warn = &domain.LocationMismatchWarning{Serial: serial, Expected: expected.String(), Actual: actual.String()}
			SerialLocationMismatches.Inc()
			s.log.Warn().Err(warn).Msg("serial movido desde ubicación no esperada")
		}
	}
	if err := r.Serials.UpdateLocation(ctx, serial, location, pkg); err != nil {
		return nil, err
	}
	return warn, nil
}

// BulkMoveError lista cada serial que no se pudo mover en un movimiento masivo.
type BulkMoveError struct {
	Failed map[string]error
}

func (e *BulkMoveError) Error() string {
	serials := e.serials()
	parts := make([]string, 0, len(serials))
	for _, serial := range serials {
		parts = append(parts, fmt.Sprintf("%s: %v", serial, e.Failed[serial]))
	}
	return fmt.Sprintf("%d seriales no se pudieron mover (%s)", len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap devuelve los errores en el orden de los seriales.
func (e *BulkMoveError) Unwrap() []error {
	serials := e.serials()
	errs := make([]error, 0, len(serials))
	for _, serial := range serials {
		errs = append(errs, e.Failed[serial])
	}
	return errs
}

func (e *BulkMoveError) serials() []string {
	return slices.Sorted(maps.Keys(e.Failed))
}

// BulkMoveTo mueve todos los seriales o ninguno.
func (s *SerialRegistry) BulkMoveTo(ctx context.Context, serials []string, location entity.Location, pkg entity.Package) error {
	return s.txRunner.Run(ctx, func(tx Tx) error {
		return s.BulkMoveToInTx(ctx, tx, serials, location, pkg)
	})
}

// BulkMoveToInTx intenta primero una sola sentencia para todo el lote. Si esa vía falla
// o no afecta a todas las filas, reintenta serial por serial en la misma transacción para
// identificar los que fallan; si alguno falla devuelve *BulkMoveError y el llamador revierte.
func (s *SerialRegistry) BulkMoveToInTx(ctx context.Context, tx Tx, serials []string, location entity.Location, pkg entity.Package) error {
	pkg = pkg.OrNone()
	if !location.Valid() || !pkg.Valid() {
		return domain.ErrInvalidInput
	}
	if pkg != entity.PackageNone && !location.IsMobile() {
		return domain.ErrInvalidPackageForLocation
	}
	unique := make([]string, 0, len(serials))
	seen := make(map[string]bool, len(serials))
	for _, sn := range serials {
		sn = NormalizeSerial(sn)
		if sn == "" || seen[sn] {
			continue
		}
		seen[sn] = true
		unique = append(unique, sn)
	}
	if len(unique) == 0 {
		return nil
	}

	bulkErr := tx.Savepoint(ctx, func(sp Tx) error {
		n, err := sp.Repos().Serials.BulkUpdateLocation(ctx, unique, location, pkg)
		if err != nil {
			return err
		}
		if n != int64(len(unique)) {
			return fmt.Errorf("movimiento masivo afectó %d de %d seriales", n, len(unique))
		}
		return nil
	})
	if bulkErr == nil {
		return nil
	}
	s.log.Warn().Err(bulkErr).Int("seriales", len(unique)).Msg("movimiento masivo falló, reintentando uno por uno")

	failed := make(map[string]error)
	for _, sn := range unique {
		err := tx.Savepoint(ctx, func(sp Tx) error {
			return sp.Repos().Serials.UpdateLocation(ctx, sn, location, pkg)
		})
		if err != nil {
			failed[sn] = err
		}
	}
	if len(failed) > 0 {
		return &BulkMoveError{Failed: failed}
	}
	return nil
}

// IsSerialNotFound ayuda a los llamadores a distinguir un código que no es serial.
func IsSerialNotFound(err error) bool { return errors.Is(err, domain.ErrSerialNotFound) }
