package reconciliation

import (
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/ledger"
)

// State estados de una conciliación.
type State string

const (
	StateIdle       State = "INACTIVA"
	StateLoading    State = "CARGANDO"
	StateReady      State = "LISTA"
	StateScanning   State = "ESCANEANDO"
	StateReviewing  State = "REVISANDO"
	StateFinalizing State = "FINALIZANDO"
	StateClosed     State = "CERRADA"
	StateError      State = "ERROR"
)

// ConsumptionStatus resultado de cruzar el consumo reportado en la app con las activaciones.
type ConsumptionStatus struct {
	SKU      string
	AppQty   int
	ExcelQty int
	Diff     int // ExcelQty - AppQty
	OK       bool
	Verified int
}

// DiscrepancyStatus clasificación del conteo físico contra lo esperado.
type DiscrepancyStatus string

const (
	StatusOK      DiscrepancyStatus = "OK"
	StatusMissing DiscrepancyStatus = "FALTANTE"
	StatusExtra   DiscrepancyStatus = "SOBRANTE"
)

// Discrepancy una fila de la revisión física.
type Discrepancy struct {
	SKU        string
	Name       string
	Expected   int
	Scanned    int
	Status     DiscrepancyStatus
	Difference int // unidades faltantes o sobrantes, siempre >= 0
	Unassigned bool
}

// Classify compara lo escaneado con lo esperado.
func Classify(expected, scanned int) (DiscrepancyStatus, int) {
	switch {
	case scanned == expected:
		return StatusOK, 0
	case scanned < expected:
		return StatusMissing, expected - scanned
	default:
		return StatusExtra, scanned - expected
	}
}

// ActivationLine línea ya normalizada del archivo de activaciones externo.
type ActivationLine struct {
	SKU      string
	Quantity int
}

// ScanKind por qué vía se identificó un código.
type ScanKind string

const (
	ScanSerial  ScanKind = "SERIAL"
	ScanBarcode ScanKind = "CODIGO_BARRAS"
	ScanSKU     ScanKind = "SKU"
)

// ScanResult respuesta a un escaneo aceptado.
type ScanResult struct {
	Code       string
	SKU        string
	Kind       ScanKind
	NeedsCount bool // material a granel: pedir la cantidad contada
	Scanned    int
	Unassigned bool
	Warning    *domain.LocationMismatchWarning
}

// DraftLine línea candidata para un nuevo despacho al móvil.
type DraftLine struct {
	SKU      string
	Quantity int
	Serials  []string
}

// loadData lo que se trae de la base al abrir la sesión.
type loadData struct {
	balances []*entity.Balance
	pending  []*entity.PendingConsumption
	products []*entity.Product
}

// Session estado en memoria de la conciliación de un móvil. No se persiste.
// No es segura para uso concurrente: el Engine serializa el acceso.
type Session struct {
	ID        string
	Mobile    string
	EventDate time.Time
	State     State
	StartedAt time.Time

	products          map[string]*entity.Product
	barcodes          map[string]string
	expectedByPackage map[string]map[entity.Package]int
	appReported       map[string]int
	activations       map[string]int // nil mientras no se cargue el archivo
	consumption       map[string]ConsumptionStatus
	verified          map[string]int
	scanned           map[string]int
	scannedSerials    map[string][]string
	serialSeen        map[string]bool
	unassigned        map[string]bool
	packageFilter     entity.Package // vacío = todos los paquetes

	returned    []DraftLine
	lastErr     error
	lastResults []inventory.LineResult
}

func newSession(id, mobile string, eventDate, now time.Time) *Session {
	return &Session{
		ID:             id,
		Mobile:         mobile,
		EventDate:      eventDate,
		State:          StateLoading,
		StartedAt:      now,
		scanned:        make(map[string]int),
		scannedSerials: make(map[string][]string),
		serialSeen:     make(map[string]bool),
		unassigned:     make(map[string]bool),
	}
}

// apply vuelca los datos cargados y corre la conciliación de consumos.
func (s *Session) apply(data loadData) {
	s.products = make(map[string]*entity.Product, len(data.products))
	s.barcodes = make(map[string]string)
	for _, p := range data.products {
		s.products[p.SKU] = p
		if p.LegacyBarcode != "" {
			s.barcodes[p.LegacyBarcode] = p.SKU
		}
		if p.MasterBarcode != "" {
			s.barcodes[p.MasterBarcode] = p.SKU
		}
	}
	s.expectedByPackage = make(map[string]map[entity.Package]int)
	for _, b := range data.balances {
		if b.Quantity == 0 {
			continue
		}
		byPkg, ok := s.expectedByPackage[b.SKU]
		if !ok {
			byPkg = make(map[entity.Package]int)
			s.expectedByPackage[b.SKU] = byPkg
		}
		byPkg[b.Package.OrNone()] += b.Quantity
	}
	s.appReported = make(map[string]int)
	for _, pc := range data.pending {
		s.appReported[pc.SKU] += pc.Quantity
	}
	s.State = StateReady
	s.reconcileConsumption()
}

// setActivations reemplaza la lista de activaciones y recalcula el consumo verificado.
func (s *Session) setActivations(lines []ActivationLine) error {
	acts := make(map[string]int, len(lines))
	for _, l := range lines {
		sku := strings.TrimSpace(l.SKU)
		if sku == "" || l.Quantity < 0 {
			return domain.ErrInvalidInput
		}
		acts[sku] += l.Quantity
	}
	s.activations = acts
	s.reconcileConsumption()
	return nil
}

// reconcileConsumption cruza app contra activaciones. La activación externa manda sobre lo
// reportado por el técnico. Sin archivo de activaciones cargado se toma lo reportado.
func (s *Session) reconcileConsumption() {
	skus := make(map[string]bool, len(s.appReported)+len(s.activations))
	for sku := range s.appReported {
		skus[sku] = true
	}
	for sku := range s.activations {
		skus[sku] = true
	}
	s.consumption = make(map[string]ConsumptionStatus, len(skus))
	s.verified = make(map[string]int, len(skus))
	for sku := range skus {
		app := s.appReported[sku]
		if s.activations == nil {
			s.consumption[sku] = ConsumptionStatus{SKU: sku, AppQty: app, ExcelQty: app, OK: true, Verified: app}
			s.verified[sku] = app
			continue
		}
		excel := s.activations[sku]
		diff := excel - app
		s.consumption[sku] = ConsumptionStatus{SKU: sku, AppQty: app, ExcelQty: excel, Diff: diff, OK: diff == 0, Verified: excel}
		s.verified[sku] = excel
	}
}

// Consumption devuelve la conciliación de consumos ordenada por sku.
func (s *Session) Consumption() []ConsumptionStatus {
	out := make([]ConsumptionStatus, 0, len(s.consumption))
	for _, c := range s.consumption {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// VerifiedConsumption consumo verificado de un sku.
func (s *Session) VerifiedConsumption(sku string) int { return s.verified[sku] }

// ScannedQuantity cantidad física registrada de un sku.
func (s *Session) ScannedQuantity(sku string) int { return s.scanned[sku] }

// ScannedSerials seriales escaneados de un sku en orden de lectura.
func (s *Session) ScannedSerials(sku string) []string {
	return append([]string(nil), s.scannedSerials[sku]...)
}

// PackageFilter paquete seleccionado; vacío significa todos.
func (s *Session) PackageFilter() entity.Package { return s.packageFilter }

// LastError último error de cierre, si lo hubo.
func (s *Session) LastError() error { return s.lastErr }

// LastResults resultado por línea del último intento de cierre.
func (s *Session) LastResults() []inventory.LineResult { return s.lastResults }

func (s *Session) assigned(sku string) bool {
	for _, q := range s.expectedByPackage[sku] {
		if q > 0 {
			return true
		}
	}
	return false
}

// acceptSerial registra un serial identificado. Se acepta aunque esté registrado en otra
// ubicación (con advertencia); sólo se rechaza si ya se escaneó en esta sesión.
func (s *Session) acceptSerial(code string, unit *entity.SerialUnit) (*ScanResult, error) {
	if s.serialSeen[unit.SerialNumber] {
		return nil, domain.ErrDuplicateScanInSession
	}
	res := &ScanResult{Code: code, SKU: unit.SKU, Kind: ScanSerial}
	if unit.Location != entity.Mobile(s.Mobile) {
		res.Warning = &domain.LocationMismatchWarning{
			Serial:   unit.SerialNumber,
			Expected: entity.Mobile(s.Mobile).String(),
			Actual:   unit.Location.String(),
		}
	}
	s.serialSeen[unit.SerialNumber] = true
	s.scanned[unit.SKU]++
	s.scannedSerials[unit.SKU] = append(s.scannedSerials[unit.SKU], unit.SerialNumber)
	if !s.assigned(unit.SKU) {
		s.unassigned[unit.SKU] = true
	}
	res.Unassigned = s.unassigned[unit.SKU]
	res.Scanned = s.scanned[unit.SKU]
	s.State = StateScanning
	return res, nil
}

// identifyCatalog intenta el código como código de barras y luego como sku directo.
func (s *Session) identifyCatalog(code string) (*ScanResult, error) {
	sku, kind := "", ScanKind("")
	if found, ok := s.barcodes[code]; ok {
		sku, kind = found, ScanBarcode
	} else if _, ok := s.products[code]; ok {
		sku, kind = code, ScanSKU
	} else if _, ok := s.products[strings.ToUpper(code)]; ok {
		sku, kind = strings.ToUpper(code), ScanSKU
	}
	if sku == "" {
		return nil, domain.ErrUnknownCode
	}
	if !s.assigned(sku) {
		s.unassigned[sku] = true
	}
	s.State = StateScanning
	return &ScanResult{
		Code:       code,
		SKU:        sku,
		Kind:       kind,
		NeedsCount: true,
		Scanned:    s.scanned[sku],
		Unassigned: s.unassigned[sku],
	}, nil
}

// setManualCount sobrescribe (no suma) la cantidad contada de un material a granel,
// así un conteo equivocado se corrige volviendo a contar.
func (s *Session) setManualCount(sku string, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidInput
	}
	if _, ok := s.products[sku]; !ok {
		return domain.ErrNotFound
	}
	if len(s.scannedSerials[sku]) > 0 {
		// el conteo de un sku con seriales leídos lo dan los seriales
		return domain.ErrConflict
	}
	s.scanned[sku] = qty
	if !s.assigned(sku) {
		s.unassigned[sku] = true
	}
	s.State = StateScanning
	return nil
}

func (s *Session) setPackageFilter(pkg entity.Package) error {
	if pkg != "" && !pkg.Valid() {
		return domain.ErrInvalidPackageForLocation
	}
	s.packageFilter = pkg
	return nil
}

// expected es el saldo bruto asignado (paquete filtrado o todos). No descuenta el
// consumo verificado.
func (s *Session) expected(sku string) int {
	byPkg := s.expectedByPackage[sku]
	if s.packageFilter != "" {
		return byPkg[s.packageFilter]
	}
	total := 0
	for _, q := range byPkg {
		total += q
	}
	return total
}

// Discrepancies clasifica cada sku esperado o escaneado.
func (s *Session) Discrepancies() []Discrepancy {
	skus := make(map[string]bool)
	for sku := range s.expectedByPackage {
		if s.expected(sku) > 0 {
			skus[sku] = true
		}
	}
	for sku, q := range s.scanned {
		if q > 0 || s.unassigned[sku] {
			skus[sku] = true
		}
	}
	out := make([]Discrepancy, 0, len(skus))
	for sku := range skus {
		exp, got := s.expected(sku), s.scanned[sku]
		status, diff := Classify(exp, got)
		d := Discrepancy{SKU: sku, Expected: exp, Scanned: got, Status: status, Difference: diff, Unassigned: s.unassigned[sku]}
		if p, ok := s.products[sku]; ok {
			d.Name = p.Name
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// finalizePlan lo que se aplica en el cierre.
type finalizePlan struct {
	lines    []inventory.Line
	serials  []string
	returned []DraftLine
}

// buildFinalizePlan arma los consumos y retornos por paquete. Los retornos se asignan primero,
// desde el paquete filtrado y luego el resto; el consumo es de todo el móvil y se descuenta
// de los demás paquetes antes que del filtrado. Lo que no alcance queda en el primer paquete
// con saldo para que el libro rechace el cierre completo.
func (s *Session) buildFinalizePlan(createdBy string) finalizePlan {
	remaining := make(map[string]map[entity.Package]int, len(s.expectedByPackage))
	for sku, byPkg := range s.expectedByPackage {
		cp := make(map[entity.Package]int, len(byPkg))
		for pkg, q := range byPkg {
			cp[pkg] = q
		}
		remaining[sku] = cp
	}
	ref := "CONCILIACION-" + s.ID
	mobile := entity.Mobile(s.Mobile)
	var plan finalizePlan

	request := func(sku string, typ entity.MovementType, part allocation) ledger.Request {
		req := ledger.Request{
			SKU:               sku,
			Type:              typ,
			Quantity:          part.qty,
			From:              ledger.At(mobile, part.pkg),
			EventDate:         s.EventDate,
			ReferenceDocument: ref,
			Observations:      "conciliación de móvil",
			CreatedBy:         createdBy,
		}
		if typ == entity.MovementTypeReturnFromMobile {
			req.To = ledger.At(entity.Warehouse(), entity.PackageNone)
		}
		return req
	}

	returns := make(map[string][]allocation)
	for _, sku := range sortedKeys(s.scanned) {
		if q := s.scanned[sku]; q > 0 {
			returns[sku] = s.allocate(remaining, sku, q, s.returnOrder())
		}
	}
	for _, sku := range sortedKeys(s.verified) {
		if q := s.verified[sku]; q > 0 {
			for _, part := range s.allocate(remaining, sku, q, s.consumptionOrder()) {
				plan.lines = append(plan.lines, inventory.Line{Request: request(sku, entity.MovementTypeConsumption, part)})
			}
		}
	}
	for _, sku := range sortedKeys(s.scanned) {
		q := s.scanned[sku]
		if q <= 0 {
			continue
		}
		for _, part := range returns[sku] {
			plan.lines = append(plan.lines, inventory.Line{Request: request(sku, entity.MovementTypeReturnFromMobile, part)})
		}
		serials := s.ScannedSerials(sku)
		plan.serials = append(plan.serials, serials...)
		plan.returned = append(plan.returned, DraftLine{SKU: sku, Quantity: q, Serials: serials})
	}
	return plan
}

type allocation struct {
	pkg entity.Package
	qty int
}

// returnOrder paquete filtrado primero, luego el resto en orden.
func (s *Session) returnOrder() []entity.Package {
	if s.packageFilter == "" {
		return entity.MobilePackages
	}
	order := []entity.Package{s.packageFilter}
	for _, pkg := range entity.MobilePackages {
		if pkg != s.packageFilter {
			order = append(order, pkg)
		}
	}
	return order
}

// consumptionOrder paquete filtrado al final: su saldo queda para lo que se cuenta en él.
func (s *Session) consumptionOrder() []entity.Package {
	if s.packageFilter == "" {
		return entity.MobilePackages
	}
	var order []entity.Package
	for _, pkg := range entity.MobilePackages {
		if pkg != s.packageFilter {
			order = append(order, pkg)
		}
	}
	return append(order, s.packageFilter)
}

func (s *Session) allocate(remaining map[string]map[entity.Package]int, sku string, qty int, order []entity.Package) []allocation {
	byPkg := remaining[sku]
	taken := make(map[entity.Package]int)
	left := qty
	for _, pkg := range order {
		if left == 0 {
			break
		}
		take := min(byPkg[pkg], left)
		if take > 0 {
			byPkg[pkg] -= take
			taken[pkg] += take
			left -= take
		}
	}
	if left > 0 {
		fallback := order[0]
		for _, pkg := range order {
			if s.expectedByPackage[sku][pkg] > 0 {
				fallback = pkg
				break
			}
		}
		taken[fallback] += left
	}
	var out []allocation
	for _, pkg := range entity.MobilePackages {
		if taken[pkg] > 0 {
			out = append(out, allocation{pkg: pkg, qty: taken[pkg]})
		}
	}
	return out
}

// missingDraft líneas para reponer lo faltante.
func (s *Session) missingDraft() []DraftLine {
	var out []DraftLine
	for _, d := range s.Discrepancies() {
		if d.Status == StatusMissing {
			out = append(out, DraftLine{SKU: d.SKU, Quantity: d.Difference})
		}
	}
	return out
}

// returnedDraft líneas para volver a despachar lo retornado. Antes del cierre usa lo escaneado.
func (s *Session) returnedDraft() []DraftLine {
	if s.State == StateClosed {
		return append([]DraftLine(nil), s.returned...)
	}
	var out []DraftLine
	for _, sku := range sortedKeys(s.scanned) {
		if q := s.scanned[sku]; q > 0 {
			out = append(out, DraftLine{SKU: sku, Quantity: q, Serials: s.ScannedSerials(sku)})
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
