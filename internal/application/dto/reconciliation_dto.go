package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movil/internal/application/reconciliation"
	"github.com/jhoicas/inventario-movil/internal/domain"
)

// LoadSessionRequest apertura de la conciliación de un móvil.
type LoadSessionRequest struct {
	EventDate *time.Time `json:"event_date,omitempty"`
}

// ActivationLineDTO línea del archivo de activaciones. La planilla de origen suele traer
// cantidades como "3.0"; se aceptan decimales siempre que sean enteros.
type ActivationLineDTO struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
}

// UploadActivationsRequest lista de activaciones ya normalizada por el importador.
type UploadActivationsRequest struct {
	Lines []ActivationLineDTO `json:"lines"`
}

// ToLines valida y convierte las líneas.
func (r UploadActivationsRequest) ToLines() ([]reconciliation.ActivationLine, error) {
	out := make([]reconciliation.ActivationLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		sku := strings.TrimSpace(l.SKU)
		if sku == "" || !l.Quantity.IsInteger() || l.Quantity.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		out = append(out, reconciliation.ActivationLine{SKU: sku, Quantity: int(l.Quantity.IntPart())})
	}
	return out, nil
}

// ScanRequest código leído por el escáner.
type ScanRequest struct {
	Code string `json:"code"`
}

// ScanResponse resultado de una lectura aceptada.
type ScanResponse struct {
	Code       string `json:"code"`
	SKU        string `json:"sku"`
	Kind       string `json:"kind"`
	NeedsCount bool   `json:"needs_count"`
	Scanned    int    `json:"scanned"`
	Unassigned bool   `json:"unassigned"`
	Warning    string `json:"warning,omitempty"`
}

// FromScanResult mapea la lectura.
func FromScanResult(r *reconciliation.ScanResult) ScanResponse {
	out := ScanResponse{
		Code:       r.Code,
		SKU:        r.SKU,
		Kind:       string(r.Kind),
		NeedsCount: r.NeedsCount,
		Scanned:    r.Scanned,
		Unassigned: r.Unassigned,
	}
	if r.Warning != nil {
		out.Warning = r.Warning.Error()
	}
	return out
}

// ManualCountRequest conteo de un material a granel.
type ManualCountRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// PackageFilterRequest paquete a revisar; vacío = todos.
type PackageFilterRequest struct {
	Package string `json:"package"`
}

// FinalizeRequest cierre de la conciliación.
type FinalizeRequest struct {
	CreatedBy string `json:"created_by"`
}

// ConsumptionResponse fila de la conciliación de consumos.
type ConsumptionResponse struct {
	SKU      string `json:"sku"`
	AppQty   int    `json:"app_qty"`
	ExcelQty int    `json:"excel_qty"`
	Diff     int    `json:"diff"`
	OK       bool   `json:"ok"`
	Verified int    `json:"verified"`
}

// DiscrepancyResponse fila de la revisión física.
type DiscrepancyResponse struct {
	SKU        string `json:"sku"`
	Name       string `json:"name,omitempty"`
	Expected   int    `json:"expected"`
	Scanned    int    `json:"scanned"`
	Status     string `json:"status"`
	Difference int    `json:"difference"`
	Unassigned bool   `json:"unassigned,omitempty"`
}

// FromDiscrepancies mapea la revisión física.
func FromDiscrepancies(ds []reconciliation.Discrepancy) []DiscrepancyResponse {
	out := make([]DiscrepancyResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DiscrepancyResponse{
			SKU:        d.SKU,
			Name:       d.Name,
			Expected:   d.Expected,
			Scanned:    d.Scanned,
			Status:     string(d.Status),
			Difference: d.Difference,
			Unassigned: d.Unassigned,
		})
	}
	return out
}

// SessionResponse foto de la conciliación.
type SessionResponse struct {
	ID             string                `json:"id"`
	Mobile         string                `json:"mobile"`
	State          string                `json:"state"`
	EventDate      time.Time             `json:"event_date"`
	PackageFilter  string                `json:"package_filter,omitempty"`
	HasActivations bool                  `json:"has_activations"`
	Consumption    []ConsumptionResponse `json:"consumption"`
	Discrepancies  []DiscrepancyResponse `json:"discrepancies"`
	LastError      string                `json:"last_error,omitempty"`
	LastResults    []LineResultResponse  `json:"last_results,omitempty"`
}

// FromView mapea la foto de la sesión.
func FromView(v *reconciliation.View) SessionResponse {
	out := SessionResponse{
		ID:             v.ID,
		Mobile:         v.Mobile,
		State:          string(v.State),
		EventDate:      v.EventDate,
		PackageFilter:  string(v.PackageFilter),
		HasActivations: v.HasActivations,
		Discrepancies:  FromDiscrepancies(v.Discrepancies),
		LastError:      v.LastError,
	}
	out.Consumption = make([]ConsumptionResponse, 0, len(v.Consumption))
	for _, c := range v.Consumption {
		out.Consumption = append(out.Consumption, ConsumptionResponse{
			SKU: c.SKU, AppQty: c.AppQty, ExcelQty: c.ExcelQty, Diff: c.Diff, OK: c.OK, Verified: c.Verified,
		})
	}
	if len(v.LastResults) > 0 {
		out.LastResults = FromLineResults(v.LastResults)
	}
	return out
}

// DraftLineResponse línea de un borrador de despacho.
type DraftLineResponse struct {
	SKU      string   `json:"sku"`
	Quantity int      `json:"quantity"`
	Serials  []string `json:"serials,omitempty"`
}

// DraftResponse borrador de salida al móvil.
type DraftResponse struct {
	Source  string              `json:"source"`
	Mobile  string              `json:"mobile"`
	Package string              `json:"package"`
	Lines   []DraftLineResponse `json:"lines"`
}

// FromDraft mapea el borrador.
func FromDraft(d *reconciliation.OutboundDraft) DraftResponse {
	out := DraftResponse{Source: string(d.Source), Mobile: d.Mobile, Package: string(d.Package)}
	out.Lines = make([]DraftLineResponse, 0, len(d.Lines))
	for _, l := range d.Lines {
		out.Lines = append(out.Lines, DraftLineResponse{SKU: l.SKU, Quantity: l.Quantity, Serials: l.Serials})
	}
	return out
}

// FinalizeResponse resultado del cierre.
type FinalizeResponse struct {
	SessionID       string               `json:"session_id"`
	Mobile          string               `json:"mobile"`
	State           string               `json:"state"`
	Results         []LineResultResponse `json:"results"`
	SerialsReturned int                  `json:"serials_returned"`
	PendingCleared  int64                `json:"pending_cleared"`
	Returned        []DraftLineResponse  `json:"returned,omitempty"`
}

// FromFinalizeReport mapea el reporte de cierre.
func FromFinalizeReport(r *reconciliation.FinalizeReport) FinalizeResponse {
	out := FinalizeResponse{
		SessionID:       r.SessionID,
		Mobile:          r.Mobile,
		State:           string(r.State),
		Results:         FromLineResults(r.Results),
		SerialsReturned: r.SerialsReturned,
		PendingCleared:  r.PendingCleared,
	}
	for _, l := range r.Returned {
		out.Returned = append(out.Returned, DraftLineResponse{SKU: l.SKU, Quantity: l.Quantity, Serials: l.Serials})
	}
	return out
}
