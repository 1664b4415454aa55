package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// PendingConsumptionService recibe los consumos que los técnicos reportan desde campo.
// Quedan pendientes hasta que una conciliación del móvil los confirma o reemplaza.
type PendingConsumptionService struct {
	repos Repos
	log   zerolog.Logger
	now   func() time.Time
}

// NewPendingConsumptionService construye el servicio.
func NewPendingConsumptionService(repos Repos, log zerolog.Logger) *PendingConsumptionService {
	return &PendingConsumptionService{repos: repos, log: log.With().Str("component", "pending").Logger(), now: time.Now}
}

// Report registra un consumo reportado. No mueve saldos.
func (s *PendingConsumptionService) Report(ctx context.Context, pc *entity.PendingConsumption) error {
	pc.Mobile = strings.TrimSpace(pc.Mobile)
	if pc.Mobile == "" || pc.SKU == "" || pc.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	product, err := s.repos.Products.GetBySKU(ctx, pc.SKU)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	for i, sn := range pc.UsedSerials {
		pc.UsedSerials[i] = NormalizeSerial(sn)
	}
	now := s.now()
	if pc.ID == "" {
		pc.ID = uuid.New().String()
	}
	if pc.EventDate.IsZero() {
		pc.EventDate = now
	}
	pc.CreatedAt = now
	if err := s.repos.Pending.Create(ctx, pc); err != nil {
		return err
	}
	s.log.Info().Str("movil", pc.Mobile).Str("sku", pc.SKU).Int("cantidad", pc.Quantity).Msg("consumo reportado")
	return nil
}

// ListByMobile lista los consumos pendientes de un móvil.
func (s *PendingConsumptionService) ListByMobile(ctx context.Context, mobile string) ([]*entity.PendingConsumption, error) {
	if strings.TrimSpace(mobile) == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.repos.Pending.ListByMobile(ctx, mobile)
}
