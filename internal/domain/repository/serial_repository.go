package repository

import (
	"context"

	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

// SerialRepository define el puerto del registro de seriales.
type SerialRepository interface {
	// Create devuelve domain.ErrDuplicateSerial si el serial ya existe.
	Create(ctx context.Context, unit *entity.SerialUnit) error
	// Get devuelve (nil, nil) si el serial no existe.
	Get(ctx context.Context, serial string) (*entity.SerialUnit, error)
	// UpdateLocation mueve el serial con una sola actualización; domain.ErrSerialNotFound si no existe.
	UpdateLocation(ctx context.Context, serial string, location entity.Location, pkg entity.Package) error
	// BulkUpdateLocation mueve todos los seriales en una sentencia y devuelve las filas afectadas.
	BulkUpdateLocation(ctx context.Context, serials []string, location entity.Location, pkg entity.Package) (int64, error)
	ListByLocation(ctx context.Context, location entity.Location) ([]*entity.SerialUnit, error)
}
