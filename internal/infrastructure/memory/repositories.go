package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/jhoicas/inventario-movil/internal/domain"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
	"github.com/jhoicas/inventario-movil/internal/domain/repository"
)

var (
	_ repository.ProductRepository            = (*ProductRepo)(nil)
	_ repository.MovementRepository           = (*MovementRepo)(nil)
	_ repository.BalanceRepository            = (*BalanceRepo)(nil)
	_ repository.SerialRepository             = (*SerialRepo)(nil)
	_ repository.PendingConsumptionRepository = (*PendingConsumptionRepo)(nil)
)

// ProductRepo catálogo en memoria.
type ProductRepo struct{ base }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.write(OpProductCreate, func(st *state) error {
		if _, ok := st.products[p.SKU]; ok {
			return domain.ErrDuplicate
		}
		st.products[p.SKU] = *p
		return nil
	})
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	var out *entity.Product
	r.read(func(st *state) {
		if p, ok := st.products[sku]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *ProductRepo) GetByBarcode(_ context.Context, code string) (*entity.Product, error) {
	var out *entity.Product
	r.read(func(st *state) {
		for _, sku := range sortedProductKeys(st) {
			p := st.products[sku]
			if p.MatchesBarcode(code) {
				out = &p
				return
			}
		}
	})
	return out, nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	return r.write(OpProductUpdate, func(st *state) error {
		if _, ok := st.products[p.SKU]; !ok {
			return domain.ErrNotFound
		}
		st.products[p.SKU] = *p
		return nil
	})
}

func (r *ProductRepo) List(_ context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	r.read(func(st *state) {
		for _, sku := range sortedProductKeys(st) {
			p := st.products[sku]
			out = append(out, &p)
		}
	})
	return out, nil
}

func sortedProductKeys(st *state) []string {
	keys := make([]string, 0, len(st.products))
	for k := range st.products {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MovementRepo libro en memoria; sólo agrega.
type MovementRepo struct{ base }

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	return r.write(OpMovementCreate, func(st *state) error {
		for _, existing := range st.movements {
			if existing.ID == m.ID {
				return domain.ErrDuplicate
			}
		}
		st.seq++
		m.Seq = st.seq
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	r.read(func(st *state) {
		for _, m := range st.movements {
			if m.ID == id {
				out = &m
				return
			}
		}
	})
	return out, nil
}

func (r *MovementRepo) ListByCorrelation(_ context.Context, correlationID string) ([]*entity.Movement, error) {
	var out []*entity.Movement
	r.read(func(st *state) {
		for _, m := range st.movements {
			if m.CorrelationID == correlationID {
				out = append(out, &m)
			}
		}
	})
	return out, nil
}

func (r *MovementRepo) CountCorrections(_ context.Context, correlationID string) (int, error) {
	n := 0
	r.read(func(st *state) {
		for _, m := range st.movements {
			if m.CorrectsID == correlationID {
				n++
			}
		}
	})
	return n, nil
}

func (r *MovementRepo) ListBySKU(_ context.Context, sku string, location *entity.Location, afterSeq int64, limit int) ([]*entity.Movement, error) {
	var out []*entity.Movement
	r.read(func(st *state) {
		for _, m := range st.movements {
			if m.SKU != sku || m.Seq <= afterSeq {
				continue
			}
			if location != nil && m.Location != *location {
				continue
			}
			out = append(out, &m)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}

// BalanceRepo saldos en memoria. El bloqueo de fila lo da la exclusión de la transacción.
type BalanceRepo struct{ base }

func normKey(k entity.BalanceKey) entity.BalanceKey {
	k.Package = k.Package.OrNone()
	return k
}

func (r *BalanceRepo) Get(_ context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	key = normKey(key)
	out := &entity.Balance{SKU: key.SKU, Location: key.Location, Package: key.Package}
	r.read(func(st *state) {
		if b, ok := st.balances[key]; ok {
			*out = b
		}
	})
	return out, nil
}

func (r *BalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	return r.Get(ctx, key)
}

func (r *BalanceRepo) Upsert(_ context.Context, b *entity.Balance) error {
	return r.write(OpBalanceUpsert, func(st *state) error {
		if b.Quantity < 0 {
			return &domain.InsufficientStockError{SKU: b.SKU, Cell: b.Key().String(), Requested: -b.Quantity}
		}
		cp := *b
		cp.Package = cp.Package.OrNone()
		st.balances[cp.Key()] = cp
		return nil
	})
}

func (r *BalanceRepo) ListByLocation(_ context.Context, location entity.Location) ([]*entity.Balance, error) {
	return r.list(func(b entity.Balance) bool { return b.Location == location }), nil
}

func (r *BalanceRepo) ListBySKU(_ context.Context, sku string) ([]*entity.Balance, error) {
	return r.list(func(b entity.Balance) bool { return b.SKU == sku }), nil
}

func (r *BalanceRepo) list(match func(entity.Balance) bool) []*entity.Balance {
	var out []*entity.Balance
	r.read(func(st *state) {
		for _, b := range st.balances {
			if match(b) {
				out = append(out, &b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

// SerialRepo registro de seriales en memoria.
type SerialRepo struct{ base }

func (r *SerialRepo) Create(_ context.Context, u *entity.SerialUnit) error {
	return r.write(OpSerialCreate, func(st *state) error {
		if _, ok := st.serials[u.SerialNumber]; ok {
			return domain.ErrDuplicateSerial
		}
		st.serials[u.SerialNumber] = *u
		return nil
	})
}

func (r *SerialRepo) Get(_ context.Context, serial string) (*entity.SerialUnit, error) {
	var out *entity.SerialUnit
	r.read(func(st *state) {
		if u, ok := st.serials[serial]; ok {
			out = &u
		}
	})
	return out, nil
}

func (r *SerialRepo) UpdateLocation(_ context.Context, serial string, location entity.Location, pkg entity.Package) error {
	return r.write(OpSerialUpdate, func(st *state) error {
		u, ok := st.serials[serial]
		if !ok {
			return domain.ErrSerialNotFound
		}
		u.Location = location
		u.Package = pkg.OrNone()
		st.serials[serial] = u
		return nil
	})
}

func (r *SerialRepo) BulkUpdateLocation(_ context.Context, serials []string, location entity.Location, pkg entity.Package) (int64, error) {
	var n int64
	err := r.write(OpSerialBulkUpdate, func(st *state) error {
		for _, sn := range serials {
			u, ok := st.serials[sn]
			if !ok {
				continue
			}
			u.Location = location
			u.Package = pkg.OrNone()
			st.serials[sn] = u
			n++
		}
		return nil
	})
	return n, err
}

func (r *SerialRepo) ListByLocation(_ context.Context, location entity.Location) ([]*entity.SerialUnit, error) {
	var out []*entity.SerialUnit
	r.read(func(st *state) {
		for _, u := range st.serials {
			if u.Location == location {
				out = append(out, &u)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].SerialNumber < out[j].SerialNumber
	})
	return out, nil
}

// PendingConsumptionRepo consumos pendientes en memoria.
type PendingConsumptionRepo struct{ base }

func (r *PendingConsumptionRepo) Create(_ context.Context, pc *entity.PendingConsumption) error {
	return r.write(OpPendingCreate, func(st *state) error {
		cp := *pc
		cp.UsedSerials = slices.Clone(pc.UsedSerials)
		st.pending = append(st.pending, cp)
		return nil
	})
}

func (r *PendingConsumptionRepo) ListByMobile(_ context.Context, mobile string) ([]*entity.PendingConsumption, error) {
	var out []*entity.PendingConsumption
	r.read(func(st *state) {
		for _, pc := range st.pending {
			if pc.Mobile == mobile {
				pc.UsedSerials = slices.Clone(pc.UsedSerials)
				out = append(out, &pc)
			}
		}
	})
	return out, nil
}

func (r *PendingConsumptionRepo) DeleteByMobile(_ context.Context, mobile string) (int64, error) {
	var n int64
	err := r.write(OpPendingDelete, func(st *state) error {
		kept := st.pending[:0:0]
		for _, pc := range st.pending {
			if pc.Mobile == mobile {
				n++
				continue
			}
			kept = append(kept, pc)
		}
		st.pending = kept
		return nil
	})
	return n, err
}
