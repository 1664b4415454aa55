// Package memory implementa los puertos de persistencia en memoria. Sirve para las pruebas y
// para levantar el servicio sin base de datos (STORE_DRIVER=memory). Las transacciones se
// serializan con un mutex y se revierten restaurando una copia del estado.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/jhoicas/inventario-movil/internal/application/inventory"
	"github.com/jhoicas/inventario-movil/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// Operaciones de escritura que pasan por el hook de fallas.
const (
	OpProductCreate    = "products.create"
	OpProductUpdate    = "products.update"
	OpMovementCreate   = "movements.create"
	OpBalanceUpsert    = "balances.upsert"
	OpSerialCreate     = "serials.create"
	OpSerialUpdate     = "serials.update"
	OpSerialBulkUpdate = "serials.bulk_update"
	OpPendingCreate    = "pending.create"
	OpPendingDelete    = "pending.delete"
)

type state struct {
	products  map[string]entity.Product
	movements []entity.Movement
	seq       int64
	balances  map[entity.BalanceKey]entity.Balance
	serials   map[string]entity.SerialUnit
	pending   []entity.PendingConsumption
}

func newState() *state {
	return &state{
		products: make(map[string]entity.Product),
		balances: make(map[entity.BalanceKey]entity.Balance),
		serials:  make(map[string]entity.SerialUnit),
	}
}

func (s *state) clone() *state {
	pending := make([]entity.PendingConsumption, len(s.pending))
	for i, pc := range s.pending {
		pc.UsedSerials = slices.Clone(pc.UsedSerials)
		pending[i] = pc
	}
	return &state{
		products:  maps.Clone(s.products),
		movements: slices.Clone(s.movements),
		seq:       s.seq,
		balances:  maps.Clone(s.balances),
		serials:   maps.Clone(s.serials),
		pending:   pending,
	}
}

// Store almacenamiento en memoria con semántica transaccional.
type Store struct {
	mu    sync.Mutex
	st    *state
	fault func(op string) error
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// SetFaultHook instala una función que se consulta antes de cada escritura; si devuelve
// error la escritura falla con ese error. nil lo quita.
func (s *Store) SetFaultHook(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// Repos repositorios fuera de transacción; cada llamada toma el lock.
func (s *Store) Repos() inventory.Repos { return s.repos(false) }

func (s *Store) repos(inTx bool) inventory.Repos {
	b := base{s: s, inTx: inTx}
	return inventory.Repos{
		Products:  &ProductRepo{b},
		Movements: &MovementRepo{b},
		Balances:  &BalanceRepo{b},
		Serials:   &SerialRepo{b},
		Pending:   &PendingConsumptionRepo{b},
	}
}

// Run ejecuta fn con acceso exclusivo. Si fn falla el estado vuelve a como estaba.
func (s *Store) Run(ctx context.Context, fn func(tx inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&memTx{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type memTx struct {
	s *Store
}

func (t *memTx) Repos() inventory.Repos { return t.s.repos(true) }

func (t *memTx) Savepoint(ctx context.Context, fn func(tx inventory.Tx) error) error {
	snapshot := t.s.st.clone()
	if err := fn(t); err != nil {
		t.s.st = snapshot
		return err
	}
	return nil
}

// base comparte el acceso al estado entre los repositorios.
type base struct {
	s    *Store
	inTx bool
}

func (b base) read(fn func(st *state)) {
	if !b.inTx {
		b.s.mu.Lock()
		defer b.s.mu.Unlock()
	}
	fn(b.s.st)
}

func (b base) write(op string, fn func(st *state) error) error {
	if !b.inTx {
		b.s.mu.Lock()
		defer b.s.mu.Unlock()
	}
	if b.s.fault != nil {
		if err := b.s.fault(op); err != nil {
			return err
		}
	}
	return fn(b.s.st)
}
