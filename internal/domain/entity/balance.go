package entity

import (
	"fmt"
	"time"
)

// BalanceKey identifica una celda de saldo.
type BalanceKey struct {
	SKU      string
	Location Location
	Package  Package
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s@%s/%s", k.SKU, k.Location, k.Package.OrNone())
}

// Balance es el saldo derivado de una celda; siempre igual a la suma de sus movimientos.
type Balance struct {
	SKU       string
	Location  Location
	Package   Package
	Quantity  int
	UpdatedAt time.Time
}

func (b Balance) Key() BalanceKey {
	return BalanceKey{SKU: b.SKU, Location: b.Location, Package: b.Package.OrNone()}
}
