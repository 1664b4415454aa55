package entity

import "strings"

// LocationKind clasifica las ubicaciones físicas donde puede haber stock.
type LocationKind string

const (
	LocationWarehouse LocationKind = "BODEGA"
	LocationMobile    LocationKind = "MOVIL"
	LocationBranch    LocationKind = "SUCURSAL"
	LocationDiscard   LocationKind = "DESCARTE"
)

// Location es una ubicación de stock. Mobile sólo se usa cuando Kind = MOVIL.
type Location struct {
	Kind   LocationKind
	Mobile string
}

func Warehouse() Location { return Location{Kind: LocationWarehouse} }

func Branch() Location { return Location{Kind: LocationBranch} }

func Discard() Location { return Location{Kind: LocationDiscard} }

func Mobile(name string) Location { return Location{Kind: LocationMobile, Mobile: name} }

// IsMobile indica si la ubicación es un móvil.
func (l Location) IsMobile() bool { return l.Kind == LocationMobile }

// Valid verifica que el tipo sea conocido y que sólo los móviles lleven nombre.
func (l Location) Valid() bool {
	switch l.Kind {
	case LocationMobile:
		return strings.TrimSpace(l.Mobile) != ""
	case LocationWarehouse, LocationBranch, LocationDiscard:
		return l.Mobile == ""
	default:
		return false
	}
}

// String devuelve la forma canónica: "BODEGA" o "MOVIL:<nombre>".
func (l Location) String() string {
	if l.Kind == LocationMobile {
		return string(l.Kind) + ":" + l.Mobile
	}
	return string(l.Kind)
}

// ParseLocation interpreta la forma canónica de String.
func ParseLocation(s string) (Location, bool) {
	s = strings.TrimSpace(s)
	kind, name, hasName := strings.Cut(s, ":")
	l := Location{Kind: LocationKind(strings.ToUpper(kind))}
	if hasName {
		l.Mobile = strings.TrimSpace(name)
	}
	return l, l.Valid()
}

// Package es una sub-asignación del saldo de un móvil.
type Package string

const (
	PackageNone   Package = "NINGUNO"
	PackageA      Package = "PAQUETE_A"
	PackageB      Package = "PAQUETE_B"
	PackageCart   Package = "CARRITO"
	PackageCustom Package = "PERSONALIZADO"
)

// MobilePackages en el orden en que se descuenta el saldo de un móvil.
var MobilePackages = []Package{PackageNone, PackageA, PackageB, PackageCart, PackageCustom}

// OrNone normaliza el valor vacío a NINGUNO.
func (p Package) OrNone() Package {
	if p == "" {
		return PackageNone
	}
	return p
}

// Valid indica si el paquete es uno de los conocidos (vacío cuenta como NINGUNO).
func (p Package) Valid() bool {
	switch p.OrNone() {
	case PackageNone, PackageA, PackageB, PackageCart, PackageCustom:
		return true
	}
	return false
}
