package at24

import (
	"fmt"
	"sort"
	"strings"
)

// MaxPageSize bounds the data part of one write transaction.
const MaxPageSize = 256

// MaxAddressWidth is the widest supported word address in bytes.
const MaxAddressWidth = 2

// Geometry describes the parts of a device that shape bus transactions.
// Size is informational: addresses past it wrap on the device and are not
// checked here.
type Geometry struct {
	AddressWidth int `yaml:"address_width" json:"address_width"`
	PageSize     int `yaml:"page_size" json:"page_size"`
	Size         int `yaml:"size,omitempty" json:"size,omitempty"`
}

func (g Geometry) Validate() error {
	if g.AddressWidth != 1 && g.AddressWidth != 2 {
		return fmt.Errorf("%w: address width must be 1 or 2 bytes, got %d", ErrInvalidConfiguration, g.AddressWidth)
	}
	if g.PageSize < 1 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidConfiguration, g.PageSize)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d-byte addressing, %d-byte pages", g.AddressWidth, g.PageSize)
}

// Catalogue of parts with plain 1- or 2-byte word addresses. Parts that
// borrow peer-address bits for the word address (24C04/08/16) are not listed.
var (
	Geometry24C01  = Geometry{AddressWidth: 1, PageSize: 8, Size: 128}
	Geometry24C02  = Geometry{AddressWidth: 1, PageSize: 8, Size: 256}
	Geometry24C32  = Geometry{AddressWidth: 2, PageSize: 32, Size: 4096}
	Geometry24C64  = Geometry{AddressWidth: 2, PageSize: 32, Size: 8192}
	Geometry24C128 = Geometry{AddressWidth: 2, PageSize: 64, Size: 16384}
	Geometry24C256 = Geometry{AddressWidth: 2, PageSize: 64, Size: 32768}
	Geometry24C512 = Geometry{AddressWidth: 2, PageSize: 128, Size: 65536}
)

var catalogue = map[string]Geometry{
	"24c01":  Geometry24C01,
	"24c02":  Geometry24C02,
	"24c32":  Geometry24C32,
	"24c64":  Geometry24C64,
	"24c128": Geometry24C128,
	"24c256": Geometry24C256,
	"24c512": Geometry24C512,
}

// LookupGeometry finds a part by name, e.g. "24C02" or "AT24C256".
func LookupGeometry(name string) (Geometry, bool) {
	key := strings.TrimPrefix(strings.ToLower(name), "at")
	g, ok := catalogue[key]
	return g, ok
}

// Parts lists the catalogue names in ascending capacity.
func Parts() []string {
	names := make([]string, 0, len(catalogue))
	for n := range catalogue {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return catalogue[names[i]].Size < catalogue[names[j]].Size
	})
	return names
}
