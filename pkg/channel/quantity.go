package channel

import (
	"fmt"
	"strings"
)

// Quantity identifies a monitored water-quality quantity.
type Quantity int

const (
	PH Quantity = iota
	Turbidity
	Color
	Chlorine

	// NumQuantities is the number of monitored quantities.
	NumQuantities = 4
)

// Quantities lists all quantities in wire order.
var Quantities = [NumQuantities]Quantity{PH, Turbidity, Color, Chlorine}

var quantityNames = [NumQuantities]string{"ph", "turbidity", "color", "chlorine"}

func (q Quantity) String() string {
	if q < 0 || int(q) >= NumQuantities {
		return fmt.Sprintf("quantity(%d)", int(q))
	}
	return quantityNames[q]
}

// ParseQuantity parses a quantity name as produced by String.
func ParseQuantity(s string) (Quantity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range quantityNames {
		if n == name {
			return Quantity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown quantity %q", s)
}
