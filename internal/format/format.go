// Package format holds display formatting helpers shared by the catalog
// renderer and the headless demo.
package format

import "fmt"

// Price formats a product price with a leading dollar sign and two fixed
// decimal places. Example: Price(9.5) => "$9.50".
func Price(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
