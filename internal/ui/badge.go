package ui

import (
	"strconv"

	"github.com/datapacket872/abu-web/internal/dom"
)

// CartBadge wraps the element showing the cart item count.
type CartBadge struct {
	el *dom.Element
}

// NewCartBadge binds a badge to el. A nil element yields a badge whose
// operations are no-ops, matching pages without a cart indicator.
func NewCartBadge(el *dom.Element) *CartBadge {
	return &CartBadge{el: el}
}

// Count parses the rendered count, treating anything non-numeric as zero.
func (b *CartBadge) Count() int {
	if b.el == nil {
		return 0
	}
	n, err := strconv.Atoi(b.el.Text())
	if err != nil {
		return 0
	}
	return n
}

// Add applies delta to the rendered count, clamped at zero.
func (b *CartBadge) Add(delta int) {
	if b.el == nil {
		return
	}
	n := b.Count() + delta
	if n < 0 {
		n = 0
	}
	b.el.SetText(strconv.Itoa(n))
}
