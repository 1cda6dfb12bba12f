// Package ui holds small presentational widgets shared by the controllers:
// transient toasts and the cart count badge.
package ui

import (
	"time"

	"github.com/datapacket872/abu-web/internal/dom"
)

// DefaultToastTTL matches the storefront's auto-dismiss interval.
const DefaultToastTTL = 2200 * time.Millisecond

// Toaster appends transient status messages to a host element. Each toast
// removes itself after the TTL on an independent timer; concurrent toasts
// coexist.
type Toaster struct {
	doc  *dom.Document
	host *dom.Element
	ttl  time.Duration
}

// NewToaster binds a toaster to host. A non-positive ttl falls back to
// DefaultToastTTL.
func NewToaster(doc *dom.Document, host *dom.Element, ttl time.Duration) *Toaster {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toaster{doc: doc, host: host, ttl: ttl}
}

// Show creates a toast announcing message as a status update to assistive
// technology and schedules its removal.
func (t *Toaster) Show(message string) *dom.Element {
	toast := t.doc.CreateElement("div", "")
	toast.AddClass("toast")
	toast.SetAttr("role", "status")
	toast.SetAttr("aria-live", "polite")
	toast.SetText(message)
	t.host.AppendChild(toast)
	time.AfterFunc(t.ttl, toast.Remove)
	return toast
}
