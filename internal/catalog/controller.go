// Package catalog renders the product grid and wires the add-to-cart flow:
// one delegated click listener on the grid, per-control disabling during
// requests, an optimistic badge increment on confirmed success, and toast
// feedback.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/datapacket872/abu-web/internal/api"
	"github.com/datapacket872/abu-web/internal/dom"
	"github.com/datapacket872/abu-web/internal/format"
	"github.com/datapacket872/abu-web/internal/ui"
)

// Element classes and data attributes the controller binds to.
const (
	classGrid        = "product-grid"
	classBadge       = "cart-count"
	classPlaceholder = "placeholder-card"
	classCard        = "product-card"
	attrAction       = "data-action"
	attrProductID    = "data-id"
	actionAddToCart  = "add-to-cart"
)

// Toast copy for the cart flow; all server-side rejections collapse into
// one generic message.
const (
	msgAdded       = "Added to cart"
	msgAddFailed   = "Could not add to cart"
	msgNetworkFail = "Network error"
	msgNoProducts  = "No products available."
)

// Config wires the controller's collaborators. API is required.
type Config struct {
	API      *api.Client
	Log      *zap.SugaredLogger
	ToastTTL time.Duration
}

// Controller owns the product grid, the cart badge, and the toaster. It
// fetches its own anti-forgery token, independent of the login flow.
type Controller struct {
	api     *api.Client
	log     *zap.SugaredLogger
	ctx     context.Context
	doc     *dom.Document
	grid    *dom.Element
	badge   *ui.CartBadge
	toaster *ui.Toaster
	token   string
}

// Attach fetches and renders the product list, acquires the cart token, and
// wires the delegated add-to-cart listener. The token fetch completes
// before Attach returns, so it always precedes the first cart request.
func Attach(ctx context.Context, doc *dom.Document, cfg Config) (*Controller, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("catalog: nil API client")
	}
	grid := doc.Find(dom.ByClass(classGrid))
	if grid == nil {
		return nil, fmt.Errorf("catalog: .%s not found", classGrid)
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	c := &Controller{
		api:     cfg.API,
		log:     log,
		ctx:     ctx,
		doc:     doc,
		grid:    grid,
		badge:   ui.NewCartBadge(doc.Find(dom.ByClass(classBadge))),
		toaster: ui.NewToaster(doc, doc.Body(), cfg.ToastTTL),
	}

	c.render(c.api.FetchProducts(ctx))
	c.token = c.api.FetchToken(ctx)
	grid.On(dom.EventClick, c.handleGridClick)
	return c, nil
}

// render replaces the grid contents: a single placeholder for an empty
// list, otherwise one card per product in server order.
func (c *Controller) render(products []api.Product) {
	c.grid.RemoveAll()
	if len(products) == 0 {
		ph := c.doc.CreateElement("div", "")
		ph.AddClass(classPlaceholder)
		ph.SetText(msgNoProducts)
		c.grid.AppendChild(ph)
		return
	}
	for _, p := range products {
		c.grid.AppendChild(c.buildCard(p))
	}
}

func (c *Controller) buildCard(p api.Product) *dom.Element {
	card := c.doc.CreateElement("a", "")
	card.AddClass(classCard)
	card.SetAttr("href", "/details.html?id="+url.QueryEscape(strconv.FormatInt(p.ID, 10)))
	card.SetAttr("aria-label", "View details for "+p.Name)

	stock := c.doc.CreateElement("div", "")
	stock.AddClass("product-badge")
	if p.Stock > 0 {
		stock.SetText("In stock")
	} else {
		stock.SetText("Out of stock")
	}
	card.AppendChild(stock)

	title := c.doc.CreateElement("div", "")
	title.AddClass("product-title")
	title.SetText(p.Name)
	card.AppendChild(title)

	if p.DescriptionHTML != "" {
		desc := c.doc.CreateElement("div", "")
		desc.AddClass("product-desc")
		desc.SetText(p.DescriptionHTML)
		card.AppendChild(desc)
	}

	price := c.doc.CreateElement("div", "")
	price.AddClass("product-price")
	price.SetText(format.Price(p.Price))
	card.AppendChild(price)

	btn := c.doc.CreateElement("button", "")
	btn.AddClass("btn-primary")
	btn.SetAttr(attrAction, actionAddToCart)
	btn.SetAttr(attrProductID, strconv.FormatInt(p.ID, 10))
	btn.SetText("Add to Cart")
	btn.SetDisabled(p.Stock <= 0)
	card.AppendChild(btn)

	return card
}

// handleGridClick delegates clicks anywhere in the grid to the nearest
// add-to-cart control, so re-rendered cards need no re-binding.
func (c *Controller) handleGridClick(ev *dom.Event) {
	btn := ev.Target.Closest(dom.ByAttr(attrAction, actionAddToCart))
	if btn == nil {
		return
	}
	ev.PreventDefault()
	ev.StopPropagation()
	id, err := strconv.ParseInt(btn.Attr(attrProductID), 10, 64)
	if err != nil || id <= 0 {
		return
	}
	c.addToCart(btn, id)
}

func (c *Controller) addToCart(btn *dom.Element, id int64) {
	btn.SetDisabled(true)
	defer btn.SetDisabled(false)

	err := c.api.AddToCart(c.ctx, c.token, id)
	switch {
	case err == nil:
		// Count moves only after the server confirmed the addition.
		c.badge.Add(1)
		c.toaster.Show(msgAdded)
	case errors.Is(err, api.ErrNetwork):
		c.log.Debugw("cart add transport failure", "product", id, "err", err)
		c.toaster.Show(msgNetworkFail)
	default:
		c.log.Debugw("cart add rejected", "product", id, "err", err)
		c.toaster.Show(msgAddFailed)
	}
}
