package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapacket872/abu-web/internal/api"
	"github.com/datapacket872/abu-web/internal/dom"
)

// cartBackend scripts the product and cart endpoints.
type cartBackend struct {
	products  string
	cartCount atomic.Int64
	cartOK    bool
	lastCSRF  string
}

func (b *cartBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/csrf", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": "cart-tok"})
	})
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(b.products))
	})
	mux.HandleFunc("POST /api/cart", func(w http.ResponseWriter, r *http.Request) {
		b.cartCount.Add(1)
		b.lastCSRF = r.Header.Get("X-CSRF-Token")
		if !b.cartOK {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown_product"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	return mux
}

func buildStorefront(doc *dom.Document) {
	badge := doc.CreateElement("span", "")
	badge.AddClass("cart-count")
	badge.SetText("0")
	doc.Body().AppendChild(badge)

	grid := doc.CreateElement("div", "")
	grid.AddClass("product-grid")
	doc.Body().AppendChild(grid)
}

const twoProducts = `{"products":[
	{"id":1,"name":"A","price":9.5,"stock":0},
	{"id":2,"name":"B","price":3,"stock":5}
]}`

func setup(t *testing.T, backend *cartBackend) (*dom.Document, *cartBackend) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	doc := dom.NewDocument()
	buildStorefront(doc)
	_, err := Attach(context.Background(), doc, Config{
		API:      api.NewClient(srv.URL, nil),
		ToastTTL: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	return doc, backend
}

func grid(doc *dom.Document) *dom.Element { return doc.Find(dom.ByClass(classGrid)) }

func addButton(doc *dom.Document, id string) *dom.Element {
	return doc.Find(func(e *dom.Element) bool {
		return e.Attr(attrAction) == actionAddToCart && e.Attr(attrProductID) == id
	})
}

func TestRenderTwoCardsInServerOrder(t *testing.T) {
	doc, _ := setup(t, &cartBackend{products: twoProducts, cartOK: true})

	cards := grid(doc).Children()
	require.Len(t, cards, 2)

	first, second := cards[0], cards[1]
	assert.Equal(t, "A", first.Find(dom.ByClass("product-title")).Text())
	assert.Equal(t, "B", second.Find(dom.ByClass("product-title")).Text())
	assert.Equal(t, "$9.50", first.Find(dom.ByClass("product-price")).Text())
	assert.Equal(t, "$3.00", second.Find(dom.ByClass("product-price")).Text())
	assert.Equal(t, "Out of stock", first.Find(dom.ByClass("product-badge")).Text())
	assert.Equal(t, "In stock", second.Find(dom.ByClass("product-badge")).Text())
	assert.True(t, addButton(doc, "1").Disabled(), "out-of-stock control is disabled")
	assert.False(t, addButton(doc, "2").Disabled())
}

func TestEmptyAndMalformedPayloadsRenderPlaceholder(t *testing.T) {
	for _, payload := range []string{`{"products":[]}`, `{"products":"garbage"}`, `not json`} {
		doc, _ := setup(t, &cartBackend{products: payload})
		kids := grid(doc).Children()
		require.Len(t, kids, 1, "payload %q", payload)
		assert.True(t, kids[0].HasClass(classPlaceholder))
		assert.Equal(t, msgNoProducts, kids[0].Text())
	}
}

func TestAddToCartSuccessIncrementsBadgeAndToasts(t *testing.T) {
	doc, backend := setup(t, &cartBackend{products: twoProducts, cartOK: true})
	btn := addButton(doc, "2")

	btn.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.Equal(t, "1", doc.Find(dom.ByClass(classBadge)).Text())
	assert.Equal(t, "cart-tok", backend.lastCSRF)
	assert.False(t, btn.Disabled(), "control re-enabled after the request")
	toast := doc.Find(dom.ByClass("toast"))
	require.NotNil(t, toast)
	assert.Equal(t, msgAdded, toast.Text())
}

func TestAddToCartFailureLeavesBadgeUntouched(t *testing.T) {
	doc, backend := setup(t, &cartBackend{products: twoProducts, cartOK: false})
	btn := addButton(doc, "2")

	btn.Dispatch(&dom.Event{Type: dom.EventClick})
	btn.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.EqualValues(t, 2, backend.cartCount.Load())
	assert.Equal(t, "0", doc.Find(dom.ByClass(classBadge)).Text())
	assert.False(t, btn.Disabled())
	toast := doc.Find(dom.ByClass("toast"))
	require.NotNil(t, toast)
	assert.Equal(t, msgAddFailed, toast.Text())
}

func TestBadgeIncrementsOncePerSuccessAfterFailures(t *testing.T) {
	backend := &cartBackend{products: twoProducts, cartOK: false}
	doc, _ := setup(t, backend)
	btn := addButton(doc, "2")

	btn.Dispatch(&dom.Event{Type: dom.EventClick})
	btn.Dispatch(&dom.Event{Type: dom.EventClick})
	backend.cartOK = true
	btn.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.Equal(t, "1", doc.Find(dom.ByClass(classBadge)).Text())
}

func TestNetworkFailureShowsNetworkToast(t *testing.T) {
	backend := &cartBackend{products: twoProducts, cartOK: true}
	srv := httptest.NewServer(backend.handler())

	doc := dom.NewDocument()
	buildStorefront(doc)
	_, err := Attach(context.Background(), doc, Config{
		API:      api.NewClient(srv.URL, nil),
		ToastTTL: time.Minute,
	})
	require.NoError(t, err)

	srv.Close()
	btn := addButton(doc, "2")
	btn.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.Equal(t, "0", doc.Find(dom.ByClass(classBadge)).Text())
	toast := doc.Find(dom.ByClass("toast"))
	require.NotNil(t, toast)
	assert.Equal(t, msgNetworkFail, toast.Text())
	assert.False(t, btn.Disabled())
}

func TestUnparsableProductIDIsIgnored(t *testing.T) {
	doc, backend := setup(t, &cartBackend{products: twoProducts, cartOK: true})

	btn := addButton(doc, "2")
	btn.SetAttr(attrProductID, "not-a-number")
	btn.Dispatch(&dom.Event{Type: dom.EventClick})

	btn.SetAttr(attrProductID, "0")
	btn.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.EqualValues(t, 0, backend.cartCount.Load(), "no request for unparsable ids")
	assert.Equal(t, "0", doc.Find(dom.ByClass(classBadge)).Text())
}

func TestDelegatedClickFromNestedElement(t *testing.T) {
	doc, backend := setup(t, &cartBackend{products: twoProducts, cartOK: true})
	btn := addButton(doc, "2")

	icon := doc.CreateElement("i", "")
	btn.AppendChild(icon)
	icon.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.EqualValues(t, 1, backend.cartCount.Load(), "click resolves to the enclosing control")
	assert.Equal(t, "1", doc.Find(dom.ByClass(classBadge)).Text())
}

func TestDisabledControlIgnoresNestedClick(t *testing.T) {
	doc, backend := setup(t, &cartBackend{products: twoProducts, cartOK: true})
	btn := addButton(doc, "1")
	require.True(t, btn.Disabled(), "product 1 is out of stock")

	icon := doc.CreateElement("i", "")
	btn.AppendChild(icon)
	icon.Dispatch(&dom.Event{Type: dom.EventClick})

	assert.EqualValues(t, 0, backend.cartCount.Load(), "no request for an out-of-stock product")
	assert.Equal(t, "0", doc.Find(dom.ByClass(classBadge)).Text())
}

func TestToastsAutoDismiss(t *testing.T) {
	doc, _ := setup(t, &cartBackend{products: twoProducts, cartOK: true})
	btn := addButton(doc, "2")

	btn.Dispatch(&dom.Event{Type: dom.EventClick})
	btn.Dispatch(&dom.Event{Type: dom.EventClick})
	require.NotNil(t, doc.Find(dom.ByClass("toast")))

	assert.Eventually(t, func() bool {
		return doc.Find(dom.ByClass("toast")) == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "2", doc.Find(dom.ByClass(classBadge)).Text())
}

func TestAttachRequiresGrid(t *testing.T) {
	doc := dom.NewDocument()
	_, err := Attach(context.Background(), doc, Config{API: api.NewClient("http://127.0.0.1:0", nil)})
	assert.Error(t, err)
}
