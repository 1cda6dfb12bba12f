// Command abu-demo drives both interaction controllers headlessly against a
// running storefront API: it renders the product grid into a synthetic
// document, adds the first in-stock product to the cart, and performs one
// login attempt.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/datapacket872/abu-web/internal/api"
	"github.com/datapacket872/abu-web/internal/auth"
	"github.com/datapacket872/abu-web/internal/catalog"
	"github.com/datapacket872/abu-web/internal/config"
	"github.com/datapacket872/abu-web/internal/dom"
	"github.com/datapacket872/abu-web/internal/logging"
	"github.com/datapacket872/abu-web/internal/storage"
)

func main() {
	var (
		cfgPath  string
		email    string
		password string
	)
	flag.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flag.StringVar(&email, "email", "demo@abu.test", "login email")
	flag.StringVar(&password, "password", "correcthorsebatterystaple", "login password")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logging.New(false)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := buildPage(dom.NewDocument())
	client := api.NewClient(cfg.APIBaseURL, log)

	_, err = catalog.Attach(ctx, doc, catalog.Config{
		API:      client,
		Log:      log,
		ToastTTL: time.Duration(cfg.ToastTTLMillis) * time.Millisecond,
	})
	if err != nil {
		log.Fatalw("catalog attach", "err", err)
	}

	grid := doc.Find(dom.ByClass("product-grid"))
	for _, card := range grid.Children() {
		name := ""
		if t := card.Find(dom.ByClass("product-title")); t != nil {
			name = t.Text()
		}
		price := ""
		if p := card.Find(dom.ByClass("product-price")); p != nil {
			price = p.Text()
		}
		log.Infow("product card", "name", name, "price", price)
	}

	// Click the first enabled add-to-cart control.
	if btn := grid.Find(func(e *dom.Element) bool {
		return e.Attr("data-action") == "add-to-cart" && !e.Disabled()
	}); btn != nil {
		btn.Dispatch(&dom.Event{Type: dom.EventClick})
		badge := doc.Find(dom.ByClass("cart-count"))
		log.Infow("cart badge", "count", badge.Text())
	}

	// Login pass with a fresh client, the way a second page load would.
	loginDoc := buildPage(dom.NewDocument())
	navigated := ""
	_, err = auth.Attach(ctx, loginDoc, auth.Config{
		API:          api.NewClient(cfg.APIBaseURL, log),
		Store:        storage.NewStore(cfg.StoragePath),
		Navigate:     func(url string) { navigated = url },
		DashboardURL: cfg.DashboardPath,
		Log:          log,
	})
	if err != nil {
		log.Fatalw("auth attach", "err", err)
	}
	loginDoc.ByID("email").SetValue(email)
	loginDoc.ByID("password").SetValue(password)
	loginDoc.ByID("remember").SetChecked(true)
	loginDoc.ByID("loginForm").Dispatch(&dom.Event{Type: dom.EventSubmit})

	if navigated != "" {
		log.Infow("login succeeded", "navigated", navigated)
	} else if alert := loginDoc.ByID("loginError"); alert != nil && alert.Text() != "" {
		log.Warnw("login rejected", "message", alert.Text())
	}
}

// buildPage assembles the markup both controllers expect: the login form
// with its affordances and the product grid with the cart badge.
func buildPage(doc *dom.Document) *dom.Document {
	body := doc.Body()

	form := doc.CreateElement("form", "loginForm")
	body.AppendChild(form)

	email := doc.CreateElement("input", "email")
	email.SetType("email")
	form.AppendChild(email)

	pwd := doc.CreateElement("input", "password")
	pwd.SetType("password")
	form.AppendChild(pwd)

	toggle := doc.CreateElement("button", "")
	toggle.AddClass("pwd-toggle")
	toggle.SetText("👁")
	form.AppendChild(toggle)

	caps := doc.CreateElement("div", "capsLockHint")
	caps.SetText("Caps Lock is on")
	form.AppendChild(caps)

	remember := doc.CreateElement("input", "remember")
	remember.SetType("checkbox")
	form.AppendChild(remember)

	submit := doc.CreateElement("button", "submitBtn")
	submit.SetText("Log in")
	form.AppendChild(submit)

	cart := doc.CreateElement("span", "")
	cart.AddClass("cart-count")
	cart.SetText("0")
	body.AppendChild(cart)

	grid := doc.CreateElement("div", "")
	grid.AddClass("product-grid")
	body.AppendChild(grid)

	return doc
}
