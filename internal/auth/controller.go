// Package auth owns the login form: field validation, the submission state
// machine, caps-lock and password-visibility affordances, remembered-email
// persistence, and error presentation.
package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datapacket872/abu-web/internal/api"
	"github.com/datapacket872/abu-web/internal/dom"
	"github.com/datapacket872/abu-web/internal/storage"
)

// State is the submission lifecycle. Success is terminal; Error clears back
// to Idle on the next input or submit attempt.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateError
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateError:
		return "error"
	case StateSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Element ids and classes the controller binds to.
const (
	idForm          = "loginForm"
	idEmail         = "email"
	idPassword      = "password"
	idRemember      = "remember"
	idSubmit        = "submitBtn"
	idAlert         = "loginError"
	idEmailError    = "emailError"
	idPasswordError = "passwordError"
	idCapsHint      = "capsLockHint"
	classPwdToggle  = "pwd-toggle"
)

// rememberKey namespaces the persisted email in client-local storage.
const rememberKey = "abu.login.email"

const (
	defaultDashboardURL = "/user-dashboard.html"
	submittingLabel     = "Signing in..."
)

// Config wires the controller's collaborators. API is required; everything
// else degrades gracefully when absent.
type Config struct {
	API          *api.Client
	Store        *storage.Store
	Navigate     func(url string)
	DashboardURL string
	Log          *zap.SugaredLogger
}

// Controller drives the login form. It owns references to its bound
// elements and keeps no ambient global state.
type Controller struct {
	api      *api.Client
	store    *storage.Store
	navigate func(string)
	dashURL  string
	log      *zap.SugaredLogger

	ctx   context.Context
	doc   *dom.Document
	form  *dom.Element
	email *dom.Element
	pwd   *dom.Element

	// optional affordances; any of these may be nil
	remember *dom.Element
	submit   *dom.Element
	toggle   *dom.Element
	capsHint *dom.Element

	token string
	state State
}

// Attach binds a controller to the login form in doc, fetches the
// anti-forgery token, pre-populates the remembered email, and wires all
// listeners. The token fetch completes before Attach returns, so it always
// precedes the first submission.
func Attach(ctx context.Context, doc *dom.Document, cfg Config) (*Controller, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("auth: nil API client")
	}
	form := doc.ByID(idForm)
	if form == nil {
		return nil, fmt.Errorf("auth: element #%s not found", idForm)
	}
	email := doc.ByID(idEmail)
	pwd := doc.ByID(idPassword)
	if email == nil || pwd == nil {
		return nil, fmt.Errorf("auth: login inputs not found")
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	nav := cfg.Navigate
	if nav == nil {
		nav = func(string) {}
	}
	dashURL := cfg.DashboardURL
	if dashURL == "" {
		dashURL = defaultDashboardURL
	}

	c := &Controller{
		api:      cfg.API,
		store:    cfg.Store,
		navigate: nav,
		dashURL:  dashURL,
		log:      log,
		ctx:      ctx,
		doc:      doc,
		form:     form,
		email:    email,
		pwd:      pwd,
		remember: doc.ByID(idRemember),
		submit:   doc.ByID(idSubmit),
		toggle:   doc.Find(dom.ByClass(classPwdToggle)),
		capsHint: doc.ByID(idCapsHint),
	}

	c.token = c.api.FetchToken(ctx)
	c.prefillRememberedEmail()

	form.On(dom.EventSubmit, c.handleSubmit)
	email.On(dom.EventInput, func(*dom.Event) {
		c.handleInput(idEmailError, validateEmail(strings.TrimSpace(c.email.Value())))
	})
	pwd.On(dom.EventInput, func(*dom.Event) {
		c.handleInput(idPasswordError, validatePassword(c.pwd.Value()))
	})
	if c.toggle != nil {
		c.toggle.On(dom.EventClick, c.handleToggle)
	}
	if c.capsHint != nil {
		c.capsHint.SetHidden(true)
		pwd.On(dom.EventKeyDown, c.handleCapsKey)
		pwd.On(dom.EventKeyUp, c.handleCapsKey)
		pwd.On(dom.EventBlur, func(*dom.Event) { c.capsHint.SetHidden(true) })
	}
	return c, nil
}

// State returns the current submission state.
func (c *Controller) State() State { return c.state }

func (c *Controller) handleSubmit(ev *dom.Event) {
	ev.PreventDefault()
	if c.state == StateSubmitting {
		return
	}
	if c.state == StateError {
		c.setState(StateIdle)
	}
	c.clearAlert()

	email := strings.ToLower(strings.TrimSpace(c.email.Value()))
	password := c.pwd.Value()

	emailMsg := validateEmail(email)
	pwdMsg := validatePassword(password)
	c.setFieldError(idEmailError, emailMsg)
	c.setFieldError(idPasswordError, pwdMsg)
	if emailMsg != "" || pwdMsg != "" {
		// No request leaves the client; focus lands on the first invalid
		// field in document order.
		if emailMsg != "" {
			c.email.Focus()
		} else {
			c.pwd.Focus()
		}
		return
	}
	c.submitCredentials(email, password)
}

func (c *Controller) submitCredentials(email, password string) {
	c.setState(StateSubmitting)
	var label string
	if c.submit != nil {
		label = c.submit.Text()
		c.submit.SetDisabled(true)
		c.submit.SetText(submittingLabel)
	}
	defer func() {
		// Restore the submit affordance no matter how response handling
		// exits, panics included.
		if c.submit != nil {
			c.submit.SetText(label)
			c.submit.SetDisabled(false)
		}
	}()

	res, err := c.api.Login(c.ctx, api.LoginRequest{Email: email, Password: password, Token: c.token})
	if err != nil {
		c.log.Debugw("login transport failure", "err", err)
		c.showAlert(api.MsgNetworkError)
		c.setState(StateError)
		return
	}
	if !res.OK {
		c.showAlert(api.MessageForCode(res.Code))
		c.setState(StateError)
		return
	}

	c.setState(StateSuccess)
	c.persistIdentity(email)
	c.navigate(c.dashURL)
}

// persistIdentity records or clears the remembered email. Runs only on the
// success path; storage failures stay local.
func (c *Controller) persistIdentity(email string) {
	if c.store == nil {
		return
	}
	var err error
	if c.remember != nil && c.remember.Checked() {
		err = c.store.Set(rememberKey, email)
	} else {
		err = c.store.Remove(rememberKey)
	}
	if err != nil {
		c.log.Debugw("remembered email not persisted", "err", err)
	}
}

func (c *Controller) prefillRememberedEmail() {
	if c.store == nil {
		return
	}
	v, err := c.store.Get(rememberKey)
	if err != nil {
		c.log.Debugw("remembered email not readable", "err", err)
		return
	}
	if v == "" {
		return
	}
	c.email.SetValue(v)
	if c.remember != nil {
		c.remember.SetChecked(true)
	}
}

// handleInput applies live validation to the value the submit path would
// see: the email trimmed, the password as typed.
func (c *Controller) handleInput(errID, msg string) {
	if c.state == StateError {
		c.clearAlert()
		c.setState(StateIdle)
	}
	c.setFieldError(errID, msg)
}

func (c *Controller) handleToggle(*dom.Event) {
	if c.pwd.Type() == "password" {
		c.pwd.SetType("text")
		c.toggle.SetText("🙈")
	} else {
		c.pwd.SetType("password")
		c.toggle.SetText("👁")
	}
}

func (c *Controller) handleCapsKey(ev *dom.Event) {
	c.capsHint.SetHidden(!ev.CapsLock)
}

// setFieldError shows or clears the inline message for a field. The message
// element is created under the form on first use.
func (c *Controller) setFieldError(errID, msg string) {
	el := c.doc.ByID(errID)
	if msg == "" {
		if el != nil {
			el.SetText("")
			el.SetHidden(true)
		}
		return
	}
	if el == nil {
		el = c.doc.CreateElement("div", errID)
		el.AddClass("field-error")
		c.form.AppendChild(el)
	}
	el.SetText(msg)
	el.SetHidden(false)
}

// showAlert surfaces a form-level error in the alert region, creating it as
// the form's first child when the markup does not carry one.
func (c *Controller) showAlert(msg string) {
	el := c.doc.ByID(idAlert)
	if el == nil {
		el = c.doc.CreateElement("div", idAlert)
		el.SetAttr("role", "alert")
		c.form.PrependChild(el)
	}
	el.SetText(msg)
	el.SetHidden(false)
}

func (c *Controller) clearAlert() {
	if el := c.doc.ByID(idAlert); el != nil {
		el.SetText("")
		el.SetHidden(true)
	}
}

func (c *Controller) setState(next State) {
	if c.state == next {
		return
	}
	c.log.Debugw("login state", "from", c.state.String(), "to", next.String())
	c.state = next
}
