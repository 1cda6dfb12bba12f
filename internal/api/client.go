// Package api is the storefront JSON API client used by the interaction
// controllers: anti-forgery token acquisition, login, product listing, and
// cart additions. Degradation rules follow the storefront contract: token
// and product fetches never fail loudly, mutating calls report a closed
// error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 8 * time.Second
	csrfHeader     = "X-CSRF-Token"
)

// Client issues credentialed same-origin calls against the storefront API.
// The cookie jar stands in for the browser's session cookie handling.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

// NewClient constructs a client for baseURL. The logger may be nil.
func NewClient(baseURL string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		log: log,
	}
}

// FetchToken acquires a one-time anti-forgery token. Any failure -- bad
// status, transport error, malformed body -- resolves to the empty string;
// the server is the authority on rejecting requests sent without a token.
func (c *Client) FetchToken(ctx context.Context) string {
	endpoint, err := url.JoinPath(c.baseURL, "api", "csrf")
	if err != nil {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugw("token fetch failed", "err", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.log.Debugw("token fetch rejected", "status", resp.StatusCode)
		return ""
	}
	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Debugw("token fetch malformed", "err", err)
		return ""
	}
	return body.CSRFToken
}

// LoginRequest carries normalized credentials and the anti-forgery token
// (empty when acquisition failed).
type LoginRequest struct {
	Email    string
	Password string
	Token    string
}

// LoginResult reflects the server's verdict. OK is true only for an
// explicit success flag or the known success message; otherwise Code holds
// the structured rejection code, possibly empty.
type LoginResult struct {
	OK   bool
	Name string
	Code string
}

// Login posts the credentials. It returns ErrNetwork (wrapped) when no
// usable response was received, so callers can distinguish connectivity
// problems from rejections.
func (c *Client) Login(ctx context.Context, lr LoginRequest) (LoginResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, "api", "login")
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	payload, err := json.Marshal(map[string]string{
		"email":    lr.Email,
		"password": lr.Password,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeader, lr.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var body struct {
		OK      bool   `json:"ok"`
		Name    string `json:"name"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 400 && (body.OK || body.Message == "Login successful") {
		return LoginResult{OK: true, Name: body.Name}, nil
	}
	code := body.Error
	if code == "" {
		code = body.Message
	}
	return LoginResult{Code: code}, nil
}

// Product is one catalog entry in server order. DescriptionHTML is
// sanitized server-side and may be empty.
type Product struct {
	ID              int64
	Name            string
	Price           float64
	Stock           int
	DescriptionHTML string
}

// FetchProducts lists the catalog. Any failure, or a payload whose
// products field is not a sequence, resolves to an empty slice; the caller
// renders the empty case explicitly.
func (c *Client) FetchProducts(ctx context.Context) []Product {
	endpoint, err := url.JoinPath(c.baseURL, "api", "products")
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugw("product fetch failed", "err", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.log.Debugw("product fetch rejected", "status", resp.StatusCode)
		return nil
	}

	var body struct {
		Products []productPayload `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Debugw("product fetch malformed", "err", err)
		return nil
	}
	out := make([]Product, 0, len(body.Products))
	for _, p := range body.Products {
		out = append(out, p.toProduct())
	}
	return out
}

// AddToCart posts a single-quantity cart line for the product. A nil error
// means the server confirmed the addition; ErrNetwork means no response
// was received; ErrCartRejected covers everything else.
func (c *Client) AddToCart(ctx context.Context, token string, productID int64) error {
	endpoint, err := url.JoinPath(c.baseURL, "api", "cart")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	payload, err := json.Marshal(map[string]any{
		"items": []map[string]any{{"id": productID, "qty": 1}},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeader, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var body struct {
		OK bool `json:"ok"`
	}
	// A malformed success body counts as a rejection, not a transport error.
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode >= 400 || !body.OK {
		return ErrCartRejected
	}
	return nil
}

// productPayload decodes one catalog entry leniently: the id and price may
// arrive as numbers or numeric strings, anything else defaults to zero.
type productPayload struct {
	ID              any    `json:"id"`
	Name            string `json:"name"`
	Price           any    `json:"price"`
	Stock           int    `json:"stock"`
	DescriptionHTML string `json:"description_html"`
}

func (p productPayload) toProduct() Product {
	return Product{
		ID:              int64(coerceNumber(p.ID)),
		Name:            p.Name,
		Price:           coerceNumber(p.Price),
		Stock:           p.Stock,
		DescriptionHTML: p.DescriptionHTML,
	}
}

func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
