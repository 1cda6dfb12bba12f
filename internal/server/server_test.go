package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	s, err := New(Config{LoginRPS: 100, LoginBurst: 100})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Mount("/api", s.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func fetchToken(t *testing.T, srv *httptest.Server, client *http.Client) string {
	t.Helper()
	resp, err := client.Get(srv.URL + "/api/csrf")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["csrf_token"])
	return body["csrf_token"]
}

func postJSON(t *testing.T, client *http.Client, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestCSRFTokenIsStablePerSession(t *testing.T) {
	srv, client := newTestServer(t)
	tok1 := fetchToken(t, srv, client)
	tok2 := fetchToken(t, srv, client)
	assert.Equal(t, tok1, tok2, "same session keeps the same token")
}

func TestLoginRequiresCSRF(t *testing.T) {
	srv, client := newTestServer(t)
	fetchToken(t, srv, client)

	resp, body := postJSON(t, client, srv.URL+"/api/login", "", map[string]string{
		"email": "demo@abu.test", "password": "correcthorsebatterystaple",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_csrf", body["error"])
}

func TestLoginMissingFields(t *testing.T) {
	srv, client := newTestServer(t)
	tok := fetchToken(t, srv, client)

	resp, body := postJSON(t, client, srv.URL+"/api/login", tok, map[string]string{"email": "demo@abu.test"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_fields", body["error"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv, client := newTestServer(t)
	tok := fetchToken(t, srv, client)

	resp, body := postJSON(t, client, srv.URL+"/api/login", tok, map[string]string{
		"email": "demo@abu.test", "password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["error"])
}

func TestLoginSuccessRotatesToken(t *testing.T) {
	srv, client := newTestServer(t)
	tok := fetchToken(t, srv, client)

	resp, body := postJSON(t, client, srv.URL+"/api/login", tok, map[string]string{
		"email": "Demo@ABU.test", "password": "correcthorsebatterystaple",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Demo User", body["name"])

	rotated := fetchToken(t, srv, client)
	assert.NotEqual(t, tok, rotated, "token rotates after authentication")
}

func TestLoginRateLimited(t *testing.T) {
	s, err := New(Config{LoginRPS: 0.001, LoginBurst: 1})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Mount("/api", s.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	tok := fetchToken(t, srv, client)
	creds := map[string]string{"email": "demo@abu.test", "password": "wrongpassword"}

	resp, _ := postJSON(t, client, srv.URL+"/api/login", tok, creds)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := postJSON(t, client, srv.URL+"/api/login", tok, creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["error"])
}

func TestProductsListAndSanitizedDescriptions(t *testing.T) {
	srv, client := newTestServer(t)

	resp, err := client.Get(srv.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Products []Product `json:"products"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Products, 3)
	assert.Equal(t, "Eco Toothbrush", body.Products[0].Name)
	assert.Equal(t, 3.50, body.Products[0].Price)
	assert.Contains(t, body.Products[0].DescriptionHTML, "<strong>soft</strong>")
	assert.NotContains(t, body.Products[0].DescriptionHTML, "<script")
}

func TestProductDescriptionStripsUnsafeHTML(t *testing.T) {
	ps := NewProductStore()
	require.NoError(t, ps.Add(9, "X", 1, 1, `Safe <script>alert(1)</script> [link](javascript:alert(1))`))
	p, ok := ps.ByID(9)
	require.True(t, ok)
	assert.NotContains(t, p.DescriptionHTML, "<script")
	assert.NotContains(t, p.DescriptionHTML, "javascript:")
	assert.Contains(t, p.DescriptionHTML, "Safe")
}

func TestCartTotalsAndValidation(t *testing.T) {
	srv, client := newTestServer(t)
	tok := fetchToken(t, srv, client)

	resp, body := postJSON(t, client, srv.URL+"/api/cart", tok, map[string]any{
		"items": []map[string]any{{"id": 1, "qty": 2}, {"id": 3, "qty": 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.InDelta(t, 9.25, body["total"].(float64), 0.001)

	resp, body = postJSON(t, client, srv.URL+"/api/cart", tok, map[string]any{
		"items": []map[string]any{{"id": 99, "qty": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_product", body["error"])

	resp, body = postJSON(t, client, srv.URL+"/api/cart", tok, map[string]any{
		"items": []map[string]any{{"id": 1, "qty": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_qty", body["error"])

	resp, body = postJSON(t, client, srv.URL+"/api/cart", tok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_items", body["error"])
}

func TestCartRequiresCSRF(t *testing.T) {
	srv, client := newTestServer(t)
	fetchToken(t, srv, client)

	resp, body := postJSON(t, client, srv.URL+"/api/cart", "bogus", map[string]any{
		"items": []map[string]any{{"id": 1, "qty": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_csrf", body["error"])
}

func TestUserStoreAuthenticate(t *testing.T) {
	us := NewUserStore()
	require.NoError(t, us.Add("User@Example.com", "User", "hunter2hunter2"))

	u, ok := us.Authenticate("user@example.com", "hunter2hunter2")
	require.True(t, ok)
	assert.Equal(t, "user@example.com", u.Email)

	_, ok = us.Authenticate("user@example.com", "wrong")
	assert.False(t, ok)
	_, ok = us.Authenticate("nobody@example.com", "hunter2hunter2")
	assert.False(t, ok)
}
