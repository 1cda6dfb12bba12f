// Package server implements the storefront JSON API the interaction
// controllers consume: anti-forgery token issuance, login, the product
// catalog, and cart additions. State is in-memory; the session rides in an
// HMAC-signed cookie.
package server

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const csrfHeader = "X-CSRF-Token"

// Config carries server construction options.
type Config struct {
	SigningKey    []byte
	SecureCookies bool
	LoginRPS      float64
	LoginBurst    int
	Log           *zap.SugaredLogger
}

// Server holds the API's collaborators.
type Server struct {
	users    *UserStore
	products *ProductStore
	sessions *sessionCodec
	login    *ipRateLimiter
	log      *zap.SugaredLogger
}

// New builds a server with the demo data seeded.
func New(cfg Config) (*Server, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	rps := cfg.LoginRPS
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 5
	}
	s := &Server{
		users:    NewUserStore(),
		products: NewProductStore(),
		sessions: newSessionCodec(cfg.SigningKey, cfg.SecureCookies),
		login:    newIPRateLimiter(rps, burst),
		log:      log,
	}
	if err := SeedDemo(s.users, s.products); err != nil {
		return nil, err
	}
	return s, nil
}

// Routes returns the API router, meant to be mounted under /api.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.sessions.Middleware)
	r.Get("/csrf", s.handleCSRF)
	r.Post("/login", s.handleLogin)
	r.Get("/products", s.handleProducts)
	r.Post("/cart", s.handleCart)
	return r
}

// handleCSRF returns the session's anti-forgery token, issuing one when the
// session does not carry it yet.
func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sd := sessionFrom(r)
	if sd.CSRFToken == "" {
		sd.CSRFToken = newCSRFToken()
		s.sessions.write(w, sd)
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": sd.CSRFToken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sd := sessionFrom(r)
	hdr := r.Header.Get(csrfHeader)
	if sd.CSRFToken == "" || hdr == "" || hdr != sd.CSRFToken {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid_csrf"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("missing_fields"))
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("missing_fields"))
		return
	}

	if !s.login.allow(r) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse("rate_limited"))
		return
	}

	user, ok := s.users.Authenticate(email, req.Password)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("invalid_credentials"))
		return
	}

	// Rotate the token after authentication so the pre-login one cannot be
	// replayed against the signed-in session.
	sd.UserEmail = user.Email
	sd.CSRFToken = newCSRFToken()
	s.sessions.write(w, sd)
	s.log.Infow("login", "email", user.Email)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": user.Name})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": s.products.List()})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	sd := sessionFrom(r)
	if r.Header.Get(csrfHeader) != sd.CSRFToken || sd.CSRFToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid_csrf"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Items []struct {
			ID  int64 `json:"id"`
			Qty int   `json:"qty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("bad_items"))
		return
	}
	if req.Items == nil || len(req.Items) > 50 {
		writeJSON(w, http.StatusBadRequest, errorResponse("bad_items"))
		return
	}

	var total float64
	for _, it := range req.Items {
		product, ok := s.products.ByID(it.ID)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown_product", "id": it.ID})
			return
		}
		if it.Qty < 1 || it.Qty > 100 {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid_qty"))
			return
		}
		total += product.Price * float64(it.Qty)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "total": math.Round(total*100) / 100})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errorResponse(code string) map[string]string {
	return map[string]string{"error": code}
}
