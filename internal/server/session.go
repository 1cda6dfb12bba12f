package server

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const sessionCookieName = "ABU_SESSION"

// sessionData is the signed cookie payload. The CSRF token lives in the
// session so the header check on mutating requests is tied to the caller's
// own page load.
type sessionData struct {
	ID        string    `json:"id"`
	UserEmail string    `json:"user,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// sessionCodec signs and verifies the session cookie (HMAC-SHA256 over the
// JSON payload).
type sessionCodec struct {
	key    []byte
	secure bool
}

// newSessionCodec builds a codec. An empty key gets replaced by a
// process-ephemeral random one, suitable for development only.
func newSessionCodec(key []byte, secure bool) *sessionCodec {
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	return &sessionCodec{key: key, secure: secure}
}

// Middleware loads or initializes the session and stores it in the request
// context. New sessions get an ID and a CSRF token immediately so the
// cookie reaches the client on the first response.
func (sc *sessionCodec) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := sc.read(r)
		if sd.ID == "" {
			sd.ID = randID()
			sd.CSRFToken = newCSRFToken()
			sd.CreatedAt = time.Now().UTC()
			sd.UpdatedAt = sd.CreatedAt
		}
		if !fromCookie {
			sc.write(w, sd)
		}
		ctx := context.WithValue(r.Context(), ctxKeySession{}, sd)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKeySession struct{}

// sessionFrom returns the request's session. The middleware guarantees one
// is present on every route it wraps.
func sessionFrom(r *http.Request) *sessionData {
	if sd, ok := r.Context().Value(ctxKeySession{}).(*sessionData); ok {
		return sd
	}
	return &sessionData{}
}

func (sc *sessionCodec) read(r *http.Request) (*sessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &sessionData{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return &sessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return &sessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return &sessionData{}, false
	}
	mac := hmac.New(sha256.New, sc.key)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return &sessionData{}, false
	}
	var sd sessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &sessionData{}, false
	}
	return &sd, true
}

// write serializes, signs, and sets the session cookie. Handlers that
// mutate the session call this again before responding.
func (sc *sessionCodec) write(w http.ResponseWriter, sd *sessionData) {
	sd.UpdatedAt = time.Now().UTC()
	b, _ := json.Marshal(sd)
	mac := hmac.New(sha256.New, sc.key)
	mac.Write(b)
	val := base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   sc.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
