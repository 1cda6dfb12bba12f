package server

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/crypto/bcrypt"
)

// User is a storefront account.
type User struct {
	Email string
	Name  string

	passwordHash []byte
}

// UserStore is an in-memory account registry keyed by normalized email.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*User)}
}

// Add registers an account with a bcrypt-hashed password.
func (s *UserStore) Add(email, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[normalizeEmail(email)] = &User{
		Email:        normalizeEmail(email),
		Name:         name,
		passwordHash: hash,
	}
	return nil
}

// Authenticate verifies the credentials. It does not reveal whether the
// email exists.
func (s *UserStore) Authenticate(email, password string) (*User, bool) {
	s.mu.RLock()
	u, ok := s.users[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, false
	}
	return u, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Product is one catalog entry. DescriptionHTML is rendered from markdown
// and sanitized at insertion time.
type Product struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Stock           int     `json:"stock"`
	DescriptionHTML string  `json:"description_html,omitempty"`
}

// ProductStore holds the catalog in insertion order; the list endpoint
// returns it as-is, no sorting or pagination.
type ProductStore struct {
	mu      sync.RWMutex
	ordered []Product
}

// NewProductStore returns an empty catalog.
func NewProductStore() *ProductStore {
	return &ProductStore{}
}

var descriptionPolicy = bluemonday.UGCPolicy()

// Add appends a product. The description is authored as markdown and
// stored as sanitized HTML.
func (s *ProductStore) Add(id int64, name string, price float64, stock int, descriptionMarkdown string) error {
	html, err := renderDescription(descriptionMarkdown)
	if err != nil {
		return fmt.Errorf("render description for %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordered = append(s.ordered, Product{
		ID:              id,
		Name:            name,
		Price:           price,
		Stock:           stock,
		DescriptionHTML: html,
	})
	return nil
}

// List returns the catalog in insertion order.
func (s *ProductStore) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// ByID looks up a product.
func (s *ProductStore) ByID(id int64) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.ordered {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func renderDescription(md string) (string, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(descriptionPolicy.Sanitize(buf.String())), nil
}

// SeedDemo loads the demonstration account and catalog.
func SeedDemo(users *UserStore, products *ProductStore) error {
	if err := users.Add("demo@abu.test", "Demo User", "correcthorsebatterystaple"); err != nil {
		return err
	}
	seed := []struct {
		id    int64
		name  string
		price float64
		stock int
		desc  string
	}{
		{1, "Eco Toothbrush", 3.50, 120, "Biodegradable handle with **soft** bristles."},
		{2, "Reusable Razor", 9.99, 50, "Solid brass body, fits *standard* blades."},
		{3, "Bamboo Comb", 2.25, 200, "Hand-finished bamboo, anti-static."},
	}
	for _, p := range seed {
		if err := products.Add(p.id, p.name, p.price, p.stock, p.desc); err != nil {
			return err
		}
	}
	return nil
}
