// Package session keeps per-visitor state in an HS256-signed cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "session"
	maxAge     = 30 * 24 * time.Hour
)

var ErrNoSession = errors.New("no session in context")

type Session struct {
	mu    sync.Mutex
	id    string
	cart  cart.Cart
	admin bool
	dirty bool
}

func (s *Session) ID() string { return s.id }

func (s *Session) Admin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

func (s *Session) SetAdmin(admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.admin != admin {
		s.admin = admin
		s.dirty = true
	}
}

func (s *Session) Cart() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Session) SetCart(c cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = c.Clone()
	s.dirty = true
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

type claims struct {
	jwt.RegisteredClaims
	Cart  map[string]int `json:"cart,omitempty"`
	Admin bool           `json:"admin,omitempty"`
}

type Manager struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func NewManager(secret string, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	return &Manager{secret: []byte(secret), secure: secure, now: time.Now}, nil
}

// New starts a fresh session. It is marked dirty so the cookie gets issued.
func (m *Manager) New() *Session {
	return &Session{id: uuid.NewString(), cart: cart.Cart{}, dirty: true}
}

// Load reads the session cookie. A missing, expired or tampered cookie yields a new session.
func (m *Manager) Load(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return m.New()
	}
	s, err := m.Decode(c.Value)
	if err != nil {
		return m.New()
	}
	return s
}

func (m *Manager) Decode(token string) (*Session, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(token, cl, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if _, err := uuid.Parse(cl.Subject); err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}

	s := &Session{id: cl.Subject, cart: cart.Cart{}, admin: cl.Admin}
	for id, qty := range cl.Cart {
		s.cart[id] = qty
	}
	return s, nil
}

func (m *Manager) Encode(s *Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
		},
		Admin: s.admin,
	}
	if len(s.cart) > 0 {
		cl.Cart = s.cart
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
}

// Save writes the session cookie. Must run before the response header is sent.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	token, err := m.Encode(s)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
