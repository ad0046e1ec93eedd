package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	m, err := NewManager("test-secret", false)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("", false)
	assert.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	s := m.New()
	s.SetCart(cart.Cart{"L1": 2})
	s.SetAdmin(true)

	token, err := m.Encode(s)
	require.NoError(t, err)

	got, err := m.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, s.ID(), got.ID())
	assert.Equal(t, cart.Cart{"L1": 2}, got.Cart())
	assert.True(t, got.Admin())
	assert.False(t, got.Dirty())
}

func TestDecode_RejectsForeignSignature(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager("other-secret", false)
	require.NoError(t, err)

	token, err := other.Encode(other.New())
	require.NoError(t, err)

	_, err = m.Decode(token)
	assert.Error(t, err)
}

func TestDecode_RejectsExpired(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Encode(m.New())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(maxAge + time.Hour) }

	_, err = m.Decode(token)
	assert.Error(t, err)
}

func TestLoad_TamperedCookieStartsFresh(t *testing.T) {
	m := newTestManager(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})

	s := m.Load(r)

	assert.NotEmpty(t, s.ID())
	assert.Empty(t, s.Cart())
	assert.False(t, s.Admin())
	assert.True(t, s.Dirty())
}

func TestMiddleware_IssuesCookieAndRestoresSession(t *testing.T) {
	m := newTestManager(t)
	var seen string
	h := m.Middleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = s.ID()
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// second request with the cookie sees the same id and needs no new cookie
	first := seen
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, first, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddleware_SavesWhenHandlerWritesNothing(t *testing.T) {
	m := newTestManager(t)
	h := m.Middleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := FromContext(r.Context())
		s.SetAdmin(true)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	s, err := m.Decode(cookies[0].Value)
	require.NoError(t, err)
	assert.True(t, s.Admin())
}

func TestCartStore(t *testing.T) {
	m := newTestManager(t)
	s := m.New()
	ctx := WithSession(context.Background(), s)
	store := NewCartStore()

	_, err := store.Get(ctx, s.ID())
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	require.NoError(t, store.Save(ctx, s.ID(), cart.Cart{"L1": 3}))
	c, err := store.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, cart.Cart{"L1": 3}, c)

	require.NoError(t, store.Delete(ctx, s.ID()))
	assert.ErrorIs(t, store.Delete(ctx, s.ID()), cart.ErrCartNotFound)
}

func TestCartStore_WrongKeyOrNoSession(t *testing.T) {
	m := newTestManager(t)
	s := m.New()
	store := NewCartStore()

	_, err := store.Get(context.Background(), s.ID())
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.Get(WithSession(context.Background(), s), "someone-else")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCartStore_WithCartService(t *testing.T) {
	m := newTestManager(t)
	s := m.New()
	ctx := WithSession(context.Background(), s)
	svc := cart.NewService(NewCartStore(), nil, logger.Discard())

	require.NoError(t, svc.Clear(ctx, s.ID()))
	c, err := svc.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Empty(t, c)
}
