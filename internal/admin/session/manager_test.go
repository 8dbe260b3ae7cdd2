package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/travel-admin/internal/admin/viewquery"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:       "test_session",
		HashKey:          []byte("12345678901234567890123456789012"),
		BlockKey:         []byte("abcdefghijklmnopqrstuv0123456789"),
		CookiePath:       "/",
		IdleTimeout:      10 * time.Minute,
		Lifetime:         2 * time.Hour,
		RememberLifetime: 48 * time.Hour,
		Now:              clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return mgr, clock
}

func roundTrip(t *testing.T, mgr *Manager, sess *Session) *Session {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie to be set")
	}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	loaded, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load existing error: %v", err)
	}
	return loaded
}

func TestManager_NewSessionLifecycle(t *testing.T) {
	mgr, clock := newTestManager(t)

	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.ID() == "" {
		t.Fatalf("expected session ID")
	}
	if !sess.CreatedAt().Equal(clock.current) {
		t.Fatalf("unexpected CreatedAt: %v", sess.CreatedAt())
	}

	sess.SetUser(&User{UID: "user-1", Email: "agent@example.com", Roles: []string{"sales"}})
	sess.SetRememberMe(true)

	clock.current = clock.current.Add(5 * time.Minute)
	loaded := roundTrip(t, mgr, sess)
	if loaded.ID() != sess.ID() {
		t.Fatalf("expected stable session id")
	}
	if loaded.User() == nil || loaded.User().Email != "agent@example.com" {
		t.Fatalf("expected user to persist")
	}
	if !loaded.RememberMe() {
		t.Fatalf("expected remember-me flag")
	}
	if want := sess.CreatedAt().Add(48 * time.Hour); !loaded.ExpiresAt().Equal(want) {
		t.Fatalf("expected remember lifetime expiry %v, got %v", want, loaded.ExpiresAt())
	}
}

func TestSession_ViewsPersistAcrossRequests(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()

	state := viewquery.NewState(25)
	state.SetSearch("goa")
	state.SetSort(&viewquery.Sort{Key: "travelDate", Direction: viewquery.Desc})
	state.SetPage(3)
	sess.SetView("bookings", state)

	loaded := roundTrip(t, mgr, sess)
	got, ok := loaded.View("bookings")
	if !ok {
		t.Fatalf("expected bookings view to persist")
	}
	if !viewquery.Equal(got, state) {
		t.Fatalf("unexpected view: %+v", got)
	}
	if _, ok := loaded.View("customers"); ok {
		t.Fatalf("expected no customers view")
	}
}

func TestSession_SetViewUnchangedStaysClean(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	state := viewquery.NewState(10)
	sess.SetView("leads", state)

	loaded := roundTrip(t, mgr, sess)
	if loaded.Dirty() {
		t.Fatalf("freshly loaded session should be clean")
	}
	loaded.SetView("leads", state)
	if loaded.Dirty() {
		t.Fatalf("identical view should not dirty the session")
	}
	state.SetSearch("kerala")
	loaded.SetView("leads", state)
	if !loaded.Dirty() {
		t.Fatalf("changed view should dirty the session")
	}
	if len(loaded.Views()) != 1 {
		t.Fatalf("unexpected views: %v", loaded.Views())
	}
}

func TestSession_ClearViews(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.SetView("leads", viewquery.NewState(10))
	sess.SetView("customers", viewquery.NewState(25))

	loaded := roundTrip(t, mgr, sess)
	if n := loaded.ClearViews(); n != 2 {
		t.Fatalf("expected 2 views cleared, got %d", n)
	}
	if !loaded.Dirty() {
		t.Fatalf("clearing views should dirty the session")
	}
	if again := roundTrip(t, mgr, loaded); len(again.Views()) != 0 {
		t.Fatalf("views survived clear: %v", again.Views())
	}
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")

	clock.current = clock.current.Add(20 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	if _, err := mgr.Load(req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "not-a-valid-cookie"})
	sess, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.User() != nil || !sess.Dirty() {
		t.Fatalf("expected a fresh session")
	}
}

func TestManager_Destroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.Destroy()
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected session cookie cleared")
	}
}

func TestNewManagerRejectsBadKeys(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing hash key, got %v", err)
	}
	if _, err := NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad block key, got %v", err)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
