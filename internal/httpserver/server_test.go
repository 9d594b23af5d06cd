package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/config"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/contacts"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/relay"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/upstream"
)

// stubUpstream accepts everything and blocks reads until closed.
type stubUpstream struct {
	done chan struct{}
	once sync.Once
}

func newStubUpstream() *stubUpstream { return &stubUpstream{done: make(chan struct{})} }

func (u *stubUpstream) Configure(upstream.SessionConfig) error { return nil }
func (u *stubUpstream) AppendAudio(string) error               { return nil }
func (u *stubUpstream) CreateResponse(string) error            { return nil }
func (u *stubUpstream) ContinueResponse() error                { return nil }
func (u *stubUpstream) CancelResponse() error                  { return nil }
func (u *stubUpstream) TruncateItem(string) error              { return nil }
func (u *stubUpstream) SendToolResult(string, string) error    { return nil }

func (u *stubUpstream) ReadEvent() (any, error) {
	<-u.done
	return nil, errors.New("upstream closed")
}

func (u *stubUpstream) Close() error {
	u.once.Do(func() { close(u.done) })
	return nil
}

type brokenStore struct{}

func (brokenStore) Create(context.Context, string, string, string) (string, error) {
	return "", errors.New("store down")
}
func (brokenStore) Update(context.Context, string, map[string]string) (contacts.Contact, error) {
	return contacts.Contact{}, errors.New("store down")
}
func (brokenStore) List(context.Context, int) ([]contacts.Contact, error) {
	return nil, errors.New("store down")
}

func testConfig(maxConns int) config.Config {
	return config.Config{
		FrontendURL:    "http://localhost:5173",
		MaxConnections: maxConns,
		SetupTimeout:   time.Minute,
	}
}

func stubDial(context.Context) (relay.Upstream, error) {
	return newStubUpstream(), nil
}

func TestHealth(t *testing.T) {
	srv := New(testConfig(10), contacts.NewMemoryStore(), stubDial)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "reachable") {
		t.Fatalf("expected store status in body, got %s", w.Body.String())
	}
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	srv := New(testConfig(10), brokenStore{}, stubDial)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestListContacts(t *testing.T) {
	store := contacts.NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Create(ctx, "First Person", "first@x.com", "1")
	_, _ = store.Create(ctx, "Second Person", "second@x.com", "2")

	srv := New(testConfig(10), store, stubDial)
	r := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var list []contacts.Contact
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Second Person" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestListContactsEmptyIsArray(t *testing.T) {
	srv := New(testConfig(10), contacts.NewMemoryStore(), stubDial)
	r := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWSAdmissionCeiling(t *testing.T) {
	srv := New(testConfig(1), contacts.NewMemoryStore(), stubDial)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	first := dialWS(t, ts)

	// Second connection must be upgraded then refused with a close frame.
	second := dialWS(t, ts)
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("expected close error, got %v", err)
	}
	if ce.Code != relay.CloseCodePolicy || ce.Text != "Server at capacity" {
		t.Fatalf("unexpected close frame: %d %q", ce.Code, ce.Text)
	}

	// The admitted session is unaffected by the rejection.
	if got := srv.ActiveSessions(); got != 1 {
		t.Fatalf("expected 1 active session, got %d", got)
	}

	// Releasing the slot admits a new session.
	_ = first.Close()
	deadline := time.Now().Add(2 * time.Second)
	for srv.ActiveSessions() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.ActiveSessions() != 0 {
		t.Fatalf("slot never released")
	}

	third := dialWS(t, ts)
	_ = third.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := third.ReadMessage(); err != nil {
		var nerr interface{ Timeout() bool }
		if !errors.As(err, &nerr) || !nerr.Timeout() {
			t.Fatalf("expected admitted session to stay open, got %v", err)
		}
	}
}

func TestWSDialFailureReportsError(t *testing.T) {
	failDial := func(context.Context) (relay.Upstream, error) {
		return nil, errors.New("no route")
	}
	srv := New(testConfig(10), contacts.NewMemoryStore(), failDial)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg relay.ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != relay.MsgError {
		t.Fatalf("expected error frame, got %+v", msg)
	}
}
