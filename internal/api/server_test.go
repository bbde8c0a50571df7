package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/auth"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-touchnode/internal/journal"
	"github.com/nerrad567/gray-logic-touchnode/internal/monitor"
	"github.com/nerrad567/gray-logic-touchnode/internal/node"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// fakeNode records calls made through the API.
type fakeNode struct {
	mu           sync.Mutex
	pressed      []int
	released     []int
	subscribes   int
	unsubscribes int
	queueErr     error
}

func (f *fakeNode) Status() node.Status {
	return node.Status{
		NodeID:    "bench-1",
		Connected: true,
		Monitor:   node.MonitorStatus{Phase: monitor.AwaitingLink, LinkPolls: 2},
	}
}

func (f *fakeNode) Press(id int) error {
	if id != 1 && id != 2 {
		return fmt.Errorf("%w: %d", node.ErrUnknownButton, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pressed = append(f.pressed, id)
	return nil
}

func (f *fakeNode) Release(id int) error {
	if id != 1 && id != 2 {
		return fmt.Errorf("%w: %d", node.ErrUnknownButton, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
	return nil
}

func (f *fakeNode) Subscribe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueErr != nil {
		return f.queueErr
	}
	f.subscribes++
	return nil
}

func (f *fakeNode) Unsubscribe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueErr != nil {
		return f.queueErr
	}
	f.unsubscribes++
	return nil
}

// fakeJournal returns canned events and remembers the last filter.
type fakeJournal struct {
	last   journal.Filter
	events []event.Event
	err    error
}

func (f *fakeJournal) Append(context.Context, *event.Event) error { return nil }

func (f *fakeJournal) List(_ context.Context, filter journal.Filter) (*journal.ListResult, error) {
	f.last = filter
	if f.err != nil {
		return nil, f.err
	}
	return &journal.ListResult{Events: f.events, Total: len(f.events), Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (f *fakeJournal) Prune(context.Context, time.Time) (int64, error) { return 0, nil }

type checkFunc func(ctx context.Context) error

func (c checkFunc) HealthCheck(ctx context.Context) error { return c(ctx) }

func testServer(t *testing.T, secret string) (*Server, *fakeNode, *fakeJournal) {
	t.Helper()

	n := &fakeNode{}
	j := &fakeJournal{}
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Auth: config.APIAuthConfig{JWTSecret: secret, TokenTTL: 15},
			WebSocket: config.WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Node:    n,
		Journal: j,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, n, j
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken("tester", role, testSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

func TestNew_RequiresNode(t *testing.T) {
	if _, err := New(Deps{}); !errors.Is(err, ErrNoNode) {
		t.Fatalf("New() error = %v, want ErrNoNode", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t, "")
	srv.checks = map[string]HealthChecker{
		"mqtt":     checkFunc(func(context.Context) error { return nil }),
		"database": checkFunc(func(context.Context) error { return nil }),
	}

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Components) != 2 || resp.Components[0].Name != "database" {
		t.Errorf("components = %+v, want sorted database, mqtt", resp.Components)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv, _, _ := testServer(t, testSecret)
	srv.checks = map[string]HealthChecker{
		"mqtt": checkFunc(func(context.Context) error { return errors.New("not connected") }),
	}

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not connected") {
		t.Errorf("body = %s, want component error", rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	srv, _, _ := testServer(t, "")

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st node.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.NodeID != "bench-1" || !st.Connected {
		t.Errorf("status = %+v", st)
	}
	if st.Monitor.Phase != monitor.AwaitingLink || st.Monitor.LinkPolls != 2 {
		t.Errorf("monitor = %+v, want awaiting_link after 2 polls", st.Monitor)
	}
}

func TestListEvents(t *testing.T) {
	srv, _, j := testServer(t, "")
	j.events = []event.Event{event.New(event.StatusPublished, "publisher")}

	rec := do(t, srv.Handler(), http.MethodGet,
		"/api/v1/events?kind=status_published&component=publisher&limit=10&offset=5&since=2026-01-02T03:04:05Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if j.last.Kind != event.StatusPublished || j.last.Component != "publisher" {
		t.Errorf("filter = %+v", j.last)
	}
	if j.last.Limit != 10 || j.last.Offset != 5 {
		t.Errorf("paging = %d/%d, want 10/5", j.last.Limit, j.last.Offset)
	}
	if want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !j.last.Since.Equal(want) {
		t.Errorf("since = %v, want %v", j.last.Since, want)
	}

	var result journal.ListResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || result.Events[0].Kind != event.StatusPublished {
		t.Errorf("result = %+v", result)
	}
}

func TestListEvents_BadParams(t *testing.T) {
	srv, _, _ := testServer(t, "")
	for _, q := range []string{"limit=abc", "offset=-1", "since=yesterday"} {
		rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/events?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestListEvents_JournalDisabled(t *testing.T) {
	srv, _, _ := testServer(t, "")
	srv.journal = nil

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/events", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestButtons(t *testing.T) {
	srv, n, _ := testServer(t, "")
	h := srv.Handler()

	if rec := do(t, h, http.MethodPost, "/api/v1/buttons/1/press", ""); rec.Code != http.StatusOK {
		t.Fatalf("press status = %d, want 200", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/buttons/1/release", ""); rec.Code != http.StatusOK {
		t.Fatalf("release status = %d, want 200", rec.Code)
	}
	if len(n.pressed) != 1 || len(n.released) != 1 {
		t.Errorf("pressed = %v, released = %v", n.pressed, n.released)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/buttons/7/press", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown button status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/buttons/x/press", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/buttons/1/press", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET press status = %d, want 405", rec.Code)
	}
}

func TestSubscription(t *testing.T) {
	srv, n, _ := testServer(t, "")
	h := srv.Handler()

	if rec := do(t, h, http.MethodPost, "/api/v1/subscription", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("subscribe status = %d, want 202", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/v1/subscription", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("unsubscribe status = %d, want 202", rec.Code)
	}
	if n.subscribes != 1 || n.unsubscribes != 1 {
		t.Errorf("subscribes = %d, unsubscribes = %d", n.subscribes, n.unsubscribes)
	}

	n.queueErr = context.DeadlineExceeded
	if rec := do(t, h, http.MethodPost, "/api/v1/subscription", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("busy actuator status = %d, want 503", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	srv, n, _ := testServer(t, testSecret)
	h := srv.Handler()
	viewer := token(t, auth.RoleViewer)
	operator := token(t, auth.RoleOperator)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is open", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"status needs token", http.MethodGet, "/api/v1/status", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/status", "nope", http.StatusUnauthorized},
		{"viewer reads status", http.MethodGet, "/api/v1/status", viewer, http.StatusOK},
		{"viewer reads events", http.MethodGet, "/api/v1/events", viewer, http.StatusOK},
		{"viewer cannot press", http.MethodPost, "/api/v1/buttons/1/press", viewer, http.StatusForbidden},
		{"viewer cannot subscribe", http.MethodPost, "/api/v1/subscription", viewer, http.StatusForbidden},
		{"operator presses", http.MethodPost, "/api/v1/buttons/1/press", operator, http.StatusOK},
		{"operator subscribes", http.MethodPost, "/api/v1/subscription", operator, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.token)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	if len(n.pressed) != 1 || n.subscribes != 1 {
		t.Errorf("pressed = %v, subscribes = %d", n.pressed, n.subscribes)
	}
}

func TestAuth_WrongSecretRejected(t *testing.T) {
	srv, _, _ := testServer(t, testSecret)
	other, err := auth.GenerateAccessToken("tester", auth.RoleOperator, "another-secret-of-sufficient-length-xx", 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", other); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _, _ := testServer(t, "")
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		upgrade bool
		query   string
		want    string
	}{
		{"bearer header", "Bearer abc", false, "", "abc"},
		{"lowercase scheme", "bearer abc", false, "", "abc"},
		{"basic scheme ignored", "Basic abc", false, "", ""},
		{"query on upgrade", "", true, "token=xyz", "xyz"},
		{"query ignored without upgrade", "", false, "token=xyz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			if got := bearerToken(req); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
