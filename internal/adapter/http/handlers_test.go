package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adapthttp "orangemon/internal/adapter/http"
	"orangemon/internal/adapter/memory"
	"orangemon/internal/app"
	"orangemon/internal/domain"
)

type mockPortal struct {
	invoicesFn     func(ctx context.Context, profileID int64) (json.RawMessage, error)
	transactionsFn func(ctx context.Context, profileID int64) (json.RawMessage, error)
}

func (m *mockPortal) Authenticate(ctx context.Context) (bool, error) { return true, nil }
func (m *mockPortal) EnsureAuthenticated(ctx context.Context) error  { return nil }
func (m *mockPortal) Identity() *domain.Identity                     { return &domain.Identity{Username: "john"} }

func (m *mockPortal) Profiles(ctx context.Context) ([]domain.Profile, error) {
	return []domain.Profile{{ID: 100000001, Name: "John Doe"}}, nil
}

func (m *mockPortal) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	return []domain.Subscriber{}, nil
}

func (m *mockPortal) SubscriptionsSummary(ctx context.Context) ([]domain.SubscriptionSummary, error) {
	return []domain.SubscriptionSummary{}, nil
}

func (m *mockPortal) InvoiceInfo(ctx context.Context, profileID int64) (*domain.InvoiceInfo, error) {
	return nil, nil
}

func (m *mockPortal) ProfileInvoices(ctx context.Context, profileID int64) (json.RawMessage, error) {
	if m.invoicesFn != nil {
		return m.invoicesFn(ctx, profileID)
	}
	return json.RawMessage(`{"data":{"totalBalanceAmount":129.41}}`), nil
}

func (m *mockPortal) ProfileTransactions(ctx context.Context, profileID int64) (json.RawMessage, error) {
	if m.transactionsFn != nil {
		return m.transactionsFn(ctx, profileID)
	}
	return json.RawMessage(`{"data":[]}`), nil
}

type stubCollector struct {
	snap *domain.AccountSnapshot
	err  error
}

func (s *stubCollector) Collect(ctx context.Context) (*domain.AccountSnapshot, error) {
	return s.snap, s.err
}

func testSnapshot() *domain.AccountSnapshot {
	return &domain.AccountSnapshot{
		User:                 &domain.Identity{Username: "john"},
		Profiles:             []domain.Profile{{ID: 100000001, Name: "John Doe"}},
		Subscribers:          []domain.Subscriber{},
		SubscriptionsSummary: []domain.SubscriptionSummary{},
		UnpaidBills:          domain.UnpaidBills{ByProfile: map[string]domain.UnpaidBill{}},
		Summary:              domain.Summary{TotalProfiles: 1},
	}
}

// newTestServer builds a handler backed by a refreshed coordinator.
// authSvc may be nil to leave the data endpoints open.
func newTestServer(t *testing.T, portal *mockPortal, authSvc *app.AuthService) http.Handler {
	t.Helper()
	co := app.NewCoordinator(&stubCollector{snap: testSnapshot()}, nil, time.Hour, nil)
	if err := co.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return adapthttp.New(co, portal, authSvc, adapthttp.OIDCConfig{}, time.UTC, nil).Handler()
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, &mockPortal{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHandleSnapshot(t *testing.T) {
	h := newTestServer(t, &mockPortal{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap domain.AccountSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Summary.TotalProfiles != 1 || len(snap.Profiles) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHandleSnapshot_NoneYet(t *testing.T) {
	co := app.NewCoordinator(&stubCollector{err: errors.New("down")}, nil, time.Hour, nil)
	h := adapthttp.New(co, &mockPortal{}, nil, adapthttp.OIDCConfig{}, time.UTC, nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHandleSensors(t *testing.T) {
	h := newTestServer(t, &mockPortal{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sensors", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sensors []domain.Sensor
	if err := json.Unmarshal(w.Body.Bytes(), &sensors); err != nil {
		t.Fatalf("decode sensors: %v", err)
	}
	// 4 account-wide + 1 per-profile sensor for the single profile.
	if len(sensors) != 5 {
		t.Fatalf("expected 5 sensors, got %d", len(sensors))
	}
}

func TestHandleProfileInvoices(t *testing.T) {
	var gotID int64
	portal := &mockPortal{
		invoicesFn: func(_ context.Context, profileID int64) (json.RawMessage, error) {
			gotID = profileID
			return json.RawMessage(`{"data":{"totalBalanceAmount":129.41}}`), nil
		},
	}
	h := newTestServer(t, portal, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles/100000001/invoices", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotID != 100000001 {
		t.Fatalf("expected profile id to reach the portal, got %d", gotID)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("129.41")) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestHandleProfileInvoices_UpstreamFailure(t *testing.T) {
	portal := &mockPortal{
		invoicesFn: func(context.Context, int64) (json.RawMessage, error) {
			return nil, &domain.StatusError{Endpoint: "invoiceInfo", StatusCode: http.StatusInternalServerError}
		},
	}
	h := newTestServer(t, portal, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles/100000001/invoices", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestHandleProfileInvoices_BadID(t *testing.T) {
	h := newTestServer(t, &mockPortal{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles/abc/invoices", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAuth_RequiredWhenConfigured(t *testing.T) {
	authSvc, err := app.NewAuthService("admin", "s3cret", memory.NewSessionRepo())
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	h := newTestServer(t, &mockPortal{}, authSvc)

	// Without a session cookie the data endpoints are closed.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	// Health stays open.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for health, got %d", w.Code)
	}

	// Login, then retry with the issued cookie.
	body := bytes.NewBufferString(`{"username":"admin","password":"s3cret"}`)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d: %s", w.Code, w.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", w.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	authSvc, err := app.NewAuthService("admin", "s3cret", memory.NewSessionRepo())
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	h := newTestServer(t, &mockPortal{}, authSvc)

	body := bytes.NewBufferString(`{"username":"admin","password":"wrong"}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandleRefresh(t *testing.T) {
	h := newTestServer(t, &mockPortal{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Wrong method is rejected by the router.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
