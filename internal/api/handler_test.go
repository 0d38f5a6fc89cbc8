package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/catering-configurator/internal/catalog"
	"github.com/eugenenazirov/catering-configurator/internal/configurator"
	"github.com/eugenenazirov/catering-configurator/internal/pricing"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func newTestHandler(t *testing.T, opts ...HandlerOption) *Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	mem := catalog.Default()
	cached := catalog.NewCached(mem, catalog.WithLogger(logger))
	engine := pricing.NewEngine(cached, pricing.WithLogger(logger))
	manager := configurator.NewManager(cached, engine,
		configurator.WithQuantum(time.Millisecond),
		configurator.WithLogger(logger),
	)
	t.Cleanup(manager.Close)

	return NewHandler(manager, cached, append([]HandlerOption{WithInvalidator(cached)}, opts...)...)
}

func setupTestRouter(t *testing.T) (http.Handler, *controllableClock) {
	t.Helper()

	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	handler := newTestHandler(t, WithClock(clock.Now))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

type sessionBody struct {
	SessionID string `json:"sessionId"`
	Version   uint64 `json:"version"`
	State     struct {
		Config struct {
			Distribution map[string]int `json:"distribution"`
			GuestCount   int            `json:"guestCount"`
			Packs        map[string]struct {
				Skip bool `json:"skip"`
			} `json:"packs"`
		} `json:"config"`
	} `json:"state"`
}

func createSession(t *testing.T, router http.Handler) sessionBody {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]any{
		"packageId":  catalog.DefaultPackageID,
		"guestCount": 12,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decodeJSON(t, rec, &body)
	if body.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	return body
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	decodeJSON(t, rec, &body)

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestListAndGetPackages(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/packages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var list struct {
		Packages []struct {
			ID         string `json:"id"`
			TotalUnits int    `json:"totalUnits"`
		} `json:"packages"`
	}
	decodeJSON(t, rec, &list)
	if len(list.Packages) < 2 {
		t.Fatalf("expected the seeded packages, got %+v", list.Packages)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/packages/"+catalog.DefaultPackageID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/packages/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown package, got %d", rec.Code)
	}
}

func TestInvalidatePackageDropsCache(t *testing.T) {
	inv := &countingInvalidator{}
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	handler := newTestHandler(t, WithClock(clock.Now), WithInvalidator(inv))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	clock.Advance(time.Hour)
	rec := doJSON(t, router, http.MethodPost, "/api/packages/"+catalog.DefaultPackageID+"/invalidate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		PackageID     string    `json:"packageId"`
		Invalidated   bool      `json:"invalidated"`
		InvalidatedAt time.Time `json:"invalidatedAt"`
	}
	decodeJSON(t, rec, &body)
	if !body.Invalidated || body.PackageID != catalog.DefaultPackageID {
		t.Fatalf("unexpected response %+v", body)
	}
	if !body.InvalidatedAt.Equal(clock.Now()) {
		t.Fatalf("expected invalidatedAt %s, got %s", clock.Now(), body.InvalidatedAt)
	}
	if inv.calls != 1 {
		t.Fatalf("expected one invalidation, got %d", inv.calls)
	}
}

func TestCreateSession(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := createSession(t, router)
	if body.State.Config.GuestCount != 12 {
		t.Fatalf("expected guest count 12, got %d", body.State.Config.GuestCount)
	}
	if got := body.State.Config.Distribution["boneless"]; got != 30 {
		t.Fatalf("expected boneless 30, got %d", got)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+body.SessionID+"/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestCreateSessionWithTargets(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]any{
		"packageId": catalog.DefaultPackageID,
		"targets":   map[string]any{"traditional": 80, "plantBased": 20},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decodeJSON(t, rec, &body)

	dist := body.State.Config.Distribution
	if dist["boneless"]+dist["bone_in"]+dist["cauliflower"] != 60 {
		t.Fatalf("expected the split to cover 60 units, got %v", dist)
	}
	if dist["cauliflower"] != 12 {
		t.Fatalf("expected 12 plant based units, got %v", dist)
	}
}

func TestCreateSessionValidatesInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name    string
		payload any
		status  int
	}{
		{name: "missing package", payload: map[string]any{}, status: http.StatusBadRequest},
		{name: "unknown package", payload: map[string]any{"packageId": "missing"}, status: http.StatusNotFound},
		{
			name:    "targets over 100",
			payload: map[string]any{"packageId": catalog.DefaultPackageID, "targets": map[string]any{"traditional": 90, "plantBased": 30}},
			status:  http.StatusBadRequest,
		},
		{name: "malformed", payload: "not an object", status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/sessions", tc.payload)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPatchState(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createSession(t, router)
	base := "/api/sessions/" + created.SessionID + "/state"

	rec := doJSON(t, router, http.MethodPatch, base, map[string]any{"path": "config.guestCount", "value": 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decodeJSON(t, rec, &body)
	if body.State.Config.GuestCount != 40 {
		t.Fatalf("expected guest count 40, got %d", body.State.Config.GuestCount)
	}
	if body.Version <= created.Version {
		t.Fatalf("expected version to advance past %d, got %d", created.Version, body.Version)
	}

	tests := []struct {
		name    string
		payload any
		status  int
	}{
		{name: "baseline is read-only", payload: map[string]any{"path": "config.baseline.traditionalTotal", "value": 1}, status: http.StatusForbidden},
		{name: "package is read-only", payload: map[string]any{"path": "package.basePrice", "value": 1}, status: http.StatusForbidden},
		{name: "wildcard path", payload: map[string]any{"path": "config.*", "value": 1}, status: http.StatusBadRequest},
		{name: "missing value", payload: map[string]any{"path": "config.guestCount"}, status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPatch, base, tc.payload)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, path := range []string{"state", "pricing", "modifications", "breakdown"} {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/missing/"+path, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", path, rec.Code)
		}
	}
	rec := doJSON(t, router, http.MethodDelete, "/api/sessions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on delete, got %d", rec.Code)
	}
}

func TestPutSplitAndModifications(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createSession(t, router)
	base := "/api/sessions/" + created.SessionID

	rec := doJSON(t, router, http.MethodPut, base+"/wings/split", map[string]any{"boneless": 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decodeJSON(t, rec, &body)
	if body.State.Config.Distribution["boneless"] != 40 || body.State.Config.Distribution["bone_in"] != 20 {
		t.Fatalf("expected a 40/20 split, got %v", body.State.Config.Distribution)
	}

	rec = doJSON(t, router, http.MethodGet, base+"/modifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var mods map[string]struct {
		IsModified bool   `json:"isModified"`
		Details    string `json:"details"`
	}
	decodeJSON(t, rec, &mods)
	if !mods["wings"].IsModified {
		t.Fatalf("expected wings to be modified, got %+v", mods["wings"])
	}
	if mods["dips"].IsModified {
		t.Fatalf("expected dips untouched, got %+v", mods["dips"])
	}

	rec = doJSON(t, router, http.MethodPut, base+"/wings/split", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty split, got %d", rec.Code)
	}
}

func TestPutSplitWithBothFieldsIsOneWrite(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createSession(t, router)

	rec := doJSON(t, router, http.MethodPut, "/api/sessions/"+created.SessionID+"/wings/split",
		map[string]any{"plantBased": 20, "boneless": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decodeJSON(t, rec, &body)
	if body.Version != created.Version+1 {
		t.Fatalf("expected a single commit, version went %d -> %d", created.Version, body.Version)
	}
	dist := body.State.Config.Distribution
	if dist["boneless"] != 10 || dist["bone_in"] != 30 || dist["cauliflower"] != 20 {
		t.Fatalf("unexpected distribution %v", dist)
	}
}

func TestSkipPackCreditsPricing(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createSession(t, router)
	base := "/api/sessions/" + created.SessionID

	rec := doJSON(t, router, http.MethodPut, base+"/packs/dips", map[string]any{"skip": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body sessionBody
	decodeJSON(t, rec, &body)
	if !body.State.Config.Packs["dips"].Skip {
		t.Fatalf("expected dips to be skipped")
	}

	rec = doJSON(t, router, http.MethodGet, base+"/pricing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var priced struct {
		Totals struct {
			Discounts  decimal.Decimal `json:"discounts"`
			Subtotal   decimal.Decimal `json:"subtotal"`
			GuestCount int             `json:"guestCount"`
		} `json:"totals"`
	}
	decodeJSON(t, rec, &priced)
	if !priced.Totals.Discounts.Equal(decimal.RequireFromString("11.25")) {
		t.Fatalf("expected discounts 11.25, got %s", priced.Totals.Discounts)
	}
	if !priced.Totals.Subtotal.Equal(decimal.RequireFromString("113.75")) {
		t.Fatalf("expected subtotal 113.75, got %s", priced.Totals.Subtotal)
	}
	if priced.Totals.GuestCount != 12 {
		t.Fatalf("expected guest count 12, got %d", priced.Totals.GuestCount)
	}

	rec = doJSON(t, router, http.MethodPut, base+"/packs/wings", map[string]any{"skip": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a non-pack category, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPut, base+"/packs/nachos", map[string]any{"skip": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for an unknown category, got %d", rec.Code)
	}
}

func TestAddOnsAppearInBreakdown(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createSession(t, router)
	base := "/api/sessions/" + created.SessionID

	rec := doJSON(t, router, http.MethodPut, base+"/addons/desserts", map[string]any{
		"addOns": []map[string]any{{"id": "brownie", "name": "Fudge Brownie", "count": 4}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, base+"/breakdown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var bd map[string]struct {
		Changes *struct {
			Lines []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
				AddOn bool   `json:"addOn"`
			} `json:"lines"`
		} `json:"changes"`
	}
	decodeJSON(t, rec, &bd)
	desserts, ok := bd["desserts"]
	if !ok || desserts.Changes == nil || len(desserts.Changes.Lines) != 1 {
		t.Fatalf("expected a single dessert add-on line, got %+v", bd["desserts"])
	}
	if line := desserts.Changes.Lines[0]; !line.AddOn || line.Count != 4 {
		t.Fatalf("unexpected add-on line %+v", line)
	}
}

func TestDeleteSession(t *testing.T) {
	router, _ := setupTestRouter(t)
	created := createSession(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/sessions/"+created.SessionID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+created.SessionID+"/state", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", rec.Code)
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}
