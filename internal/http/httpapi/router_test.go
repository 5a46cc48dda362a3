package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lumina/internal/catalog"
	"lumina/internal/domain"
	"lumina/internal/editor"
	"lumina/internal/http/handlers"
	"lumina/internal/metrics"
	"lumina/internal/middleware"
	"lumina/internal/poller"
)

type fixedQuota struct{}

func (fixedQuota) Get(context.Context, string) (domain.UsageQuota, error) {
	return domain.NewUsageQuota(1, 3, domain.PlanFree), nil
}

func (fixedQuota) Consume(context.Context, string) (domain.UsageQuota, error) {
	return domain.NewUsageQuota(2, 3, domain.PlanFree), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	p, err := poller.New(poller.Options{
		Checker: poller.CheckerFunc(func(context.Context, string) poller.Result {
			return poller.Result{State: poller.Pending}
		}),
		Wait: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}
	cat := catalog.Static(catalog.Default())
	m, err := editor.NewManager(editor.Config{Catalog: cat, Poller: p})
	if err != nil {
		t.Fatalf("editor.NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	reg := metrics.New()
	app := &handlers.App{Editor: m, Quota: fixedQuota{}, Catalog: cat, Metrics: reg}
	return NewRouter(app, Options{
		JWTSecret:      "secret",
		AllowedOrigins: []string{"*"},
		DefaultLocale:  "fr",
		Metrics:        reg.Handler(),
	})
}

func TestRouterPublicRoutes(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/v1/healthz", "/v1/openapi.json", "/v1/docs", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/usage", "/v1/effects", "/api/upload-auth"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token = %d", path, rec.Code)
		}
	}
}

func TestRouterAuthenticatedUsage(t *testing.T) {
	r := newTestRouter(t)
	token, err := middleware.SignJWT("secret", middleware.TokenClaims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/usage = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	if rec.Header().Get("Content-Language") != "fr" {
		t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/editor/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/editor/sessions = %d", rec.Code)
	}
}
