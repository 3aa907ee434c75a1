package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vibevids/internal/domain"
	"vibevids/internal/http/handlers"
	"vibevids/internal/infra"
	"vibevids/internal/middleware"
	"vibevids/internal/referrals"
	"vibevids/internal/store"
	"vibevids/internal/vibes"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(videoID string) {}

func newTestRouter(t *testing.T) (stdhttp.Handler, *store.Memory) {
	t.Helper()
	cfg := &infra.Config{
		AppEnv:          "test",
		JWTSecret:       "router-test-secret",
		RateLimitPerMin: 1000,
	}
	m := store.NewMemory()
	logger := zerolog.Nop()
	reconciler := vibes.NewReconciler(m, logger)
	referralSvc := referrals.NewService(m, m, logger)
	vibeSvc := vibes.NewService(m, noopDispatcher{}, reconciler, referralSvc, nil, logger)
	app := handlers.NewApp(vibeSvc, referralSvc, logger)
	return NewRouter(app, cfg, logger), m
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.SignJWT("router-test-secret", middleware.TokenClaims{
		Sub: userID,
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func TestRouterHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(stdhttp.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, tc := range []struct{ method, path string }{
		{stdhttp.MethodPost, "/v1/vibes/generate"},
		{stdhttp.MethodGet, "/v1/vibes/"},
		{stdhttp.MethodGet, "/v1/referrals/stats"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != stdhttp.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRouterWebhookNeedsNoAuth(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(stdhttp.MethodPost, "/v1/vibes/webhook", strings.NewReader(`{"request_id":"unknown","status":"succeeded"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouterAuthenticatedGenerate(t *testing.T) {
	router, m := newTestRouter(t)
	err := m.CreateProfile(context.Background(), &domain.Profile{UserID: "user-1", StorageLimit: 5})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	req := httptest.NewRequest(stdhttp.MethodPost, "/v1/vibes/generate", strings.NewReader(`{"prompt":"cat surfing"}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}
