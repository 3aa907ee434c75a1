package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"vibevids/internal/domain"
	"vibevids/internal/middleware"
	"vibevids/internal/referrals"
	"vibevids/internal/store"
	"vibevids/internal/vibes"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(videoID string) {}

type testEnv struct {
	app    *App
	store  *store.Memory
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m := store.NewMemory()
	logger := zerolog.Nop()
	reconciler := vibes.NewReconciler(m, logger)
	referralSvc := referrals.NewService(m, m, logger)
	vibeSvc := vibes.NewService(m, noopDispatcher{}, reconciler, referralSvc, nil, logger)
	app := NewApp(vibeSvc, referralSvc, logger)

	r := chi.NewRouter()
	r.Post("/v1/vibes/generate", app.VibesGenerate)
	r.Get("/v1/vibes", app.VibesList)
	r.Get("/v1/vibes/{video_id}", app.VibesGet)
	r.Delete("/v1/vibes/{video_id}", app.VibesDelete)
	r.Post("/v1/vibes/webhook", app.VibesWebhook)
	r.Get("/v1/referrals/stats", app.ReferralStats)

	return &testEnv{app: app, store: m, router: r}
}

func (e *testEnv) seedProfile(t *testing.T, userID string, limit int) {
	t.Helper()
	err := e.store.CreateProfile(context.Background(), &domain.Profile{
		UserID:       userID,
		StorageLimit: limit,
		ReferralCode: "CODE123",
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %q", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestVibesGenerate(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)

	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"title":"surf","prompt":"cat surfing a wave","quality":"medium"}`, "user-1")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "pending" {
		t.Fatalf("status field = %v, want pending", body["status"])
	}
	if body["id"] == "" || body["id"] == nil {
		t.Fatal("missing video id")
	}
}

func TestVibesGenerateUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"x"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestVibesGenerateBadPayload(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)

	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{not json`, "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"  "}`, "user-1")
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "bad_request" {
		t.Fatalf("blank prompt: status = %d code = %q", rec.Code, errorCode(t, rec))
	}
}

func TestVibesGenerateMissingProfile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"x"}`, "ghost")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "profile_not_found" {
		t.Fatalf("status = %d code = %q, want 404 profile_not_found", rec.Code, errorCode(t, rec))
	}
}

func TestVibesGenerateQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 1)

	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"first"}`, "user-1")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first create: %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"second"}`, "user-1")
	if rec.Code != http.StatusTooManyRequests || errorCode(t, rec) != "quota_exceeded" {
		t.Fatalf("status = %d code = %q, want 429 quota_exceeded", rec.Code, errorCode(t, rec))
	}
}

func TestVibesGetAndList(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)
	env.seedProfile(t, "user-2", 5)

	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"cat surfing"}`, "user-1")
	videoID, _ := decodeBody(t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/v1/vibes/"+videoID, "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Another user's video is invisible.
	rec = env.do(t, http.MethodGet, "/v1/vibes/"+videoID, "", "user-2")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign get status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/vibes", "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	items, ok := decodeBody(t, rec)["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v, want one video", items)
	}

	rec = env.do(t, http.MethodGet, "/v1/vibes", "", "user-2")
	items, _ = decodeBody(t, rec)["items"].([]any)
	if len(items) != 0 {
		t.Fatalf("foreign list has %d items, want 0", len(items))
	}
}

func TestVibesDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)

	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"cat surfing"}`, "user-1")
	videoID, _ := decodeBody(t, rec)["id"].(string)

	rec = env.do(t, http.MethodDelete, "/v1/vibes/"+videoID, "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	if deleted, _ := decodeBody(t, rec)["deleted"].(bool); !deleted {
		t.Fatal("deleted flag not set")
	}

	rec = env.do(t, http.MethodGet, "/v1/vibes/"+videoID, "", "user-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/v1/vibes/"+videoID, "", "user-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
}

func TestVibesWebhookAlwaysAcknowledges(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)

	for _, body := range []string{`{broken`, `{"request_id":"unknown","status":"succeeded"}`, `{}`} {
		rec := env.do(t, http.MethodPost, "/v1/vibes/webhook", body, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook %q status = %d, want 200", body, rec.Code)
		}
	}
}

func TestVibesWebhookCompletesJob(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)

	rec := env.do(t, http.MethodPost, "/v1/vibes/generate", `{"prompt":"cat surfing"}`, "user-1")
	videoID, _ := decodeBody(t, rec)["id"].(string)
	if err := env.store.SetProviderRequestID(context.Background(), videoID, "req-1"); err != nil {
		t.Fatalf("set request id: %v", err)
	}

	// The provider may send the correlation id as "id" instead of "request_id".
	rec = env.do(t, http.MethodPost, "/v1/vibes/webhook", `{"id":"req-1","status":"COMPLETED","output":"https://v.fal.media/out.mp4"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/vibes/"+videoID, "", "user-1")
	body := decodeBody(t, rec)
	if body["status"] != "ready" {
		t.Fatalf("status = %v, want ready", body["status"])
	}
	if body["video_url"] != "https://v.fal.media/out.mp4" {
		t.Fatalf("video_url = %v", body["video_url"])
	}
}

func TestReferralStatsHandler(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "user-1", 5)

	rec := env.do(t, http.MethodGet, "/v1/referrals/stats", "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["referral_code"] != "CODE123" {
		t.Fatalf("referral_code = %v", body["referral_code"])
	}
	tiers, ok := body["tiers"].(map[string]any)
	if !ok {
		t.Fatalf("tiers missing: %v", body)
	}
	if _, ok := tiers["tier_1"]; !ok {
		t.Fatal("tier_1 missing")
	}

	rec = env.do(t, http.MethodGet, "/v1/referrals/stats", "", "ghost")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing profile status = %d, want 404", rec.Code)
	}
}
