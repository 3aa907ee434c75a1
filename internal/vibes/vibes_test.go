package vibes

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vibevids/internal/domain"
	"vibevids/internal/provider"
	"vibevids/internal/store"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newStoreWithProfile(t *testing.T, userID string, limit int) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	err := m.CreateProfile(context.Background(), &domain.Profile{UserID: userID, StorageLimit: limit})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return m
}

func newPendingVideo(t *testing.T, m *store.Memory, ownerID string) *domain.Video {
	t.Helper()
	v := &domain.Video{OwnerID: ownerID, Prompt: "cat surfing a wave", Quality: domain.VideoQualityMedium}
	if _, err := m.Create(context.Background(), v); err != nil {
		t.Fatalf("create video: %v", err)
	}
	return v
}

// scriptedProvider returns canned submit results and a sequence of poll
// statuses, then repeats the last status forever.
type scriptedProvider struct {
	mu          sync.Mutex
	submitFails int
	submitErr   error // defaults to ErrProviderUnavailable
	submits     int
	requestID   string
	statuses    []provider.Status
	polls       int
}

func (p *scriptedProvider) Submit(ctx context.Context, req provider.SubmitRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submits++
	if p.submits <= p.submitFails {
		if p.submitErr != nil {
			return "", p.submitErr
		}
		return "", domain.ErrProviderUnavailable
	}
	if p.requestID == "" {
		p.requestID = "req-scripted"
	}
	return p.requestID, nil
}

func (p *scriptedProvider) FetchStatus(ctx context.Context, requestID string) (provider.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if len(p.statuses) == 0 {
		return provider.Status{State: provider.StateRunning}, nil
	}
	idx := p.polls - 1
	if idx >= len(p.statuses) {
		idx = len(p.statuses) - 1
	}
	return p.statuses[idx], nil
}

func (p *scriptedProvider) submitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submits
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(videoID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, videoID)
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

type recordingActivator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (a *recordingActivator) ActivateOnFirstVideo(ctx context.Context, refereeID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, refereeID)
	return a.err
}

func (a *recordingActivator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// fakeObjects owns every URL under https://cdn.test/ and records deletions.
type fakeObjects struct {
	mu         sync.Mutex
	deleted    []string
	deleteErr  error
	presignErr error
}

func (f *fakeObjects) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.test/" + key, nil
}

func (f *fakeObjects) Owns(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, "https://cdn.test/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (f *fakeObjects) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
