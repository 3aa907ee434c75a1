package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mock simulates a generation provider for environments without credentials.
// Every submission succeeds after a fixed latency and produces a stand-in
// artifact URL.
type Mock struct {
	// Latency is how long a request stays running after submission.
	Latency time.Duration

	mu   sync.Mutex
	jobs map[string]time.Time // request id -> submission time
}

// NewMock returns a mock provider with the given simulated render latency.
func NewMock(latency time.Duration) *Mock {
	return &Mock{Latency: latency, jobs: make(map[string]time.Time)}
}

func (m *Mock) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "mock-" + uuid.NewString()
	m.mu.Lock()
	m.jobs[id] = time.Now()
	m.mu.Unlock()
	return id, nil
}

func (m *Mock) FetchStatus(ctx context.Context, requestID string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	m.mu.Lock()
	submitted, ok := m.jobs[requestID]
	m.mu.Unlock()
	if !ok {
		// Unknown ids resolve as still running; the poll ceiling bounds them.
		return Status{State: StateRunning}, nil
	}
	if time.Since(submitted) < m.Latency {
		return Status{State: StateRunning}, nil
	}
	return Status{
		State:     StateSucceeded,
		ResultURL: fmt.Sprintf("https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerJoyrides.mp4#%s", requestID),
	}, nil
}

var _ Client = (*Mock)(nil)
