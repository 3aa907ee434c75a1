package provider

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMockRunsThenSucceeds(t *testing.T) {
	ctx := context.Background()
	m := NewMock(50 * time.Millisecond)

	id, err := m.Submit(ctx, SubmitRequest{Prompt: "cat surfing"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(id, "mock-") {
		t.Fatalf("request id = %q", id)
	}

	status, err := m.FetchStatus(ctx, id)
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if status.State != StateRunning {
		t.Fatalf("state = %q before latency elapsed, want running", status.State)
	}

	time.Sleep(60 * time.Millisecond)
	status, err = m.FetchStatus(ctx, id)
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if status.State != StateSucceeded {
		t.Fatalf("state = %q after latency elapsed, want succeeded", status.State)
	}
	if status.ResultURL == "" {
		t.Fatal("succeeded without result url")
	}
}

func TestMockUnknownRequestStaysRunning(t *testing.T) {
	m := NewMock(0)
	status, err := m.FetchStatus(context.Background(), "never-submitted")
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if status.State != StateRunning {
		t.Fatalf("state = %q, want running", status.State)
	}
}
