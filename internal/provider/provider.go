// Package provider abstracts the external AI video generation API. The live
// implementation talks to the fal.ai queue; the mock one keeps the whole
// pipeline runnable without credentials.
package provider

import (
	"context"

	"vibevids/internal/domain"
)

// State is the provider-side view of a generation request.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// SubmitRequest carries the immutable request parameters to the provider.
type SubmitRequest struct {
	Prompt  string
	Quality domain.VideoQuality
}

// Status is a single poll observation. ResultURL is only meaningful when
// State is StateSucceeded.
type Status struct {
	State     State
	ResultURL string
}

// Client is the generation provider contract. Submit returns the provider's
// correlation id for the request; transport and auth failures surface as
// domain.ErrProviderUnavailable and are retried by the caller, not here.
// FetchStatus is a single poll attempt: a transport error is
// domain.ErrProviderUnavailable, which is distinct from the provider
// legitimately reporting StateFailed.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	FetchStatus(ctx context.Context, requestID string) (Status, error)
}
