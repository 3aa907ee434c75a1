package domain

import "context"

// VideoStore defines persistence for video records. The status field is only
// ever mutated through UpdateStatusIf, never via unconditional overwrite;
// that conditional update is what makes the webhook/poll race safe.
type VideoStore interface {
	// Create persists a new pending video and increments the owner's storage
	// counter in the same atomic unit. It returns the owner's video count
	// after the insert, which drives referral activation. Fails with
	// ErrProfileNotFound or ErrQuotaExceeded.
	Create(ctx context.Context, video *Video) (int, error)

	// Get returns the video only when it exists and belongs to ownerID.
	Get(ctx context.Context, id, ownerID string) (*Video, error)

	// GetAny returns the video regardless of owner. For internal callers
	// (worker, reconciler) only; user-facing reads go through Get.
	GetAny(ctx context.Context, id string) (*Video, error)

	// GetByProviderRequestID resolves a provider correlation id to a video.
	GetByProviderRequestID(ctx context.Context, requestID string) (*Video, error)

	// SetProviderRequestID records the provider correlation id. The id is
	// immutable once set.
	SetProviderRequestID(ctx context.Context, id, requestID string) error

	// UpdateStatusIf applies status and fields only when the current status
	// is one of from, and reports whether the update was applied.
	UpdateStatusIf(ctx context.Context, id string, from []VideoStatus, to VideoStatus, fields TerminalFields) (bool, error)

	// Delete removes the record and decrements the owner's storage counter
	// in the same atomic unit. Fails with ErrNotFound when the video is
	// absent or owned by someone else.
	Delete(ctx context.Context, id, ownerID string) error

	// ListByOwner returns the owner's videos, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Video, error)
}

// ProfileStore defines access to per-user quota and referral state. Method
// names carry the entity so a single store type can implement every contract.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfileByReferralCode(ctx context.Context, code string) (*Profile, error)
}

// ReferralStore defines persistence for referral records.
type ReferralStore interface {
	CreateReferral(ctx context.Context, referral *Referral) error
	GetReferralByReferee(ctx context.Context, refereeID string) (*Referral, error)
	// MarkReferralSuccessful flips the referral to successful and reports
	// whether this call was the one that did it.
	MarkReferralSuccessful(ctx context.Context, id string) (bool, error)
	ReferralStatsForReferrer(ctx context.Context, referrerID string) (successful, total int, err error)
}
