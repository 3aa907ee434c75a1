package domain

import "time"

// VideoStatus enumerates the generation lifecycle states.
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusReady || s == VideoStatusFailed
}

// VideoQuality enumerates supported render qualities.
type VideoQuality string

const (
	VideoQualityMedium VideoQuality = "medium"
	VideoQualityHQ     VideoQuality = "hq"
)

// ValidQuality reports whether q is a quality the provider accepts.
func ValidQuality(q VideoQuality) bool {
	return q == VideoQualityMedium || q == VideoQualityHQ
}

// Video is one user-requested generation attempt, tracked end-to-end.
// ProviderRequestID correlates later webhook and poll results back to the
// record; it is set exactly once, when the provider accepts the submission.
type Video struct {
	ID      string
	OwnerID string

	Title   string
	Prompt  string
	Quality VideoQuality

	Status            VideoStatus
	ProviderRequestID string

	VideoURL     string
	ThumbnailURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminalFields carries the values written alongside a terminal transition.
// Empty strings leave the stored value untouched.
type TerminalFields struct {
	VideoURL     string
	ThumbnailURL string
}
