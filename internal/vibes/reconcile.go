package vibes

import (
	"context"
	"errors"

	"vibevids/internal/domain"
	"vibevids/internal/infra"
)

// Outcome is a terminal result reported for a video, by either the provider
// webhook or the polling loop.
type Outcome struct {
	Succeeded    bool
	ResultURL    string
	ThumbnailURL string
}

// Reconciler applies terminal outcomes to videos at most once. Both the
// webhook path and the polling loop terminate here, so whichever arrives
// first wins and the loser's call degrades to a silent no-op. There is no
// preference between the two paths: the conditional update is the only
// arbiter, and the losing payload is discarded.
type Reconciler struct {
	videos domain.VideoStore
	logger infra.Logger
}

// NewReconciler builds a reconciler over the given video store.
func NewReconciler(videos domain.VideoStore, logger infra.Logger) *Reconciler {
	return &Reconciler{videos: videos, logger: logger}
}

// reconcilableStates are the only states a terminal transition may leave.
var reconcilableStates = []domain.VideoStatus{
	domain.VideoStatusPending,
	domain.VideoStatusProcessing,
}

// Reconcile applies the outcome and reports whether this call was the one
// that landed the terminal transition. A video deleted mid-flight is a
// logged no-op, not an error.
func (r *Reconciler) Reconcile(ctx context.Context, videoID string, outcome Outcome) bool {
	to := domain.VideoStatusFailed
	fields := domain.TerminalFields{}
	if outcome.Succeeded {
		to = domain.VideoStatusReady
		fields.VideoURL = outcome.ResultURL
		fields.ThumbnailURL = outcome.ThumbnailURL
	}

	applied, err := r.videos.UpdateStatusIf(ctx, videoID, reconcilableStates, to, fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Str("video_id", videoID).Msg("reconcile: video gone, dropping outcome")
			return false
		}
		r.logger.Error().Err(err).Str("video_id", videoID).Msg("reconcile: conditional update failed")
		return false
	}
	if !applied {
		r.logger.Debug().Str("video_id", videoID).Str("status", string(to)).Msg("reconcile: already terminal, no-op")
		return false
	}
	r.logger.Info().Str("video_id", videoID).Str("status", string(to)).Msg("reconcile: terminal transition applied")
	return true
}
