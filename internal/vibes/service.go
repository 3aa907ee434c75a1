// Package vibes implements the video generation job lifecycle: creation with
// quota accounting, dispatch to a per-job worker, dual-path completion
// (webhook vs poll) reconciled exactly once, and deletion with storage
// cleanup.
package vibes

import (
	"context"
	"errors"
	"strings"
	"time"

	"vibevids/internal/domain"
	"vibevids/internal/infra"
	"vibevids/internal/storage"
)

// presignExpiry is how long signed artifact URLs in API responses stay valid.
const presignExpiry = time.Hour

// JobDispatcher hands a freshly created video to its background worker.
type JobDispatcher interface {
	Dispatch(videoID string)
}

// ReferralActivator is the side-effect fired when an owner creates their
// first video.
type ReferralActivator interface {
	ActivateOnFirstVideo(ctx context.Context, refereeID string) error
}

// CreateInput carries the user-supplied generation parameters.
type CreateInput struct {
	Title   string
	Prompt  string
	Quality domain.VideoQuality
}

// WebhookPayload is the provider's completion ping, matched to a video by
// the correlation id the provider assigned at submission.
type WebhookPayload struct {
	RequestID string
	Status    string
	Output    string
}

// Service is the orchestrator behind the HTTP layer. All collaborators are
// injected; objects may be nil when no object store is configured.
type Service struct {
	videos     domain.VideoStore
	dispatcher JobDispatcher
	reconciler *Reconciler
	referrals  ReferralActivator
	objects    storage.ObjectStore
	logger     infra.Logger
}

// NewService wires the service to its collaborators. referrals and objects
// may be nil.
func NewService(videos domain.VideoStore, dispatcher JobDispatcher, reconciler *Reconciler, referrals ReferralActivator, objects storage.ObjectStore, logger infra.Logger) *Service {
	return &Service{
		videos:     videos,
		dispatcher: dispatcher,
		reconciler: reconciler,
		referrals:  referrals,
		objects:    objects,
		logger:     logger,
	}
}

// InitiateGeneration validates the input, persists a pending video (with the
// quota increment in the same atomic unit) and dispatches the background
// worker. When this is the owner's first video the referral activation
// callback fires best-effort: its failure is logged, never propagated.
func (s *Service) InitiateGeneration(ctx context.Context, ownerID string, in CreateInput) (*domain.Video, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if in.Quality == "" {
		in.Quality = domain.VideoQualityMedium
	}
	if !domain.ValidQuality(in.Quality) {
		return nil, domain.ErrInvalidPrompt
	}

	video := &domain.Video{
		OwnerID: ownerID,
		Title:   in.Title,
		Prompt:  in.Prompt,
		Quality: in.Quality,
	}
	count, err := s.videos.Create(ctx, video)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("video_id", video.ID).Str("owner_id", ownerID).Msg("vibes: generation initiated")

	if count == 1 && s.referrals != nil {
		if err := s.referrals.ActivateOnFirstVideo(ctx, ownerID); err != nil {
			s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("vibes: referral activation failed")
		}
	}

	s.dispatcher.Dispatch(video.ID)
	return video, nil
}

// GetVideo returns the owner's video with stored artifact URLs presigned.
func (s *Service) GetVideo(ctx context.Context, id, ownerID string) (*domain.Video, error) {
	video, err := s.videos.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	s.presentURLs(ctx, video)
	return video, nil
}

// ListVideos returns the owner's videos, newest first, with stored artifact
// URLs presigned.
func (s *Service) ListVideos(ctx context.Context, ownerID string) ([]domain.Video, error) {
	videos, err := s.videos.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		s.presentURLs(ctx, &videos[i])
	}
	return videos, nil
}

// HandleWebhook applies a provider completion ping. Unknown correlation ids
// are dropped silently: the provider retries on non-2xx, and erroring on ids
// we no longer know (e.g. after a delete) would retry forever. Errors are
// absorbed for the same reason.
func (s *Service) HandleWebhook(ctx context.Context, payload WebhookPayload) {
	if payload.RequestID == "" {
		return
	}
	video, err := s.videos.GetByProviderRequestID(ctx, payload.RequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug().Str("request_id", payload.RequestID).Msg("vibes: webhook for unknown request id, dropping")
		} else {
			s.logger.Error().Err(err).Str("request_id", payload.RequestID).Msg("vibes: webhook lookup failed")
		}
		return
	}

	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "succeeded", "completed", "ok":
		s.reconciler.Reconcile(ctx, video.ID, Outcome{Succeeded: true, ResultURL: payload.Output})
	case "failed", "error":
		s.reconciler.Reconcile(ctx, video.ID, Outcome{Succeeded: false})
	default:
		s.logger.Debug().Str("request_id", payload.RequestID).Str("status", payload.Status).Msg("vibes: webhook with non-terminal status, ignoring")
	}
}

// DeleteVideo removes the owner's video. Artifacts living in our object
// store are deleted first, best-effort: a storage outage must not leave the
// record undeletable. Record removal and quota decrement are atomic in the
// store.
func (s *Service) DeleteVideo(ctx context.Context, id, ownerID string) error {
	video, err := s.videos.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if s.objects != nil {
		for _, rawURL := range []string{video.VideoURL, video.ThumbnailURL} {
			key, ok := s.objects.Owns(rawURL)
			if !ok {
				continue
			}
			if err := s.objects.Delete(ctx, key); err != nil {
				s.logger.Error().Err(err).Str("video_id", id).Str("key", key).Msg("vibes: artifact cleanup failed")
				continue
			}
			s.logger.Info().Str("video_id", id).Str("key", key).Msg("vibes: artifact deleted from storage")
		}
	}

	if err := s.videos.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info().Str("video_id", id).Str("owner_id", ownerID).Msg("vibes: video deleted")
	return nil
}

// presentURLs swaps stored artifact URLs for presigned ones. Failures fall
// back to the stored URL; reads must not break on a storage hiccup.
func (s *Service) presentURLs(ctx context.Context, video *domain.Video) {
	if s.objects == nil {
		return
	}
	for _, target := range []*string{&video.VideoURL, &video.ThumbnailURL} {
		key, ok := s.objects.Owns(*target)
		if !ok {
			continue
		}
		signed, err := s.objects.Presign(ctx, key, presignExpiry)
		if err != nil {
			s.logger.Warn().Err(err).Str("video_id", video.ID).Str("key", key).Msg("vibes: presign failed, returning stored url")
			continue
		}
		*target = signed
	}
}
