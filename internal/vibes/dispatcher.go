package vibes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibevids/internal/domain"
	"vibevids/internal/infra"
	"vibevids/internal/provider"
	"vibevids/internal/storage"
)

// thumbnail used for mirrored artifacts until thumbnail generation exists.
const defaultThumbnailURL = "https://images.unsplash.com/photo-1550745165-9bc0b252726f?auto=format&fit=crop&q=80"

// DispatcherOptions bounds the provider interaction per job.
type DispatcherOptions struct {
	SubmitMaxAttempts int
	SubmitBackoffBase time.Duration
	PollInterval      time.Duration
	PollMaxAttempts   int
}

func (o *DispatcherOptions) applyDefaults() {
	if o.SubmitMaxAttempts < 1 {
		o.SubmitMaxAttempts = 3
	}
	if o.SubmitBackoffBase <= 0 {
		o.SubmitBackoffBase = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.PollMaxAttempts < 1 {
		o.PollMaxAttempts = 120
	}
}

// Dispatcher runs one background worker per video: submit to the provider
// with bounded retries, record the correlation id, then poll until a
// terminal provider state or the poll ceiling. All terminal transitions go
// through the shared Reconciler, so a webhook arriving mid-poll makes the
// next poll outcome a no-op and vice versa.
type Dispatcher struct {
	videos     domain.VideoStore
	provider   provider.Client
	objects    storage.ObjectStore // nil when no object store is configured
	reconciler *Reconciler
	logger     infra.Logger
	opts       DispatcherOptions
	httpClient *http.Client

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher wires a dispatcher. objects may be nil; provider result URLs
// are then stored as-is instead of being mirrored into our own storage.
func NewDispatcher(videos domain.VideoStore, client provider.Client, objects storage.ObjectStore, reconciler *Reconciler, logger infra.Logger, opts DispatcherOptions) *Dispatcher {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		videos:     videos,
		provider:   client,
		objects:    objects,
		reconciler: reconciler,
		logger:     logger,
		opts:       opts,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Dispatch starts the background worker for the video and returns
// immediately. Errors inside the worker never reach the request path; they
// resolve into a terminal failed status or a logged poll timeout.
func (d *Dispatcher) Dispatch(videoID string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(videoID)
	}()
}

// Shutdown cancels all in-flight workers and waits for them to exit, up to
// the context deadline.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(videoID string) {
	ctx := d.baseCtx
	log := d.logger.With().Str("video_id", videoID).Logger()

	applied, err := d.videos.UpdateStatusIf(ctx, videoID, []domain.VideoStatus{domain.VideoStatusPending}, domain.VideoStatusProcessing, domain.TerminalFields{})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Msg("worker: video deleted before processing, aborting")
			return
		}
		log.Error().Err(err).Msg("worker: failed to mark processing")
		return
	}
	if !applied {
		log.Debug().Msg("worker: video no longer pending, aborting")
		return
	}

	requestID, ok := d.submitWithRetry(ctx, log, videoID)
	if !ok {
		return
	}

	if err := d.videos.SetProviderRequestID(ctx, videoID, requestID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Msg("worker: video deleted after submission, abandoning")
			return
		}
		// Polling can still finish the job; only the webhook path is lost.
		log.Error().Err(err).Str("request_id", requestID).Msg("worker: failed to store correlation id")
	}

	d.poll(ctx, log, videoID, requestID)
}

// submitWithRetry submits the prompt with bounded exponential backoff. On
// exhaustion it reconciles the job failed and reports false.
func (d *Dispatcher) submitWithRetry(ctx context.Context, log infra.Logger, videoID string) (string, bool) {
	video, err := d.videos.GetAny(ctx, videoID)
	if err != nil {
		log.Debug().Err(err).Msg("worker: video unavailable for submission")
		return "", false
	}

	backoff := d.opts.SubmitBackoffBase
	for attempt := 1; ; attempt++ {
		requestID, err := d.provider.Submit(ctx, provider.SubmitRequest{
			Prompt:  video.Prompt,
			Quality: video.Quality,
		})
		if err == nil {
			log.Info().Str("request_id", requestID).Int("attempt", attempt).Msg("worker: submission accepted")
			return requestID, true
		}
		if ctx.Err() != nil {
			log.Warn().Msg("worker: shutdown during submission")
			return "", false
		}
		if errors.Is(err, domain.ErrProviderRejected) {
			// The provider refused the request itself; retrying cannot help.
			log.Error().Err(err).Int("attempt", attempt).Msg("worker: submission rejected")
			d.reconciler.Reconcile(ctx, videoID, Outcome{Succeeded: false})
			return "", false
		}
		if attempt >= d.opts.SubmitMaxAttempts {
			log.Error().Err(err).Int("attempts", attempt).Msg("worker: submission retries exhausted")
			d.reconciler.Reconcile(ctx, videoID, Outcome{Succeeded: false})
			return "", false
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("worker: submission failed, retrying")
		if !sleep(ctx, backoff) {
			return "", false
		}
		backoff *= 2
	}
}

func (d *Dispatcher) poll(ctx context.Context, log infra.Logger, videoID, requestID string) {
	for attempt := 1; attempt <= d.opts.PollMaxAttempts; attempt++ {
		if !sleep(ctx, d.opts.PollInterval) {
			log.Warn().Msg("worker: shutdown during polling")
			return
		}

		status, err := d.provider.FetchStatus(ctx, requestID)
		if err != nil {
			// Transport errors are transient; the attempt ceiling bounds them.
			log.Warn().Err(err).Int("attempt", attempt).Msg("worker: poll failed, will retry")
			continue
		}

		switch status.State {
		case provider.StateSucceeded:
			d.reconciler.Reconcile(ctx, videoID, d.successOutcome(ctx, log, status.ResultURL))
			return
		case provider.StateFailed:
			log.Info().Str("request_id", requestID).Msg("worker: provider reported failure")
			d.reconciler.Reconcile(ctx, videoID, Outcome{Succeeded: false})
			return
		default:
			log.Debug().Str("state", string(status.State)).Int("attempt", attempt).Msg("worker: still rendering")
		}
	}

	// Deliberately not forced to failed: a late webhook may still land the
	// terminal transition.
	log.Warn().Str("request_id", requestID).Int("max_attempts", d.opts.PollMaxAttempts).Msg("worker: poll budget exhausted, leaving job processing")
}

// successOutcome mirrors the provider artifact into our object storage when
// one is configured. A mirror failure fails the job: serving an artifact we
// do not control is not considered success. Without storage the provider
// URL is stored as-is.
func (d *Dispatcher) successOutcome(ctx context.Context, log infra.Logger, resultURL string) Outcome {
	if d.objects == nil {
		return Outcome{Succeeded: true, ResultURL: resultURL}
	}

	data, err := d.download(ctx, resultURL)
	if err != nil {
		log.Error().Err(err).Str("result_url", resultURL).Msg("worker: artifact download failed")
		return Outcome{Succeeded: false}
	}
	key := fmt.Sprintf("vibe_outputs/%s.mp4", uuid.NewString())
	url, err := d.objects.Upload(ctx, data, key, "video/mp4")
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("worker: artifact upload failed")
		return Outcome{Succeeded: false}
	}
	log.Info().Str("key", key).Msg("worker: artifact mirrored to storage")
	return Outcome{Succeeded: true, ResultURL: url, ThumbnailURL: defaultThumbnailURL}
}

func (d *Dispatcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("download artifact: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// sleep waits for d or until ctx is done; it reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
