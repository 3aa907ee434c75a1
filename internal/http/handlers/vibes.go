package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vibevids/internal/domain"
	"vibevids/internal/middleware"
	"vibevids/internal/vibes"
)

type generateRequest struct {
	Title   string `json:"title"`
	Prompt  string `json:"prompt"`
	Quality string `json:"quality"`
}

type webhookRequest struct {
	RequestID string `json:"request_id"`
	// The provider also sends the correlation id as "id"; accept either.
	ID     string `json:"id"`
	Status string `json:"status"`
	Output string `json:"output"`
}

type videoResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Prompt       string    `json:"prompt"`
	Quality      string    `json:"quality"`
	Status       string    `json:"status"`
	VideoURL     string    `json:"video_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toVideoResponse(v *domain.Video) videoResponse {
	return videoResponse{
		ID:           v.ID,
		Title:        v.Title,
		Prompt:       v.Prompt,
		Quality:      string(v.Quality),
		Status:       string(v.Status),
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func (a *App) VibesGenerate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	video, err := a.Vibes.InitiateGeneration(r.Context(), userID, vibes.CreateInput{
		Title:   req.Title,
		Prompt:  req.Prompt,
		Quality: domain.VideoQuality(req.Quality),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPrompt):
			a.error(w, http.StatusBadRequest, "bad_request", "prompt is required and quality must be medium or hq")
		case errors.Is(err, domain.ErrProfileNotFound):
			a.error(w, http.StatusNotFound, "profile_not_found", "user profile not found")
		case errors.Is(err, domain.ErrQuotaExceeded):
			a.error(w, http.StatusTooManyRequests, "quota_exceeded", "storage limit reached")
		default:
			a.Logger.Error().Err(err).Msg("handlers: generation failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to initiate generation")
		}
		return
	}
	a.json(w, http.StatusAccepted, toVideoResponse(video))
}

func (a *App) VibesGet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	videoID := chi.URLParam(r, "video_id")
	video, err := a.Vibes.GetVideo(r.Context(), videoID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "video not found")
			return
		}
		a.Logger.Error().Err(err).Str("video_id", videoID).Msg("handlers: video fetch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch video")
		return
	}
	a.json(w, http.StatusOK, toVideoResponse(video))
}

func (a *App) VibesList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	videos, err := a.Vibes.ListVideos(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: video list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list videos")
		return
	}
	items := make([]videoResponse, 0, len(videos))
	for i := range videos {
		items = append(items, toVideoResponse(&videos[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) VibesDelete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	videoID := chi.URLParam(r, "video_id")
	if err := a.Vibes.DeleteVideo(r.Context(), videoID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "video not found")
			return
		}
		a.Logger.Error().Err(err).Str("video_id", videoID).Msg("handlers: video delete failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete video")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"deleted": true})
}

// VibesWebhook receives provider completion pings. It always acknowledges
// with 200: providers retry on non-2xx, and a malformed or unknown ping is
// not something a retry will fix.
func (a *App) VibesWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: undecodable webhook payload")
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = req.ID
	}
	a.Vibes.HandleWebhook(r.Context(), vibes.WebhookPayload{
		RequestID: requestID,
		Status:    req.Status,
		Output:    req.Output,
	})
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
