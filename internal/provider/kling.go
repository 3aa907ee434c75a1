package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vibevids/internal/domain"
	"vibevids/internal/infra"
)

// KlingOptions controls how the fal.ai Kling client is configured.
type KlingOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Kling submits text-to-video requests to the fal.ai queue API and polls
// their status. One Submit corresponds to one queued request on the
// provider side; the returned request id is the correlation id used by both
// the webhook and the polling path.
type Kling struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewKling constructs a Kling client with sane defaults.
func NewKling(opts KlingOptions) (*Kling, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("kling: api key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run"
	}
	model := strings.Trim(opts.Model, "/")
	if model == "" {
		model = "fal-ai/kling-video/v2.5-turbo/pro/text-to-video"
	}
	return &Kling{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		httpClient: client,
		logger:     opts.Logger,
	}, nil
}

type klingSubmitRequest struct {
	Prompt      string `json:"prompt"`
	Duration    string `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
}

type klingSubmitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type klingStatusResponse struct {
	Status      string          `json:"status"`
	ResponseURL string          `json:"response_url"`
	Video       *klingVideoRef  `json:"video"`
	Output      json.RawMessage `json:"output"`
	Error       string          `json:"error"`
}

type klingVideoRef struct {
	URL string `json:"url"`
}

func (k *Kling) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	payload := klingSubmitRequest{
		Prompt:      req.Prompt,
		Duration:    durationForQuality(req.Quality),
		AspectRatio: "9:16",
	}
	var resp klingSubmitResponse
	if err := k.invoke(ctx, http.MethodPost, k.baseURL+"/"+k.model, payload, &resp); err != nil {
		return "", err
	}
	if resp.RequestID == "" {
		return "", fmt.Errorf("kling: submission accepted without request id: %w", domain.ErrProviderUnavailable)
	}
	if k.logger != nil {
		k.logger.Debug().Str("request_id", resp.RequestID).Msg("kling: submission accepted")
	}
	return resp.RequestID, nil
}

func (k *Kling) FetchStatus(ctx context.Context, requestID string) (Status, error) {
	statusURL := fmt.Sprintf("%s/%s/requests/%s/status", k.baseURL, k.model, requestID)
	var resp klingStatusResponse
	if err := k.invoke(ctx, http.MethodGet, statusURL, nil, &resp); err != nil {
		return Status{}, err
	}

	switch state := normalizeState(resp.Status); state {
	case StateSucceeded:
		url := resp.resultURL()
		if url == "" && resp.ResponseURL != "" {
			url = k.fetchResultURL(ctx, resp.ResponseURL)
		}
		if url == "" {
			// Completed but no artifact anywhere is a provider-side failure,
			// not a transport problem.
			return Status{State: StateFailed}, nil
		}
		return Status{State: StateSucceeded, ResultURL: url}, nil
	case StateFailed:
		return Status{State: StateFailed}, nil
	default:
		return Status{State: state}, nil
	}
}

// fetchResultURL retrieves the final response document when the status
// payload does not embed the artifact URL. Best-effort: any error yields "".
func (k *Kling) fetchResultURL(ctx context.Context, responseURL string) string {
	var resp klingStatusResponse
	if err := k.invoke(ctx, http.MethodGet, responseURL, nil, &resp); err != nil {
		if k.logger != nil {
			k.logger.Warn().Err(err).Msg("kling: fetching response document failed")
		}
		return ""
	}
	return resp.resultURL()
}

func (r *klingStatusResponse) resultURL() string {
	if r.Video != nil && r.Video.URL != "" {
		return r.Video.URL
	}
	if len(r.Output) > 0 {
		var nested struct {
			Video *klingVideoRef `json:"video"`
		}
		if err := json.Unmarshal(r.Output, &nested); err == nil && nested.Video != nil {
			return nested.Video.URL
		}
	}
	return ""
}

func (k *Kling) invoke(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("kling: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("kling: create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+k.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kling: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// 4xx means the request itself was refused; retrying it verbatim
		// cannot succeed. 5xx is the provider having a bad day.
		sentinel := domain.ErrProviderUnavailable
		if resp.StatusCode < http.StatusInternalServerError {
			sentinel = domain.ErrProviderRejected
		}
		return fmt.Errorf("kling: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(data)), sentinel)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("kling: decode response: %w", domain.ErrProviderUnavailable)
	}
	return nil
}

func normalizeState(raw string) State {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in_queue", "queued", "pending":
		return StateQueued
	case "in_progress", "running", "processing":
		return StateRunning
	case "succeeded", "completed", "ok":
		return StateSucceeded
	case "failed", "error", "cancelled":
		return StateFailed
	default:
		return StateRunning
	}
}

func durationForQuality(q domain.VideoQuality) string {
	if q == domain.VideoQualityHQ {
		return "10"
	}
	return "5"
}

var _ Client = (*Kling)(nil)
