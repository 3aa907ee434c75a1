package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibevids/internal/domain"
)

// Memory is a mutex-guarded in-memory store used for local development and
// tests. It implements the same contracts as the postgres store, including
// the atomicity of create+increment and delete+decrement: both happen under
// one lock acquisition.
type Memory struct {
	mu        sync.Mutex
	videos    map[string]*domain.Video
	byRequest map[string]string // provider request id -> video id
	profiles  map[string]*domain.Profile
	referrals map[string]*domain.Referral
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		videos:    make(map[string]*domain.Video),
		byRequest: make(map[string]string),
		profiles:  make(map[string]*domain.Profile),
		referrals: make(map[string]*domain.Referral),
	}
}

func (m *Memory) Create(ctx context.Context, video *domain.Video) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[video.OwnerID]
	if !ok {
		return 0, domain.ErrProfileNotFound
	}
	if profile.StorageUsed >= profile.StorageLimit {
		return 0, domain.ErrQuotaExceeded
	}

	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	video.Status = domain.VideoStatusPending
	video.CreatedAt = now
	video.UpdatedAt = now

	stored := *video
	m.videos[stored.ID] = &stored
	profile.StorageUsed++

	count := 0
	for _, v := range m.videos {
		if v.OwnerID == video.OwnerID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Get(ctx context.Context, id, ownerID string) (*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok || v.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (m *Memory) GetAny(ctx context.Context, id string) (*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (m *Memory) GetByProviderRequestID(ctx context.Context, requestID string) (*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byRequest[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	v, ok := m.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (m *Memory) SetProviderRequestID(ctx context.Context, id, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	if v.ProviderRequestID != "" {
		return nil
	}
	v.ProviderRequestID = requestID
	v.UpdatedAt = time.Now().UTC()
	m.byRequest[requestID] = id
	return nil
}

func (m *Memory) UpdateStatusIf(ctx context.Context, id string, from []domain.VideoStatus, to domain.VideoStatus, fields domain.TerminalFields) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	matched := false
	for _, s := range from {
		if v.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	v.Status = to
	if fields.VideoURL != "" {
		v.VideoURL = fields.VideoURL
	}
	if fields.ThumbnailURL != "" {
		v.ThumbnailURL = fields.ThumbnailURL
	}
	v.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok || v.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.videos, id)
	if v.ProviderRequestID != "" {
		delete(m.byRequest, v.ProviderRequestID)
	}
	if profile, ok := m.profiles[ownerID]; ok && profile.StorageUsed > 0 {
		profile.StorageUsed--
	}
	return nil
}

func (m *Memory) ListByOwner(ctx context.Context, ownerID string) ([]domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Video
	for _, v := range m.videos {
		if v.OwnerID == ownerID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetProfile implements domain.ProfileStore.
func (m *Memory) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	out := *p
	return &out, nil
}

// CreateProfile implements domain.ProfileStore.
func (m *Memory) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	stored := *profile
	m.profiles[stored.UserID] = &stored
	return nil
}

// GetProfileByReferralCode implements domain.ProfileStore.
func (m *Memory) GetProfileByReferralCode(ctx context.Context, code string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.profiles {
		if p.ReferralCode == code {
			out := *p
			return &out, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

// CreateReferral implements domain.ReferralStore.
func (m *Memory) CreateReferral(ctx context.Context, referral *domain.Referral) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if referral.ID == "" {
		referral.ID = uuid.NewString()
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now().UTC()
	}
	stored := *referral
	m.referrals[stored.ID] = &stored
	return nil
}

// GetReferralByReferee implements domain.ReferralStore.
func (m *Memory) GetReferralByReferee(ctx context.Context, refereeID string) (*domain.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.referrals {
		if r.RefereeID == refereeID {
			out := *r
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MarkReferralSuccessful implements domain.ReferralStore.
func (m *Memory) MarkReferralSuccessful(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.referrals[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if r.Successful {
		return false, nil
	}
	now := time.Now().UTC()
	r.Successful = true
	r.SuccessfulAt = &now
	return true, nil
}

// ReferralStatsForReferrer implements domain.ReferralStore.
func (m *Memory) ReferralStatsForReferrer(ctx context.Context, referrerID string) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	successful, total := 0, 0
	for _, r := range m.referrals {
		if r.ReferrerID != referrerID {
			continue
		}
		total++
		if r.Successful {
			successful++
		}
	}
	return successful, total, nil
}

var (
	_ domain.VideoStore    = (*Memory)(nil)
	_ domain.ProfileStore  = (*Memory)(nil)
	_ domain.ReferralStore = (*Memory)(nil)
)
