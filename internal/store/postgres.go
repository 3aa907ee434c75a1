package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vibevids/internal/domain"
)

// Postgres implements the store contracts on top of a pgx connection pool.
// Quota accounting shares a transaction with the video insert/delete so the
// counter can never drift from the rows it counts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store backed by PostgreSQL.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const selectVideoColumns = `
SELECT id, owner_id, title, prompt, quality, status,
       COALESCE(provider_request_id, ''), COALESCE(video_url, ''), COALESCE(thumbnail_url, ''),
       created_at, updated_at
FROM videos
`

func scanVideo(row pgx.Row) (*domain.Video, error) {
	var v domain.Video
	if err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.Title,
		&v.Prompt,
		&v.Quality,
		&v.Status,
		&v.ProviderRequestID,
		&v.VideoURL,
		&v.ThumbnailURL,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *Postgres) Create(ctx context.Context, video *domain.Video) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create video: %w", err)
	}
	defer tx.Rollback(ctx)

	var used, limit int
	row := tx.QueryRow(ctx, `
SELECT storage_used, storage_limit FROM profiles WHERE user_id = $1 FOR UPDATE;
`, video.OwnerID)
	if err := row.Scan(&used, &limit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProfileNotFound
		}
		return 0, err
	}
	if used >= limit {
		return 0, domain.ErrQuotaExceeded
	}

	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	video.Status = domain.VideoStatusPending
	row = tx.QueryRow(ctx, `
INSERT INTO videos (id, owner_id, title, prompt, quality, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at;
`, video.ID, video.OwnerID, video.Title, video.Prompt, video.Quality, video.Status)
	if err := row.Scan(&video.CreatedAt, &video.UpdatedAt); err != nil {
		return 0, fmt.Errorf("insert video: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE profiles SET storage_used = storage_used + 1 WHERE user_id = $1;
`, video.OwnerID); err != nil {
		return 0, fmt.Errorf("increment storage counter: %w", err)
	}

	var count int
	row = tx.QueryRow(ctx, `
SELECT COUNT(*) FROM videos WHERE owner_id = $1;
`, video.OwnerID)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create video: %w", err)
	}
	return count, nil
}

func (s *Postgres) Get(ctx context.Context, id, ownerID string) (*domain.Video, error) {
	row := s.pool.QueryRow(ctx, selectVideoColumns+`WHERE id = $1 AND owner_id = $2;`, id, ownerID)
	return scanVideo(row)
}

func (s *Postgres) GetAny(ctx context.Context, id string) (*domain.Video, error) {
	row := s.pool.QueryRow(ctx, selectVideoColumns+`WHERE id = $1;`, id)
	return scanVideo(row)
}

func (s *Postgres) GetByProviderRequestID(ctx context.Context, requestID string) (*domain.Video, error) {
	row := s.pool.QueryRow(ctx, selectVideoColumns+`WHERE provider_request_id = $1;`, requestID)
	return scanVideo(row)
}

func (s *Postgres) SetProviderRequestID(ctx context.Context, id, requestID string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE videos
SET provider_request_id = $2, updated_at = NOW()
WHERE id = $1 AND provider_request_id IS NULL;
`, id, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.checkExists(ctx, id)
	}
	return nil
}

func (s *Postgres) UpdateStatusIf(ctx context.Context, id string, from []domain.VideoStatus, to domain.VideoStatus, fields domain.TerminalFields) (bool, error) {
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE videos
SET status = $2,
    video_url = COALESCE(NULLIF($3, ''), video_url),
    thumbnail_url = COALESCE(NULLIF($4, ''), thumbnail_url),
    updated_at = NOW()
WHERE id = $1 AND status = ANY($5);
`, id, to, fields.VideoURL, fields.ThumbnailURL, states)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		if err := s.checkExists(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *Postgres) Delete(ctx context.Context, id, ownerID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete video: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
DELETE FROM videos WHERE id = $1 AND owner_id = $2;
`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
UPDATE profiles SET storage_used = GREATEST(storage_used - 1, 0) WHERE user_id = $1;
`, ownerID); err != nil {
		return fmt.Errorf("decrement storage counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete video: %w", err)
	}
	return nil
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID string) ([]domain.Video, error) {
	rows, err := s.pool.Query(ctx, selectVideoColumns+`WHERE owner_id = $1 ORDER BY created_at DESC;`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *Postgres) checkExists(ctx context.Context, id string) error {
	var one int
	row := s.pool.QueryRow(ctx, `SELECT 1 FROM videos WHERE id = $1;`, id)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

// GetProfile implements domain.ProfileStore.
func (s *Postgres) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := s.pool.QueryRow(ctx, `
SELECT user_id, storage_used, storage_limit, COALESCE(referral_code, ''), COALESCE(referred_by_id, ''), created_at
FROM profiles WHERE user_id = $1;
`, userID)
	return scanProfile(row)
}

// CreateProfile implements domain.ProfileStore.
func (s *Postgres) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	row := s.pool.QueryRow(ctx, `
INSERT INTO profiles (user_id, storage_used, storage_limit, referral_code, referred_by_id)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
RETURNING created_at;
`, profile.UserID, profile.StorageUsed, profile.StorageLimit, profile.ReferralCode, profile.ReferredByID)
	return row.Scan(&profile.CreatedAt)
}

// GetProfileByReferralCode implements domain.ProfileStore.
func (s *Postgres) GetProfileByReferralCode(ctx context.Context, code string) (*domain.Profile, error) {
	row := s.pool.QueryRow(ctx, `
SELECT user_id, storage_used, storage_limit, COALESCE(referral_code, ''), COALESCE(referred_by_id, ''), created_at
FROM profiles WHERE referral_code = $1;
`, code)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.UserID, &p.StorageUsed, &p.StorageLimit, &p.ReferralCode, &p.ReferredByID, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateReferral implements domain.ReferralStore.
func (s *Postgres) CreateReferral(ctx context.Context, referral *domain.Referral) error {
	if referral.ID == "" {
		referral.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
INSERT INTO referrals (id, referrer_id, referee_id, successful)
VALUES ($1, $2, $3, FALSE)
RETURNING created_at;
`, referral.ID, referral.ReferrerID, referral.RefereeID)
	return row.Scan(&referral.CreatedAt)
}

// GetReferralByReferee implements domain.ReferralStore.
func (s *Postgres) GetReferralByReferee(ctx context.Context, refereeID string) (*domain.Referral, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, referrer_id, referee_id, successful, successful_at, created_at
FROM referrals WHERE referee_id = $1;
`, refereeID)
	var r domain.Referral
	if err := row.Scan(&r.ID, &r.ReferrerID, &r.RefereeID, &r.Successful, &r.SuccessfulAt, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// MarkReferralSuccessful implements domain.ReferralStore.
func (s *Postgres) MarkReferralSuccessful(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE referrals
SET successful = TRUE, successful_at = NOW()
WHERE id = $1 AND successful = FALSE;
`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReferralStatsForReferrer implements domain.ReferralStore.
func (s *Postgres) ReferralStatsForReferrer(ctx context.Context, referrerID string) (int, int, error) {
	var successful, total int
	row := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FILTER (WHERE successful), COUNT(*)
FROM referrals WHERE referrer_id = $1;
`, referrerID)
	if err := row.Scan(&successful, &total); err != nil {
		return 0, 0, err
	}
	return successful, total, nil
}

var (
	_ domain.VideoStore    = (*Postgres)(nil)
	_ domain.ProfileStore  = (*Postgres)(nil)
	_ domain.ReferralStore = (*Postgres)(nil)
)
