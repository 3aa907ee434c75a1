// Package referrals implements the referral program: recording signups made
// with a referral code and activating the referral when the referee creates
// their first video.
package referrals

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"vibevids/internal/domain"
	"vibevids/internal/infra"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength matches the length of codes handed out at signup.
const DefaultCodeLength = 7

// TierTargets are the successful-referral counts that unlock rewards.
var TierTargets = []int{5, 10}

// Service coordinates referral persistence. All of its operations are
// best-effort from the caller's point of view: a referral failure must never
// break video creation or signup.
type Service struct {
	profiles  domain.ProfileStore
	referrals domain.ReferralStore
	logger    infra.Logger
}

// NewService wires the referral service to its stores.
func NewService(profiles domain.ProfileStore, referrals domain.ReferralStore, logger infra.Logger) *Service {
	return &Service{profiles: profiles, referrals: referrals, logger: logger}
}

// GenerateCode produces a random referral code.
func GenerateCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = codeAlphabet[0]
			continue
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out)
}

// RecordSignup links a new user to the referrer whose code they used.
// Unknown codes and duplicate signups are silently ignored.
func (s *Service) RecordSignup(ctx context.Context, userID, code string) error {
	if code == "" {
		return nil
	}
	if _, err := s.referrals.GetReferralByReferee(ctx, userID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	referrer, err := s.profiles.GetProfileByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil
		}
		return err
	}
	if referrer.UserID == userID {
		return nil
	}

	referral := &domain.Referral{
		ReferrerID: referrer.UserID,
		RefereeID:  userID,
	}
	if err := s.referrals.CreateReferral(ctx, referral); err != nil {
		return fmt.Errorf("record signup: %w", err)
	}
	s.logger.Info().Str("referrer_id", referrer.UserID).Str("referee_id", userID).Msg("referrals: signup recorded")
	return nil
}

// ActivateOnFirstVideo marks the referee's pending referral successful. It
// is invoked once, when the referee's first video is created; the store-side
// conditional update keeps repeated calls harmless.
func (s *Service) ActivateOnFirstVideo(ctx context.Context, refereeID string) error {
	referral, err := s.referrals.GetReferralByReferee(ctx, refereeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if referral.Successful {
		return nil
	}
	activated, err := s.referrals.MarkReferralSuccessful(ctx, referral.ID)
	if err != nil {
		return fmt.Errorf("activate referral: %w", err)
	}
	if activated {
		s.logger.Info().
			Str("referral_id", referral.ID).
			Str("referrer_id", referral.ReferrerID).
			Str("referee_id", refereeID).
			Msg("referrals: activated on first video")
	}
	return nil
}

// Stats summarizes the user's referral progress.
func (s *Service) Stats(ctx context.Context, userID string) (*domain.ReferralStats, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	successful, total, err := s.referrals.ReferralStatsForReferrer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.ReferralStats{
		ReferralCode:        profile.ReferralCode,
		SuccessfulReferrals: successful,
		TotalSignups:        total,
	}, nil
}
