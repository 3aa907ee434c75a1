package handlers

import (
	"errors"
	"net/http"

	"vibevids/internal/domain"
	"vibevids/internal/middleware"
	"vibevids/internal/referrals"
)

func (a *App) ReferralStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	stats, err := a.Referrals.Stats(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			a.error(w, http.StatusNotFound, "profile_not_found", "user profile not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: referral stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch referral stats")
		return
	}

	tiers := make(map[string]map[string]any, len(referrals.TierTargets))
	for i, target := range referrals.TierTargets {
		tiers[tierName(i+1)] = map[string]any{
			"target":  target,
			"reached": stats.SuccessfulReferrals >= target,
		}
	}
	a.json(w, http.StatusOK, map[string]any{
		"referral_code":        stats.ReferralCode,
		"successful_referrals": stats.SuccessfulReferrals,
		"total_signups":        stats.TotalSignups,
		"tiers":                tiers,
	})
}

func tierName(n int) string {
	switch n {
	case 1:
		return "tier_1"
	case 2:
		return "tier_2"
	default:
		return "tier_x"
	}
}
