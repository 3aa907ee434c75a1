package domain

import "time"

// Referral links a referee to the referrer whose code they signed up with.
// It becomes successful at most once, when the referee creates their first
// video.
type Referral struct {
	ID           string
	ReferrerID   string
	RefereeID    string
	Successful   bool
	SuccessfulAt *time.Time
	CreatedAt    time.Time
}

// ReferralStats summarizes a referrer's progress toward reward tiers.
type ReferralStats struct {
	ReferralCode        string
	SuccessfulReferrals int
	TotalSignups        int
}
