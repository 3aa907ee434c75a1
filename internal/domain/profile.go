package domain

import "time"

// Profile carries the per-user state the generation pipeline consults:
// the storage quota counter and the referral bookkeeping. Identity itself
// (authentication, email, display name) lives outside this service.
type Profile struct {
	UserID       string
	StorageUsed  int
	StorageLimit int
	ReferralCode string
	ReferredByID string
	CreatedAt    time.Time
}

// QuotaRemaining returns how many more videos the user may retain.
func (p Profile) QuotaRemaining() int {
	if p.StorageLimit <= p.StorageUsed {
		return 0
	}
	return p.StorageLimit - p.StorageUsed
}
