package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrProfileNotFound     = errors.New("user profile not found")
	ErrQuotaExceeded       = errors.New("storage quota exceeded")
	ErrInvalidPrompt       = errors.New("invalid prompt")
	ErrProviderUnavailable = errors.New("generation provider unavailable")
	ErrProviderRejected    = errors.New("generation rejected by provider")
	ErrStorageUnavailable  = errors.New("object storage unavailable")
)
