package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated
	ErrConflict = errors.New("already exists")
	// ErrUsageLimit is returned when a tier's monthly allowance is exhausted
	ErrUsageLimit = errors.New("usage limit reached")
	// ErrInvalidReferral is returned for an unknown referral code
	ErrInvalidReferral = errors.New("invalid referral code")
)
