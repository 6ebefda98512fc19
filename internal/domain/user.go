package domain

import "time"

// Tier enumerates the plan labels a user can hold.
type Tier string

const (
	TierFree   Tier = "free"
	TierPro    Tier = "pro"
	TierStudio Tier = "studio"
)

// ValidTier reports whether the label names a known plan.
func ValidTier(t Tier) bool {
	switch t {
	case TierFree, TierPro, TierStudio:
		return true
	}
	return false
}

// User is the domain model for builder accounts. Email is the stable
// identifier; Verified gates sign-in until the confirmation link is consumed.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Verified     bool
	Admin        bool
	Tier         Tier
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
