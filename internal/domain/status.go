package domain

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Identity providers.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// IsValidStatus checks whether s is a known account status.
func IsValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}
