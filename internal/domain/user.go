package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is an account that can authenticate with a password, Google,
// Facebook, or any combination of them.
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email,omitempty"`
	Photo             string     `json:"photo,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`
	IsVerified        bool       `json:"isVerified"`
	IsUpdatePassword  bool       `json:"isUpdatePassword"`
	GoogleID          string     `json:"googleId,omitempty"`
	FacebookID        string     `json:"facebookId,omitempty"`
	RefreshToken      string     `json:"-"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultName is the display name given to accounts created without one.
func DefaultName(now time.Time) string {
	return fmt.Sprintf("user-%d", now.UnixMilli())
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at iat. Comparison is in whole seconds because JWT iat has
// second precision.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}

// ProviderID returns the user's linked id for provider, or "".
func (u *User) ProviderID(provider string) string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderFacebook:
		return u.FacebookID
	default:
		return ""
	}
}

// LinkIdentity attaches id's provider id to u and fills name and photo only
// where they are empty. It reports whether anything changed.
func (u *User) LinkIdentity(id *Identity) bool {
	changed := false
	switch id.Provider {
	case ProviderGoogle:
		if u.GoogleID != id.ProviderID {
			u.GoogleID = id.ProviderID
			changed = true
		}
	case ProviderFacebook:
		if u.FacebookID != id.ProviderID {
			u.FacebookID = id.ProviderID
			changed = true
		}
	}
	if u.Name == "" && id.Name != "" {
		u.Name = id.Name
		changed = true
	}
	if u.Photo == "" && id.PictureURL != "" {
		u.Photo = id.PictureURL
		changed = true
	}
	return changed
}

// TokenPair is the access and refresh token issued together.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Identity is a provider-verified identity normalized across providers.
// Email, Name and PictureURL may be empty.
type Identity struct {
	Provider      string
	ProviderID    string
	Email         string
	Name          string
	PictureURL    string
	EmailVerified bool
}
