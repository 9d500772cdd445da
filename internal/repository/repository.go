package repository

import (
	"context"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
// Lookups return apperrors.ErrNotFound when nothing matches.
type UserRepository interface {
	// Create inserts a new user. A duplicate email or provider id yields
	// apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByProviderID retrieves the user linked to a Google or Facebook id.
	GetByProviderID(ctx context.Context, provider, providerID string) (*domain.User, error)

	// Update persists profile, credential and provider-link fields.
	Update(ctx context.Context, user *domain.User) error

	// SetRefreshToken stores the user's single active refresh token. An
	// empty token clears it. The last write wins.
	SetRefreshToken(ctx context.Context, userID, token string) error
}

// DiaryRepository defines the interface for diary and entry persistence.
// Diary reads are scoped to their owner; a diary owned by someone else is
// reported as apperrors.ErrNotFound.
type DiaryRepository interface {
	// CreateDiary inserts a diary without entries.
	CreateDiary(ctx context.Context, diary *domain.Diary) error

	// ListDiaries returns the user's diaries with entries, newest first.
	ListDiaries(ctx context.Context, userID string) ([]domain.Diary, error)

	// GetDiary returns one of the user's diaries with its entries.
	GetDiary(ctx context.Context, userID, diaryID string) (*domain.Diary, error)

	// DeleteDiary removes one of the user's diaries and its entries.
	DeleteDiary(ctx context.Context, userID, diaryID string) error

	// AddEntry appends an entry to a diary.
	AddEntry(ctx context.Context, diaryID string, entry *domain.Entry) error

	// UpdateEntry replaces the mutable fields of an entry.
	UpdateEntry(ctx context.Context, diaryID string, entry *domain.Entry) error

	// DeleteEntry removes an entry from a diary.
	DeleteEntry(ctx context.Context, diaryID, entryID string) error
}
