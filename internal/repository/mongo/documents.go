// Package mongo implements the repositories on MongoDB. Diaries embed their
// entries in a single document.
package mongo

import (
	"sort"
	"time"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
)

// Collection names.
const (
	usersCollection   = "users"
	diariesCollection = "diaries"
)

type userDocument struct {
	ID                string     `bson:"_id"`
	Name              string     `bson:"name"`
	Email             string     `bson:"email,omitempty"`
	Photo             string     `bson:"photo,omitempty"`
	Phone             string     `bson:"phone,omitempty"`
	Address           string     `bson:"address,omitempty"`
	DateOfBirth       *time.Time `bson:"dateOfBirth,omitempty"`
	PasswordHash      string     `bson:"passwordHash,omitempty"`
	PasswordChangedAt *time.Time `bson:"passwordChangedAt,omitempty"`
	IsVerified        bool       `bson:"isVerified"`
	IsUpdatePassword  bool       `bson:"isUpdatePassword"`
	GoogleID          string     `bson:"googleId,omitempty"`
	FacebookID        string     `bson:"facebookId,omitempty"`
	RefreshToken      string     `bson:"refreshToken,omitempty"`
	Status            string     `bson:"status"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
}

func newUserDocument(u *domain.User) userDocument {
	return userDocument{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Photo:             u.Photo,
		Phone:             u.Phone,
		Address:           u.Address,
		DateOfBirth:       u.DateOfBirth,
		PasswordHash:      u.PasswordHash,
		PasswordChangedAt: u.PasswordChangedAt,
		IsVerified:        u.IsVerified,
		IsUpdatePassword:  u.IsUpdatePassword,
		GoogleID:          u.GoogleID,
		FacebookID:        u.FacebookID,
		RefreshToken:      u.RefreshToken,
		Status:            u.Status,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:                d.ID,
		Name:              d.Name,
		Email:             d.Email,
		Photo:             d.Photo,
		Phone:             d.Phone,
		Address:           d.Address,
		DateOfBirth:       d.DateOfBirth,
		PasswordHash:      d.PasswordHash,
		PasswordChangedAt: d.PasswordChangedAt,
		IsVerified:        d.IsVerified,
		IsUpdatePassword:  d.IsUpdatePassword,
		GoogleID:          d.GoogleID,
		FacebookID:        d.FacebookID,
		RefreshToken:      d.RefreshToken,
		Status:            d.Status,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// userUpdate splits the mutable user fields into $set and $unset parts so
// that cleared optional fields leave the sparse unique indexes.
func userUpdate(u *domain.User) (set, unset map[string]any) {
	set = map[string]any{
		"name":             u.Name,
		"isVerified":       u.IsVerified,
		"isUpdatePassword": u.IsUpdatePassword,
		"status":           u.Status,
		"updatedAt":        u.UpdatedAt,
	}
	unset = map[string]any{}

	optional := []struct {
		key   string
		value string
	}{
		{"email", u.Email},
		{"photo", u.Photo},
		{"phone", u.Phone},
		{"address", u.Address},
		{"passwordHash", u.PasswordHash},
		{"googleId", u.GoogleID},
		{"facebookId", u.FacebookID},
	}
	for _, f := range optional {
		if f.value == "" {
			unset[f.key] = ""
		} else {
			set[f.key] = f.value
		}
	}

	if u.DateOfBirth != nil {
		set["dateOfBirth"] = *u.DateOfBirth
	} else {
		unset["dateOfBirth"] = ""
	}
	if u.PasswordChangedAt != nil {
		set["passwordChangedAt"] = *u.PasswordChangedAt
	} else {
		unset["passwordChangedAt"] = ""
	}
	return set, unset
}

type entryDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content,omitempty"`
	Mood      string    `bson:"mood"`
	Date      time.Time `bson:"date"`
	Images    []string  `bson:"images"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type diaryDocument struct {
	ID          string          `bson:"_id"`
	UserID      string          `bson:"user"`
	Title       string          `bson:"title"`
	Description string          `bson:"description,omitempty"`
	CoverImage  string          `bson:"coverImage,omitempty"`
	Entries     []entryDocument `bson:"entries"`
	IsDefault   bool            `bson:"isDefault"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

func newEntryDocument(e *domain.Entry) entryDocument {
	images := e.Images
	if images == nil {
		images = []string{}
	}
	return entryDocument{
		ID:        e.ID,
		Title:     e.Title,
		Content:   e.Content,
		Mood:      e.Mood,
		Date:      e.Date,
		Images:    images,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func newDiaryDocument(d *domain.Diary) diaryDocument {
	entries := make([]entryDocument, 0, len(d.Entries))
	for i := range d.Entries {
		entries = append(entries, newEntryDocument(&d.Entries[i]))
	}
	return diaryDocument{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		CoverImage:  d.CoverImage,
		Entries:     entries,
		IsDefault:   d.IsDefault,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// toDomain converts the document and orders entries newest first.
func (d diaryDocument) toDomain() *domain.Diary {
	entries := make([]domain.Entry, 0, len(d.Entries))
	for _, e := range d.Entries {
		images := e.Images
		if images == nil {
			images = []string{}
		}
		entries = append(entries, domain.Entry{
			ID:        e.ID,
			DiaryID:   d.ID,
			Title:     e.Title,
			Content:   e.Content,
			Mood:      e.Mood,
			Date:      e.Date,
			Images:    images,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})

	return &domain.Diary{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		CoverImage:  d.CoverImage,
		Entries:     entries,
		IsDefault:   d.IsDefault,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
