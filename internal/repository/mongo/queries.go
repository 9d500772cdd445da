package mongo

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
)

// providerFilter selects the user linked to a provider account.
func providerFilter(provider, providerID string) (bson.M, error) {
	switch provider {
	case domain.ProviderGoogle:
		return bson.M{"googleId": providerID}, nil
	case domain.ProviderFacebook:
		return bson.M{"facebookId": providerID}, nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q: %w", provider, apperrors.ErrInvalidInput)
	}
}

// refreshTokenUpdate stores token, or removes the field when token is empty
// so the sparse document stays free of stale sessions.
func refreshTokenUpdate(token string, now time.Time) bson.M {
	if token == "" {
		return bson.M{
			"$set":   bson.M{"updatedAt": now},
			"$unset": bson.M{"refreshToken": ""},
		}
	}
	return bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": now}}
}

// entryFilter matches a diary that embeds the entry.
func entryFilter(diaryID, entryID string) bson.M {
	return bson.M{"_id": diaryID, "entries._id": entryID}
}

// entryUpdate rewrites the entry matched by entryFilter through the
// positional operator.
func entryUpdate(e *domain.Entry) bson.M {
	images := e.Images
	if images == nil {
		images = []string{}
	}
	return bson.M{"$set": bson.M{
		"entries.$.title":     e.Title,
		"entries.$.content":   e.Content,
		"entries.$.mood":      e.Mood,
		"entries.$.date":      e.Date,
		"entries.$.images":    images,
		"entries.$.updatedAt": e.UpdatedAt,
		"updatedAt":           e.UpdatedAt,
	}}
}

// entryRemoval pulls the entry out of its diary.
func entryRemoval(entryID string, now time.Time) bson.M {
	return bson.M{
		"$pull": bson.M{"entries": bson.M{"_id": entryID}},
		"$set":  bson.M{"updatedAt": now},
	}
}

// duplicateUser reports which unique index a duplicate key error hit. The
// server names the index in the message, e.g. "index: googleId_1".
func duplicateUser(err error, u *domain.User) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "googleId_"):
		return apperrors.AlreadyExists("user", "googleId", u.GoogleID)
	case strings.Contains(msg, "facebookId_"):
		return apperrors.AlreadyExists("user", "facebookId", u.FacebookID)
	}
	return apperrors.AlreadyExists("user", "email", u.Email)
}
