package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/database"
	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
)

// UserRepository implements repository.UserRepository using MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new MongoDB-backed user repository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique lookups on email and provider ids. The
// indexes are sparse so accounts without those fields do not collide.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	sparseUnique := options.Index().SetUnique(true).SetSparse(true)
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: sparseUnique},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: sparseUnique},
		{Keys: bson.D{{Key: "facebookId", Value: 1}}, Options: sparseUnique},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user document.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "InsertOne")
	defer func() { end(err) }()

	if _, err = r.coll.InsertOne(ctx, newUserDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUser(err, u)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByProviderID retrieves the user linked to the given provider account.
func (r *UserRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*domain.User, error) {
	filter, err := providerFilter(provider, providerID)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, filter)
}

// Update rewrites the mutable user fields. The stored refresh token is left
// alone; it only changes through SetRefreshToken.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "UpdateOne")
	defer func() { end(err) }()

	u.UpdatedAt = time.Now().UTC()
	set, unset := userUpdate(u)
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUser(err, u)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

// SetRefreshToken overwrites or clears the stored refresh token.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, token string) (err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "UpdateOne")
	defer func() { end(err) }()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, refreshTokenUpdate(token, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (_ *domain.User, err error) {
	ctx, end := database.TraceCommand(ctx, usersCollection, "FindOne")
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var doc userDocument
	if err = r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}
