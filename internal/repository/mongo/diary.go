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

// DiaryRepository implements repository.DiaryRepository using MongoDB.
type DiaryRepository struct {
	coll *mongo.Collection
}

// NewDiaryRepository creates a new MongoDB-backed diary repository.
func NewDiaryRepository(db *mongo.Database) *DiaryRepository {
	return &DiaryRepository{coll: db.Collection(diariesCollection)}
}

// EnsureIndexes creates the per-owner listing index.
func (r *DiaryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create diary indexes: %w", err)
	}
	return nil
}

// CreateDiary inserts a diary document.
func (r *DiaryRepository) CreateDiary(ctx context.Context, d *domain.Diary) (err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "InsertOne")
	defer func() { end(err) }()

	if _, err = r.coll.InsertOne(ctx, newDiaryDocument(d)); err != nil {
		return fmt.Errorf("insert diary: %w", err)
	}
	return nil
}

// ListDiaries returns the user's diaries, newest first.
func (r *DiaryRepository) ListDiaries(ctx context.Context, userID string) (_ []domain.Diary, err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "Find")
	defer func() { end(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}

	var docs []diaryDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode diaries: %w", err)
	}

	diaries := make([]domain.Diary, 0, len(docs))
	for _, doc := range docs {
		diaries = append(diaries, *doc.toDomain())
	}
	return diaries, nil
}

// GetDiary returns the diary when it belongs to userID.
func (r *DiaryRepository) GetDiary(ctx context.Context, userID, diaryID string) (_ *domain.Diary, err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "FindOne")
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var doc diaryDocument
	if err = r.coll.FindOne(ctx, bson.M{"_id": diaryID, "user": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find diary: %w", err)
	}
	return doc.toDomain(), nil
}

// DeleteDiary removes the diary, with its embedded entries, when it belongs
// to userID.
func (r *DiaryRepository) DeleteDiary(ctx context.Context, userID, diaryID string) (err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "DeleteOne")
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": diaryID, "user": userID})
	if err != nil {
		return fmt.Errorf("delete diary: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddEntry pushes an entry onto the diary's embedded list.
func (r *DiaryRepository) AddEntry(ctx context.Context, diaryID string, e *domain.Entry) (err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "UpdateOne")
	defer func() { end(err) }()

	update := bson.M{
		"$push": bson.M{"entries": newEntryDocument(e)},
		"$set":  bson.M{"updatedAt": e.UpdatedAt},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": diaryID}, update)
	if err != nil {
		return fmt.Errorf("add entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	e.DiaryID = diaryID
	return nil
}

// UpdateEntry rewrites the matched embedded entry in place.
func (r *DiaryRepository) UpdateEntry(ctx context.Context, diaryID string, e *domain.Entry) (err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "UpdateOne")
	defer func() { end(err) }()

	e.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, entryFilter(diaryID, e.ID), entryUpdate(e))
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteEntry pulls the entry out of the diary.
func (r *DiaryRepository) DeleteEntry(ctx context.Context, diaryID, entryID string) (err error) {
	ctx, end := database.TraceCommand(ctx, diariesCollection, "UpdateOne")
	defer func() { end(err) }()

	res, err := r.coll.UpdateOne(ctx, entryFilter(diaryID, entryID), entryRemoval(entryID, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
