package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/database"
	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
)

const (
	diaryColumns = `id, user_id, title, description, cover_image, is_default, created_at, updated_at`
	entryColumns = `id, diary_id, title, content, mood, date, images, created_at, updated_at`
)

// DiaryRepository implements repository.DiaryRepository using PostgreSQL.
// Entries live in their own table and are attached on read.
type DiaryRepository struct {
	db database.DBTX
}

// NewDiaryRepository creates a new PostgreSQL-backed diary repository.
func NewDiaryRepository(db database.DBTX) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// CreateDiary inserts a new diary.
func (r *DiaryRepository) CreateDiary(ctx context.Context, d *domain.Diary) (err error) {
	query := `
		INSERT INTO diaries (id, user_id, title, description, cover_image, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "CreateDiary", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		d.ID,
		d.UserID,
		d.Title,
		d.Description,
		d.CoverImage,
		d.IsDefault,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert diary: %w", err)
	}

	return nil
}

// ListDiaries returns the user's diaries, newest first, with their entries.
func (r *DiaryRepository) ListDiaries(ctx context.Context, userID string) (_ []domain.Diary, err error) {
	query := `SELECT ` + diaryColumns + ` FROM diaries WHERE user_id = $1 ORDER BY created_at DESC`

	ctx, end := database.TraceQuery(ctx, "ListDiaries", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	defer rows.Close()

	diaries := []domain.Diary{}
	ids := []string{}
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diary row: %w", err)
		}
		diaries = append(diaries, *d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diary rows: %w", err)
	}

	if len(ids) == 0 {
		return diaries, nil
	}

	entries, err := r.listEntries(ctx, `diary_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for i := range diaries {
		diaries[i].Entries = entriesFor(entries, diaries[i].ID)
	}

	return diaries, nil
}

// GetDiary returns the diary when it belongs to userID.
func (r *DiaryRepository) GetDiary(ctx context.Context, userID, diaryID string) (_ *domain.Diary, err error) {
	query := `SELECT ` + diaryColumns + ` FROM diaries WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "GetDiary", query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	d, err := scanDiary(r.db.QueryRow(ctx, query, diaryID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan diary: %w", err)
	}

	entries, err := r.listEntries(ctx, `diary_id = $1`, diaryID)
	if err != nil {
		return nil, err
	}
	d.Entries = entries

	return d, nil
}

// DeleteDiary removes the diary when it belongs to userID. Entries are
// removed by the foreign key cascade.
func (r *DiaryRepository) DeleteDiary(ctx context.Context, userID, diaryID string) (err error) {
	query := `DELETE FROM diaries WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteDiary", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, diaryID, userID)
	if err != nil {
		return fmt.Errorf("delete diary: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// AddEntry inserts an entry and bumps the diary's updated_at.
func (r *DiaryRepository) AddEntry(ctx context.Context, diaryID string, e *domain.Entry) (err error) {
	query := `
		INSERT INTO entries (id, diary_id, title, content, mood, date, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "AddEntry", query)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, query,
		e.ID,
		diaryID,
		e.Title,
		e.Content,
		e.Mood,
		e.Date,
		e.Images,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	if err := touchDiary(ctx, tx, diaryID, e.UpdatedAt); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	e.DiaryID = diaryID
	return nil
}

// UpdateEntry overwrites an entry's mutable fields.
func (r *DiaryRepository) UpdateEntry(ctx context.Context, diaryID string, e *domain.Entry) (err error) {
	e.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE entries
		SET title = $1, content = $2, mood = $3, date = $4, images = $5, updated_at = $6
		WHERE id = $7 AND diary_id = $8`

	ctx, end := database.TraceQuery(ctx, "UpdateEntry", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		e.Title,
		e.Content,
		e.Mood,
		e.Date,
		e.Images,
		e.UpdatedAt,
		e.ID,
		diaryID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// DeleteEntry removes an entry from the diary.
func (r *DiaryRepository) DeleteEntry(ctx context.Context, diaryID, entryID string) (err error) {
	query := `DELETE FROM entries WHERE id = $1 AND diary_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteEntry", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, entryID, diaryID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *DiaryRepository) listEntries(ctx context.Context, where string, arg any) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + where + ` ORDER BY date DESC`

	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(
			&e.ID,
			&e.DiaryID,
			&e.Title,
			&e.Content,
			&e.Mood,
			&e.Date,
			&e.Images,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		if e.Images == nil {
			e.Images = []string{}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}

	return entries, nil
}

func touchDiary(ctx context.Context, tx pgx.Tx, diaryID string, at time.Time) error {
	ct, err := tx.Exec(ctx, `UPDATE diaries SET updated_at = $1 WHERE id = $2`, at, diaryID)
	if err != nil {
		return fmt.Errorf("touch diary: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanDiary(row pgx.Row) (*domain.Diary, error) {
	var d domain.Diary
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Title,
		&d.Description,
		&d.CoverImage,
		&d.IsDefault,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Entries = []domain.Entry{}
	return &d, nil
}

// entriesFor picks the entries of one diary, keeping their order.
func entriesFor(entries []domain.Entry, diaryID string) []domain.Entry {
	out := []domain.Entry{}
	for _, e := range entries {
		if e.DiaryID == diaryID {
			out = append(out, e)
		}
	}
	return out
}
