package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/database"
	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
)

// userColumns are selected by every user lookup. Optional text columns are
// nullable and read back as empty strings.
const userColumns = `id, name, COALESCE(email, ''), COALESCE(photo, ''), COALESCE(phone, ''),
		COALESCE(address, ''), date_of_birth, COALESCE(password_hash, ''), password_changed_at,
		is_verified, is_update_password, COALESCE(google_id, ''), COALESCE(facebook_id, ''),
		COALESCE(refresh_token, ''), status, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, name, email, photo, phone, address, date_of_birth, password_hash,
		    password_changed_at, is_verified, is_update_password, google_id, facebook_id, status,
		    created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''),
		    $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14, $15, $16)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.Photo,
		u.Phone,
		u.Address,
		u.DateOfBirth,
		u.PasswordHash,
		u.PasswordChangedAt,
		u.IsVerified,
		u.IsUpdatePassword,
		u.GoogleID,
		u.FacebookID,
		u.Status,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateUser(err, u)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "GetUserByID", query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, "GetUserByEmail", query, email)
}

// GetByProviderID retrieves the user linked to the given provider account.
func (r *UserRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*domain.User, error) {
	var column string
	switch provider {
	case domain.ProviderGoogle:
		column = "google_id"
	case domain.ProviderFacebook:
		column = "facebook_id"
	default:
		return nil, fmt.Errorf("unknown identity provider %q: %w", provider, apperrors.ErrInvalidInput)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	return r.scanUser(ctx, "GetUserByProviderID", query, providerID)
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = $1, email = NULLIF($2, ''), photo = NULLIF($3, ''), phone = NULLIF($4, ''),
		    address = NULLIF($5, ''), date_of_birth = $6, password_hash = NULLIF($7, ''),
		    password_changed_at = $8, is_verified = $9, is_update_password = $10,
		    google_id = NULLIF($11, ''), facebook_id = NULLIF($12, ''), status = $13, updated_at = $14
		WHERE id = $15`

	ctx, end := database.TraceQuery(ctx, "UpdateUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		u.Name,
		u.Email,
		u.Photo,
		u.Phone,
		u.Address,
		u.DateOfBirth,
		u.PasswordHash,
		u.PasswordChangedAt,
		u.IsVerified,
		u.IsUpdatePassword,
		u.GoogleID,
		u.FacebookID,
		u.Status,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateUser(err, u)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user")
	}

	return nil
}

// SetRefreshToken overwrites the stored refresh token in a single UPDATE.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, token string) (err error) {
	query := `UPDATE users SET refresh_token = NULLIF($1, ''), updated_at = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "SetRefreshToken", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, token, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user")
	}

	return nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, op, query string, args ...any) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var u domain.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Phone,
		&u.Address,
		&u.DateOfBirth,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.IsVerified,
		&u.IsUpdatePassword,
		&u.GoogleID,
		&u.FacebookID,
		&u.RefreshToken,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// duplicateUser names the colliding field from the violated constraint.
func duplicateUser(err error, u *domain.User) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.Contains(pgErr.ConstraintName, "google"):
			return apperrors.AlreadyExists("user", "googleId", u.GoogleID)
		case strings.Contains(pgErr.ConstraintName, "facebook"):
			return apperrors.AlreadyExists("user", "facebookId", u.FacebookID)
		}
	}
	return apperrors.AlreadyExists("user", "email", u.Email)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
