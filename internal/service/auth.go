package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/auth"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/identity"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/repository"
	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum length of a changed password.
const minPasswordLength = 6

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// Client-facing messages.
const (
	msgMissingCredentials = "please provide email and password"
	msgEmailExists        = "email already exists"
	msgBadCredentials     = "incorrect email or password"
	msgDeactivated        = "this account has been deactivated"
	msgLockedOut          = "too many failed login attempts, please try again later"
	msgRefreshRequired    = "refreshToken is required"
	msgRefreshExpired     = "refresh token is invalid or expired"
	msgRefreshInvalid     = "refresh token is invalid"
	msgRefreshRotated     = "refresh token has been rotated or revoked"
	msgFacebookNoEmail    = "facebook did not return an email. Please grant the email permission or use another sign-in method."
	msgNotLoggedIn        = "You are not logged in! Please log in to get access."
	msgUserGone           = "The user belonging to this token no longer exists."
	msgPasswordChanged    = "User recently changed password! Please log in again."
	msgWrongPassword      = "your current password is wrong"
)

// LoginThrottle limits failed password logins per email.
type LoginThrottle interface {
	Allow(ctx context.Context, email string) (bool, time.Duration, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// EventPublisher emits user lifecycle events. Failures never fail the
// request that triggered them.
type EventPublisher interface {
	UserRegistered(ctx context.Context, user *domain.User, method string) error
	UserLoggedIn(ctx context.Context, user *domain.User, method string) error
	UserLoggedOut(ctx context.Context, userID string) error
}

// AuthResult is a signed-in user and their fresh token pair.
type AuthResult struct {
	User   *domain.User
	Tokens *domain.TokenPair
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput holds the parameters for password login.
type LoginInput struct {
	Email    string
	Password string
}

// AuthService implements registration, login, social sign-in, token
// rotation and request authentication.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	providers  map[string]identity.Provider
	throttle   LoginThrottle
	events     EventPublisher
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new auth service. Each provider is registered
// under its Name.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	throttle LoginThrottle,
	events EventPublisher,
	logger *slog.Logger,
	providers ...identity.Provider,
) *AuthService {
	byName := make(map[string]identity.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		providers:  byName,
		throttle:   throttle,
		events:     events,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput(msgMissingCredentials)
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperrors.Conflict(msgEmailExists)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("look up user by email: %w", err)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := s.newUser(input.Name)
	user.Email = email
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict(msgEmailExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user.registered", s.events.UserRegistered(ctx, user, domain.ProviderLocal))
	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("method", domain.ProviderLocal),
	)

	return result, nil
}

// Login verifies an email and password. Unknown emails, passwordless
// accounts and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput(msgMissingCredentials)
	}

	allowed, retryAfter, err := s.throttle.Allow(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "login throttle unavailable",
			slog.String("error", err.Error()),
		)
		allowed = true
	}
	if !allowed {
		s.logger.WarnContext(ctx, "login locked out",
			slog.String("email", email),
			slog.Duration("retry_after", retryAfter),
		)
		return nil, apperrors.TooManyRequests(msgLockedOut)
	}

	user, err := s.verifyLocal(ctx, email, input.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			if ferr := s.throttle.Fail(ctx, email); ferr != nil {
				s.logger.WarnContext(ctx, "failed to record login failure",
					slog.String("error", ferr.Error()),
				)
			}
		}
		return nil, err
	}

	if !user.IsActive() {
		return nil, apperrors.Unauthorized(msgDeactivated)
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "failed to reset login failures",
			slog.String("error", err.Error()),
		)
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user.logged_in", s.events.UserLoggedIn(ctx, user, domain.ProviderLocal))
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", domain.ProviderLocal),
	)

	return result, nil
}

func (s *AuthService) verifyLocal(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgBadCredentials)
		}
		return nil, fmt.Errorf("look up user by email: %w", err)
	}
	if !user.HasPassword() {
		return nil, apperrors.Unauthorized(msgBadCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized(msgBadCredentials)
	}
	return user, nil
}

// SocialLogin verifies token with the named provider, then finds, links or
// creates the matching account.
func (s *AuthService) SocialLogin(ctx context.Context, provider, token string) (*AuthResult, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported identity provider %q", provider))
	}
	if token == "" {
		return nil, apperrors.InvalidInput(tokenFieldFor(provider) + " is required")
	}

	id, err := p.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrProviderUnavailable) {
			s.logger.WarnContext(ctx, "identity provider unavailable",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
			return nil, apperrors.Unauthorized(fmt.Sprintf("could not verify %s token", provider))
		}
		s.logger.InfoContext(ctx, "identity token rejected",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Unauthorized(fmt.Sprintf("invalid %s token", provider))
	}

	user, created, err := s.resolveIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.Unauthorized(msgDeactivated)
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, "user.registered", s.events.UserRegistered(ctx, user, provider))
	}
	s.publish(ctx, "user.logged_in", s.events.UserLoggedIn(ctx, user, provider))
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", provider),
		slog.Bool("created", created),
	)

	return result, nil
}

// resolveIdentity looks the identity up by provider id, then by email
// (linking the provider id), and otherwise creates a social account.
func (s *AuthService) resolveIdentity(ctx context.Context, id *domain.Identity) (*domain.User, bool, error) {
	user, err := s.users.GetByProviderID(ctx, id.Provider, id.ProviderID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("look up user by provider id: %w", err)
	}

	if id.Email != "" {
		user, err = s.users.GetByEmail(ctx, id.Email)
		switch {
		case err == nil:
			if user.LinkIdentity(id) {
				if err := s.users.Update(ctx, user); err != nil {
					return nil, false, fmt.Errorf("link %s account: %w", id.Provider, err)
				}
				s.logger.InfoContext(ctx, "linked identity to existing account",
					slog.String("user_id", user.ID),
					slog.String("provider", id.Provider),
				)
			}
			return user, false, nil
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, false, fmt.Errorf("look up user by email: %w", err)
		}
	} else if id.Provider == domain.ProviderFacebook {
		return nil, false, apperrors.InvalidInput(msgFacebookNoEmail)
	}

	user = s.newUser(id.Name)
	user.Email = id.Email
	user.Photo = id.PictureURL
	user.IsVerified = id.EmailVerified && id.Email != ""
	user.IsUpdatePassword = false
	user.LinkIdentity(id)

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("create %s user: %w", id.Provider, err)
		}
		// A concurrent sign-in with the same provider account got there first.
		existing, lookupErr := s.users.GetByProviderID(ctx, id.Provider, id.ProviderID)
		if lookupErr == nil {
			return existing, false, nil
		}
		// The repository error names the field that collided.
		return nil, false, err
	}
	return user, true, nil
}

// Refresh rotates a refresh token. Only the token currently stored for the
// user is accepted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput(msgRefreshRequired)
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(msgRefreshExpired)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgRefreshInvalid)
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}
	if user.RefreshToken == "" {
		return nil, apperrors.Unauthorized(msgRefreshInvalid)
	}
	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		s.logger.WarnContext(ctx, "stale refresh token presented",
			slog.String("user_id", user.ID),
		)
		return nil, apperrors.Unauthorized(msgRefreshRotated)
	}
	if !user.IsActive() {
		return nil, apperrors.Unauthorized(msgDeactivated)
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)
	return result, nil
}

// Logout clears the stored refresh token of whoever a verifiable refresh
// or access token identifies. It never fails.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) {
	userID := ""
	if refreshToken != "" {
		if claims, err := s.tokens.VerifyRefreshToken(refreshToken); err == nil {
			userID = claims.UserID
		}
	}
	if userID == "" && accessToken != "" {
		if claims, err := s.tokens.VerifyAccessToken(accessToken); err == nil {
			userID = claims.UserID
		}
	}
	if userID == "" {
		return
	}

	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to revoke refresh token",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	s.publish(ctx, "user.logged_out", s.events.UserLoggedOut(ctx, userID))
	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)
}

// Authenticate resolves a bearer access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, apperrors.Unauthorized(msgNotLoggedIn)
	}

	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token. Please log in again.")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgUserGone)
		}
		return nil, fmt.Errorf("get user for access token: %w", err)
	}
	if !user.IsActive() {
		return nil, apperrors.Unauthorized(msgDeactivated)
	}
	if user.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, apperrors.Unauthorized(msgPasswordChanged)
	}

	return user, nil
}

// hashPassword rejects passwords longer than bcrypt's byte limit as caller
// input before hashing.
func (s *AuthService) hashPassword(password string) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// ChangePassword sets a new password for user. Accounts created by social
// sign-in may set their first password without the current one.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) (*AuthResult, error) {
	if len(newPassword) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if user.IsUpdatePassword || currentPassword != "" {
		if !user.HasPassword() ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
			return nil, apperrors.Unauthorized(msgWrongPassword)
		}
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	// One second back so tokens issued right after the change stay valid.
	changedAt := s.now().UTC().Add(-time.Second)
	user.PasswordHash = string(hash)
	user.PasswordChangedAt = &changedAt
	user.IsUpdatePassword = true

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user password: %w", err)
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)
	return result, nil
}

// issueSession signs a pair and stores its refresh token as the user's
// only valid one.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshToken = pair.RefreshToken
	return &AuthResult{User: user, Tokens: pair}, nil
}

func (s *AuthService) newUser(name string) *domain.User {
	now := s.now().UTC()
	if name == "" {
		name = domain.DefaultName(now)
	}
	return &domain.User{
		ID:               uuid.NewString(),
		Name:             name,
		IsUpdatePassword: true,
		Status:           domain.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *AuthService) publish(ctx context.Context, event string, err error) {
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func tokenFieldFor(provider string) string {
	if provider == domain.ProviderFacebook {
		return "accessToken"
	}
	return "idToken"
}
