package http

import (
	"log/slog"
	"net/http"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/service"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httputil"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/middleware"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration. Presence of
// email and password is checked by the service.
type RegisterRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,max=72"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

// LoginRequest is the JSON request body for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest carries a Google ID token or access token.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// FacebookLoginRequest carries a Facebook user access token.
type FacebookLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

// RefreshRequest is the optional body of refresh and logout. The refresh
// cookie takes precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the JSON request body for changing a password.
type ChangePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
}

// --- Response types ---

// UserData wraps the user in the data envelope.
type UserData struct {
	User *domain.User `json:"user"`
}

// TokenResponse is returned by every endpoint that issues tokens.
type TokenResponse struct {
	Status string            `json:"status"`
	Token  *domain.TokenPair `json:"token"`
	Data   UserData          `json:"data"`
}

// UserResponse is returned by the profile endpoint.
type UserResponse struct {
	Status string   `json:"status"`
	Data   UserData `json:"data"`
}

// StatusResponse is a bare success envelope.
type StatusResponse struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.writeTokens(w, http.StatusCreated, result)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.writeTokens(w, http.StatusOK, result)
}

// Google handles POST /api/v1/auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.socialLogin(w, r, domain.ProviderGoogle, req.IDToken)
}

// Facebook handles POST /api/v1/auth/facebook
func (h *AuthHandler) Facebook(w http.ResponseWriter, r *http.Request) {
	var req FacebookLoginRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.socialLogin(w, r, domain.ProviderFacebook, req.AccessToken)
}

func (h *AuthHandler) socialLogin(w http.ResponseWriter, r *http.Request, provider, token string) {
	result, err := h.service.SocialLogin(r.Context(), provider, token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeTokens(w, http.StatusOK, result)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Refresh(r.Context(), refreshTokenFrom(r, req.RefreshToken))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.writeTokens(w, http.StatusOK, result)
}

// Logout handles POST /api/v1/auth/logout. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	// A malformed body still logs the caller out via cookie or bearer token.
	_ = httputil.DecodeJSON(w, r, &req, true)

	accessToken, _ := middleware.BearerToken(r)
	h.service.Logout(r.Context(), refreshTokenFrom(r, req.RefreshToken), accessToken)

	h.cookies.clearRefreshCookie(w)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: httputil.StatusSuccess})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httputil.WriteFail(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UserResponse{
		Status: httputil.StatusSuccess,
		Data:   UserData{User: user},
	})
}

// ChangePassword handles PATCH /api/v1/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httputil.WriteFail(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(w, r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.ChangePassword(r.Context(), user, req.PasswordCurrent, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.writeTokens(w, http.StatusOK, result)
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, status int, result *service.AuthResult) {
	h.cookies.setRefreshCookie(w, result.Tokens.RefreshToken)
	httputil.WriteJSON(w, status, TokenResponse{
		Status: httputil.StatusSuccess,
		Token:  result.Tokens,
		Data:   UserData{User: result.User},
	})
}
