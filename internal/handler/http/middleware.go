package http

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httputil"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/logger"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticator resolves a bearer access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// Protect rejects requests without a valid bearer access token and stores
// the authenticated user in the request context.
func Protect(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := middleware.BearerToken(r)
			if !ok {
				httputil.WriteFail(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}

			ctx := logger.WithUserID(r.Context(), user.ID)
			ctx = context.WithValue(ctx, userContextKey, user)
			ctx = logger.NewContext(ctx, logger.FromContext(r.Context()).With(slog.String("user_id", user.ID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by Protect.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userContextKey).(*domain.User)
	return u, ok && u != nil
}

// ContentTypeJSON rejects request bodies that declare a non-JSON content
// type. A missing Content-Type passes so simple mobile clients keep working.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" && r.ContentLength != 0 {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				httputil.WriteFail(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
