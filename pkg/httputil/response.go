package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/logger"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/validator"
)

// Envelope status values. Client errors are "fail", server errors "error".
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteFail writes a client error with an explicit status and message.
func WriteFail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Status: envelopeStatus(status), Message: message})
}

// WriteError maps err onto the error envelope. AppErrors keep their status
// and message; wrapped sentinels get a generic message for their class.
// Server errors are logged with the request-scoped logger and never expose
// the cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	status := apperrors.HTTPStatus(err)
	message := "something went wrong"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		message = "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		message = "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		message = err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		message = "unauthorized"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		message = "something went wrong"
	}

	WriteJSON(w, status, ErrorResponse{
		Status:    envelopeStatus(status),
		Message:   message,
		RequestID: requestID,
	})
}

// WriteValidationError writes a 400 with per-field messages when err comes
// from the validator package.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  StatusFail,
			Message: valErr.Error(),
			Fields:  valErr.Fields(),
		})
		return
	}
	WriteFail(w, http.StatusBadRequest, err.Error())
}

// DecodeJSON reads at most 1MB of JSON from the request body into dst. An
// empty body leaves dst untouched when allowEmpty is set.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.InvalidInput(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func envelopeStatus(code int) string {
	if code >= http.StatusInternalServerError {
		return StatusError
	}
	return StatusFail
}
