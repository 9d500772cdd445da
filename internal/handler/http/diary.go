package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/service"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httputil"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/validator"
)

// DiaryHandler handles HTTP requests for diaries and their entries. Every
// route runs behind Protect.
type DiaryHandler struct {
	service *service.DiaryService
	logger  *slog.Logger
}

// NewDiaryHandler creates a new diary HTTP handler.
func NewDiaryHandler(svc *service.DiaryService, logger *slog.Logger) *DiaryHandler {
	return &DiaryHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateDiaryRequest is the JSON request body for creating a diary.
type CreateDiaryRequest struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	CoverImage  string `json:"coverImage" validate:"omitempty,max=2048"`
}

// CreateEntryRequest is the JSON request body for adding an entry.
type CreateEntryRequest struct {
	Title   string     `json:"title" validate:"required,max=200"`
	Content string     `json:"content" validate:"omitempty,max=100000"`
	Mood    string     `json:"mood" validate:"omitempty,oneof=happy sad neutral excited angry"`
	Date    *time.Time `json:"date"`
	Images  []string   `json:"images" validate:"omitempty,max=20"`
}

// UpdateEntryRequest is the JSON request body for patching an entry. Empty
// strings leave the field unchanged.
type UpdateEntryRequest struct {
	Title   string     `json:"title" validate:"omitempty,max=200"`
	Content string     `json:"content" validate:"omitempty,max=100000"`
	Mood    string     `json:"mood" validate:"omitempty,oneof=happy sad neutral excited angry"`
	Date    *time.Time `json:"date"`
	Images  []string   `json:"images" validate:"omitempty,max=20"`
}

func (req UpdateEntryRequest) patch() domain.EntryPatch {
	var p domain.EntryPatch
	if req.Title != "" {
		p.Title = &req.Title
	}
	if req.Content != "" {
		p.Content = &req.Content
	}
	if req.Mood != "" {
		p.Mood = &req.Mood
	}
	p.Date = req.Date
	p.Images = req.Images
	return p
}

// --- Diary handlers ---

// List handles GET /api/v1/diaries
func (h *DiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	diaries, err := h.service.ListDiaries(r.Context(), user.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, diaries)
}

// Create handles POST /api/v1/diaries
func (h *DiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req CreateDiaryRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	diary, err := h.service.CreateDiary(r.Context(), user.ID, service.CreateDiaryInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  strings.TrimSpace(req.CoverImage),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, diary)
}

// Get handles GET /api/v1/diaries/{id}
func (h *DiaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	diary, err := h.service.GetDiary(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, diary)
}

// Delete handles DELETE /api/v1/diaries/{id}
func (h *DiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDiary(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Entry handlers ---

// ListEntries handles GET /api/v1/diaries/{diaryId}/entries
func (h *DiaryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListEntries(r.Context(), user.ID, chi.URLParam(r, "diaryId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, entries)
}

// CreateEntry handles POST /api/v1/diaries/{diaryId}/entries
func (h *DiaryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req CreateEntryRequest
	if err := httputil.DecodeJSON(w, r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	entry, err := h.service.AddEntry(r.Context(), user.ID, chi.URLParam(r, "diaryId"), service.CreateEntryInput{
		Title:   req.Title,
		Content: req.Content,
		Mood:    req.Mood,
		Date:    req.Date,
		Images:  req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// GetEntry handles GET /api/v1/diaries/{diaryId}/entries/{id}
func (h *DiaryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(r.Context(), user.ID, chi.URLParam(r, "diaryId"), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, entry)
}

// UpdateEntry handles PATCH /api/v1/diaries/{diaryId}/entries/{id}
func (h *DiaryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), user.ID, chi.URLParam(r, "diaryId"), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/v1/diaries/{diaryId}/entries/{id}
func (h *DiaryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(r.Context(), user.ID, chi.URLParam(r, "diaryId"), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DiaryHandler) user(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httputil.WriteFail(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
	}
	return user, ok
}
