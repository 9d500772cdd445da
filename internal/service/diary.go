package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/repository"
	apperrors "github.com/thanhvinh2808/SoulDiary-FE/pkg/errors"
)

// CreateDiaryInput holds the parameters for creating a diary.
type CreateDiaryInput struct {
	Title       string
	Description string
	CoverImage  string
	IsDefault   bool
}

// CreateEntryInput holds the parameters for adding an entry.
type CreateEntryInput struct {
	Title   string
	Content string
	Mood    string
	Date    *time.Time
	Images  []string
}

// DiaryService implements diary and entry management for a signed-in user.
type DiaryService struct {
	repo   repository.DiaryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewDiaryService creates a new diary service.
func NewDiaryService(repo repository.DiaryRepository, logger *slog.Logger) *DiaryService {
	return &DiaryService{repo: repo, logger: logger, now: time.Now}
}

// ListDiaries returns the user's diaries, newest first.
func (s *DiaryService) ListDiaries(ctx context.Context, userID string) ([]domain.Diary, error) {
	diaries, err := s.repo.ListDiaries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	if diaries == nil {
		diaries = []domain.Diary{}
	}
	return diaries, nil
}

// CreateDiary creates an empty diary for the user.
func (s *DiaryService) CreateDiary(ctx context.Context, userID string, input CreateDiaryInput) (*domain.Diary, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = domain.DefaultDiaryTitle
	}

	now := s.now().UTC()
	diary := &domain.Diary{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: input.Description,
		CoverImage:  input.CoverImage,
		Entries:     []domain.Entry{},
		IsDefault:   input.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateDiary(ctx, diary); err != nil {
		return nil, fmt.Errorf("create diary: %w", err)
	}

	s.logger.InfoContext(ctx, "diary created",
		slog.String("diary_id", diary.ID),
		slog.String("user_id", userID),
	)

	return diary, nil
}

// GetDiary returns one of the user's diaries with its entries.
func (s *DiaryService) GetDiary(ctx context.Context, userID, diaryID string) (*domain.Diary, error) {
	diary, err := s.repo.GetDiary(ctx, userID, diaryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("diary")
		}
		return nil, fmt.Errorf("get diary: %w", err)
	}
	if diary.Entries == nil {
		diary.Entries = []domain.Entry{}
	}
	return diary, nil
}

// DeleteDiary removes one of the user's diaries with all of its entries.
func (s *DiaryService) DeleteDiary(ctx context.Context, userID, diaryID string) error {
	if err := s.repo.DeleteDiary(ctx, userID, diaryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("diary")
		}
		return fmt.Errorf("delete diary: %w", err)
	}

	s.logger.InfoContext(ctx, "diary deleted",
		slog.String("diary_id", diaryID),
		slog.String("user_id", userID),
	)
	return nil
}

// ListEntries returns the entries of one of the user's diaries, newest first.
func (s *DiaryService) ListEntries(ctx context.Context, userID, diaryID string) ([]domain.Entry, error) {
	diary, err := s.GetDiary(ctx, userID, diaryID)
	if err != nil {
		return nil, err
	}
	return diary.Entries, nil
}

// GetEntry returns a single entry of one of the user's diaries.
func (s *DiaryService) GetEntry(ctx context.Context, userID, diaryID, entryID string) (*domain.Entry, error) {
	diary, err := s.GetDiary(ctx, userID, diaryID)
	if err != nil {
		return nil, err
	}
	return findEntry(diary, entryID)
}

// AddEntry adds an entry to one of the user's diaries. Mood defaults to
// neutral and date to now.
func (s *DiaryService) AddEntry(ctx context.Context, userID, diaryID string, input CreateEntryInput) (*domain.Entry, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.InvalidInput("entry title is required")
	}
	mood := input.Mood
	if mood == "" {
		mood = domain.MoodNeutral
	}
	if !domain.IsValidMood(mood) {
		return nil, invalidMood(mood)
	}

	if _, err := s.GetDiary(ctx, userID, diaryID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	date := now
	if input.Date != nil {
		date = input.Date.UTC()
	}
	images := input.Images
	if images == nil {
		images = []string{}
	}

	entry := &domain.Entry{
		ID:        uuid.NewString(),
		DiaryID:   diaryID,
		Title:     title,
		Content:   input.Content,
		Mood:      mood,
		Date:      date,
		Images:    images,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.AddEntry(ctx, diaryID, entry); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("diary")
		}
		return nil, fmt.Errorf("add entry: %w", err)
	}

	s.logger.InfoContext(ctx, "entry added",
		slog.String("diary_id", diaryID),
		slog.String("entry_id", entry.ID),
	)

	return entry, nil
}

// UpdateEntry applies patch to an entry of one of the user's diaries.
func (s *DiaryService) UpdateEntry(ctx context.Context, userID, diaryID, entryID string, patch domain.EntryPatch) (*domain.Entry, error) {
	if patch.Mood != nil && !domain.IsValidMood(*patch.Mood) {
		return nil, invalidMood(*patch.Mood)
	}

	diary, err := s.GetDiary(ctx, userID, diaryID)
	if err != nil {
		return nil, err
	}
	entry, err := findEntry(diary, entryID)
	if err != nil {
		return nil, err
	}

	patch.Apply(entry)
	entry.DiaryID = diaryID
	entry.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateEntry(ctx, diaryID, entry); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("entry")
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}

	return entry, nil
}

// DeleteEntry removes an entry from one of the user's diaries.
func (s *DiaryService) DeleteEntry(ctx context.Context, userID, diaryID, entryID string) error {
	if _, err := s.GetDiary(ctx, userID, diaryID); err != nil {
		return err
	}

	if err := s.repo.DeleteEntry(ctx, diaryID, entryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("entry")
		}
		return fmt.Errorf("delete entry: %w", err)
	}

	s.logger.InfoContext(ctx, "entry deleted",
		slog.String("diary_id", diaryID),
		slog.String("entry_id", entryID),
	)
	return nil
}

func findEntry(diary *domain.Diary, entryID string) (*domain.Entry, error) {
	for i := range diary.Entries {
		if diary.Entries[i].ID == entryID {
			e := diary.Entries[i]
			return &e, nil
		}
	}
	return nil, apperrors.NotFound("entry")
}

func invalidMood(mood string) error {
	return apperrors.InvalidInput(fmt.Sprintf("mood %q must be one of: %s", mood, strings.Join(domain.ValidMoods(), ", ")))
}
