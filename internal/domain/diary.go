package domain

import "time"

// DefaultDiaryTitle is used when a diary is created without a title.
const DefaultDiaryTitle = "My Diary"

// Entry moods.
const (
	MoodHappy   = "happy"
	MoodSad     = "sad"
	MoodNeutral = "neutral"
	MoodExcited = "excited"
	MoodAngry   = "angry"
)

// ValidMoods lists every accepted mood.
func ValidMoods() []string {
	return []string{MoodHappy, MoodSad, MoodNeutral, MoodExcited, MoodAngry}
}

// IsValidMood checks whether m is an accepted mood.
func IsValidMood(m string) bool {
	for _, v := range ValidMoods() {
		if v == m {
			return true
		}
	}
	return false
}

// Diary is a user's notebook of entries.
type Diary struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Entries     []Entry   `json:"entries"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Entry is a single dated journal page.
type Entry struct {
	ID        string    `json:"id"`
	DiaryID   string    `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Mood      string    `json:"mood"`
	Date      time.Time `json:"date"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryPatch holds the fields of a partial entry update. Nil means unchanged.
type EntryPatch struct {
	Title   *string
	Content *string
	Mood    *string
	Date    *time.Time
	Images  []string
}

// Apply copies the set fields of p onto e.
func (p EntryPatch) Apply(e *Entry) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Mood != nil {
		e.Mood = *p.Mood
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Images != nil {
		e.Images = p.Images
	}
}
