package domain

import "time"

// Story is a contest submission. LikesCount and ViewsCount mirror
// server-side aggregates; they are display values, never the source of
// truth for vote legality.
type Story struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ContestID  string    `json:"contest_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	WordCount  int       `json:"word_count"`
	LikesCount int       `json:"likes_count"`
	ViewsCount int       `json:"views_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// GalleryStory is the story projection shown in contest galleries, enriched
// with joined display data and the viewer's own vote state.
type GalleryStory struct {
	Story
	AuthorName   string `json:"author_name"`
	ContestTitle string `json:"contest_title"`
	IsLiked      bool   `json:"is_liked"`
}

// SubmitStoryRequest carries a new submission from the view layer.
type SubmitStoryRequest struct {
	ContestID string `json:"contest_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// SubmitStoryResult is the discriminated outcome of a submission attempt.
// Declines (duplicate submission, contest not open) are not errors.
type SubmitStoryResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Story   *Story `json:"story,omitempty"`
}

// Comment on a story.
type Comment struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Report is a user-filed moderation report against a story.
type Report struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
