package models

import "time"

// LessonStatus tracks progress through a lesson.
type LessonStatus string

const (
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
)

// Lesson is educational content reference data.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Category  string    `db:"category" json:"category"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LessonCompletionResult reports the reward for finishing a lesson.
type LessonCompletionResult struct {
	LessonID      string   `json:"lesson_id"`
	PointsAwarded int      `json:"points_awarded"`
	NewBadges     []string `json:"new_badges"`
}

// LessonProgress records a student's state for one lesson.
type LessonProgress struct {
	ID          string       `db:"id" json:"id"`
	UserID      string       `db:"user_id" json:"user_id"`
	LessonID    string       `db:"lesson_id" json:"lesson_id"`
	Status      LessonStatus `db:"status" json:"status"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	StartedAt   time.Time    `db:"started_at" json:"started_at"`
}
