package models

import "time"

// Quiz describes a published quiz and its total attainable marks.
type Quiz struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	TotalMarks  int       `db:"total_marks" json:"total_marks"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// QuizQuestion is a single question within a quiz.
type QuizQuestion struct {
	ID       string `db:"id" json:"id"`
	QuizID   string `db:"quiz_id" json:"quiz_id"`
	Prompt   string `db:"prompt" json:"prompt"`
	Marks    int    `db:"marks" json:"marks"`
	Position int    `db:"position" json:"position"`
}

// QuizOption is an answer choice; exactly one option per question is correct.
type QuizOption struct {
	ID         string `db:"id" json:"id"`
	QuestionID string `db:"question_id" json:"question_id"`
	Label      string `db:"label" json:"label"`
	Correct    bool   `db:"correct" json:"correct"`
}

// QuizAttempt records one graded submission.
type QuizAttempt struct {
	ID          string    `db:"id" json:"id"`
	QuizID      string    `db:"quiz_id" json:"quiz_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Score       int       `db:"score" json:"score"`
	TotalMarks  int       `db:"total_marks" json:"total_marks"`
	Percentage  float64   `db:"percentage" json:"percentage"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// QuizAnswerSubmission is one selected option in a submission payload.
type QuizAnswerSubmission struct {
	QuestionID string `json:"question_id" validate:"required"`
	OptionID   string `json:"option_id" validate:"required"`
}

// QuizSubmission is the payload for grading a quiz.
type QuizSubmission struct {
	Answers []QuizAnswerSubmission `json:"answers" validate:"required,min=1,dive"`
}

// QuizResult summarises a graded attempt and its reward.
type QuizResult struct {
	AttemptID     string   `json:"attempt_id"`
	QuizID        string   `json:"quiz_id"`
	Score         int      `json:"score"`
	TotalMarks    int      `json:"total_marks"`
	Percentage    float64  `json:"percentage"`
	PointsAwarded int      `json:"points_awarded"`
	NewBadges     []string `json:"new_badges"`
}

// QuizAnswer stores the graded choice for one question of an attempt.
type QuizAnswer struct {
	ID           string `db:"id" json:"id"`
	AttemptID    string `db:"attempt_id" json:"attempt_id"`
	QuestionID   string `db:"question_id" json:"question_id"`
	OptionID     string `db:"option_id" json:"option_id"`
	Correct      bool   `db:"correct" json:"correct"`
	MarksAwarded int    `db:"marks_awarded" json:"marks_awarded"`
}
