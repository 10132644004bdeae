package models

import "time"

// ChallengeStatus tracks the verification workflow of a user's challenge.
// Transitions: enrolled -> completed -> verified or rejected (terminal).
type ChallengeStatus string

const (
	ChallengeEnrolled  ChallengeStatus = "enrolled"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeVerified  ChallengeStatus = "verified"
	ChallengeRejected  ChallengeStatus = "rejected"
)

// ChallengeVerdict is a teacher's decision on a submitted proof.
type ChallengeVerdict string

const (
	VerdictApproved ChallengeVerdict = "approved"
	VerdictRejected ChallengeVerdict = "rejected"
)

// Challenge is a catalog entry worth a fixed number of eco-points.
type Challenge struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	EcoPoints   int       `db:"eco_points" json:"eco_points"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UserChallenge is one student's progress through a challenge.
type UserChallenge struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	ChallengeID string          `db:"challenge_id" json:"challenge_id"`
	Status      ChallengeStatus `db:"status" json:"status"`
	ProofNote   string          `db:"proof_note" json:"proof_note"`
	ProofURL    *string         `db:"proof_url" json:"proof_url,omitempty"`
	SubmittedAt *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	VerifiedBy  *string         `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt  *time.Time      `db:"verified_at" json:"verified_at,omitempty"`
	EnrolledAt  time.Time       `db:"enrolled_at" json:"enrolled_at"`
}

// ChallengeProofRequest carries a student's completion evidence.
type ChallengeProofRequest struct {
	ProofNote string  `json:"proof_note" validate:"required,max=1000"`
	ProofURL  *string `json:"proof_url,omitempty" validate:"omitempty,url"`
}

// ChallengeVerdictRequest is a teacher's decision payload.
type ChallengeVerdictRequest struct {
	Verdict ChallengeVerdict `json:"verdict" validate:"required,oneof=approved rejected"`
}

// ChallengeVerifyResult reports the verdict outcome and its reward.
type ChallengeVerifyResult struct {
	UserChallengeID string          `json:"user_challenge_id"`
	Status          ChallengeStatus `json:"status"`
	PointsAwarded   int             `json:"points_awarded"`
	NewBadges       []string        `json:"new_badges"`
}

// UserChallengeDetail joins workflow state with its challenge row.
type UserChallengeDetail struct {
	UserChallenge
	Title     string `db:"title" json:"title"`
	Category  string `db:"category" json:"category"`
	EcoPoints int    `db:"eco_points" json:"eco_points"`
}
