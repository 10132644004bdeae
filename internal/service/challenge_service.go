package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type challengeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Challenge, error)
	ListActive(ctx context.Context) ([]models.Challenge, error)
	FindUserChallenge(ctx context.Context, userID, challengeID string) (*models.UserChallengeDetail, error)
	FindUserChallengeByID(ctx context.Context, id string) (*models.UserChallengeDetail, error)
	ListForUser(ctx context.Context, userID string) ([]models.UserChallengeDetail, error)
	ListPendingVerification(ctx context.Context, limit int) ([]models.UserChallengeDetail, error)
	Enroll(ctx context.Context, enrollment *models.UserChallenge) (bool, error)
	SubmitProof(ctx context.Context, id, proofNote string, proofURL *string, submittedAt time.Time) error
	Verify(ctx context.Context, id string, status models.ChallengeStatus, verifiedBy string, verifiedAt time.Time, event *models.PointEvent) error
}

type challengeAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ChallengeService runs the enroll, prove and verify workflow.
type ChallengeService struct {
	repo      challengeRepository
	auditor   challengeAuditor
	badges    badgeEvaluator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChallengeService constructs a ChallengeService instance.
func NewChallengeService(repo challengeRepository, auditor challengeAuditor, badges badgeEvaluator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ChallengeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChallengeService{repo: repo, auditor: auditor, badges: badges, metrics: metrics, validator: validate, logger: logger}
}

// ListActive returns challenges open for enrollment.
func (s *ChallengeService) ListActive(ctx context.Context) ([]models.Challenge, error) {
	challenges, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list challenges")
	}
	return challenges, nil
}

// ListForUser returns a student's challenge rows.
func (s *ChallengeService) ListForUser(ctx context.Context, userID string) ([]models.UserChallengeDetail, error) {
	details, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user challenges")
	}
	return details, nil
}

// ListPendingVerification returns submitted proofs awaiting a verdict.
func (s *ChallengeService) ListPendingVerification(ctx context.Context, limit int) ([]models.UserChallengeDetail, error) {
	details, err := s.repo.ListPendingVerification(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending verifications")
	}
	return details, nil
}

// Enroll signs a student up for a challenge. Duplicate enrollments are
// rejected with a conflict.
func (s *ChallengeService) Enroll(ctx context.Context, userID, challengeID string) (*models.UserChallenge, error) {
	challenge, err := s.repo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "challenge not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load challenge")
	}
	if !challenge.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "challenge is not active")
	}

	enrollment := &models.UserChallenge{UserID: userID, ChallengeID: challengeID}
	isNew, err := s.repo.Enroll(ctx, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	if !isNew {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in challenge")
	}
	return enrollment, nil
}

// SubmitProof attaches completion evidence and moves the row to completed.
func (s *ChallengeService) SubmitProof(ctx context.Context, userID, challengeID string, req models.ChallengeProofRequest) (*models.UserChallengeDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proof payload")
	}

	detail, err := s.repo.FindUserChallenge(ctx, userID, challengeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in challenge")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	switch detail.Status {
	case models.ChallengeEnrolled:
	case models.ChallengeCompleted:
		return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "proof already submitted")
	default:
		return nil, appErrors.Clone(appErrors.ErrAlreadyVerified, "challenge already has a verdict")
	}

	now := time.Now().UTC()
	if err := s.repo.SubmitProof(ctx, detail.ID, req.ProofNote, req.ProofURL, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit proof")
	}

	detail.Status = models.ChallengeCompleted
	detail.ProofNote = req.ProofNote
	detail.ProofURL = req.ProofURL
	detail.SubmittedAt = &now
	return detail, nil
}

// Verify records a teacher's verdict. An approval writes the challenge's
// eco-points to the ledger in the same transaction as the status change;
// a rejection only flips the status. Verdicts are terminal.
func (s *ChallengeService) Verify(ctx context.Context, verifierID, userChallengeID string, req models.ChallengeVerdictRequest) (*models.ChallengeVerifyResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verdict payload")
	}

	detail, err := s.repo.FindUserChallengeByID(ctx, userChallengeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "challenge submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	switch detail.Status {
	case models.ChallengeCompleted:
	case models.ChallengeVerified, models.ChallengeRejected:
		return nil, appErrors.Clone(appErrors.ErrAlreadyVerified, "challenge already verified")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "no proof submitted yet")
	}

	now := time.Now().UTC()
	status := models.ChallengeRejected
	points := 0
	var event *models.PointEvent

	if req.Verdict == models.VerdictApproved {
		status = models.ChallengeVerified
		points = detail.EcoPoints
		event = &models.PointEvent{
			UserID:       detail.UserID,
			Points:       points,
			ActivityType: models.ActivityChallenge,
			ActivityID:   &detail.ChallengeID,
			Note:         "challenge verified: " + detail.Title,
			AwardedBy:    &verifierID,
		}
	}

	if err := s.repo.Verify(ctx, detail.ID, status, verifierID, now, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record verdict")
	}
	s.metrics.RecordChallengeVerdict(req.Verdict)
	if event != nil {
		s.metrics.RecordPointsAwarded(models.ActivityChallenge, points)
	}

	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &verifierID,
		Action:     models.AuditActionChallengeVerdict,
		Resource:   "challenges",
		ResourceID: &detail.ID,
		NewValues:  []byte(`{"verdict":"` + string(req.Verdict) + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record verdict audit log", zap.Error(err))
	}

	var newBadges []string
	if status == models.ChallengeVerified {
		newBadges = s.evaluateBadges(ctx, detail.UserID)
	}

	return &models.ChallengeVerifyResult{
		UserChallengeID: detail.ID,
		Status:          status,
		PointsAwarded:   points,
		NewBadges:       newBadges,
	}, nil
}

func (s *ChallengeService) evaluateBadges(ctx context.Context, userID string) []string {
	if s.badges == nil {
		return nil
	}
	newBadges, err := s.badges.EvaluateEligibility(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed after challenge verdict",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return newBadges
}
