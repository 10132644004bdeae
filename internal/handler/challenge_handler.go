package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/greenquest/greenquest-api/internal/models"
	"github.com/greenquest/greenquest-api/internal/service"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
	"github.com/greenquest/greenquest-api/pkg/response"
)

// ChallengeHandler wires HTTP endpoints to the challenge service.
type ChallengeHandler struct {
	service *service.ChallengeService
}

// NewChallengeHandler creates a new handler.
func NewChallengeHandler(svc *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{service: svc}
}

// List godoc
// @Summary List active challenges
// @Description Returns challenges open for enrollment
// @Tags Challenges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /challenges [get]
func (h *ChallengeHandler) List(c *gin.Context) {
	challenges, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, challenges, nil)
}

// Mine godoc
// @Summary List own challenge enrollments
// @Description Returns the caller's challenge workflow rows
// @Tags Challenges
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /challenges/mine [get]
func (h *ChallengeHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	details, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Pending godoc
// @Summary List submissions awaiting verification
// @Description Returns completed challenges pending a verdict
// @Tags Challenges
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /challenges/pending [get]
func (h *ChallengeHandler) Pending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	details, err := h.service.ListPendingVerification(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Enroll godoc
// @Summary Enroll in a challenge
// @Description Signs the caller up for the challenge
// @Tags Challenges
// @Produce json
// @Param id path string true "Challenge ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /challenges/{id}/enroll [post]
func (h *ChallengeHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollment, err := h.service.Enroll(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// SubmitProof godoc
// @Summary Submit completion proof
// @Description Attaches evidence and marks the challenge completed
// @Tags Challenges
// @Accept json
// @Produce json
// @Param id path string true "Challenge ID"
// @Param payload body models.ChallengeProofRequest true "Proof payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /challenges/{id}/proof [post]
func (h *ChallengeHandler) SubmitProof(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChallengeProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proof payload"))
		return
	}

	detail, err := h.service.SubmitProof(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Verify godoc
// @Summary Verify a challenge submission
// @Description Records the verdict; approval writes eco-points to the ledger
// @Tags Challenges
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.ChallengeVerdictRequest true "Verdict payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /challenges/submissions/{id}/verify [post]
func (h *ChallengeHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChallengeVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verdict payload"))
		return
	}

	result, err := h.service.Verify(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
