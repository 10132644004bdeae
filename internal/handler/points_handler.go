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

// PointsHandler wires HTTP endpoints to the award service.
type PointsHandler struct {
	service *service.AwardService
}

// NewPointsHandler creates a new handler.
func NewPointsHandler(svc *service.AwardService) *PointsHandler {
	return &PointsHandler{service: svc}
}

// Award godoc
// @Summary Award eco-points manually
// @Description Append a manual point event to a student's ledger
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body models.AwardPointsRequest true "Award payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /points/award [post]
func (h *PointsHandler) Award(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid award payload"))
		return
	}

	result, err := h.service.AwardPoints(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Total godoc
// @Summary Get total eco-points
// @Description Returns a user's all-time eco-point total
// @Tags Points
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/{id}/points [get]
func (h *PointsHandler) Total(c *gin.Context) {
	userID := c.Param("id")
	total, err := h.service.GetTotalPoints(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"user_id": userID, "total_points": total}, nil)
}

// History godoc
// @Summary Get eco-point history
// @Description Returns a user's ledger entries, newest first
// @Tags Points
// @Produce json
// @Param id path string true "User ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/{id}/points/history [get]
func (h *PointsHandler) History(c *gin.Context) {
	userID := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	events, pagination, err := h.service.GetHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Summary godoc
// @Summary Get eco-point summary
// @Description Returns a user's totals and per-activity breakdown
// @Tags Points
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/{id}/points/summary [get]
func (h *PointsHandler) Summary(c *gin.Context) {
	userID := c.Param("id")
	summary, err := h.service.GetSummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
