package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/greenquest/greenquest-api/internal/models"
	"github.com/greenquest/greenquest-api/internal/service"
	"github.com/greenquest/greenquest-api/pkg/response"
)

// LeaderboardHandler wires HTTP endpoints to the leaderboard service.
type LeaderboardHandler struct {
	service *service.LeaderboardService
}

// NewLeaderboardHandler creates a new handler.
func NewLeaderboardHandler(svc *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: svc}
}

// List godoc
// @Summary Get leaderboard standings
// @Description Returns ranked students for the requested scope and period
// @Tags Leaderboard
// @Produce json
// @Param scope query string false "global, school or class"
// @Param scope_id query string false "School or class ID"
// @Param period query string false "all, day, week, month or year"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) List(c *gin.Context) {
	scope := models.LeaderboardScope(c.DefaultQuery("scope", string(models.ScopeGlobal)))
	period := models.Period(c.DefaultQuery("period", string(models.PeriodAll)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.service.GetLeaderboard(c.Request.Context(), scope, c.Query("scope_id"), period, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Rank godoc
// @Summary Get a user's rank
// @Description Returns the user's standing; rank is 0 without qualifying points
// @Tags Leaderboard
// @Produce json
// @Param id path string true "User ID"
// @Param scope query string false "global, school or class"
// @Param scope_id query string false "School or class ID"
// @Param period query string false "all, day, week, month or year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/users/{id} [get]
func (h *LeaderboardHandler) Rank(c *gin.Context) {
	scope := models.LeaderboardScope(c.DefaultQuery("scope", string(models.ScopeGlobal)))
	period := models.Period(c.DefaultQuery("period", string(models.PeriodAll)))

	rank, err := h.service.GetUserRank(c.Request.Context(), c.Param("id"), scope, c.Query("scope_id"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rank, nil)
}
