package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenquest/greenquest-api/internal/service"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
	"github.com/greenquest/greenquest-api/pkg/response"
)

// BadgeHandler wires HTTP endpoints to the badge service.
type BadgeHandler struct {
	service *service.BadgeService
}

// NewBadgeHandler creates a new handler.
func NewBadgeHandler(svc *service.BadgeService) *BadgeHandler {
	return &BadgeHandler{service: svc}
}

// Catalog godoc
// @Summary List badge catalog
// @Description Returns every badge definition
// @Tags Badges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /badges [get]
func (h *BadgeHandler) Catalog(c *gin.Context) {
	badges, err := h.service.ListCatalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}

// UserBadges godoc
// @Summary List a user's badges
// @Description Returns the user's earned badges, newest first
// @Tags Badges
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/{id}/badges [get]
func (h *BadgeHandler) UserBadges(c *gin.Context) {
	badges, err := h.service.ListUserBadges(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}

// RecentBadges godoc
// @Summary List recently earned badges
// @Description Returns badges the user earned within the notification window
// @Tags Badges
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/{id}/badges/recent [get]
func (h *BadgeHandler) RecentBadges(c *gin.Context) {
	badges, err := h.service.RecentlyEarned(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}

// Grant godoc
// @Summary Grant a badge manually
// @Description Grants the named badge to a user
// @Tags Badges
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body map[string]string true "Badge name"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/{id}/badges [post]
func (h *BadgeHandler) Grant(c *gin.Context) {
	var payload struct {
		BadgeName string `json:"badge_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "badge name required"))
		return
	}

	grant, err := h.service.AwardBadgeByName(c.Request.Context(), c.Param("id"), payload.BadgeName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}
