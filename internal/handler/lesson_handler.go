package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/greenquest/greenquest-api/internal/service"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
	"github.com/greenquest/greenquest-api/pkg/response"
)

// LessonHandler wires HTTP endpoints to the lesson service.
type LessonHandler struct {
	service *service.LessonService
}

// NewLessonHandler creates a new handler.
func NewLessonHandler(svc *service.LessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// Complete godoc
// @Summary Complete a lesson
// @Description Marks the lesson finished and awards fixed eco-points
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lessons/{id}/complete [post]
func (h *LessonHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Complete(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
