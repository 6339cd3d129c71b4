package api

import (
	"errors"
	"net/http"

	"dabble-backend/internal/schedule/domain"
	"dabble-backend/internal/schedule/dto"
	"dabble-backend/internal/schedule/usecase"
	"dabble-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler serves the user's delivery schedule settings
type ScheduleHandler struct {
	scheduleUsecase usecase.ScheduleUsecase
	log             *logger.Logger
}

func NewScheduleHandler(scheduleUsecase usecase.ScheduleUsecase, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleUsecase: scheduleUsecase, log: log.With("handler", "schedule")}
}

// GetSchedule returns the current settings and next delivery
// GET /api/settings/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	resp, err := h.scheduleUsecase.GetSettings(c.GetString("userID"))
	h.respond(c, resp, err)
}

// UpdateSchedule saves settings, completes onboarding and reschedules
// PUT /api/settings/schedule
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.scheduleUsecase.UpdateSettings(c.GetString("userID"), domain.Settings{
		TimeZone:  req.TimeZone,
		Frequency: domain.Frequency(req.Frequency),
		Time:      req.Time,
	})
	h.respond(c, resp, err)
}

// Pause stops deliveries until resumed
// POST /api/settings/schedule/pause
func (h *ScheduleHandler) Pause(c *gin.Context) {
	resp, err := h.scheduleUsecase.Pause(c.GetString("userID"))
	h.respond(c, resp, err)
}

// Resume restarts deliveries from now
// POST /api/settings/schedule/resume
func (h *ScheduleHandler) Resume(c *gin.Context) {
	resp, err := h.scheduleUsecase.Resume(c.GetString("userID"))
	h.respond(c, resp, err)
}

func (h *ScheduleHandler) respond(c *gin.Context, resp *dto.ScheduleResponse, err error) {
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
		case errors.Is(err, usecase.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.log.Error("Schedule request failed", "user_id", c.GetString("userID"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update schedule"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}
