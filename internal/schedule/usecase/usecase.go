package usecase

import (
	"errors"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	"dabble-backend/internal/schedule/domain"
	"dabble-backend/internal/schedule/dto"
)

var ErrUserNotFound = errors.New("user not found")

// ScheduleUsecase owns a user's next_delivery_at.
type ScheduleUsecase interface {
	GetSettings(userID string) (*dto.ScheduleResponse, error)
	// UpdateSettings validates and saves settings, completes onboarding and recomputes.
	UpdateSettings(userID string, settings domain.Settings) (*dto.ScheduleResponse, error)
	Pause(userID string) (*dto.ScheduleResponse, error)
	Resume(userID string) (*dto.ScheduleResponse, error)
	// Recompute sets next_delivery_at from the current time. A paused or
	// incomplete schedule performs no update.
	Recompute(user *authdomain.User) (*time.Time, error)
	// Advance sets next_delivery_at to the first slot after both now and scheduledAt.
	Advance(user *authdomain.User, scheduledAt time.Time) (*time.Time, error)
}
