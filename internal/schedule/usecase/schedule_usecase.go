package usecase

import (
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/schedule/domain"
	"dabble-backend/internal/schedule/dto"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
)

type scheduleUsecase struct {
	userRepo authrepo.UserRepository
	clock    clock.Clock
	log      *logger.Logger
}

func NewScheduleUsecase(userRepo authrepo.UserRepository, clk clock.Clock, log *logger.Logger) ScheduleUsecase {
	if clk == nil {
		clk = clock.Real{}
	}
	return &scheduleUsecase{
		userRepo: userRepo,
		clock:    clk,
		log:      log.With("service", "ScheduleUsecase"),
	}
}

func (u *scheduleUsecase) GetSettings(userID string) (*dto.ScheduleResponse, error) {
	user, err := u.load(userID)
	if err != nil {
		return nil, err
	}
	return toResponse(user), nil
}

func (u *scheduleUsecase) UpdateSettings(userID string, settings domain.Settings) (*dto.ScheduleResponse, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	user, err := u.load(userID)
	if err != nil {
		return nil, err
	}

	settings.Paused = user.SchedulePaused
	if err := u.userRepo.UpdateSchedule(userID, settings, true); err != nil {
		return nil, err
	}

	user.TimeZone = settings.TimeZone
	user.ScheduleFrequency = string(settings.Frequency)
	user.ScheduleTime = settings.Time
	user.OnboardingComplete = true
	if _, err := u.Recompute(user); err != nil {
		return nil, err
	}

	u.log.Info("Schedule updated", "user_id", userID, "frequency", settings.Frequency, "time", settings.Time)
	return toResponse(user), nil
}

func (u *scheduleUsecase) Pause(userID string) (*dto.ScheduleResponse, error) {
	return u.setPaused(userID, true)
}

// Resume clears the pause and schedules the next slot immediately.
func (u *scheduleUsecase) Resume(userID string) (*dto.ScheduleResponse, error) {
	return u.setPaused(userID, false)
}

func (u *scheduleUsecase) setPaused(userID string, paused bool) (*dto.ScheduleResponse, error) {
	user, err := u.load(userID)
	if err != nil {
		return nil, err
	}
	if err := u.userRepo.SetPaused(userID, paused); err != nil {
		return nil, err
	}
	user.SchedulePaused = paused
	if _, err := u.Recompute(user); err != nil {
		return nil, err
	}
	u.log.Info("Schedule pause changed", "user_id", userID, "paused", paused)
	return toResponse(user), nil
}

func (u *scheduleUsecase) Recompute(user *authdomain.User) (*time.Time, error) {
	return u.store(user, u.clock.Now())
}

func (u *scheduleUsecase) Advance(user *authdomain.User, scheduledAt time.Time) (*time.Time, error) {
	from := u.clock.Now()
	if scheduledAt.After(from) {
		from = scheduledAt
	}
	return u.store(user, from)
}

func (u *scheduleUsecase) store(user *authdomain.User, from time.Time) (*time.Time, error) {
	t, ok := domain.ComputeNext(user.ScheduleSettings(), from)
	if !ok {
		// Paused or incomplete: the stored instant is left as is.
		return user.NextDeliveryAt, nil
	}
	next := &t
	if sameInstant(user.NextDeliveryAt, next) {
		return next, nil
	}

	updated, err := u.userRepo.UpdateNextDeliveryAt(user.ID, user.NextDeliveryAt, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Someone else moved it first; report what is stored now.
		fresh, err := u.load(user.ID)
		if err != nil {
			return nil, err
		}
		u.log.Debug("next_delivery_at changed concurrently", "user_id", user.ID)
		user.NextDeliveryAt = fresh.NextDeliveryAt
		return fresh.NextDeliveryAt, nil
	}
	user.NextDeliveryAt = next
	return next, nil
}

func (u *scheduleUsecase) load(userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func toResponse(u *authdomain.User) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		TimeZone:           u.TimeZone,
		Frequency:          u.ScheduleFrequency,
		Time:               u.ScheduleTime,
		Paused:             u.SchedulePaused,
		OnboardingComplete: u.OnboardingComplete,
		NextDeliveryAt:     u.NextDeliveryAt,
		LastDeliveryAt:     u.LastDeliveryAt,
	}
}
