package usecase

import (
	"sync"
	"testing"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/schedule/domain"
	"dabble-backend/internal/testutil"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, now time.Time) (ScheduleUsecase, authrepo.UserRepository, *authdomain.User) {
	t.Helper()
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, func(u *authdomain.User) {
		u.OnboardingComplete = false
		u.ScheduleFrequency = ""
		u.ScheduleTime = ""
	})
	repo := authrepo.NewUserRepository(db)
	return NewScheduleUsecase(repo, clock.Fixed(now), logger.NewNop()), repo, user
}

func TestUpdateSettingsCompletesOnboardingAndSchedules(t *testing.T) {
	loc, _ := time.LoadLocation("America/Chicago")
	now := time.Date(2025, 3, 12, 8, 0, 0, 0, loc)
	uc, repo, user := setup(t, now)

	resp, err := uc.UpdateSettings(user.ID, domain.Settings{
		TimeZone: "America/Chicago", Frequency: domain.FrequencyDaily, Time: "09:00",
	})
	require.NoError(t, err)
	assert.True(t, resp.OnboardingComplete)
	require.NotNil(t, resp.NextDeliveryAt)
	assert.True(t, resp.NextDeliveryAt.Equal(time.Date(2025, 3, 12, 9, 0, 0, 0, loc)))

	stored, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.True(t, stored.OnboardingComplete)
	require.NotNil(t, stored.NextDeliveryAt)
	assert.True(t, stored.NextDeliveryAt.Equal(*resp.NextDeliveryAt))
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	uc, _, user := setup(t, time.Now())

	_, err := uc.UpdateSettings(user.ID, domain.Settings{TimeZone: "UTC", Frequency: "monthly", Time: "09:00"})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPauseKeepsStoredSlotAndResumeRecomputes(t *testing.T) {
	now := time.Date(2025, 3, 12, 20, 0, 0, 0, time.UTC)
	uc, repo, user := setup(t, now)
	_, err := uc.UpdateSettings(user.ID, domain.Settings{TimeZone: "UTC", Frequency: domain.FrequencyDaily, Time: "09:00"})
	require.NoError(t, err)
	before, _ := repo.FindByID(user.ID)
	require.NotNil(t, before.NextDeliveryAt)

	resp, err := uc.Pause(user.ID)
	require.NoError(t, err)
	assert.True(t, resp.Paused)

	stored, _ := repo.FindByID(user.ID)
	assert.True(t, stored.SchedulePaused)
	require.NotNil(t, stored.NextDeliveryAt)
	assert.True(t, stored.NextDeliveryAt.Equal(*before.NextDeliveryAt))

	resp, err = uc.Resume(user.ID)
	require.NoError(t, err)
	assert.False(t, resp.Paused)
	require.NotNil(t, resp.NextDeliveryAt)
	assert.True(t, resp.NextDeliveryAt.Equal(time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)))
}

func TestAdvanceWhilePausedWritesNothing(t *testing.T) {
	slot := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	uc, repo, user := setup(t, slot.Add(-time.Hour))
	_, err := uc.UpdateSettings(user.ID, domain.Settings{TimeZone: "UTC", Frequency: domain.FrequencyDaily, Time: "09:00"})
	require.NoError(t, err)
	_, err = uc.Pause(user.ID)
	require.NoError(t, err)

	stored, _ := repo.FindByID(user.ID)
	next, err := uc.Advance(stored, slot)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(slot))

	stored, _ = repo.FindByID(user.ID)
	require.NotNil(t, stored.NextDeliveryAt)
	assert.True(t, stored.NextDeliveryAt.Equal(slot))
}

func TestAdvanceMovesPastScheduledSlot(t *testing.T) {
	// Sent 10 minutes early: the next slot must be tomorrow, not the same instant.
	slot := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	uc, repo, user := setup(t, slot.Add(-10*time.Minute))
	_, err := uc.UpdateSettings(user.ID, domain.Settings{TimeZone: "UTC", Frequency: domain.FrequencyDaily, Time: "09:00"})
	require.NoError(t, err)

	stored, _ := repo.FindByID(user.ID)
	require.True(t, stored.NextDeliveryAt.Equal(slot))

	next, err := uc.Advance(stored, slot)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(slot.AddDate(0, 0, 1)))
}

func TestConcurrentAdvanceDoesNotDoubleStep(t *testing.T) {
	slot := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	uc, repo, user := setup(t, slot.Add(time.Minute))
	_, err := uc.UpdateSettings(user.ID, domain.Settings{TimeZone: "UTC", Frequency: domain.FrequencyDaily, Time: "09:00"})
	require.NoError(t, err)

	// Both callers read the same row before either writes.
	a, _ := repo.FindByID(user.ID)
	b, _ := repo.FindByID(user.ID)

	var wg sync.WaitGroup
	results := make([]*time.Time, 2)
	for i, u := range []*authdomain.User{a, b} {
		wg.Add(1)
		go func(i int, u *authdomain.User) {
			defer wg.Done()
			results[i], _ = uc.Advance(u, *u.NextDeliveryAt)
		}(i, u)
	}
	wg.Wait()

	stored, _ := repo.FindByID(user.ID)
	want := time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)
	assert.True(t, stored.NextDeliveryAt.Equal(want))
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, r.Equal(want))
	}
}

func TestUnknownUser(t *testing.T) {
	uc, _, _ := setup(t, time.Now())
	_, err := uc.GetSettings("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
