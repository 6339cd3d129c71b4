package usecase

import (
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
)

const maxStreakDays = 365

// StreakUpdater recomputes the run of consecutive days with an entry.
type StreakUpdater struct {
	entryRepo repository.EntryRepository
	userRepo  authrepo.UserRepository
	clock     clock.Clock
	log       *logger.Logger
}

func NewStreakUpdater(entryRepo repository.EntryRepository, userRepo authrepo.UserRepository, clk clock.Clock, log *logger.Logger) *StreakUpdater {
	if clk == nil {
		clk = clock.Real{}
	}
	return &StreakUpdater{entryRepo: entryRepo, userRepo: userRepo, clock: clk, log: log.With("service", "StreakUpdater")}
}

func (s *StreakUpdater) Update(user *authdomain.User) (int, error) {
	now := s.clock.Now()
	times, err := s.entryRepo.ReceivedTimes(user.ID, now.AddDate(0, 0, -(maxStreakDays + 1)))
	if err != nil {
		return 0, err
	}

	streak := CountStreak(times, now, user.Location())
	if len(times) == 0 {
		return streak, nil
	}
	if streak != user.StreakCount {
		s.log.Info("Streak updated", "user_id", user.ID, "streak", streak)
	}
	if err := s.userRepo.UpdateStreak(user.ID, streak, times[0]); err != nil {
		return 0, err
	}
	user.StreakCount = streak
	latest := times[0]
	user.LastEntryAt = &latest
	return streak, nil
}

// CountStreak counts consecutive local days ending today that have an entry.
func CountStreak(times []time.Time, now time.Time, loc *time.Location) int {
	days := make(map[string]bool, len(times))
	for _, t := range times {
		days[t.In(loc).Format("2006-01-02")] = true
	}

	local := now.In(loc)
	streak := 0
	for streak < maxStreakDays {
		day := time.Date(local.Year(), local.Month(), local.Day()-streak, 12, 0, 0, 0, loc)
		if !days[day.Format("2006-01-02")] {
			break
		}
		streak++
	}
	return streak
}
