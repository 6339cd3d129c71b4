package repository

import (
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	scheduledomain "dabble-backend/internal/schedule/domain"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensByUser(userID string) error
	ReplaceRefreshToken(token *authdomain.RefreshToken) error

	// Schedule state
	FindDueForDelivery(cutoff time.Time) ([]authdomain.User, error)
	UpdateNextDeliveryAt(userID string, prev, next *time.Time) (bool, error)
	MarkDelivered(userID string, at time.Time) error
	SetPaused(userID string, paused bool) error
	UpdateSchedule(userID string, settings scheduledomain.Settings, onboardingComplete bool) error
	UpdateStreak(userID string, count int, lastEntryAt time.Time) error
}
