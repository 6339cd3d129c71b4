package domain

import (
	"strings"
	"time"

	scheduledomain "dabble-backend/internal/schedule/domain"

	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `json:"-"` // Never return password in JSON
	Name      string    `json:"name"`
	Provider  string    `json:"provider"` // "email"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Delivery schedule
	TimeZone           string     `json:"time_zone"`
	ScheduleFrequency  string     `json:"schedule_frequency"`
	ScheduleTime       string     `json:"schedule_time"`
	SchedulePaused     bool       `gorm:"not null;default:false" json:"schedule_paused"`
	NextDeliveryAt     *time.Time `gorm:"index" json:"next_delivery_at,omitempty"`
	LastDeliveryAt     *time.Time `json:"last_delivery_at,omitempty"`
	OnboardingComplete bool       `gorm:"not null;default:false" json:"onboarding_complete"`
	TonePreference     string     `json:"tone_preference,omitempty"` // casual, formal or warm

	StreakCount int        `gorm:"not null;default:0" json:"streak_count"`
	LastEntryAt *time.Time `json:"last_entry_at,omitempty"`
}

// BeforeSave keeps emails comparable regardless of how they were typed.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) ScheduleSettings() scheduledomain.Settings {
	return scheduledomain.Settings{
		TimeZone:  u.TimeZone,
		Frequency: scheduledomain.Frequency(u.ScheduleFrequency),
		Time:      u.ScheduleTime,
		Paused:    u.SchedulePaused,
	}
}

// Location is the user's zone, or the default zone when unset or unknown.
func (u *User) Location() *time.Location {
	return scheduledomain.Location(u.TimeZone)
}

type RefreshToken struct {
	Token     string    `gorm:"primaryKey" json:"token"`
	UserID    string    `gorm:"index;type:varchar(36)" json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Models lists the tables owned by the auth feature.
func Models() []interface{} {
	return []interface{}{&User{}, &RefreshToken{}}
}
