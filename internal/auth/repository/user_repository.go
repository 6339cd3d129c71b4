package repository

import (
	"errors"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	scheduledomain "dabble-backend/internal/schedule/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(user *authdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return r.db.Create(user).Error
}

func (r *userRepository) FindByEmail(email string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where("email = ?", authdomain.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(id string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *authdomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Save(user).Error
}

func (r *userRepository) SaveRefreshToken(token *authdomain.RefreshToken) error {
	return r.db.Create(token).Error
}

func (r *userRepository) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	var refreshToken authdomain.RefreshToken
	err := r.db.Where("token = ?", token).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *userRepository) DeleteRefreshToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&authdomain.RefreshToken{}).Error
}

func (r *userRepository) DeleteRefreshTokensByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&authdomain.RefreshToken{}).Error
}

// ReplaceRefreshToken adds a new refresh token and drops the user's expired ones.
func (r *userRepository) ReplaceRefreshToken(token *authdomain.RefreshToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at < ?", token.UserID, time.Now()).Delete(&authdomain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

// FindDueForDelivery returns onboarded, unpaused users whose next delivery is at or before cutoff.
func (r *userRepository) FindDueForDelivery(cutoff time.Time) ([]authdomain.User, error) {
	var users []authdomain.User
	err := r.db.
		Where("onboarding_complete = ? AND schedule_paused = ?", true, false).
		Where("next_delivery_at IS NOT NULL AND next_delivery_at <= ?", cutoff.UTC()).
		Order("next_delivery_at ASC").
		Find(&users).Error
	return users, err
}

// UpdateNextDeliveryAt writes next only if the stored value still equals prev.
// It reports whether the row was updated.
func (r *userRepository) UpdateNextDeliveryAt(userID string, prev, next *time.Time) (bool, error) {
	q := r.db.Model(&authdomain.User{}).Where("id = ?", userID)
	if prev == nil {
		q = q.Where("next_delivery_at IS NULL")
	} else {
		q = q.Where("next_delivery_at = ?", prev.UTC())
	}
	var value interface{}
	if next != nil {
		value = next.UTC()
	}
	res := q.UpdateColumn("next_delivery_at", value)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) MarkDelivered(userID string, at time.Time) error {
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).
		UpdateColumn("last_delivery_at", at.UTC()).Error
}

func (r *userRepository) SetPaused(userID string, paused bool) error {
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).
		UpdateColumn("schedule_paused", paused).Error
}

func (r *userRepository) UpdateSchedule(userID string, settings scheduledomain.Settings, onboardingComplete bool) error {
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).UpdateColumns(map[string]interface{}{
		"time_zone":           settings.TimeZone,
		"schedule_frequency":  string(settings.Frequency),
		"schedule_time":       settings.Time,
		"schedule_paused":     settings.Paused,
		"onboarding_complete": onboardingComplete,
		"updated_at":          time.Now(),
	}).Error
}

func (r *userRepository) UpdateStreak(userID string, count int, lastEntryAt time.Time) error {
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).UpdateColumns(map[string]interface{}{
		"streak_count":  count,
		"last_entry_at": lastEntryAt.UTC(),
	}).Error
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
