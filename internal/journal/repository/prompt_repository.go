package repository

import (
	"errors"
	"fmt"
	"time"

	"dabble-backend/internal/journal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type promptRepository struct {
	db *gorm.DB
}

func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) Create(prompt *domain.Prompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	if prompt.Status == "" {
		prompt.Status = domain.PromptStatusDraft
	}
	now := time.Now()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now
	if err := r.db.Create(prompt).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicatePrompt, err)
		}
		return err
	}
	return nil
}

func (r *promptRepository) FindByID(id string) (*domain.Prompt, error) {
	var prompt domain.Prompt
	err := r.db.Where("id = ?", id).First(&prompt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) FindByIdempotencyKey(userID, key string) (*domain.Prompt, error) {
	var prompt domain.Prompt
	err := r.db.Where("user_id = ? AND idempotency_key = ?", userID, key).First(&prompt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) FindLatestSent(userID string) (*domain.Prompt, error) {
	var prompt domain.Prompt
	err := r.db.Where("user_id = ? AND sent_at IS NOT NULL", userID).
		Order("sent_at DESC").First(&prompt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) FindByUserID(userID string, limit, offset int) ([]*domain.Prompt, int64, error) {
	var prompts []*domain.Prompt
	var total int64

	query := r.db.Model(&domain.Prompt{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&prompts).Error
	return prompts, total, err
}

func (r *promptRepository) AdvanceStatus(id string, status domain.PromptStatus, at time.Time) error {
	var prompt domain.Prompt
	if err := r.db.Where("id = ?", id).First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPromptNotFound
		}
		return err
	}
	if !prompt.Status.CanAdvanceTo(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatus, prompt.Status, status)
	}

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	switch status {
	case domain.PromptStatusSent:
		updates["sent_at"] = at.UTC()
	case domain.PromptStatusReplied:
		updates["replied_at"] = at.UTC()
	}
	// Conditioned on the status we read so concurrent writers cannot move it backwards.
	res := r.db.Model(&domain.Prompt{}).Where("id = ? AND status = ?", id, prompt.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s changed concurrently", domain.ErrInvalidStatus, id)
	}
	return nil
}

func (r *promptRepository) MarkFollowUpSent(id string, at time.Time) (bool, error) {
	res := r.db.Model(&domain.Prompt{}).
		Where("id = ? AND follow_up_sent_at IS NULL", id).
		Updates(map[string]interface{}{
			"follow_up_sent_at": at.UTC(),
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *promptRepository) ReleaseFollowUp(id string) error {
	return r.db.Model(&domain.Prompt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"follow_up_sent_at": nil,
			"updated_at":        time.Now(),
		}).Error
}
