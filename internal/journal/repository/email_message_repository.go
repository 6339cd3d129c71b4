package repository

import (
	"time"

	"dabble-backend/internal/journal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type emailMessageRepository struct {
	db *gorm.DB
}

func NewEmailMessageRepository(db *gorm.DB) EmailMessageRepository {
	return &emailMessageRepository{db: db}
}

func (r *emailMessageRepository) Create(msg *domain.EmailMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = time.Now()
	if msg.SentOrReceivedAt.IsZero() {
		msg.SentOrReceivedAt = msg.CreatedAt
	}
	msg.SentOrReceivedAt = msg.SentOrReceivedAt.UTC()
	return r.db.Create(msg).Error
}

func (r *emailMessageRepository) FindByPromptID(promptID string) ([]*domain.EmailMessage, error) {
	var msgs []*domain.EmailMessage
	err := r.db.Where("prompt_id = ?", promptID).Order("sent_or_received_at ASC").Find(&msgs).Error
	return msgs, err
}

func (r *emailMessageRepository) FindByUserID(userID string, limit int) ([]*domain.EmailMessage, error) {
	var msgs []*domain.EmailMessage
	err := r.db.Where("user_id = ?", userID).Order("sent_or_received_at DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}
