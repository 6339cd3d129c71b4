package repository

import (
	"errors"
	"fmt"
	"time"

	"dabble-backend/internal/journal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type entryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Create(entry *domain.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now()
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = now
	}
	entry.ReceivedAt = entry.ReceivedAt.UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if err := r.db.Omit("Analysis").Create(entry).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateEntry, err)
		}
		return err
	}
	return nil
}

func (r *entryRepository) FindByID(id string) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	err := r.db.Preload("Analysis").Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepository) FindByUserID(userID string, limit, offset int) ([]*domain.JournalEntry, int64, error) {
	var entries []*domain.JournalEntry
	var total int64

	query := r.db.Model(&domain.JournalEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Analysis").Order("received_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

func (r *entryRepository) FindRecent(userID string, since time.Time, limit int) ([]*domain.JournalEntry, error) {
	var entries []*domain.JournalEntry
	// Newest N, then flipped to chronological order.
	err := r.db.Preload("Analysis").
		Where("user_id = ? AND received_at >= ?", userID, since.UTC()).
		Order("received_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (r *entryRepository) ReceivedTimes(userID string, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.Model(&domain.JournalEntry{}).
		Where("user_id = ? AND received_at >= ?", userID, since.UTC()).
		Order("received_at DESC").
		Pluck("received_at", &times).Error
	return times, err
}
