package repository

import (
	"errors"
	"time"

	"dabble-backend/internal/journal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) FindByEntryID(entryID string) (*domain.EntryAnalysis, error) {
	var analysis domain.EntryAnalysis
	err := r.db.Where("journal_entry_id = ?", entryID).First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

func (r *analysisRepository) Create(analysis *domain.EntryAnalysis) (*domain.EntryAnalysis, error) {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	analysis.CreatedAt = time.Now()
	err := r.db.Create(analysis).Error
	if err == nil {
		return analysis, nil
	}
	if !isDuplicate(err) {
		return nil, err
	}
	// Another worker got there first; analyses are never regenerated.
	existing, findErr := r.FindByEntryID(analysis.JournalEntryID)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

func (r *analysisRepository) LinkTopics(userID, entryID string, names []string) ([]*domain.Topic, error) {
	var topics []*domain.Topic
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := domain.NormalizeTopic(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		topic, err := r.findOrCreateTopic(userID, name)
		if err != nil {
			return nil, err
		}
		link := &domain.EntryTopic{
			ID:             uuid.New().String(),
			JournalEntryID: entryID,
			TopicID:        topic.ID,
			CreatedAt:      time.Now(),
		}
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (r *analysisRepository) findOrCreateTopic(userID, name string) (*domain.Topic, error) {
	var topic domain.Topic
	err := r.db.Where("user_id = ? AND name = ?", userID, name).First(&topic).Error
	if err == nil {
		return &topic, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	topic = domain.Topic{ID: uuid.New().String(), UserID: userID, Name: name, CreatedAt: time.Now()}
	if err := r.db.Create(&topic).Error; err != nil {
		if !isDuplicate(err) {
			return nil, err
		}
		if err := r.db.Where("user_id = ? AND name = ?", userID, name).First(&topic).Error; err != nil {
			return nil, err
		}
	}
	return &topic, nil
}

func (r *analysisRepository) RecentTags(userID string, since time.Time) ([][]string, error) {
	var analyses []domain.EntryAnalysis
	err := r.db.Model(&domain.EntryAnalysis{}).
		Joins("JOIN journal_entries ON journal_entries.id = entry_analyses.journal_entry_id").
		Where("journal_entries.user_id = ? AND journal_entries.received_at >= ?", userID, since.UTC()).
		Order("journal_entries.received_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, a.Tags)
	}
	return out, nil
}

func (r *analysisRepository) TopicsForEntry(entryID string) ([]*domain.Topic, error) {
	var topics []*domain.Topic
	err := r.db.Model(&domain.Topic{}).
		Joins("JOIN entry_topics ON entry_topics.topic_id = topics.id").
		Where("entry_topics.journal_entry_id = ?", entryID).
		Order("topics.name ASC").
		Find(&topics).Error
	return topics, err
}
