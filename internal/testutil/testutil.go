package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	journaldomain "dabble-backend/internal/journal/domain"
	"dabble-backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var dbSeq int64

// DB returns a fresh in-memory sqlite database with every model migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := database.Open("sqlite", dsn, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}

	models := append(authdomain.Models(), journaldomain.Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}

	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser inserts an onboarded user with a daily 09:00 Chicago schedule.
func SeedUser(tb testing.TB, db *gorm.DB, mutate ...func(*authdomain.User)) *authdomain.User {
	tb.Helper()

	id := uuid.New().String()
	u := &authdomain.User{
		ID:                 id,
		Email:              "user-" + id[:8] + "@example.com",
		Name:               "Test User",
		Provider:           "email",
		TimeZone:           "America/Chicago",
		ScheduleFrequency:  "daily",
		ScheduleTime:       "09:00",
		OnboardingComplete: true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	for _, m := range mutate {
		m(u)
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedPrompt inserts a sent prompt for the user.
func SeedPrompt(tb testing.TB, db *gorm.DB, userID string, mutate ...func(*journaldomain.Prompt)) *journaldomain.Prompt {
	tb.Helper()

	sentAt := time.Now().UTC()
	p := &journaldomain.Prompt{
		ID:         uuid.New().String(),
		UserID:     userID,
		Question1:  "What went well today?",
		Question2:  "What is on your mind?",
		Subject:    "Your journaling questions for today",
		Status:     journaldomain.PromptStatusSent,
		PromptType: journaldomain.PromptTypeDaily,
		Source:     journaldomain.PromptSourceFallback,
		SentAt:     &sentAt,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	for _, m := range mutate {
		m(p)
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed prompt: %v", err)
	}
	return p
}

// SeedEntry inserts an entry for the user.
func SeedEntry(tb testing.TB, db *gorm.DB, userID, body string, mutate ...func(*journaldomain.JournalEntry)) *journaldomain.JournalEntry {
	tb.Helper()

	e := &journaldomain.JournalEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		Body:        body,
		CleanedBody: body,
		Source:      journaldomain.EntrySourceWeb,
		ReceivedAt:  time.Now().UTC(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	for _, m := range mutate {
		m(e)
	}
	if err := db.Omit("Analysis").Create(e).Error; err != nil {
		tb.Fatalf("seed entry: %v", err)
	}
	return e
}

// SeedAnalysis attaches an analysis to an entry.
func SeedAnalysis(tb testing.TB, db *gorm.DB, entry *journaldomain.JournalEntry, sentiment string, tags ...string) *journaldomain.EntryAnalysis {
	tb.Helper()

	themes := tags
	if len(themes) > 3 {
		themes = themes[:3]
	}
	a := &journaldomain.EntryAnalysis{
		ID:             uuid.New().String(),
		JournalEntryID: entry.ID,
		UserID:         entry.UserID,
		Summary:        "A short summary. With two sentences.",
		Sentiment:      sentiment,
		Emotion:        "calm",
		Tags:           tags,
		KeyThemes:      themes,
		Source:         "fallback",
		CreatedAt:      time.Now(),
	}
	if err := db.Create(a).Error; err != nil {
		tb.Fatalf("seed analysis: %v", err)
	}
	entry.Analysis = a
	return a
}

func Ptr[T any](v T) *T { return &v }
