package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/repository"
	scheduleUsecase "dabble-backend/internal/schedule/usecase"
	"dabble-backend/internal/testutil"
	"dabble-backend/pkg/ai"
	"dabble-backend/pkg/cache"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/mailer"
	"dabble-backend/pkg/replytoken"

	"gorm.io/gorm"
)

const testMailDomain = "in.dabble.test"

// 09:00 in Chicago (CDT).
var testNow = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

type fakeCompleter struct {
	mu    sync.Mutex
	json  map[string]any
	text  string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string, _ ai.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _, _ string, _ ai.Options) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.json, f.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []AnalysisJob
}

func (f *fakeQueue) QueueJob(job AnalysisJob) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return true
}

type testEnv struct {
	db           *gorm.DB
	userRepo     authrepo.UserRepository
	promptRepo   repository.PromptRepository
	entryRepo    repository.EntryRepository
	analysisRepo repository.AnalysisRepository
	emailRepo    repository.EmailMessageRepository
	schedule     scheduleUsecase.ScheduleUsecase
	completer    *fakeCompleter
	sender       *fakeSender
	queue        *fakeQueue
	signer       *replytoken.Signer
	clock        clock.Clock
	log          *logger.Logger

	mailer    *PromptMailer
	analysis  *AnalysisGenerator
	prompts   *PromptGenerator
	followUps *FollowUpGenerator
	sendPipe  *PromptSender
	streak    *StreakUpdater
	inbound   *InboundProcessor
}

// newEnv wires the journal services over sqlite. A nil completer leaves the
// services on their keyword fallbacks.
func newEnv(t *testing.T, completer *fakeCompleter) *testEnv {
	t.Helper()

	db := testutil.DB(t)
	e := &testEnv{
		db:           db,
		userRepo:     authrepo.NewUserRepository(db),
		promptRepo:   repository.NewPromptRepository(db),
		entryRepo:    repository.NewEntryRepository(db),
		analysisRepo: repository.NewAnalysisRepository(db),
		emailRepo:    repository.NewEmailMessageRepository(db),
		completer:    completer,
		sender:       &fakeSender{},
		queue:        &fakeQueue{},
		signer:       replytoken.NewSigner("test-reply-secret", 0),
		clock:        clock.Fixed(testNow),
		log:          logger.NewNop(),
	}
	e.schedule = scheduleUsecase.NewScheduleUsecase(e.userRepo, e.clock, e.log)

	var c ai.Completer
	if completer != nil {
		c = completer
	}
	mem := cache.NewMemory(e.clock)

	e.mailer = NewPromptMailer(e.sender, e.signer, testMailDomain)
	e.analysis = NewAnalysisGenerator(e.analysisRepo, c, mem, nil, e.log)
	e.prompts = NewPromptGenerator(e.promptRepo, e.entryRepo, e.analysisRepo, c, mem, nil, e.clock, e.log)
	e.followUps = NewFollowUpGenerator(e.promptRepo, e.emailRepo, e.mailer, c, mem, nil, e.clock, e.log)
	e.sendPipe = NewPromptSender(e.prompts, e.mailer, e.promptRepo, e.emailRepo, e.userRepo, e.schedule, e.clock, e.log)
	e.streak = NewStreakUpdater(e.entryRepo, e.userRepo, e.clock, e.log)
	e.inbound = NewInboundProcessor(e.signer, e.userRepo, e.promptRepo, e.entryRepo, e.emailRepo, e.streak, e.queue, e.clock, e.log)
	return e
}

// dueUser seeds a user whose next delivery is testNow.
func (e *testEnv) dueUser(t *testing.T) *authdomain.User {
	t.Helper()
	return testutil.SeedUser(t, e.db, func(u *authdomain.User) {
		u.NextDeliveryAt = testutil.Ptr(testNow)
	})
}
