package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/dto"
	"dabble-backend/internal/journal/scheduler"
	"dabble-backend/internal/journal/usecase"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/mailer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJournal struct {
	sendErr  error
	entryErr error
	created  string
}

func (f *fakeJournal) CreateEntry(userID, body string) (*domain.JournalEntry, error) {
	if f.entryErr != nil {
		return nil, f.entryErr
	}
	f.created = body
	return &domain.JournalEntry{ID: "e-1", UserID: userID, Body: body}, nil
}

func (f *fakeJournal) GetEntry(userID, id string) (*dto.EntryResponse, error) {
	if id != "e-1" {
		return nil, domain.ErrEntryNotFound
	}
	return &dto.EntryResponse{JournalEntry: &domain.JournalEntry{ID: id, UserID: userID}}, nil
}

func (f *fakeJournal) ListEntries(userID string, limit, offset int) (*dto.EntryListResponse, error) {
	return &dto.EntryListResponse{Limit: limit, Offset: offset}, nil
}

func (f *fakeJournal) ListPrompts(userID string, limit, offset int) (*dto.PromptListResponse, error) {
	return &dto.PromptListResponse{Limit: limit, Offset: offset}, nil
}

func (f *fakeJournal) SendNow(_ context.Context, userID string) (*domain.Prompt, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &domain.Prompt{ID: "p-1", UserID: userID, Status: domain.PromptStatusSent}, nil
}

func journalRouter(j usecase.JournalUsecase) *gin.Engine {
	h := NewJournalHandler(j, logger.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", "u-1") })
	r.GET("/entries", h.ListEntries)
	r.GET("/entries/:id", h.GetEntry)
	r.POST("/entries", h.CreateEntry)
	r.GET("/prompts", h.ListPrompts)
	r.POST("/prompts/send-now", h.SendNow)
	return r
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendNowHidesInternalErrors(t *testing.T) {
	j := &fakeJournal{sendErr: &mailer.DeliveryError{Provider: "sendgrid", Err: errors.New("api key rejected")}}
	w := do(journalRouter(j), http.MethodPost, "/prompts/send-now", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to send prompt"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "api key")
}

func TestSendNowDuplicateWindow(t *testing.T) {
	j := &fakeJournal{sendErr: domain.ErrDuplicatePrompt}
	w := do(journalRouter(j), http.MethodPost, "/prompts/send-now", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSendNowSuccess(t *testing.T) {
	w := do(journalRouter(&fakeJournal{}), http.MethodPost, "/prompts/send-now", "")
	require.Equal(t, http.StatusOK, w.Code)

	var p domain.Prompt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "u-1", p.UserID)
}

func TestCreateEntry(t *testing.T) {
	j := &fakeJournal{}
	w := do(journalRouter(j), http.MethodPost, "/entries", `{"body":"Walked home in the rain."}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Walked home in the rain.", j.created)

	w = do(journalRouter(j), http.MethodPost, "/entries", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(journalRouter(&fakeJournal{entryErr: domain.ErrEmptyEntry}), http.MethodPost, "/entries", `{"body":"<p></p>"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEntryNotFound(t *testing.T) {
	r := journalRouter(&fakeJournal{})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/entries/e-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/entries/other", "").Code)
}

func TestListEntriesPassesPaging(t *testing.T) {
	w := do(journalRouter(&fakeJournal{}), http.MethodGet, "/entries?limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.EntryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, 10, resp.Offset)
}

type fakeProcessor struct {
	err  error
	body string
}

func (f *fakeProcessor) Process(_ context.Context, raw io.Reader) (*domain.JournalEntry, error) {
	b, _ := io.ReadAll(raw)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.JournalEntry{ID: "e-9"}, nil
}

func inboundRouter(p InboundProcessor) *gin.Engine {
	r := gin.New()
	r.POST("/inbound", RequireSecret("X-Inbound-Secret", "s3cret"), NewInboundHandler(p, logger.NewNop()).ReceiveEmail)
	return r
}

func TestInboundWebhook(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"created", nil, http.StatusCreated},
		{"bounced", &usecase.BounceError{Reason: usecase.BounceInvalidToken}, http.StatusUnprocessableEntity},
		{"duplicate", domain.ErrDuplicateEntry, http.StatusOK},
		{"storage failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{err: tt.err}
			w := do(inboundRouter(p), http.MethodPost, "/inbound", "Subject: hi\r\n\r\nbody", "X-Inbound-Secret", "s3cret")
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, p.body, "Subject: hi")
			assert.NotContains(t, w.Body.String(), "db down")
		})
	}
}

func TestRequireSecret(t *testing.T) {
	p := &fakeProcessor{}
	assert.Equal(t, http.StatusUnauthorized, do(inboundRouter(p), http.MethodPost, "/inbound", "x").Code)
	assert.Equal(t, http.StatusUnauthorized, do(inboundRouter(p), http.MethodPost, "/inbound", "x", "X-Inbound-Secret", "wrong").Code)
	assert.Empty(t, p.body)

	r := gin.New()
	r.POST("/closed", RequireSecret("X-Admin-Secret", ""), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/closed", "", "X-Admin-Secret", "").Code)
}

type fakeRunner struct {
	result scheduler.SweepResult
	err    error
}

func (f *fakeRunner) RunOnce(context.Context) (scheduler.SweepResult, error) {
	return f.result, f.err
}

func TestRunSweep(t *testing.T) {
	r := gin.New()
	r.POST("/sweep", NewSweepHandler(&fakeRunner{result: scheduler.SweepResult{Sent: 2, Skipped: 1}}, logger.NewNop()).RunSweep)

	w := do(r, http.MethodPost, "/sweep", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sent":2,"skipped":1,"errored":0}`, w.Body.String())

	r = gin.New()
	r.POST("/sweep", NewSweepHandler(&fakeRunner{err: errors.New("db down")}, logger.NewNop()).RunSweep)
	w = do(r, http.MethodPost, "/sweep", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
