package delivery

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/scheduler"
	"dabble-backend/internal/journal/usecase"
	"dabble-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxInboundBytes = 10 << 20

// InboundProcessor turns a raw MIME message into an entry.
type InboundProcessor interface {
	Process(ctx context.Context, raw io.Reader) (*domain.JournalEntry, error)
}

// SweepRunner runs one delivery sweep.
type SweepRunner interface {
	RunOnce(ctx context.Context) (scheduler.SweepResult, error)
}

// RequireSecret rejects requests whose header does not carry secret. An
// empty secret disables the route.
func RequireSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
		c.Next()
	}
}

// InboundHandler accepts replies forwarded by the mail provider
type InboundHandler struct {
	processor InboundProcessor
	log       *logger.Logger
}

func NewInboundHandler(processor InboundProcessor, log *logger.Logger) *InboundHandler {
	return &InboundHandler{processor: processor, log: log.With("handler", "inbound")}
}

// ReceiveEmail takes a raw RFC 5322 message as the request body.
// POST /api/inbound/email
//
// Bounced mail gets 422 so the provider does not retry it; storage failures
// get 500 so it does.
func (h *InboundHandler) ReceiveEmail(c *gin.Context) {
	entry, err := h.processor.Process(c.Request.Context(), io.LimitReader(c.Request.Body, maxInboundBytes))
	if err != nil {
		var bounce *usecase.BounceError
		switch {
		case errors.As(err, &bounce):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "bounced", "reason": bounce.Reason})
		case errors.Is(err, domain.ErrDuplicateEntry):
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		default:
			h.log.Error("Inbound email failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process email"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created", "entry_id": entry.ID})
}

// SweepHandler lets an operator or external cron trigger a sweep
type SweepHandler struct {
	runner SweepRunner
	log    *logger.Logger
}

func NewSweepHandler(runner SweepRunner, log *logger.Logger) *SweepHandler {
	return &SweepHandler{runner: runner, log: log.With("handler", "sweep")}
}

// RunSweep runs one sweep and reports its counts
// POST /api/admin/sweep
func (h *SweepHandler) RunSweep(c *gin.Context) {
	result, err := h.runner.RunOnce(c.Request.Context())
	if err != nil {
		h.log.Error("Manual sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
