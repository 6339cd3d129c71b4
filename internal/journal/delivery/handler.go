package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/dto"
	"dabble-backend/internal/journal/usecase"
	"dabble-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JournalHandler handles entry and prompt requests for the signed-in user
type JournalHandler struct {
	journalUsecase usecase.JournalUsecase
	log            *logger.Logger
}

func NewJournalHandler(journalUsecase usecase.JournalUsecase, log *logger.Logger) *JournalHandler {
	return &JournalHandler{journalUsecase: journalUsecase, log: log.With("handler", "journal")}
}

// ListEntries returns the user's entries, newest first
// GET /api/entries?limit=20&offset=0
func (h *JournalHandler) ListEntries(c *gin.Context) {
	userID := c.GetString("userID")
	limit, offset := pageParams(c)

	resp, err := h.journalUsecase.ListEntries(userID, limit, offset)
	if err != nil {
		h.log.Error("Listing entries failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetEntry returns one entry with its analysis and topics
// GET /api/entries/:id
func (h *JournalHandler) GetEntry(c *gin.Context) {
	userID := c.GetString("userID")

	resp, err := h.journalUsecase.GetEntry(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		h.log.Error("Loading entry failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entry"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateEntry stores an entry written on the web
// POST /api/entries
func (h *JournalHandler) CreateEntry(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.journalUsecase.CreateEntry(userID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyEntry):
			c.JSON(http.StatusBadRequest, gin.H{"error": "entry body is empty"})
		case errors.Is(err, usecase.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.log.Error("Creating entry failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create entry"})
		}
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListPrompts returns the prompts sent to the user, newest first
// GET /api/prompts?limit=20&offset=0
func (h *JournalHandler) ListPrompts(c *gin.Context) {
	userID := c.GetString("userID")
	limit, offset := pageParams(c)

	resp, err := h.journalUsecase.ListPrompts(userID, limit, offset)
	if err != nil {
		h.log.Error("Listing prompts failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list prompts"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SendNow generates and mails the user's next prompt immediately
// POST /api/prompts/send-now
func (h *JournalHandler) SendNow(c *gin.Context) {
	userID := c.GetString("userID")

	prompt, err := h.journalUsecase.SendNow(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicatePrompt):
			c.JSON(http.StatusConflict, gin.H{"error": "a prompt was already sent for this delivery window"})
		case errors.Is(err, usecase.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.log.Error("Send now failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send prompt"})
		}
		return
	}
	c.JSON(http.StatusOK, prompt)
}

func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
