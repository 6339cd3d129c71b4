package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authDelivery "dabble-backend/internal/auth/delivery"
	authUsecase "dabble-backend/internal/auth/usecase"
	"dabble-backend/internal/app"
	journalDelivery "dabble-backend/internal/journal/delivery"
	scheduleUsecase "dabble-backend/internal/schedule/usecase"
	"dabble-backend/pkg/config"
	"dabble-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecase.AuthUsecase
	scheduleHandler *ScheduleHandler
	authHandler     *authDelivery.AuthHandler
	journalHandler  *journalDelivery.JournalHandler
	inboundHandler  *journalDelivery.InboundHandler
	sweepHandler    *journalDelivery.SweepHandler
	config          *config.Config
	log             *logger.Logger
}

func NewHandler(a *app.App) *Handler {
	return newHandler(a.Config, a.Log, a.Auth, a.Schedule,
		journalDelivery.NewJournalHandler(a.Journal, a.Log),
		journalDelivery.NewInboundHandler(a.Inbound, a.Log),
		journalDelivery.NewSweepHandler(a.Sweep, a.Log),
	)
}

func newHandler(
	cfg *config.Config,
	log *logger.Logger,
	authUc authUsecase.AuthUsecase,
	scheduleUc scheduleUsecase.ScheduleUsecase,
	journalHandler *journalDelivery.JournalHandler,
	inboundHandler *journalDelivery.InboundHandler,
	sweepHandler *journalDelivery.SweepHandler,
) *Handler {
	return &Handler{
		authUsecase:     authUc,
		scheduleHandler: NewScheduleHandler(scheduleUc, log),
		authHandler:     authDelivery.NewAuthHandler(authUc),
		journalHandler:  journalHandler,
		inboundHandler:  inboundHandler,
		sweepHandler:    sweepHandler,
		config:          cfg,
		log:             log.With("service", "HTTP"),
	}
}

// Router builds the gin engine with CORS and every route.
func (h *Handler) Router() *gin.Engine {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("Server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	h.log.Info("Server shutting down")
	return srv.Shutdown(shutdownCtx)
}
