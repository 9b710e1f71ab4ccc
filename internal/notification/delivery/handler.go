package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/scheduler"
	"notify-dispatcher/internal/notification/usecase"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"
)

// NotificationHandler handles job, run and dead-letter HTTP requests
type NotificationHandler struct {
	usecase usecase.NotificationUsecase
	runner  scheduler.Runner
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(uc usecase.NotificationUsecase, runner scheduler.Runner) *NotificationHandler {
	return &NotificationHandler{usecase: uc, runner: runner}
}

// EnqueueRequest represents the request body for creating a job
type EnqueueRequest struct {
	Title     string                 `json:"title" binding:"required"`
	Body      string                 `json:"body" binding:"required"`
	ImageURL  string                 `json:"image_url" binding:"omitempty,url"`
	Action    string                 `json:"action"`
	Topic     string                 `json:"topic" binding:"required_without=Token"`
	Token     string                 `json:"token" binding:"required_without=Topic"`
	SendAt    *time.Time             `json:"send_at"`
	ExpiresAt *time.Time             `json:"expires_at"`
	Extra     map[string]interface{} `json:"extra"`
}

// Enqueue creates a queued job
// POST /api/jobs
func (h *NotificationHandler) Enqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	extra, dropped := domain.ExtraFromMap(req.Extra)
	if len(dropped) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "extra values must be strings, numbers or booleans", "keys": dropped})
		return
	}

	in := usecase.EnqueueRequest{
		Title:     req.Title,
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		Action:    req.Action,
		Topic:     req.Topic,
		Token:     req.Token,
		ExpiresAt: req.ExpiresAt,
		Extra:     extra,
	}
	if req.SendAt != nil {
		in.SendAt = *req.SendAt
	}

	job, err := h.usecase.Enqueue(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrMissingTarget) || errors.Is(err, domain.ErrAmbiguousTarget) || errors.Is(err, domain.ErrJobExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		zlog.Logger.Error().Err(err).Str("component", "api").Msg("failed to enqueue job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob returns a specific job
// GET /api/jobs/:id
func (h *NotificationHandler) GetJob(c *gin.Context) {
	job, err := h.usecase.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}

// TriggerRun performs one dispatch run and returns its statistics
// POST /api/runs?dry_run=true
func (h *NotificationHandler) TriggerRun(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))

	stats, err := h.runner.Run(c.Request.Context(), scheduler.RunOptions{DryRun: dryRun})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("component", "api").Msg("manual run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": stats})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetHistory returns recent deliveries
// GET /api/history?limit=50
func (h *NotificationHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.usecase.ListHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []*domain.HistoryRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"history": records, "count": len(records)})
}

// GetDeadLetters returns recent dead-lettered jobs
// GET /api/dead-letters?limit=50
func (h *NotificationHandler) GetDeadLetters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.usecase.ListDeadLetters(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []*domain.DeadLetterRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"dead_letters": records, "count": len(records)})
}
