package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/api/domain"
	"github.com/cuongbtq/xe-rate-worker/internal/api/dto"
	"github.com/cuongbtq/xe-rate-worker/internal/api/storage"
	workerdomain "github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// EnqueueJob handles POST /api/v1/jobs
// Puts a rate job for the pair on the work queue
func (h *RateHandler) EnqueueJob(c *gin.Context) {
	var req dto.EnqueueJobRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	// everything besides from/to is carried through to the worker
	var extra map[string]json.RawMessage
	if err := c.ShouldBindBodyWith(&extra, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	id, err := h.producer.Enqueue(c.Request.Context(), req.From, req.To, extra)
	if err != nil {
		if errors.Is(err, workerdomain.ErrInvalidCurrency) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "currency codes must be exactly 3 characters",
			})
			return
		}

		h.logger.Error("Failed to enqueue job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.EnqueueJobResponse{
		JobID:  id,
		From:   req.From,
		To:     req.To,
		Status: "queued",
	})
}

// ListRates handles GET /api/v1/rates
// Lists stored samples newest first with optional pair filter and pagination
func (h *RateHandler) ListRates(c *gin.Context) {
	var req dto.ListRatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 {
		req.Limit = domain.DefaultPageSize
	}

	if req.Limit > domain.MaxPageSize {
		req.Limit = domain.MaxPageSize
	}

	cursor, err := DecodeRateCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.RateFilter{
		From:     req.From,
		To:       req.To,
		PageSize: req.Limit,
		Cursor:   cursor,
	}

	rates, err := h.storage.ListRates(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list rates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list rates",
		})
		return
	}

	hasMore := len(rates) > req.Limit
	if hasMore {
		rates = rates[:req.Limit]
	}

	rateResponse := make([]dto.RateDTO, len(rates))
	for i, r := range rates {
		rateResponse[i] = dto.RateDTO{
			ID:        r.ID,
			From:      r.From,
			To:        r.To,
			Rate:      r.Rate,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	var nextCursor string
	if hasMore {
		last := rates[len(rates)-1]
		nextCursor = EncodeRateCursor(&storage.RateCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListRatesResponse{
		Rates:      rateResponse,
		NextCursor: nextCursor,
	})
}

// Health handles GET /health
func (h *RateHandler) Health(c *gin.Context) {
	if err := h.storage.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "xe-rate-api",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "xe-rate-api",
	})
}
