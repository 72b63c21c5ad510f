package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetAccuracyHistory godoc
// @Summary      Get hourly accuracy records for a symbol
// @Description  Returns stored evaluation records newest bucket first, each graded with its tier
// @Tags         accuracy
// @Produce      json
// @Param        symbol  path   string  true   "Stock symbol (e.g., AAPL, MSFT)"
// @Param        limit   query  int     false  "Number of rows (default 50, max 200)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/accuracy/{symbol} [get]
func (h *Handler) GetAccuracyHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-accuracy-history")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		unsupportedSymbol(c, symbol)
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	records, err := h.accuracy.GetAccuracyHistory(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type gradedRecord struct {
		domain.AccuracyRecord
		Tier domain.AccuracyTier `json:"tier"`
	}
	graded := make([]gradedRecord, 0, len(records))
	for _, rec := range records {
		graded = append(graded, gradedRecord{AccuracyRecord: rec, Tier: rec.Tier()})
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"records": graded,
	})
}

// TriggerAccuracyRun godoc
// @Summary      Run one accuracy pass over all symbols now
// @Description  Resolves realized closes, evaluates matched forecasts, and returns per-run counters
// @Tags         runs
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  domain.RunResult
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/accuracy/run [post]
func (h *Handler) TriggerAccuracyRun(c *gin.Context) {
	if h.accuracyTrigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accuracy service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-accuracy-run")
	defer span.End()

	result, err := h.accuracyTrigger.RunAccuracyPass(ctx, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
