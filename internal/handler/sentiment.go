package handler

import (
	"net/http"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetSentiment godoc
// @Summary      Get the current news sentiment summary for a symbol
// @Description  Averages scored headlines inside the configured lookback window
// @Tags         sentiment
// @Produce      json
// @Param        symbol  path  string  true  "Stock symbol (e.g., AAPL, MSFT)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/sentiment/{symbol} [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		unsupportedSymbol(c, symbol)
		return
	}

	summary, err := h.sentiment.Summary(ctx, symbol, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if summary == nil {
		c.JSON(http.StatusOK, gin.H{
			"symbol":  symbol,
			"summary": nil,
			"note":    "no scored news in window",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"summary": summary,
	})
}

// TriggerNewsRun godoc
// @Summary      Run one news ingest and scoring cycle now
// @Description  Fetches headlines, scores unscored items, and returns cycle counters
// @Tags         runs
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  domain.NewsRunResult
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/news/run [post]
func (h *Handler) TriggerNewsRun(c *gin.Context) {
	if h.newsTrigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-news-run")
	defer span.End()

	result, err := h.newsTrigger.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
