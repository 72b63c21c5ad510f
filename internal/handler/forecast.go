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

// GetForecasts godoc
// @Summary      Get recent ensemble forecasts for a symbol
// @Description  Returns stored forecasts newest target date first
// @Tags         forecasts
// @Produce      json
// @Param        symbol  path   string  true   "Stock symbol (e.g., AAPL, MSFT)"
// @Param        limit   query  int     false  "Number of rows (default 50, max 200)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/forecasts/{symbol} [get]
func (h *Handler) GetForecasts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-forecasts")
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

	forecasts, err := h.forecasts.GetForecasts(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"forecasts": forecasts,
	})
}

// GetLatestForecasts godoc
// @Summary      Get the freshest forecast per horizon for a symbol
// @Description  Returns at most one forecast per configured horizon, shortest first
// @Tags         forecasts
// @Produce      json
// @Param        symbol  path  string  true  "Stock symbol (e.g., AAPL, MSFT)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/forecasts/{symbol}/latest [get]
func (h *Handler) GetLatestForecasts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest-forecasts")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		unsupportedSymbol(c, symbol)
		return
	}

	forecasts, err := h.forecasts.GetLatestForecasts(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"forecasts": forecasts,
	})
}

// TriggerForecastRun godoc
// @Summary      Run one forecast pass over all symbols now
// @Description  Combines model predictions, applies sentiment, stores the rows, and returns per-run counters
// @Tags         runs
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  domain.RunResult
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/forecast/run [post]
func (h *Handler) TriggerForecastRun(c *gin.Context) {
	if h.forecastTrigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "forecast service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-forecast-run")
	defer span.End()

	result, err := h.forecastTrigger.RunForecastPass(ctx, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
