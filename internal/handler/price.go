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

// GetPriceHistory godoc
// @Summary      Get stored daily bars for a symbol
// @Description  Returns OHLCV history in ascending trade-date order
// @Tags         prices
// @Produce      json
// @Param        symbol  path   string  true   "Stock symbol (e.g., AAPL, MSFT)"
// @Param        days    query  int     false  "Lookback in days (default 30, max 365)"  default(30)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/prices/{symbol}/history [get]
func (h *Handler) GetPriceHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price-history")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		unsupportedSymbol(c, symbol)
		return
	}

	days := 30
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	points, err := h.prices.GetHistoryRange(ctx, symbol, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"days":   days,
		"points": points,
	})
}
