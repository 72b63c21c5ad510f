package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard godoc
// @Summary      Get the accuracy leaderboard
// @Description  Ranks symbols by evaluation confidence using each symbol's freshest record
// @Tags         reports
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/reports/leaderboard [get]
func (h *Handler) GetLeaderboard(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-leaderboard")
	defer span.End()

	entries, err := h.reports.Leaderboard(ctx, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// GetTrend godoc
// @Summary      Get the hourly accuracy trend
// @Description  Returns per-hour averaged metrics across all evaluated symbols
// @Tags         reports
// @Produce      json
// @Param        hours  query  int  false  "Window size in hours (default 24, max 168)"  default(24)
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/reports/trend [get]
func (h *Handler) GetTrend(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trend")
	defer span.End()

	hours := 24
	if v := c.Query("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 168 {
			hours = n
		}
	}

	buckets, err := h.reports.Trend(ctx, time.Now().UTC(), hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hours": hours,
		"trend": buckets,
	})
}
