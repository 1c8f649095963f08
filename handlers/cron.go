package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type oddsRunResponse struct {
	Success bool     `json:"success"`
	RunID   string   `json:"runId"`
	Count   int      `json:"count"`
	Skipped int      `json:"skipped,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

type scrapeRunResponse struct {
	Success    bool      `json:"success"`
	RunID      string    `json:"runId"`
	PicksCount int       `json:"picksCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// CronOdds runs the odds ingestion job. Authorisation is done by the
// CronSecret middleware.
func (h *Handler) CronOdds(c echo.Context) error {
	res, err := h.OddsJob.Run(c.Request().Context())
	if err != nil {
		h.log.Error("odds job failed", zap.String("run_id", res.RunID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.JSON(http.StatusOK, oddsRunResponse{
		Success: true,
		RunID:   res.RunID,
		Count:   res.Count,
		Skipped: res.Skipped,
		Failed:  res.Failed,
	})
}

// CronScrape runs the scrape ingestion job.
func (h *Handler) CronScrape(c echo.Context) error {
	res, err := h.ScrapeJob.Run(c.Request().Context())
	if err != nil {
		h.log.Error("scrape job failed", zap.String("run_id", res.RunID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.JSON(http.StatusOK, scrapeRunResponse{
		Success:    true,
		RunID:      res.RunID,
		PicksCount: res.Count,
		Timestamp:  h.now().UTC(),
	})
}

// Health reports whether the database answers.
func (h *Handler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
