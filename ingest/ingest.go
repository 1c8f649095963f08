// Package ingest runs the two data collection jobs: bookmaker odds and
// scraped expert picks.
package ingest

import (
	"context"

	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/oddsapi"
	"github.com/padraicbc/wagergenie/scraper"
)

// RunResult summarises one job run.
type RunResult struct {
	RunID string `json:"runId"`
	// Count is the number of rows written.
	Count int `json:"count"`
	// Skipped counts snapshots already stored for the current dedup window.
	Skipped int `json:"skipped,omitempty"`
	// Failed lists the leagues whose fetch failed.
	Failed []string `json:"failed,omitempty"`
}

// OddsFetcher returns current odds for one provider league key.
type OddsFetcher interface {
	Odds(ctx context.Context, sportKey string) ([]oddsapi.Event, error)
}

// OddsStore persists odds snapshots.
type OddsStore interface {
	InsertOddsSnapshot(ctx context.Context, snap *models.OddsSnapshot) (bool, error)
}

// PageFetcher returns the pick cards on the scraped page.
type PageFetcher interface {
	Fetch(ctx context.Context) ([]scraper.Card, error)
	URL() string
}

// ScrapeStore persists scraped picks.
type ScrapeStore interface {
	InsertScrapedPicks(ctx context.Context, picks []models.ScrapedPick) error
}
