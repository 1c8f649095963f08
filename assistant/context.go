package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/cache"
	"github.com/padraicbc/wagergenie/metrics"
	"github.com/padraicbc/wagergenie/models"
)

// MarketOdds is one stored snapshot as shown to the model.
type MarketOdds struct {
	Sport        models.Sport    `json:"sport"`
	EventID      string          `json:"event_id"`
	Event        string          `json:"event"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	CommenceTime time.Time       `json:"commence_time"`
	Odds         json.RawMessage `json:"odds"`
}

// ExpertPick is one scraped pick as shown to the model.
type ExpertPick struct {
	Sport      *models.Sport `json:"sport,omitempty"`
	Event      string        `json:"event"`
	Prediction string        `json:"prediction"`
	Confidence *string       `json:"confidence,omitempty"`
	Analysis   *string       `json:"analysis,omitempty"`
}

// Snapshot is the cacheable part of the prompt context.
type Snapshot struct {
	Odds         []MarketOdds `json:"odds"`
	ScrapedPicks []ExpertPick `json:"scrapedPicks"`
}

// promptContext is serialised verbatim after "Context: ".
type promptContext struct {
	Snapshot
	Timestamp time.Time `json:"timestamp"`
}

func (a *Assistant) snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	hit, err := a.cache.Get(ctx, cache.ContextKey, &snap)
	if err != nil {
		a.log.Warn("chat context cache read failed", zap.Error(err))
	}
	if hit && err == nil {
		metrics.RecordCacheHit()
		return &snap, nil
	}
	metrics.RecordCacheMiss()

	odds, err := a.store.LatestOdds(ctx, a.oddsLimit)
	if err != nil {
		return nil, fmt.Errorf("loading odds: %w", err)
	}
	scraped, err := a.store.LatestScrapedPicks(ctx, a.picksLimit)
	if err != nil {
		return nil, fmt.Errorf("loading scraped picks: %w", err)
	}

	snap = Snapshot{
		Odds:         make([]MarketOdds, 0, len(odds)),
		ScrapedPicks: make([]ExpertPick, 0, len(scraped)),
	}
	for i := range odds {
		o := &odds[i]
		snap.Odds = append(snap.Odds, MarketOdds{
			Sport:        o.Sport,
			EventID:      o.EventID,
			Event:        o.Event(),
			HomeTeam:     o.HomeTeam,
			AwayTeam:     o.AwayTeam,
			CommenceTime: o.CommenceTime,
			Odds:         o.OddsData,
		})
	}
	for _, p := range scraped {
		snap.ScrapedPicks = append(snap.ScrapedPicks, ExpertPick{
			Sport:      p.Sport,
			Event:      p.Event,
			Prediction: p.Prediction,
			Confidence: p.Confidence,
			Analysis:   p.Analysis,
		})
	}

	if err := a.cache.Set(ctx, cache.ContextKey, &snap); err != nil {
		a.log.Warn("chat context cache write failed", zap.Error(err))
	}
	return &snap, nil
}

// userPrompt renders the context and the question as a single user turn.
func userPrompt(snap *Snapshot, message string, now time.Time) (string, error) {
	b, err := json.Marshal(promptContext{Snapshot: *snap, Timestamp: now.UTC()})
	if err != nil {
		return "", fmt.Errorf("encoding context: %w", err)
	}
	return fmt.Sprintf("Context: %s\n\nUser Query: %s", b, message), nil
}

// inferSport finds the league of event among the known fixtures.
func inferSport(snap *Snapshot, event string) string {
	e := strings.ToLower(event)
	for _, o := range snap.Odds {
		if strings.EqualFold(o.Event, event) {
			return string(o.Sport)
		}
		if o.HomeTeam != "" && o.AwayTeam != "" &&
			strings.Contains(e, strings.ToLower(o.HomeTeam)) &&
			strings.Contains(e, strings.ToLower(o.AwayTeam)) {
			return string(o.Sport)
		}
	}
	for _, p := range snap.ScrapedPicks {
		if p.Sport != nil && strings.EqualFold(p.Event, event) {
			return string(*p.Sport)
		}
	}
	return ""
}
