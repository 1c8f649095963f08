package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// OddsSnapshot is one event's bookmaker odds captured by an ingestion run.
// OddsData is stored opaque. RunWindow is set only when dedup is enabled.
type OddsSnapshot struct {
	bun.BaseModel `bun:"table:odds_data,alias:od"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	Sport        Sport           `bun:"sport,notnull" json:"sport"`
	EventID      string          `bun:"event_id,notnull" json:"event_id"`
	HomeTeam     string          `bun:"home_team,notnull" json:"home_team"`
	AwayTeam     string          `bun:"away_team,notnull" json:"away_team"`
	CommenceTime time.Time       `bun:"commence_time,notnull" json:"commence_time"`
	OddsData     json.RawMessage `bun:"odds_data,notnull,type:jsonb" json:"odds_data"`
	RunWindow    *time.Time      `bun:"run_window" json:"run_window,omitempty"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Event returns the "home vs away" label used in prompts and picks.
func (o *OddsSnapshot) Event() string {
	return o.HomeTeam + " vs " + o.AwayTeam
}

// ScrapedPick is an expert pick lifted from a third-party page.
type ScrapedPick struct {
	bun.BaseModel `bun:"table:scraped_picks,alias:sp"`

	ID         int64           `bun:"id,pk,autoincrement" json:"id"`
	SourceURL  string          `bun:"source_url,notnull" json:"source_url"`
	Sport      *Sport          `bun:"sport" json:"sport"`
	Event      string          `bun:"event,notnull" json:"event"`
	Prediction string          `bun:"prediction,notnull" json:"prediction"`
	Confidence *string         `bun:"confidence" json:"confidence"`
	Analysis   *string         `bun:"analysis" json:"analysis"`
	RawData    json.RawMessage `bun:"raw_data,type:jsonb" json:"raw_data,omitempty"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
