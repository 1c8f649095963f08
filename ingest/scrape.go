package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/cache"
	"github.com/padraicbc/wagergenie/events"
	"github.com/padraicbc/wagergenie/metrics"
	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/scraper"
)

// ScrapeSource is recorded in each scraped pick's raw payload.
const ScrapeSource = "pickdawgz"

// ScrapeJob stores every pick card found on the scraped page.
type ScrapeJob struct {
	page  PageFetcher
	store ScrapeStore
	cache cache.Cache
	pub   events.Publisher
	log   *zap.Logger
	now   func() time.Time
}

// NewScrapeJob returns a job reading page into store. cache and pub may be nil.
func NewScrapeJob(page PageFetcher, store ScrapeStore, c cache.Cache, pub events.Publisher, log *zap.Logger) *ScrapeJob {
	if c == nil {
		c = cache.Nop{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &ScrapeJob{page: page, store: store, cache: c, pub: pub, log: log, now: time.Now}
}

type scrapedRaw struct {
	Event      string    `json:"event"`
	Prediction string    `json:"prediction"`
	Source     string    `json:"source"`
	ScrapedAt  time.Time `json:"scraped_at"`
	HTML       string    `json:"html,omitempty"`
}

// Run fetches the page and stores its picks in one statement. A failed
// fetch is logged and treated as a page with no picks. A failed insert is
// returned.
func (j *ScrapeJob) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	res := RunResult{RunID: uuid.NewString()}
	log := j.log.With(zap.String("job", "scrape"), zap.String("run_id", res.RunID))

	cards, err := j.page.Fetch(ctx)
	if err != nil {
		log.Error("failed to scrape picks", zap.String("url", j.page.URL()), zap.Error(err))
		metrics.RecordUpstreamFailure("scraper")
		cards = nil
	}

	if len(cards) == 0 {
		metrics.RecordJob("scrape", "empty", time.Since(start).Seconds())
		log.Info("no picks scraped")
		return res, nil
	}

	scrapedAt := j.now().UTC()
	rows := make([]models.ScrapedPick, 0, len(cards))
	for _, c := range cards {
		row, err := j.row(c, scrapedAt)
		if err != nil {
			log.Warn("skipping card", zap.String("event", c.Event), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}

	if err := j.store.InsertScrapedPicks(ctx, rows); err != nil {
		metrics.RecordJob("scrape", "error", time.Since(start).Seconds())
		return res, fmt.Errorf("storing scraped picks: %w", err)
	}
	res.Count = len(rows)
	metrics.RecordRows("scraped_picks", res.Count)

	if err := j.cache.Delete(ctx, cache.ContextKey); err != nil {
		log.Warn("failed to invalidate chat context", zap.Error(err))
	}

	evs := make([]events.Event, 0, len(rows))
	for _, r := range rows {
		evs = append(evs, events.Event{
			Kind:       events.KindScrapedPick,
			RunID:      res.RunID,
			Key:        r.Event,
			OccurredAt: scrapedAt,
			Payload:    r.RawData,
		})
	}
	if err := j.pub.Publish(ctx, evs...); err != nil {
		log.Warn("failed to publish scrape events", zap.Error(err))
	}

	metrics.RecordJob("scrape", "success", time.Since(start).Seconds())
	log.Info("scrape finished", zap.Int("count", res.Count), zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (j *ScrapeJob) row(c scraper.Card, scrapedAt time.Time) (models.ScrapedPick, error) {
	raw, err := json.Marshal(scrapedRaw{
		Event:      c.Event,
		Prediction: c.Prediction,
		Source:     ScrapeSource,
		ScrapedAt:  scrapedAt,
		HTML:       c.HTML,
	})
	if err != nil {
		return models.ScrapedPick{}, err
	}

	row := models.ScrapedPick{
		SourceURL:  j.page.URL(),
		Event:      c.Event,
		Prediction: c.Prediction,
		RawData:    raw,
	}
	if sport, err := models.ParseSport(c.Sport); err == nil {
		row.Sport = &sport
	}
	if c.Confidence != "" {
		row.Confidence = &c.Confidence
	}
	if c.Analysis != "" {
		row.Analysis = &c.Analysis
	}
	return row, nil
}
