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
	"github.com/padraicbc/wagergenie/oddsapi"
)

// OddsJob fetches every configured league and stores one snapshot per event.
// Leagues are processed one after another. A failed league is skipped and a
// failed row is logged; neither is retried and nothing already written is
// rolled back.
type OddsJob struct {
	fetcher OddsFetcher
	store   OddsStore
	sports  []string
	window  time.Duration
	cache   cache.Cache
	pub     events.Publisher
	log     *zap.Logger
	now     func() time.Time
}

// OddsJobOption customises an OddsJob.
type OddsJobOption func(*OddsJob)

// WithDedupWindow makes runs idempotent within window. Zero disables it.
func WithDedupWindow(window time.Duration) OddsJobOption {
	return func(j *OddsJob) { j.window = window }
}

// WithCache sets the cache whose chat context is dropped after new odds land.
func WithCache(c cache.Cache) OddsJobOption {
	return func(j *OddsJob) { j.cache = c }
}

// WithPublisher sets where stored snapshots are announced.
func WithPublisher(p events.Publisher) OddsJobOption {
	return func(j *OddsJob) { j.pub = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OddsJobOption {
	return func(j *OddsJob) { j.now = now }
}

// NewOddsJob returns a job over the given provider league keys.
func NewOddsJob(fetcher OddsFetcher, store OddsStore, sports []string, log *zap.Logger, opts ...OddsJobOption) *OddsJob {
	j := &OddsJob{
		fetcher: fetcher,
		store:   store,
		sports:  sports,
		cache:   cache.Nop{},
		pub:     events.Nop{},
		log:     log,
		now:     time.Now,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// storedOdds is the opaque payload kept in odds_data.odds_data.
type storedOdds struct {
	EventID      string              `json:"event_id"`
	HomeTeam     string              `json:"home_team"`
	AwayTeam     string              `json:"away_team"`
	CommenceTime time.Time           `json:"commence_time"`
	Bookmakers   []oddsapi.Bookmaker `json:"bookmakers"`
}

// Run executes one pass. The error is non-nil only when ctx ends.
func (j *OddsJob) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	res := RunResult{RunID: uuid.NewString()}
	log := j.log.With(zap.String("job", "odds"), zap.String("run_id", res.RunID))
	log.Info("odds ingestion started", zap.Strings("sports", j.sports))

	var window *time.Time
	if j.window > 0 {
		w := j.now().UTC().Truncate(j.window)
		window = &w
	}

	var published []events.Event
	for _, key := range j.sports {
		if err := ctx.Err(); err != nil {
			metrics.RecordJob("odds", "cancelled", time.Since(start).Seconds())
			return res, err
		}

		evs, err := j.fetcher.Odds(ctx, key)
		if err != nil {
			log.Error("failed to fetch odds", zap.String("sport", key), zap.Error(err))
			metrics.RecordUpstreamFailure("odds_api")
			res.Failed = append(res.Failed, key)
			continue
		}

		for _, ev := range evs {
			snap, err := snapshot(key, ev, window)
			if err != nil {
				log.Warn("skipping event", zap.String("sport", key), zap.String("event_id", ev.ID), zap.Error(err))
				continue
			}

			inserted, err := j.store.InsertOddsSnapshot(ctx, snap)
			if err != nil {
				log.Error("failed to store odds", zap.String("sport", key), zap.String("event_id", ev.ID), zap.Error(err))
				continue
			}
			if !inserted {
				res.Skipped++
				continue
			}
			res.Count++
			published = append(published, events.Event{
				Kind:       events.KindOddsSnapshot,
				RunID:      res.RunID,
				Key:        string(snap.Sport) + ":" + snap.EventID,
				OccurredAt: j.now(),
				Payload:    snap.OddsData,
			})
		}
		log.Debug("league processed", zap.String("sport", key), zap.Int("events", len(evs)))
	}

	metrics.RecordRows("odds_data", res.Count)
	if res.Count > 0 {
		if err := j.cache.Delete(ctx, cache.ContextKey); err != nil {
			log.Warn("failed to invalidate chat context", zap.Error(err))
		}
		if err := j.pub.Publish(ctx, published...); err != nil {
			log.Warn("failed to publish odds events", zap.Error(err))
		}
	}

	status := "success"
	if len(res.Failed) > 0 {
		status = "partial"
	}
	metrics.RecordJob("odds", status, time.Since(start).Seconds())
	log.Info("odds ingestion finished",
		zap.Int("count", res.Count),
		zap.Int("skipped", res.Skipped),
		zap.Strings("failed", res.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func snapshot(leagueKey string, ev oddsapi.Event, window *time.Time) (*models.OddsSnapshot, error) {
	key := ev.SportKey
	if key == "" {
		key = leagueKey
	}
	sport, err := models.ParseSport(key)
	if err != nil {
		return nil, err
	}

	reduced := make([]oddsapi.Bookmaker, 0, len(ev.Bookmakers))
	for _, b := range ev.Bookmakers {
		reduced = append(reduced, oddsapi.Bookmaker{Key: b.Key, Title: b.Title, Markets: b.Markets})
	}

	payload, err := json.Marshal(storedOdds{
		EventID:      ev.ID,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		CommenceTime: ev.CommenceTime,
		Bookmakers:   reduced,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding odds: %w", err)
	}

	return &models.OddsSnapshot{
		Sport:        sport,
		EventID:      ev.ID,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		CommenceTime: ev.CommenceTime,
		OddsData:     payload,
		RunWindow:    window,
	}, nil
}
