// Package assistant answers betting questions from stored odds and expert
// picks and records each exchange.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/cache"
	"github.com/padraicbc/wagergenie/llm"
	"github.com/padraicbc/wagergenie/metrics"
	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/picks"
	"github.com/padraicbc/wagergenie/realtime"
)

// ErrNoMessage is returned for an empty question.
var ErrNoMessage = errors.New("no message")

// SystemPrompt is sent as the system turn of every completion.
const SystemPrompt = `You are Wager Genie, an AI sports betting assistant. You have access to real-time odds data and expert picks.
Always analyze both the odds and expert picks before making recommendations.
Format your responses to be clear and concise, with specific predictions and confidence levels.
Include relevant odds when available. Be direct but maintain a friendly, magical tone.
When you recommend a bet, end with the lines:
Sport: <NBA|NFL|MLB|NHL|NCAAB|NCAAF>
Event: <home team> vs <away team>
Prediction: <the bet>
Odds: <american odds>
Confidence: <0-100>%`

// Store is the persistence the assistant needs.
type Store interface {
	LatestOdds(ctx context.Context, limit int) ([]models.OddsSnapshot, error)
	LatestScrapedPicks(ctx context.Context, limit int) ([]models.ScrapedPick, error)
	SaveExchange(ctx context.Context, question *models.ChatMessage, pick *models.Pick, answer *models.ChatMessage) error
}

// Reply is returned to the chat client. Picks is nil when the reply carried
// no recommendation.
type Reply struct {
	Message string      `json:"message"`
	Picks   *picks.Pick `json:"picks"`
}

// Assistant turns one question into one stored exchange.
type Assistant struct {
	store      Store
	llm        llm.Completer
	structured bool
	cache      cache.Cache
	pub        realtime.Publisher
	log        *zap.Logger
	now        func() time.Time
	oddsLimit  int
	picksLimit int
}

// Option customises an Assistant.
type Option func(*Assistant)

// WithStructuredOutput asks schema-capable providers for JSON first.
func WithStructuredOutput(on bool) Option {
	return func(a *Assistant) { a.structured = on }
}

// WithCache caches the prompt context between requests.
func WithCache(c cache.Cache) Option {
	return func(a *Assistant) { a.cache = c }
}

// WithPublisher announces stored messages to open chat streams.
func WithPublisher(p realtime.Publisher) Option {
	return func(a *Assistant) { a.pub = p }
}

// WithContextLimits bounds how many snapshots and scraped picks are sent.
// Non-positive values keep the defaults.
func WithContextLimits(odds, scraped int) Option {
	return func(a *Assistant) {
		if odds > 0 {
			a.oddsLimit = odds
		}
		if scraped > 0 {
			a.picksLimit = scraped
		}
	}
}

// New returns an Assistant. Without options it uses plain completions, no
// cache and no publisher.
func New(store Store, completer llm.Completer, log *zap.Logger, opts ...Option) *Assistant {
	a := &Assistant{
		store:      store,
		llm:        completer,
		cache:      cache.Nop{},
		log:        log,
		now:        time.Now,
		oddsLimit:  50,
		picksLimit: 20,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Reply answers message for userID. Nothing is stored unless the completion
// succeeds, and then the question, the pick and the answer are stored
// together.
func (a *Assistant) Reply(ctx context.Context, userID int64, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrNoMessage
	}

	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	user, err := userPrompt(snap, message, a.now())
	if err != nil {
		return nil, err
	}
	prompt := llm.Prompt{System: SystemPrompt, User: user}

	text, pick, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	question := &models.ChatMessage{UserID: userID, Role: models.RoleUser, Content: message}
	answer := &models.ChatMessage{UserID: userID, Role: models.RoleAssistant, Content: text}

	var stored *models.Pick
	if pick != nil {
		if pick.Sport == "" {
			pick.Sport = inferSport(snap, pick.Event)
		}
		if m, ok := pick.Model(userID, models.SourceOddsAPI); ok {
			stored = m
		}
	}

	if err := a.store.SaveExchange(ctx, question, stored, answer); err != nil {
		return nil, fmt.Errorf("saving exchange: %w", err)
	}

	if a.pub != nil {
		for _, m := range []*models.ChatMessage{question, answer} {
			if err := a.pub.Publish(ctx, m); err != nil {
				a.log.Warn("failed to publish chat message", zap.Int64("message_id", m.ID), zap.Error(err))
			}
		}
	}

	return &Reply{Message: text, Picks: pick}, nil
}

// complete tries structured output first when enabled and supported, then
// falls back to free text parsed with the line patterns.
func (a *Assistant) complete(ctx context.Context, p llm.Prompt) (string, *picks.Pick, error) {
	if sc, ok := a.llm.(llm.StructuredCompleter); ok && a.structured {
		start := time.Now()
		raw, err := sc.CompleteJSON(ctx, p, "wager_genie_reply", picks.ReplySchema())
		metrics.RecordCompletion("structured", time.Since(start).Seconds())
		if err == nil {
			reply, perr := picks.ParseReply(raw)
			if perr == nil {
				metrics.RecordExtraction("structured", reply.Pick != nil)
				return reply.Message, reply.Pick, nil
			}
			err = perr
		}
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		a.log.Warn("structured completion unusable, falling back to text", zap.Error(err))
	}

	start := time.Now()
	text, err := a.llm.Complete(ctx, p)
	metrics.RecordCompletion("text", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordUpstreamFailure("llm")
		return "", nil, err
	}

	pick := picks.Extract(text)
	metrics.RecordExtraction("regex", pick != nil)
	return text, pick, nil
}
