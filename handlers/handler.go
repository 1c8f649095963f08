package handlers

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/assistant"
	"github.com/padraicbc/wagergenie/ingest"
	"github.com/padraicbc/wagergenie/models"
)

// Store is the data access the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	Profile(ctx context.Context, userID int64) (*models.UserProfile, error)
	Subscription(ctx context.Context, userID int64) (*models.Subscription, error)
	ChatMessages(ctx context.Context, userID int64, limit int) ([]models.ChatMessage, error)
	PicksByUser(ctx context.Context, userID int64, limit int) ([]models.Pick, error)
	UpdatePickResult(ctx context.Context, userID, pickID int64, result models.Result) error
}

// Chatter answers a user's question.
type Chatter interface {
	Reply(ctx context.Context, userID int64, message string) (*assistant.Reply, error)
}

// Job is an ingestion job triggered over HTTP.
type Job interface {
	Run(ctx context.Context) (ingest.RunResult, error)
}

// Subscriber opens a live feed of one user's stored messages.
type Subscriber interface {
	Subscribe(userID int64) (<-chan models.ChatMessage, func())
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store      Store
	JWTKey     []byte
	SessionTTL time.Duration
	Secure     bool

	Assistant Chatter
	OddsJob   Job
	ScrapeJob Job
	Stream    Subscriber

	log *zap.Logger
	now func() time.Time
}

// New creates a Handler with the given store and JWT signing key. The
// remaining collaborators are set on the returned value.
func New(store Store, jwtKey []byte, log *zap.Logger) *Handler {
	return &Handler{
		store:      store,
		JWTKey:     jwtKey,
		SessionTTL: 30 * 24 * time.Hour,
		log:        log,
		now:        time.Now,
	}
}

// queryLimit reads a positive limit query value, falling back to def and
// capping at ceiling.
func queryLimit(raw string, def, ceiling int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
