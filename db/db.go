package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/config"
	"github.com/padraicbc/wagergenie/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// CreateTables creates all tables in dependency order and adds the
// constraints bun's table builder cannot express.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.UserProfile)(nil),
		(*models.Subscription)(nil),
		(*models.Pick)(nil),
		(*models.ChatMessage)(nil),
		(*models.OddsSnapshot)(nil),
		(*models.ScrapedPick)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	for _, c := range constraints {
		stmt := fmt.Sprintf(
			`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN ALTER TABLE %s ADD CONSTRAINT %s %s; END IF; END $$`,
			c.name, c.table, c.name, c.def,
		)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			zap.L().Warn("constraint", zap.String("name", c.name), zap.Error(err))
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS chat_messages_user_created ON chat_messages (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS picks_user_created ON picks (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS odds_data_created ON odds_data (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS scraped_picks_created ON scraped_picks (created_at DESC)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}

type constraint struct {
	name, table, def string
}

// Enumerations live as text columns guarded by CHECK constraints.
// odds_data_window is only effective for rows with a non-null run_window.
var constraints = []constraint{
	{"picks_sport_enum", "picks", sportCheck("sport")},
	{"picks_result_enum", "picks", "CHECK (result IN ('win','loss','pending'))"},
	{"picks_source_enum", "picks", "CHECK (source IN ('odds_api','scraper'))"},
	{"picks_user_fk", "picks", "FOREIGN KEY (user_id) REFERENCES users (id)"},
	{"chat_messages_role_enum", "chat_messages", "CHECK (role IN ('user','assistant'))"},
	{"chat_messages_user_fk", "chat_messages", "FOREIGN KEY (user_id) REFERENCES users (id)"},
	{"chat_messages_pick_fk", "chat_messages", "FOREIGN KEY (pick_id) REFERENCES picks (id)"},
	{"subscriptions_plan_enum", "subscriptions", "CHECK (plan IN ('free','basic','unlimited'))"},
	{"subscriptions_status_enum", "subscriptions", "CHECK (status IN ('active','inactive','cancelled'))"},
	{"subscriptions_user_fk", "subscriptions", "FOREIGN KEY (user_id) REFERENCES users (id)"},
	{"user_profiles_user_fk", "user_profiles", "FOREIGN KEY (user_id) REFERENCES users (id)"},
	{"odds_data_sport_enum", "odds_data", sportCheck("sport")},
	{"odds_data_window", "odds_data", "UNIQUE (sport, event_id, run_window)"},
	{"scraped_picks_sport_enum", "scraped_picks", sportCheck("sport")},
}

func sportCheck(col string) string {
	return fmt.Sprintf("CHECK (%s IN ('NBA','NFL','MLB','NHL','NCAAB','NCAAF'))", col)
}
