// Package store is the bun-backed data access layer shared by the HTTP
// handlers, the chat assistant and the ingestion jobs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/wagergenie/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store wraps a bun database handle.
type Store struct {
	db *bun.DB
}

// New returns a Store using db.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertOddsSnapshot stores one snapshot. When the snapshot carries a run
// window an existing row for the same (sport, event, window) wins and
// inserted is false.
func (s *Store) InsertOddsSnapshot(ctx context.Context, snap *models.OddsSnapshot) (inserted bool, err error) {
	q := s.db.NewInsert().Model(snap)
	if snap.RunWindow != nil {
		q = q.On("CONFLICT (sport, event_id, run_window) DO NOTHING")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("inserting odds for %s event %s: %w", snap.Sport, snap.EventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return true, nil
	}
	return n > 0, nil
}

// LatestOdds returns the most recently stored snapshots, newest first.
func (s *Store) LatestOdds(ctx context.Context, limit int) ([]models.OddsSnapshot, error) {
	var rows []models.OddsSnapshot
	err := s.db.NewSelect().Model(&rows).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("selecting latest odds: %w", err)
	}
	return rows, nil
}

// InsertScrapedPicks stores a batch in a single statement.
func (s *Store) InsertScrapedPicks(ctx context.Context, picks []models.ScrapedPick) error {
	if len(picks) == 0 {
		return nil
	}
	if _, err := s.db.NewInsert().Model(&picks).Exec(ctx); err != nil {
		return fmt.Errorf("inserting %d scraped picks: %w", len(picks), err)
	}
	return nil
}

// LatestScrapedPicks returns the most recently scraped picks, newest first.
func (s *Store) LatestScrapedPicks(ctx context.Context, limit int) ([]models.ScrapedPick, error) {
	var rows []models.ScrapedPick
	err := s.db.NewSelect().Model(&rows).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("selecting latest scraped picks: %w", err)
	}
	return rows, nil
}

// ChatMessages returns the newest limit messages for userID in creation
// order, each with its pick when present.
func (s *Store) ChatMessages(ctx context.Context, userID int64, limit int) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := s.db.NewSelect().Model(&rows).
		Relation("Pick").
		Where("cm.user_id = ?", userID).
		Order("cm.created_at DESC", "cm.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("selecting chat messages: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// SaveExchange stores one chat turn atomically: the user's message, the
// pick extracted from the reply (may be nil) and the reply linked to it.
// IDs and creation times are filled in on success.
func (s *Store) SaveExchange(ctx context.Context, question *models.ChatMessage, pick *models.Pick, answer *models.ChatMessage) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := insertMessage(ctx, tx, question); err != nil {
			return err
		}
		if pick != nil {
			if err := insertPick(ctx, tx, pick); err != nil {
				return err
			}
			answer.PickID = &pick.ID
			answer.Pick = pick
		}
		return insertMessage(ctx, tx, answer)
	})
}

func insertMessage(ctx context.Context, db bun.IDB, msg *models.ChatMessage) error {
	if _, err := db.NewInsert().Model(msg).Returning("id, created_at").Exec(ctx); err != nil {
		return fmt.Errorf("inserting %s message: %w", msg.Role, err)
	}
	return nil
}

// insertPick defaults Result to pending.
func insertPick(ctx context.Context, db bun.IDB, p *models.Pick) error {
	if p.Result == "" {
		p.Result = models.ResultPending
	}
	if _, err := db.NewInsert().Model(p).Returning("id, created_at").Exec(ctx); err != nil {
		return fmt.Errorf("inserting pick: %w", err)
	}
	return nil
}

// PicksByUser returns the newest limit picks of userID.
func (s *Store) PicksByUser(ctx context.Context, userID int64, limit int) ([]models.Pick, error) {
	var rows []models.Pick
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("selecting picks: %w", err)
	}
	return rows, nil
}

// UpdatePickResult settles one of userID's picks. It returns ErrNotFound when
// the pick does not exist or belongs to someone else.
func (s *Store) UpdatePickResult(ctx context.Context, userID, pickID int64, result models.Result) error {
	res, err := s.db.NewUpdate().
		Model((*models.Pick)(nil)).
		Set("result = ?", result).
		Where("id = ?", pickID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("updating pick %d: %w", pickID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
