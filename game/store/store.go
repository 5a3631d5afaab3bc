// Package store keeps finished match results in SQLite through GORM.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
)

// DefaultListLimit bounds List when the caller passes no limit
const DefaultListLimit = 50

// matchRecord is the persisted row of one finished match
type matchRecord struct {
	ID         uint   `gorm:"primaryKey"`
	MatchID    string `gorm:"size:64;index"`
	Board      string `gorm:"size:128;index"`
	Player1    string `gorm:"size:64;index"`
	Player2    string `gorm:"size:64;index"`
	Result     string `gorm:"size:32"`
	Reason     string `gorm:"size:32"`
	Winner     int
	Turns      int
	FinishedAt time.Time `gorm:"index"`
}

func (matchRecord) TableName() string { return "match_results" }

// Store implements service.ResultStore
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path and migrates the schema. An
// empty path opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&matchRecord{}); err != nil {
		return nil, fmt.Errorf("migrating results database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record inserts one finished match
func (s *Store) Record(ctx context.Context, result service.MatchResult) error {
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}
	rec := matchRecord{
		MatchID:    result.MatchID,
		Board:      result.Board,
		Player1:    result.Player1,
		Player2:    result.Player2,
		Result:     string(result.Result),
		Reason:     string(result.Reason),
		Winner:     result.Winner,
		Turns:      result.Turns,
		FinishedAt: result.FinishedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("recording result of %s: %w", result.MatchID, err)
	}
	return nil
}

// List returns the most recent results, newest first
func (s *Store) List(ctx context.Context, limit int) ([]service.MatchResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var recs []matchRecord
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	out := make([]service.MatchResult, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toResult())
	}
	return out, nil
}

// Standings tallies every recorded match per strategy, counting each seat a
// strategy occupied. Strategies are ordered by wins, then win rate, then name.
func (s *Store) Standings(ctx context.Context) ([]service.Standing, error) {
	var recs []matchRecord
	err := s.db.WithContext(ctx).
		Select("player1", "player2", "result").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}

	table := map[string]*service.Standing{}
	tally := func(name string, won, lost bool) {
		st, ok := table[name]
		if !ok {
			st = &service.Standing{Strategy: name}
			table[name] = st
		}
		st.Played++
		switch {
		case won:
			st.Wins++
		case lost:
			st.Losses++
		default:
			st.Ties++
		}
	}

	for _, r := range recs {
		res := engine.Result(r.Result)
		tally(r.Player1, res == engine.Player1Wins, res == engine.Player2Wins)
		tally(r.Player2, res == engine.Player2Wins, res == engine.Player1Wins)
	}

	out := make([]service.Standing, 0, len(table))
	for _, st := range table {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].WinRate() != out[j].WinRate() {
			return out[i].WinRate() > out[j].WinRate()
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out, nil
}

func (r matchRecord) toResult() service.MatchResult {
	return service.MatchResult{
		MatchID:    r.MatchID,
		Board:      r.Board,
		Player1:    r.Player1,
		Player2:    r.Player2,
		Result:     engine.Result(r.Result),
		Reason:     engine.Reason(r.Reason),
		Winner:     r.Winner,
		Turns:      r.Turns,
		FinishedAt: r.FinishedAt,
	}
}
