package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MatchResult is the persisted record of a finished match. Live matches stay
// in memory; only terminal outcomes reach the archive.
type MatchResult struct {
	ID           string
	PlayerX      string
	PlayerO      string
	Outcome      string
	Winner       string
	Staked       bool
	RoundsPlayed int
	FinishedAt   time.Time
}

type ResultRepository interface {
	Save(ctx context.Context, result *MatchResult) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*MatchResult, error)
}

type dbResult struct {
	conn *sql.DB
}

func NewResultRepository(conn *sql.DB) ResultRepository {
	return &dbResult{
		conn: conn,
	}
}

func (that *dbResult) Save(ctx context.Context, result *MatchResult) error {
	query := `INSERT INTO match_results
		(id, player_x, player_o, outcome, winner, staked, rounds_played, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, query,
		result.ID,
		result.PlayerX,
		result.PlayerO,
		result.Outcome,
		result.Winner,
		result.Staked,
		result.RoundsPlayed,
		result.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}

	return nil
}

func (that *dbResult) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*MatchResult, error) {
	query := `SELECT id, player_x, player_o, outcome, winner, staked, rounds_played, finished_at
		FROM match_results
		WHERE player_x = ? OR player_o = ?
		ORDER BY finished_at DESC
		LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, playerID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match results: %w", err)
	}
	defer rows.Close()

	var results []*MatchResult

	for rows.Next() {
		var result MatchResult
		var finishedAt int64

		if err = rows.Scan(
			&result.ID,
			&result.PlayerX,
			&result.PlayerO,
			&result.Outcome,
			&result.Winner,
			&result.Staked,
			&result.RoundsPlayed,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}

		result.FinishedAt = time.Unix(finishedAt, 0)
		results = append(results, &result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match results: %w", err)
	}

	return results, nil
}
