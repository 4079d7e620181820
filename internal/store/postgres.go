package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agenttable/agenttable/internal/game"
)

//go:embed schema.sql
var schema embed.FS

// PostgresStore persists snapshots and histories as JSONB rows, one
// row per game for the live state and one per hand for history.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to the given DSN. Call Migrate before
// first use.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate applies the embedded schema. The DDL is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, string(ddl))
	return err
}

func (s *PostgresStore) SaveState(ctx context.Context, state *game.HandState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO game_states(game_id, hand_number, stage, nonce, state)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (game_id) DO UPDATE
          SET hand_number = EXCLUDED.hand_number,
              stage = EXCLUDED.stage,
              nonce = EXCLUDED.nonce,
              state = EXCLUDED.state,
              updated_at = now()
    `, state.GameID, state.HandNumber, state.Stage.String(), state.Nonce, raw)
	return err
}

func (s *PostgresStore) LoadState(ctx context.Context, gameID string) (*game.HandState, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM game_states WHERE game_id = $1`, gameID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		return nil, err
	}
	var state game.HandState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("store: decode state: %w", err)
	}
	return &state, nil
}

func (s *PostgresStore) SaveHistory(ctx context.Context, history *game.HandHistory) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("store: encode history: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO hand_histories(hand_id, game_id, hand_number, seed, history)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (hand_id) DO UPDATE
          SET history = EXCLUDED.history
    `, history.HandID, history.GameID, history.HandNumber, history.Seed, raw)
	return err
}

func (s *PostgresStore) LoadHistories(ctx context.Context, gameID string) ([]*game.HandHistory, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT history FROM hand_histories
         WHERE game_id = $1
         ORDER BY hand_number
    `, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.HandHistory
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var h game.HandHistory
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("store: decode history: %w", err)
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendAction(ctx context.Context, gameID string, handNumber int, record game.ActionRecord) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO hand_actions(game_id, hand_number, actor_id, action, amount, taken_at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, gameID, handNumber, record.ActorID, record.Action.String(), record.Amount, record.Timestamp)
	return err
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
