package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"groundlink/pkg/models"

	_ "modernc.org/sqlite"
)

// Store persists terminal transfer states in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the archive database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	ctx := context.Background()

	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(ctx, Schema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}

	return &Store{db: database}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a terminal transfer state, replacing any earlier copy.
func (s *Store) Save(ctx context.Context, state models.TransferState) error {
	if !state.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrNotTerminal, state.RequestID, state.Status)
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding transfer %s: %w", state.RequestID, err)
	}

	var finishedAt any
	if !state.FinishedAt.IsZero() {
		finishedAt = state.FinishedAt.UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transfers (request_id, source, destination, status, size, submitted_at, finished_at, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		state.RequestID, state.Request.Source, state.Request.Destination, state.Status.String(),
		state.Request.Size, state.SubmittedAt.UTC(), finishedAt, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

// Get returns the archived state for requestID.
func (s *Store) Get(ctx context.Context, requestID string) (models.TransferState, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM transfers WHERE request_id = ?`, requestID,
	).Scan(&encoded)

	if errors.Is(err, sql.ErrNoRows) {
		return models.TransferState{}, ErrTransferNotFound
	}
	if err != nil {
		return models.TransferState{}, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return decode(encoded)
}

// List returns up to limit archived states, most recently finished first.
func (s *Store) List(ctx context.Context, limit int) ([]models.TransferState, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT state FROM transfers ORDER BY finished_at DESC, request_id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer rows.Close()

	states := make([]models.TransferState, 0)
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		state, err := decode(encoded)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return states, nil
}

// Count returns the number of archived transfers.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return count, nil
}

func decode(encoded string) (models.TransferState, error) {
	var state models.TransferState
	if err := json.Unmarshal([]byte(encoded), &state); err != nil {
		return models.TransferState{}, fmt.Errorf("%w: corrupt archived state: %w", ErrDatabaseError, err)
	}
	return state, nil
}

// Lookup is Get with a miss reported as false instead of an error.
func (s *Store) Lookup(ctx context.Context, requestID string) (models.TransferState, bool, error) {
	state, err := s.Get(ctx, requestID)
	if errors.Is(err, ErrTransferNotFound) {
		return models.TransferState{}, false, nil
	}
	if err != nil {
		return models.TransferState{}, false, err
	}
	return state, true, nil
}
