package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"warrant-sniper/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Favorites: full warrant snapshots keyed by warrant id. Display
	-- order is insertion order (rowid).
	CREATE TABLE IF NOT EXISTS favorites (
		id TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Login attempt state: a single row holding the failure counter
	-- and lockout expiry in epoch millis.
	CREATE TABLE IF NOT EXISTS login_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		lockout_until INTEGER NOT NULL DEFAULT 0
	);

	-- Last completed search result as one JSON payload, replaced on
	-- every completion.
	CREATE TABLE IF NOT EXISTS last_result (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ToggleFavorite removes the warrant when present, otherwise stores
// its full snapshot. Reports whether the warrant was added.
func (s *SQLiteStore) ToggleFavorite(ctx context.Context, w models.Warrant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", w.ID)
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	snapshot, err := json.Marshal(w)
	if err != nil {
		return false, fmt.Errorf("encoding favorite snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO favorites (id, snapshot) VALUES (?, ?)", w.ID, string(snapshot))
	if err != nil {
		return false, fmt.Errorf("saving favorite: %w", err)
	}
	return true, nil
}

// ListFavorites returns the stored snapshots in insertion order.
// Corrupt rows are skipped, never fatal.
func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]models.Warrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT snapshot FROM favorites ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var out []models.Warrant
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			continue
		}
		var w models.Warrant
		if err := json.Unmarshal([]byte(snapshot), &w); err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// IsFavorite reports membership by warrant id.
func (s *SQLiteStore) IsFavorite(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM favorites WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return count > 0, nil
}

// CountFavorites returns the number of stored favorites.
func (s *SQLiteStore) CountFavorites(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM favorites").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting favorites: %w", err)
	}
	return count, nil
}

// SaveLastResult replaces the stored search result.
func (s *SQLiteStore) SaveLastResult(ctx context.Context, result models.SearchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding search result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO last_result (id, payload, saved_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload,
			saved_at = excluded.saved_at`,
		string(payload))
	if err != nil {
		return fmt.Errorf("saving search result: %w", err)
	}
	return nil
}

// GetLastResult loads the stored search result. A missing or corrupt
// payload yields nil, never an error.
func (s *SQLiteStore) GetLastResult(ctx context.Context) (*models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM last_result WHERE id = 1").Scan(&payload)
	if err != nil {
		return nil, nil
	}
	var result models.SearchResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, nil
	}
	return &result, nil
}

// GetLoginState loads the persisted attempt state. A missing or
// unreadable row degrades to the zero state.
func (s *SQLiteStore) GetLoginState(ctx context.Context) (models.LoginAttemptState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state models.LoginAttemptState
	err := s.db.QueryRowContext(ctx,
		"SELECT failed_attempts, lockout_until FROM login_state WHERE id = 1").
		Scan(&state.FailedAttempts, &state.LockoutUntil)
	if err == sql.ErrNoRows {
		return models.LoginAttemptState{}, nil
	}
	if err != nil {
		return models.LoginAttemptState{}, nil
	}
	if state.FailedAttempts < 0 {
		state.FailedAttempts = 0
	}
	if state.LockoutUntil < 0 {
		state.LockoutUntil = 0
	}
	return state, nil
}

// SaveLoginState replaces the persisted attempt state.
func (s *SQLiteStore) SaveLoginState(ctx context.Context, state models.LoginAttemptState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_state (id, failed_attempts, lockout_until) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET failed_attempts = excluded.failed_attempts,
			lockout_until = excluded.lockout_until`,
		state.FailedAttempts, state.LockoutUntil)
	if err != nil {
		return fmt.Errorf("saving login state: %w", err)
	}
	return nil
}

// ResetLoginState clears the counter and lockout expiry.
func (s *SQLiteStore) ResetLoginState(ctx context.Context) error {
	return s.SaveLoginState(ctx, models.LoginAttemptState{})
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
