// Package search provides the request/response correlation session
// between a user search and the backend scan engine.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/logging"
	"warrant-sniper/internal/models"
	"warrant-sniper/internal/normalize"
	"warrant-sniper/internal/transport"
)

// State is the user-visible search lifecycle.
type State int

const (
	// StateIdle means no search has been issued or the last one failed.
	StateIdle State = iota
	// StateSearching means a command is pending backend completion.
	StateSearching
	// StateComplete means a result was delivered; zero matches is a
	// valid completed state, distinct from idle.
	StateComplete
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateComplete:
		return "complete"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time view of the session for rendering.
type Snapshot struct {
	State     State
	StockCode string
	Result    *models.SearchResult
}

// ResultFunc receives each completed search result exactly once.
type ResultFunc func(models.SearchResult)

// Session turns one user search into an at-most-one-active-listener
// async result delivery. Submitting a new search cancels the previous
// watch before the new command is created, so a slow completion from
// an earlier command can never overwrite newer state.
type Session struct {
	tr     transport.Transport
	logger zerolog.Logger

	mu          sync.Mutex
	gen         uint64
	cancelWatch transport.CancelFunc
	state       State
	stockCode   string
	result      *models.SearchResult
	onResult    ResultFunc
	staleDrops  uint64
}

// NewSession creates a session over the given transport.
func NewSession(tr transport.Transport, logger zerolog.Logger) *Session {
	return &Session{
		tr:     tr,
		logger: logger,
		state:  StateIdle,
	}
}

// OnResult registers the completion callback. It fires at most once
// per Submit, never for a cancelled or superseded search.
func (s *Session) OnResult(fn ResultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// Submit validates the query, cancels any active watch, creates a new
// command record, and opens the result watch. It returns the command
// ID assigned by the transport. A blank query fails before any
// transport action; a transport failure returns the session to idle
// with no retry.
func (s *Session) Submit(ctx context.Context, query string) (string, error) {
	stockCode := strings.ToUpper(strings.TrimSpace(query))
	if stockCode == "" {
		return "", apperrors.ErrEmptyQuery
	}

	s.mu.Lock()
	oldCancel := s.cancelWatch
	s.cancelWatch = nil
	s.gen++
	myGen := s.gen
	s.state = StateSearching
	s.stockCode = stockCode
	s.result = nil
	s.mu.Unlock()

	// The old listener must be gone before the new command exists;
	// the generation check below is the backstop for anything already
	// in flight.
	if oldCancel != nil {
		oldCancel()
	}

	commandID, err := s.tr.SubmitCommand(ctx, stockCode)
	if err != nil {
		s.failSubmission(myGen)
		return "", err
	}
	logging.LogSearchSubmitted(s.logger, commandID, stockCode)

	cancel, err := s.tr.WatchResult(ctx, stockCode, func(items []transport.RawItem, updatedAt time.Time, complete bool) {
		s.handleUpdate(myGen, stockCode, items, updatedAt, complete)
	})
	if err != nil {
		s.failSubmission(myGen)
		return "", err
	}

	s.mu.Lock()
	if s.gen != myGen {
		// A newer Submit raced ahead; this watch is already stale.
		s.mu.Unlock()
		cancel()
		return commandID, nil
	}
	s.cancelWatch = cancel
	s.mu.Unlock()

	return commandID, nil
}

// failSubmission resets the session to idle unless a newer submission
// has already taken over.
func (s *Session) failSubmission(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state = StateIdle
		s.stockCode = ""
	}
}

// handleUpdate applies one result-document update for the submission
// identified by gen. Pending partials are not surfaced; anything for
// a superseded or already-completed submission is dropped.
func (s *Session) handleUpdate(gen uint64, stockCode string, items []transport.RawItem, updatedAt time.Time, complete bool) {
	if !complete {
		return
	}

	warrants := make([]models.Warrant, 0, len(items))
	for _, item := range items {
		warrants = append(warrants, normalize.Normalize(item, stockCode))
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateSearching {
		s.staleDrops++
		s.mu.Unlock()
		logging.LogStaleDrop(s.logger, stockCode, gen)
		return
	}

	result := models.SearchResult{
		StockCode: stockCode,
		Warrants:  warrants,
		UpdatedAt: updatedAt,
	}
	s.state = StateComplete
	s.result = &result
	fn := s.onResult
	s.mu.Unlock()

	logging.LogSearchCompleted(s.logger, stockCode, len(warrants), updatedAt)
	if fn != nil {
		fn(result)
	}
}

// Cancel releases the active watch, if any. It is idempotent; after
// it returns, no completion for the cancelled search is delivered.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancelWatch
	s.cancelWatch = nil
	s.gen++
	if s.state == StateSearching {
		s.state = StateIdle
		s.stockCode = ""
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:     s.state,
		StockCode: s.stockCode,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// StaleDrops reports how many deliveries were dropped by the stale
// guard. A non-zero value under test indicates the guard worked, not
// a defect.
func (s *Session) StaleDrops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleDrops
}

// Wait blocks until the current submission completes, the context is
// done, or the session leaves the searching state for another reason.
func (s *Session) Wait(ctx context.Context) (*models.SearchResult, error) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap := s.Snapshot()
		switch snap.State {
		case StateComplete:
			return snap.Result, nil
		case StateIdle:
			return nil, apperrors.ErrSessionClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
