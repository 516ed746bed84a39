package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "warrant-sniper/internal/errors"
)

// MemoryTransport is an in-process Transport used by tests and by
// offline mode. Results are injected with PublishResult or seeded up
// front with Seed.
type MemoryTransport struct {
	mu          sync.Mutex
	nextID      int
	unavailable bool
	seeded      map[string][]RawItem
	watchers    map[string][]*memoryWatch
	commands    []string // stock codes in submission order
}

type memoryWatch struct {
	mu        sync.Mutex
	cancelled bool
	fn        ResultHandler
}

func (w *memoryWatch) deliver(items []RawItem, updatedAt time.Time, complete bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return
	}
	w.fn(items, updatedAt, complete)
}

// NewMemoryTransport creates an empty in-memory transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		seeded:   make(map[string][]RawItem),
		watchers: make(map[string][]*memoryWatch),
	}
}

// SetUnavailable makes SubmitCommand fail, simulating an unreachable
// document store.
func (t *MemoryTransport) SetUnavailable(unavailable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unavailable = unavailable
}

// Seed registers a canned completed result document. It is delivered
// to each watcher on registration, matching the initial document read
// the live transport performs.
func (t *MemoryTransport) Seed(stockCode string, items []RawItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeded[ResultDocID(stockCode)] = items
}

// SubmitCommand records the command.
func (t *MemoryTransport) SubmitCommand(ctx context.Context, stockCode string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unavailable {
		return "", apperrors.NewTransportError("submit_command", stockCode, apperrors.ErrTransportUnavailable)
	}
	t.nextID++
	id := fmt.Sprintf("cmd-%d", t.nextID)
	t.commands = append(t.commands, stockCode)
	return id, nil
}

// WatchResult registers a watcher for the stock code. A seeded result
// document is delivered immediately, like the initial read against a
// live store.
func (t *MemoryTransport) WatchResult(ctx context.Context, stockCode string, fn ResultHandler) (CancelFunc, error) {
	w := &memoryWatch{fn: fn}
	key := ResultDocID(stockCode)

	t.mu.Lock()
	t.watchers[key] = append(t.watchers[key], w)
	items, seeded := t.seeded[key]
	t.mu.Unlock()

	if seeded {
		go w.deliver(items, time.Now(), true)
	}

	cancel := func() {
		w.mu.Lock()
		w.cancelled = true
		w.mu.Unlock()

		t.mu.Lock()
		defer t.mu.Unlock()
		watchers := t.watchers[key]
		for i, cur := range watchers {
			if cur == w {
				t.watchers[key] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
	}
	return cancel, nil
}

// PublishResult delivers a result-document update to every active
// watcher of the stock code. Tests use it to simulate out-of-order
// and stale deliveries.
func (t *MemoryTransport) PublishResult(stockCode string, items []RawItem, updatedAt time.Time, complete bool) {
	key := ResultDocID(stockCode)

	t.mu.Lock()
	watchers := make([]*memoryWatch, len(t.watchers[key]))
	copy(watchers, t.watchers[key])
	t.mu.Unlock()

	for _, w := range watchers {
		w.deliver(items, updatedAt, complete)
	}
}

// SubmittedCommands returns the stock codes submitted so far.
func (t *MemoryTransport) SubmittedCommands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.commands))
	copy(out, t.commands)
	return out
}

// WatcherCount returns the number of active watchers for a code.
func (t *MemoryTransport) WatcherCount(stockCode string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watchers[ResultDocID(stockCode)])
}

// Close implements Transport.
func (t *MemoryTransport) Close(ctx context.Context) error {
	return nil
}
