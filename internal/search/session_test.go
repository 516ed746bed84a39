package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/models"
	"warrant-sniper/internal/transport"
)

func newTestSession() (*Session, *transport.MemoryTransport) {
	tr := transport.NewMemoryTransport()
	return NewSession(tr, zerolog.Nop()), tr
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestSubmitRejectsEmptyQuery(t *testing.T) {
	s, tr := newTestSession()

	for _, q := range []string{"", "   ", "\t"} {
		if _, err := s.Submit(context.Background(), q); !apperrors.Is(err, apperrors.ErrEmptyQuery) {
			t.Errorf("Submit(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
	if len(tr.SubmittedCommands()) != 0 {
		t.Error("blank queries must not reach the transport")
	}
	if s.Snapshot().State != StateIdle {
		t.Error("session should stay idle after rejected queries")
	}
}

func TestSubmitNormalizesQuery(t *testing.T) {
	s, tr := newTestSession()

	if _, err := s.Submit(context.Background(), "  23z30 "); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cmds := tr.SubmittedCommands()
	if len(cmds) != 1 || cmds[0] != "23Z30" {
		t.Errorf("submitted = %v, want trimmed upper-cased code", cmds)
	}
}

func TestSubmitTransportFailureReturnsToIdle(t *testing.T) {
	s, tr := newTestSession()
	tr.SetUnavailable(true)

	_, err := s.Submit(context.Background(), "2330")
	if !apperrors.Is(err, apperrors.ErrTransportUnavailable) {
		t.Fatalf("error = %v, want ErrTransportUnavailable", err)
	}
	if snap := s.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %v, want idle after failed dispatch", snap.State)
	}
}

func TestCompletionDeliveredExactlyOnce(t *testing.T) {
	s, tr := newTestSession()

	var deliveries int64
	s.OnResult(func(models.SearchResult) { atomic.AddInt64(&deliveries, 1) })

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	items := []transport.RawItem{{"id": "031001", "price": 1.5}}
	stamp := time.Now()
	tr.PublishResult("2330", items, stamp, true)
	// Duplicate completion for the same search must be dropped.
	tr.PublishResult("2330", items, stamp, true)

	waitFor(t, time.Second, func() bool { return s.Snapshot().State == StateComplete })
	if n := atomic.LoadInt64(&deliveries); n != 1 {
		t.Errorf("deliveries = %d, want exactly 1", n)
	}

	snap := s.Snapshot()
	if snap.Result == nil || len(snap.Result.Warrants) != 1 {
		t.Fatalf("result = %+v, want one warrant", snap.Result)
	}
	if snap.Result.Warrants[0].ID != "031001" {
		t.Errorf("warrant ID = %q, want normalized 031001", snap.Result.Warrants[0].ID)
	}
}

func TestPendingUpdatesAreNotSurfaced(t *testing.T) {
	s, tr := newTestSession()

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Pending write: the result document exists but has no stamp yet.
	tr.PublishResult("2330", nil, time.Time{}, false)
	time.Sleep(50 * time.Millisecond)

	if snap := s.Snapshot(); snap.State != StateSearching {
		t.Errorf("state = %v, pending updates must not complete the search", snap.State)
	}
}

func TestStaleCompletionFromSupersededSearchIsDropped(t *testing.T) {
	s, tr := newTestSession()

	var got []string
	done := make(chan struct{}, 1)
	s.OnResult(func(r models.SearchResult) {
		got = append(got, r.StockCode)
		done <- struct{}{}
	})

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := s.Submit(context.Background(), "2454"); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	// The slow first search completes after it was superseded.
	tr.PublishResult("2330", []transport.RawItem{{"id": "old"}}, time.Now(), true)
	tr.PublishResult("2454", []transport.RawItem{{"id": "new"}}, time.Now(), true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no completion delivered")
	}

	snap := s.Snapshot()
	if snap.StockCode != "2454" {
		t.Errorf("active code = %q, want 2454", snap.StockCode)
	}
	if snap.Result == nil || snap.Result.StockCode != "2454" {
		t.Fatalf("result = %+v, want the 2454 completion", snap.Result)
	}
	if len(got) != 1 || got[0] != "2454" {
		t.Errorf("delivered codes = %v, want only 2454", got)
	}
}

func TestAtMostOneActiveWatcher(t *testing.T) {
	s, tr := newTestSession()
	ctx := context.Background()

	if _, err := s.Submit(ctx, "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := s.Submit(ctx, "2330"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if _, err := s.Submit(ctx, "2454"); err != nil {
		t.Fatalf("third Submit: %v", err)
	}

	if n := tr.WatcherCount("2330"); n != 0 {
		t.Errorf("2330 watchers = %d, want 0 after supersession", n)
	}
	if n := tr.WatcherCount("2454"); n != 1 {
		t.Errorf("2454 watchers = %d, want exactly 1", n)
	}
}

func TestCancelIsIdempotentAndSilencesCompletions(t *testing.T) {
	s, tr := newTestSession()

	var deliveries int64
	s.OnResult(func(models.SearchResult) { atomic.AddInt64(&deliveries, 1) })

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.Cancel()
	s.Cancel()
	s.Cancel()

	tr.PublishResult("2330", []transport.RawItem{{"id": "late"}}, time.Now(), true)
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt64(&deliveries); n != 0 {
		t.Errorf("deliveries after cancel = %d, want 0", n)
	}
	if snap := s.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %v, want idle after cancel", snap.State)
	}
	if n := tr.WatcherCount("2330"); n != 0 {
		t.Errorf("watchers after cancel = %d, want 0", n)
	}
}

func TestEmptyCompletedResultIsCompleteWithZeroMatches(t *testing.T) {
	s, tr := newTestSession()

	if _, err := s.Submit(context.Background(), "9999"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	tr.PublishResult("9999", nil, time.Now(), true)

	waitFor(t, time.Second, func() bool { return s.Snapshot().State == StateComplete })

	snap := s.Snapshot()
	if snap.Result == nil {
		t.Fatal("completed search should carry a result")
	}
	if len(snap.Result.Warrants) != 0 {
		t.Errorf("warrants = %d, want zero matches", len(snap.Result.Warrants))
	}
}

func TestWaitReturnsCompletedResult(t *testing.T) {
	s, tr := newTestSession()
	tr.Seed("2330", []transport.RawItem{{"id": "031001"}})

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.StockCode != "2330" || len(result.Warrants) != 1 {
		t.Errorf("result = %+v, want one 2330 warrant", result)
	}
}

func TestWaitTimesOutWhenBackendSilent(t *testing.T) {
	s, _ := newTestSession()

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait error = %v, want DeadlineExceeded", err)
	}
}

func TestStaleDropCounter(t *testing.T) {
	s, tr := newTestSession()

	if _, err := s.Submit(context.Background(), "2330"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	tr.PublishResult("2330", nil, time.Now(), true)
	waitFor(t, time.Second, func() bool { return s.Snapshot().State == StateComplete })

	// A second completion for an already-completed search is stale.
	tr.PublishResult("2330", nil, time.Now(), true)
	waitFor(t, time.Second, func() bool { return s.StaleDrops() == 1 })
}
