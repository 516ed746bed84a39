// Package transport provides the document-store channel that carries
// search commands to the backend scan engine and result documents back.
package transport

import (
	"context"
	"strings"
	"time"
)

// RawItem is one backend-produced warrant record. Its shape is owned by
// the backend and must be treated as untrusted and partial.
type RawItem map[string]interface{}

// ResultHandler receives result-document updates. complete reports
// whether the document carries a finished scan (server update stamp
// present); pending writes arrive with complete=false.
type ResultHandler func(items []RawItem, updatedAt time.Time, complete bool)

// CancelFunc releases a result watch. Calling it more than once is a
// no-op; after it returns, the handler is never invoked again.
type CancelFunc func()

// Transport is the document-store channel between this client and the
// external scan engine.
type Transport interface {
	// SubmitCommand creates a pending search command record and
	// returns its transport-assigned identifier.
	SubmitCommand(ctx context.Context, stockCode string) (string, error)

	// WatchResult opens a live watch on the result document keyed by
	// the stock code. The handler fires on every observed change.
	WatchResult(ctx context.Context, stockCode string, fn ResultHandler) (CancelFunc, error)

	// Close releases the transport.
	Close(ctx context.Context) error
}

// ResultDocID sanitizes a stock code into the backend's result
// document key ("/" and "." are stripped by the engine).
func ResultDocID(stockCode string) string {
	id := strings.ReplaceAll(stockCode, "/", "")
	return strings.ReplaceAll(id, ".", "")
}
