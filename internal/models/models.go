// Package models provides domain models for the warrant browser.
package models

import (
	"time"
)

// WarrantType classifies a warrant as a call or put.
type WarrantType string

const (
	WarrantCall WarrantType = "CALL"
	WarrantPut  WarrantType = "PUT"
)

// CommandStatus represents the lifecycle state of a search command.
type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandCompleted CommandStatus = "completed"
)

// OrderBookEntry is one level of market depth.
type OrderBookEntry struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// Warrant is one issued instrument tracked for a search session.
// All numeric fields default to 0 when the backend omits them; the
// type is derived once at normalization time and never recomputed.
type Warrant struct {
	ID               string      `json:"id"`
	Symbol           string      `json:"symbol"`
	Name             string      `json:"name"`
	UnderlyingSymbol string      `json:"underlying_symbol"`
	UnderlyingName   string      `json:"underlying_name"`
	Broker           string      `json:"broker"`
	Type             WarrantType `json:"type"`

	Price             float64 `json:"price"`
	StrikePrice       float64 `json:"strike_price"`
	Volume            float64 `json:"volume"`
	BestBidPrice      float64 `json:"best_bid_price"`
	BestBidVol        float64 `json:"best_bid_vol"`
	BestAskPrice      float64 `json:"best_ask_price"`
	BestAskVol        float64 `json:"best_ask_vol"`
	EffectiveLeverage float64 `json:"effective_leverage"`
	ThetaPercent      float64 `json:"theta_percent"`
	DaysToMaturity    int     `json:"days_to_maturity"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	SpreadPercent     float64 `json:"spread_percent"`

	Bids []OrderBookEntry `json:"bids"`
	Asks []OrderBookEntry `json:"asks"`
}

// IsCall reports whether the warrant profits from underlying rises.
func (w Warrant) IsCall() bool {
	return w.Type == WarrantCall
}

// Spread returns ask minus bid, or 0 when either side is missing.
func (w Warrant) Spread() float64 {
	if w.BestBidPrice <= 0 || w.BestAskPrice <= 0 {
		return 0
	}
	return w.BestAskPrice - w.BestBidPrice
}

// SearchCommand is one request/response correlation unit. The ID is
// assigned by the transport on creation.
type SearchCommand struct {
	ID        string        `json:"id"`
	StockCode string        `json:"stock_code"`
	Status    CommandStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// SearchResult holds the normalized outcome of one completed search.
type SearchResult struct {
	StockCode string    `json:"stock_code"`
	Warrants  []Warrant `json:"warrants"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginAttemptState is the persisted failure counter and lockout
// expiry. Reset entirely on success or on lockout expiry.
type LoginAttemptState struct {
	FailedAttempts int   `json:"failed_attempts"`
	LockoutUntil   int64 `json:"lockout_until"` // epoch millis, 0 when unlocked
}

// Locked reports whether the state is still inside a lockout window.
func (s LoginAttemptState) Locked(now time.Time) bool {
	return s.LockoutUntil > now.UnixMilli()
}

// AnalysisResult is the outcome of an AI commentary request.
type AnalysisResult struct {
	Content string           `json:"content"`
	Sources []AnalysisSource `json:"sources,omitempty"`
}

// AnalysisSource is one cited source backing an analysis.
type AnalysisSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}
