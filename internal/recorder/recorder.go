package recorder

import (
	"time"

	"StockDog/internal/model"
)

// SyncEvent describes one synchronization cycle.
type SyncEvent struct {
	RequestID string
	Trigger   string // "scheduled" or "manual"
	Status    string // see quotesync.Status
	Symbols   []string
	Received  int
	Applied   int
	Duration  time.Duration
	Error     string
}

// QuotePoint is one recorded quote for a symbol.
type QuotePoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Symbol        string    `json:"symbol"`
	LastPrice     float64   `json:"last_price"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
}

// Recorder persists synchronization history for later analysis.
type Recorder interface {
	RecordSync(evt *SyncEvent) error
	RecordQuotes(requestID string, quotes []model.Quote) error
	// QuoteHistory returns the newest points for symbol, newest first.
	QuoteHistory(symbol string, limit int) ([]QuotePoint, error)
	Close() error
}
