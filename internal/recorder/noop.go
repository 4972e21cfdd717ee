package recorder

import "StockDog/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSync(_ *SyncEvent) error                      { return nil }
func (n *NoopRecorder) RecordQuotes(_ string, _ []model.Quote) error       { return nil }
func (n *NoopRecorder) QuoteHistory(_ string, _ int) ([]QuotePoint, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                       { return nil }
