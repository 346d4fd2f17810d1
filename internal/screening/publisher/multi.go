package publisher

import (
	"context"
	"fmt"

	"screener/internal/screening/models"
	"screener/internal/screening/ports"
)

// MultiSink hands each result to every sink in order and stops at the
// first failure. Put the system of record first.
type MultiSink struct {
	sinks []ports.ResultSink
}

func NewMultiSink(sinks ...ports.ResultSink) *MultiSink {
	kept := make([]ports.ResultSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

func (m *MultiSink) Publish(ctx context.Context, result *models.ScreeningResult) error {
	for i, sink := range m.sinks {
		if err := sink.Publish(ctx, result); err != nil {
			return fmt.Errorf("sink %d of %d: %w", i+1, len(m.sinks), err)
		}
	}
	return nil
}

// Len reports how many sinks are attached.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}
