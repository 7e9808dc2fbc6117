package service

import (
	"context"

	"card-fulfillment/internal/core/metrics"
	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"
)

// NoteWriter commits an aggregated note to the order store.
type NoteWriter struct {
	store ports.OrderStore
}

// NewNoteWriter creates a new NoteWriter.
func NewNoteWriter(store ports.OrderStore) *NoteWriter {
	return &NoteWriter{store: store}
}

// Commit writes aggregated when it differs from current and reports whether a write happened.
// Failures are returned as *domain.CommitError and are not retried.
func (w *NoteWriter) Commit(ctx context.Context, orderID, aggregated, current, codes string) (bool, error) {
	if aggregated == current {
		metrics.CommitsTotal.WithLabelValues("skipped").Inc()
		return false, nil
	}

	err := w.store.UpdateNote(ctx, ports.NoteUpdate{
		OrderID: orderID,
		Note:    aggregated,
		Codes:   codes,
	})
	if err != nil {
		metrics.CommitsTotal.WithLabelValues("failed").Inc()
		return false, &domain.CommitError{OrderID: orderID, Err: err}
	}

	metrics.CommitsTotal.WithLabelValues("written").Inc()
	return true, nil
}
