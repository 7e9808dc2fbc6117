package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSkippedItem marks a line item without a usable product id.
	ErrSkippedItem = errors.New("line item has no product id")
	// ErrProviderRejected marks a definitive business failure from the provider.
	ErrProviderRejected = errors.New("provider rejected request")
	// ErrPollExhausted marks an item whose poll budget ran out without a serial.
	ErrPollExhausted = errors.New("poll attempts exhausted")
	// ErrNoSerial marks an allocation that cannot yield a serial.
	ErrNoSerial = errors.New("no serial returned")
	// ErrStoreRejected marks a validation failure reported by the order store.
	ErrStoreRejected = errors.New("order store rejected update")
	// ErrCommitFailed marks results that were computed but not persisted.
	ErrCommitFailed = errors.New("commit failed")
)

// TransportError is a network, timeout or malformed-response failure on a provider call.
type TransportError struct {
	Op          string
	ReferenceID string
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport: %v", e.Op, e.ReferenceID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a well-formed provider response that reports a business failure.
type ProviderError struct {
	Op          string
	ReferenceID string
	Message     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: provider: %s", e.Op, e.ReferenceID, e.Message)
}

// Is lets callers match any ProviderError with ErrProviderRejected.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderRejected
}

// CommitError reports a failed write-back of an aggregated note.
type CommitError struct {
	OrderID string
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit order %s: %v", e.OrderID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Is lets callers match any CommitError with ErrCommitFailed.
func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailed
}

// StoreRejection builds an ErrStoreRejected error carrying the store's validation messages.
func StoreRejection(messages ...string) error {
	if len(messages) == 0 {
		return ErrStoreRejected
	}
	return fmt.Errorf("%w: %s", ErrStoreRejected, strings.Join(messages, "; "))
}
