package design

import (
	"errors"
	"fmt"
)

// Validation failures detected before any I/O begins.
var (
	ErrNoImage    = errors.New("at least one image is required")
	ErrNoRoomType = errors.New("room type is required and cannot be empty")
	ErrNoUser     = errors.New("user identity is required")
)

// NoMatchError reports that no catalog item satisfied the filters. The
// filters are carried so the caller can surface them.
type NoMatchError struct {
	RoomTypeID   string
	PriceCeiling float64
	ColorID      string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no furniture items found for room type %q (price < %s, color %s)",
		e.RoomTypeID, e.CeilingLabel(), orNull(e.ColorID))
}

// CeilingLabel renders the ceiling for messages and responses, naming the
// unlimited sentinel instead of printing its numeric value.
func (e *NoMatchError) CeilingLabel() string {
	if e.PriceCeiling == NoBudgetCeiling {
		return "unlimited"
	}
	return fmt.Sprintf("%g", e.PriceCeiling)
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

// SynthesisError wraps any failure of the external synthesis call, including
// a success response missing the image payload.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("image synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// PersistenceError wraps failures writing the artifact or the linked
// recommendation/design records.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
