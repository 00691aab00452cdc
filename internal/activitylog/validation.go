package activitylog

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	maxMessageLength = 500
	maxIDLength      = 64
)

// ErrInvalidEvent wraps every validation failure.
var ErrInvalidEvent = errors.New("invalid activity event")

// ValidateEvent validates activity event fields.
func ValidateEvent(e Event) error {
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidEvent)
	}
	if utf8.RuneCountInString(e.Message) > maxMessageLength {
		return fmt.Errorf("%w: message too long", ErrInvalidEvent)
	}
	if len(e.ActorID) > maxIDLength || len(e.SubjectID) > maxIDLength {
		return fmt.Errorf("%w: id too long", ErrInvalidEvent)
	}
	if e.OccurredAt <= 0 {
		return fmt.Errorf("%w: timestamp must be set", ErrInvalidEvent)
	}
	return nil
}
