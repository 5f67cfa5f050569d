package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindSourceUnreadable  Kind = "source_unreadable"
	KindDegenerateRescale Kind = "degenerate_rescale"
	KindInvalidConfig     Kind = "invalid_config"
)

type Error struct {
	Kind Kind
	// SafeMessage is printed to the user as-is.
	SafeMessage string
	// Cause keeps the underlying error for logs and errors.Is matching.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindSourceUnreadable:
		return "Subtitle file could not be read."
	case KindDegenerateRescale:
		return "Subtitle timeline cannot be rescaled."
	case KindInvalidConfig:
		return "Invalid configuration."
	default:
		return "Operation failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func SourceUnreadable(msg string, err error) error {
	return New(KindSourceUnreadable, msg, err)
}

func DegenerateRescale(msg string, err error) error {
	return New(KindDegenerateRescale, msg, err)
}

func InvalidConfig(msg string, err error) error {
	return New(KindInvalidConfig, msg, err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// PublicMessage returns the user-facing text for err, including the cause
// when it adds detail beyond the safe message.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil && e.SafeMessage != "" {
			return e.SafeMessage + " (" + e.Cause.Error() + ")"
		}
		return e.Error()
	}
	return err.Error()
}
