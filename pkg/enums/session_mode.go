package enums

import "fmt"

// SessionMode is the conversational state a user is in. Free text is
// interpreted according to it.
type SessionMode string

const (
	SessionModeIdle             SessionMode = "idle"
	SessionModeAwaitingFeedback SessionMode = "awaiting_feedback"
)

var validSessionModes = []SessionMode{
	SessionModeIdle,
	SessionModeAwaitingFeedback,
}

// String implements fmt.Stringer.
func (m SessionMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known SessionMode.
func (m SessionMode) IsValid() bool {
	for _, candidate := range validSessionModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseSessionMode converts raw input into a SessionMode.
func ParseSessionMode(value string) (SessionMode, error) {
	for _, candidate := range validSessionModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session mode %q", value)
}
