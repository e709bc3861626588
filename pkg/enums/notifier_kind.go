package enums

import (
	"fmt"
	"strings"
)

// NotifierKind selects the outbound channel for delivery notifications.
type NotifierKind string

const (
	NotifierKindLog   NotifierKind = "log"
	NotifierKindRedis NotifierKind = "redis"
	NotifierKindKafka NotifierKind = "kafka"
)

var validNotifierKinds = []NotifierKind{
	NotifierKindLog,
	NotifierKindRedis,
	NotifierKindKafka,
}

// String implements fmt.Stringer.
func (k NotifierKind) String() string {
	return string(k)
}

// ParseNotifierKind converts raw config input into a NotifierKind.
func ParseNotifierKind(value string) (NotifierKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validNotifierKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notifier kind %q", value)
}
