package activitylog

import (
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewConsumerID names this process inside the activity stream's consumer
// group: the sanitized hostname followed by a ULID, e.g. "api-7f9c-01J...".
// Pending entries left by a dead consumer are reclaimed by idle time, so the
// ID only has to be unique, not stable across restarts.
func NewConsumerID() string {
	host, _ := os.Hostname()
	return consumerName(host) + "-" + ulid.Make().String()
}

func consumerName(host string) string {
	host = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, host)
	host = strings.Trim(host, "-")
	if len(host) > 32 {
		host = host[:32]
	}
	if host == "" {
		return "api"
	}
	return host
}
