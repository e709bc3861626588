package instance

import (
	"os"

	"github.com/angelmondragon/pieshop-backend/pkg/env"
)

// ID identifies this process in logs and lock ownership. It prefers
// PIESHOP_INSTANCE_ID, then the platform's DYNO, then the hostname.
func ID() string {
	if id := env.Get("PIESHOP_INSTANCE_ID", ""); id != "" {
		return id
	}
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
