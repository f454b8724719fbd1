package instance

import (
	"os"

	"github.com/angelmondragon/foodrescue/pkg/config"
	"github.com/angelmondragon/foodrescue/pkg/env"
)

// GetID returns the process instance identifier: FOODRESCUE_INSTANCE_ID, then
// the host name, then "local".
func GetID() string {
	if id := env.Get(config.EnvInstanceID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
