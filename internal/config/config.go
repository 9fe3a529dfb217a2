package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config contains runtime configuration required by the service.
type Config struct {
	ListenAddr string
	DBURL      string

	// APIKeys is the static ingestion allowlist. Membership is the whole
	// trust model: there is no per-tenant identity behind a key.
	APIKeys map[string]struct{}

	// NotifyOnIngest makes every accepted /api/track write broadcast a
	// refresh signal on the websocket channel. Off by default; the
	// dashboard polls either way.
	NotifyOnIngest bool
}

// Load reads required values from environment variables.
// API_KEYS format: "key1,key2,key3"
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("API_KEYS", "")
	v.SetDefault("NOTIFY_ON_INGEST", false)
	v.AutomaticEnv()

	dbURL := strings.TrimSpace(v.GetString("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	keys := map[string]struct{}{}
	for _, k := range strings.Split(v.GetString("API_KEYS"), ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(keys) == 0 {
		keys["dev-key-123"] = struct{}{}
	}

	return Config{
		ListenAddr:     v.GetString("LISTEN_ADDR"),
		DBURL:          dbURL,
		APIKeys:        keys,
		NotifyOnIngest: v.GetBool("NOTIFY_ON_INGEST"),
	}, nil
}
