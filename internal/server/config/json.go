package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/agrismart/auth/internal/flagx"
	"github.com/agrismart/auth/internal/timex"
)

// JsonConfig is the DTO for reading JSON configuration files. Interval
// fields use timex.Duration so both "15m" strings and integer nanoseconds
// parse; values are copied into the runtime Config afterwards.
type JsonConfig struct {
	DatabaseDSN                  string         `json:"database_dsn"`
	KeyDirectory                 string         `json:"key_directory"`
	KeyBackend                   string         `json:"key_backend"`
	KeyCacheEnabled              bool           `json:"key_cache_enabled"`
	KeyOverride                  bool           `json:"key_override"`
	KeyPassphrase                string         `json:"key_passphrase"`
	TokenIssuer                  string         `json:"token_issuer"`
	TokenAudience                string         `json:"token_audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	GoogleClientID               string         `json:"google_client_id"`
	SingleSession                bool           `json:"single_session"`
	JanitorEnabled               bool           `json:"janitor_enabled"`
	JanitorInterval              timex.Duration `json:"janitor_interval"`
	JanitorErrorBackoff          timex.Duration `json:"janitor_error_backoff"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into config. When no flag is given, nothing is loaded.
// An unreadable or malformed file panics: starting with half-applied
// configuration is worse than not starting.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.KeyDirectory = c.KeyDirectory
	config.KeyBackend = c.KeyBackend
	config.KeyCacheEnabled = c.KeyCacheEnabled
	config.KeyOverride = c.KeyOverride
	config.KeyPassphrase = c.KeyPassphrase
	config.TokenIssuer = c.TokenIssuer
	config.TokenAudience = c.TokenAudience
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.GoogleClientID = c.GoogleClientID
	config.SingleSession = c.SingleSession
	config.JanitorEnabled = c.JanitorEnabled
	config.JanitorInterval = time.Duration(c.JanitorInterval.Duration)
	config.JanitorErrorBackoff = time.Duration(c.JanitorErrorBackoff.Duration)
}
