package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/engine"
)

// Configuration keys.
const (
	KeyDatabasePath     = "database.path"
	KeyCacheTTL         = "classification.cache_ttl"
	KeyGroupSize        = "classification.group_size"
	KeyProgressInterval = "classification.progress_interval"
	KeyReclassifyLimit  = "classification.reclassify_limit"
	KeyMetricsAddr      = "metrics.addr"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/tally/tally.db"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	defaults := engine.DefaultConfig()

	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyCacheTTL, defaults.CacheTTL)
	v.SetDefault(KeyGroupSize, defaults.GroupSize)
	v.SetDefault(KeyProgressInterval, defaults.ProgressInterval)
	v.SetDefault(KeyReclassifyLimit, defaults.ReclassifyLimit)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// DatabasePath returns the configured database path with ~ and $VAR expanded.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString(KeyDatabasePath)
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}

// EngineConfig overlays the classification settings of v on the engine defaults.
func EngineConfig(v *viper.Viper) (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if v.IsSet(KeyCacheTTL) {
		ttl := v.GetDuration(KeyCacheTTL)
		if ttl <= 0 {
			return cfg, fmt.Errorf("%w: %s must be positive, got %q", common.ErrInvalidConfig, KeyCacheTTL, v.GetString(KeyCacheTTL))
		}
		cfg.CacheTTL = ttl
	}

	ints := []struct {
		key    string
		target *int
	}{
		{KeyGroupSize, &cfg.GroupSize},
		{KeyProgressInterval, &cfg.ProgressInterval},
		{KeyReclassifyLimit, &cfg.ReclassifyLimit},
	}
	for _, setting := range ints {
		if !v.IsSet(setting.key) {
			continue
		}
		n := v.GetInt(setting.key)
		if n <= 0 {
			return cfg, fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, setting.key, n)
		}
		*setting.target = n
	}

	return cfg, nil
}
