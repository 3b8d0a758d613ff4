// Package config loads the immutable runtime settings for the camera
// data layer.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings is the root configuration struct. It is built once at
// startup and passed to components at construction; nothing mutates it
// afterwards.
type Settings struct {
	BaseURL string       `mapstructure:"baseURL"`
	HTTP    HTTPConfig   `mapstructure:"http"`
	Cache   CacheConfig  `mapstructure:"cache"`
	Query   QueryConfig  `mapstructure:"query"`
	Server  ServerConfig `mapstructure:"server"`
	Relay   RelayConfig  `mapstructure:"relay"`
}

// HTTPConfig holds outbound transport settings.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds local cache keys, the expiry window, and the sweep
// ceilings.
type CacheConfig struct {
	Dir             string        `mapstructure:"dir"`
	KeyPrefix       string        `mapstructure:"keyPrefix"`
	DataKey         string        `mapstructure:"dataKey"`
	TimestampKey    string        `mapstructure:"timestampKey"`
	Expiry          time.Duration `mapstructure:"expiry"`
	SweepMaxBytes   int64         `mapstructure:"sweepMaxBytes"`
	SweepMaxRegions int           `mapstructure:"sweepMaxRegions"`
}

// QueryConfig holds query-layer defaults.
type QueryConfig struct {
	DefaultRadiusM float64 `mapstructure:"defaultRadiusM"`
	DisplayCap     int     `mapstructure:"displayCap"`
}

// ServerConfig holds the REST listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RelayConfig holds the anonymous-submission relay settings.
type RelayConfig struct {
	IssueAPIURL string `mapstructure:"issueAPIURL"`
	Token       string `mapstructure:"token"`
}

// Load reads configuration from file and environment.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("baseURL", "https://raw.githubusercontent.com/DukesR8/Camera-Database/main")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("cache.dir", "./data/camera-cache")
	v.SetDefault("cache.keyPrefix", "camera_cache/")
	v.SetDefault("cache.dataKey", "camera_cache/cameras")
	v.SetDefault("cache.timestampKey", "camera_cache/cameras_fetched_at")
	v.SetDefault("cache.expiry", 7*24*time.Hour)
	v.SetDefault("cache.sweepMaxBytes", int64(10*1024*1024))
	v.SetDefault("cache.sweepMaxRegions", 5)
	v.SetDefault("query.defaultRadiusM", 20000.0)
	v.SetDefault("query.displayCap", 100)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("relay.issueAPIURL", "https://api.github.com/repos/DukesR8/Camera-Database/issues")
	v.SetDefault("relay.token", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("camdb")
	v.AutomaticEnv()
	// CAMDB_RELAY_TOKEN is the supported way to hand the relay its
	// credential without writing it to a config file.
	_ = v.BindEnv("relay.token", "CAMDB_RELAY_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
