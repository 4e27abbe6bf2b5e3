package service

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// KeysCacheTTL bounds how long the pre-flight key list may be reused.
	KeysCacheTTL    time.Duration `envconfig:"KEYS_CACHE_TTL" default:"5m"`
	DefaultPageSize int           `envconfig:"TRADES_DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize     int           `envconfig:"TRADES_MAX_PAGE_SIZE" default:"500"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
