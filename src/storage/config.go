package storage

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL          string        `envconfig:"STORAGE_URL" default:"http://localhost:54321"`
	ServiceKey   string        `envconfig:"STORAGE_SERVICE_KEY" default:""`
	Bucket       string        `envconfig:"STORAGE_BUCKET" default:"trade-screenshots"`
	SignedURLTTL time.Duration `envconfig:"STORAGE_SIGNED_URL_TTL" default:"1h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
