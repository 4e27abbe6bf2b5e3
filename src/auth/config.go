package auth

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// JWTSecret is the HS256 secret shared with the hosted auth platform.
	JWTSecret string        `envconfig:"AUTH_JWT_SECRET" default:"change-me"`
	Issuer    string        `envconfig:"AUTH_JWT_ISSUER" default:""`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"1h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
