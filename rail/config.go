package rail

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	HTTP_CLIENT_TYPE    = "http"
	SANDBOX_CLIENT_TYPE = "sandbox"
)

type Config struct {
	RailClientType      string        `envconfig:"RAIL_CLIENT_TYPE" default:"sandbox"` //http, sandbox
	RailBaseUrl         string        `envconfig:"RAIL_BASE_URL"`
	RailApiKey          string        `envconfig:"RAIL_API_KEY"`
	RailTimeout         time.Duration `envconfig:"RAIL_TIMEOUT" default:"10s"`
	SandboxVerifyAfter  time.Duration `envconfig:"SANDBOX_VERIFY_AFTER" default:"15s"`
	SandboxRejectPrefix string        `envconfig:"SANDBOX_REJECT_PREFIX" default:"REJ"`
}

func LoadConfig() (c *Config, err error) {
	c = &Config{}
	err = envconfig.Process("", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}
