package rail

import (
	"fmt"

	"github.com/ziflex/lecho/v3"
)

func InitRailClient(c *Config, logger *lecho.Logger) (Client, error) {
	switch c.RailClientType {
	case HTTP_CLIENT_TYPE:
		if c.RailBaseUrl == "" {
			return nil, fmt.Errorf("RAIL_BASE_URL is required for the %s rail client", c.RailClientType)
		}
		logger.Infof("Using payment rail at %s", c.RailBaseUrl)
		return NewHTTPClient(c.RailBaseUrl, c.RailApiKey, c.RailTimeout), nil
	case SANDBOX_CLIENT_TYPE:
		logger.Warnf("Using the sandbox payment rail, payments verify after %s", c.SandboxVerifyAfter)
		return NewSandboxClient(c.SandboxVerifyAfter, c.SandboxRejectPrefix), nil
	default:
		return nil, fmt.Errorf("Did not recognize rail client type %s", c.RailClientType)
	}
}
