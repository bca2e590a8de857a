package webclient

import (
	"time"

	"github.com/kfodor/coinledger/internal/config"
)

func testWebConfig(protocol, hostname string) config.WebConfig {
	return config.WebConfig{
		Protocol: protocol,
		Hostname: hostname,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	}
}
