package echomw

import (
	"receipt-impact/src/pkg/config"
)

type Config struct {
	Address             string `json:"address,omitempty"`
	Port                int    `json:"port,omitempty"`
	MiddlewareRateLimit int    `json:"middleware_rate_limit,omitempty"` // requests per second per client IP
	MiddlewareBurst     int    `json:"middleware_burst,omitempty"`
	MaxUploadMegabytes  int    `json:"max_upload_megabytes,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		Address:             "127.0.0.1",
		Port:                8401,
		MiddlewareRateLimit: 3,
		MiddlewareBurst:     50,
		MaxUploadMegabytes:  15,
	}
}

// Cfg holds defaults until InitializeConfig applies the echo_middleware section.
var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
