package receipt

import "receipt-impact/src/pkg/config"

type Config struct {
	OutputDir             string `json:"output_dir,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		OutputDir:             "./out",
		RequestTimeoutSeconds: 180,
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
