package impact

import "receipt-impact/src/pkg/config"

type Config struct {
	ThresholdsPath string `json:"thresholds_path,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		ThresholdsPath: "./cfg/thresholds.yaml",
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
