package llm

import "receipt-impact/src/pkg/config"

type Config struct {
	// 0-100; at or above it the OCR text is trusted. 0 turns correction off, so
	// an explicit zero is kept and only a missing value falls back to the default.
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" default:"skip"`
	Temperature         float64  `json:"temperature,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		Temperature: DefaultTemperature,
	}
}

// Threshold is the configured confidence threshold or DefaultConfidenceThreshold.
func (c Config) Threshold() float64 {
	if c.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
