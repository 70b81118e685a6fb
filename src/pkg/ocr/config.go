package ocr

import "receipt-impact/src/pkg/config"

type Config struct {
	Language         string `json:"language,omitempty"`          // tesseract language(s), "spa" or "spa+eng"
	TargetWidth      int    `json:"target_width,omitempty"`      // narrower images are upscaled to this width
	SequentialPasses bool   `json:"sequential_passes,omitempty"` // run the two passes one after another
}

func DefaultValueConfig() Config {
	return Config{
		Language:    "spa",
		TargetWidth: DefaultTargetWidth,
	}
}

// create config with default values before config gets initialized
var Cfg Config = DefaultValueConfig()

// InitializeConfig replaces Cfg with localConfig, filling missing values with defaults.
func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
