package email

import "receipt-impact/src/pkg/config"

type Config struct {
	Provider       string `json:"provider,omitempty"`         // ses, mailgun or sendgrid
	AwsRegion      string `json:"aws_region,omitempty"`       // falls back to AWS_REGION when empty
	MailgunAPIBase string `json:"mailgun_api_base,omitempty"` // mailgun.APIBaseEU for EU domains
	SendGridHost   string `json:"sendgrid_host,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		Provider:       string(ProviderSES),
		MailgunAPIBase: "https://api.mailgun.net/v3",
		SendGridHost:   "https://api.sendgrid.com",
		TimeoutSeconds: 30,
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
