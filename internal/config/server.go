package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	LightningBaseURL string `env:"LIGHTNING_BASE_URL" envDefault:"http://localhost:9735"`
	LightningAPIKey  string `env:"LIGHTNING_API_KEY"`
	RGBBaseURL       string `env:"RGB_BASE_URL" envDefault:"http://localhost:3001"`
	RGBAPIKey        string `env:"RGB_API_KEY"`

	PaymentPollSecs int `env:"PAYMENT_POLL_SECONDS" envDefault:"20"`
	JanitorSecs     int `env:"JANITOR_SECONDS" envDefault:"60"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
