package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	BaseURL   string `env:"MINT_BASE_URL" envDefault:"http://localhost:8080"`
	Recipient string `env:"BOT_RECIPIENT" envDefault:"utxob:bot-demo-recipient"`
	UnitCount int64  `env:"BOT_UNIT_COUNT" envDefault:"1"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
