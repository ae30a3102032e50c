package config

type AppConfig struct {
	Server ServerConfig
	Mint   MintConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	mintCfg, err := LoadMint()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Mint:   mintCfg,
		Log:    logCfg,
	}, nil
}
