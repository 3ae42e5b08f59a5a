package config

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Report  ReportConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type ReportConfig struct {
	// UnitColumn forces the unit column name. Empty means detect it from
	// the dataset headers.
	UnitColumn string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Report: ReportConfig{
			UnitColumn: "",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/plumbline/config.json, then applies PLUMB_* environment
// variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
