package config

const (
	defaultConfigPath    = "~/.config/bidsify/config.toml"
	projectConfigName    = "bidsify.toml"
	defaultLogDir        = "~/.local/share/bidsify/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultMethod        = "copy"
	defaultSession       = "01"
	defaultMappingFormat = "yaml"
)

// Methods lists the accepted transfer methods.
var Methods = []string{"copy", "link", "symlink"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Scan: Scan{
			Prompt:        true,
			MappingFormat: defaultMappingFormat,
		},
		Transfer: Transfer{
			Method:    defaultMethod,
			Session:   defaultSession,
			Overwrite: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
