package momoscript

import (
	"context"
	"os"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the momoscript.yaml document used by the CLI and by
// applications that prefer file configuration over options.
type Config struct {
	Compile CompileConfig    `yaml:"compile"`
	Pack    PackSourceConfig `yaml:"pack"`
	Log     LogConfig        `yaml:"log"`
}

// CompileConfig mirrors the compile options of the engine.
type CompileConfig struct {
	TypstMode       bool `yaml:"typst_mode"`
	JoinWithNewline bool `yaml:"join_with_newline"`
}

// PackSourceConfig selects where the character pack is loaded from.
// An empty Driver means no character directory.
type PackSourceConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Name     string `yaml:"name"`
	BaseRoot string `yaml:"base_root"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Compile: CompileConfig{
			TypstMode:       DefaultTypstMode,
			JoinWithNewline: DefaultJoinWithNewline,
		},
		Pack: PackSourceConfig{
			Name: DefaultPackName,
		},
		Log: LogConfig{
			Level:  ConfigDefaultLogLevel,
			Format: ConfigDefaultLogFormat,
		},
	}
}

// ParseConfig decodes a YAML document on top of DefaultConfig and
// validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewConfigReadError(ErrMsgConfigParseFailed, "", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigReadError(ErrMsgConfigReadFailed, path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver, log level and log format.
func (c *Config) Validate() error {
	if c.Pack.Driver != "" && !slices.Contains(ListStorageDrivers(), c.Pack.Driver) {
		return NewConfigError(ErrMsgConfigInvalidDriver, ConfigFieldPackDriver, c.Pack.Driver)
	}
	if c.Pack.Driver != "" && !IsValidPackName(c.Pack.Name) {
		return NewConfigError(ErrMsgInvalidPackName, ConfigFieldPackName, c.Pack.Name)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return NewConfigError(ErrMsgConfigInvalidLevel, ConfigFieldLogLevel, c.Log.Level)
	}
	if c.Log.Format != LogFormatConsole && c.Log.Format != LogFormatJSON {
		return NewConfigError(ErrMsgConfigInvalidFormat, ConfigFieldLogFormat, c.Log.Format)
	}
	return nil
}

// LoadDirectory opens the configured pack storage and loads the pack.
// It returns nil without error when no driver is configured or when the
// pack has no usable avatar entries.
func (c *Config) LoadDirectory(ctx context.Context, logger *zap.Logger) (*Directory, error) {
	if c.Pack.Driver == "" {
		return nil, nil
	}
	storage, err := OpenStorage(c.Pack.Driver, c.Pack.DSN)
	if err != nil {
		return nil, err
	}
	defer storage.Close()

	return LoadDirectory(ctx, storage, c.Pack.Name, c.Pack.BaseRoot, logger)
}
