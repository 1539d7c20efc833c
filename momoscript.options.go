package momoscript

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	typstMode       bool
	joinWithNewline bool
	directory       CharacterDirectory
	packRoot        string
	baseRoot        string
	logger          *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		typstMode:       DefaultTypstMode,
		joinWithNewline: DefaultJoinWithNewline,
	}
}

// WithTypstMode enables the Typst rendering mode: inline expressions need
// a leading ':' inside the brackets, escape backslashes are kept and blank
// lines are preserved inside messages.
// Default: false
func WithTypstMode(enabled bool) Option {
	return func(c *engineConfig) {
		c.typstMode = enabled
	}
}

// WithJoinWithNewline selects "\n" (true) or " " (false) as the separator
// used when continuation lines are appended to a message.
// Default: true
func WithJoinWithNewline(enabled bool) Option {
	return func(c *engineConfig) {
		c.joinWithNewline = enabled
	}
}

// WithDirectory sets a loaded character pack. Avatar references are built
// from the directory's Root and BaseRoot. A nil directory is ignored.
func WithDirectory(dir *Directory) Option {
	return func(c *engineConfig) {
		if dir == nil {
			return
		}
		c.directory = dir
		c.packRoot = dir.Root
		c.baseRoot = dir.BaseRoot
	}
}

// WithCharacterDirectory sets a custom directory implementation together
// with the pack root and the base directory avatar references are made
// relative to.
func WithCharacterDirectory(dir CharacterDirectory, packRoot, baseRoot string) Option {
	return func(c *engineConfig) {
		c.directory = dir
		c.packRoot = packRoot
		c.baseRoot = baseRoot
	}
}

// WithConfig applies the compile section of a loaded Config.
func WithConfig(cfg *Config) Option {
	return func(c *engineConfig) {
		if cfg == nil {
			return
		}
		c.typstMode = cfg.Compile.TypstMode
		c.joinWithNewline = cfg.Compile.JoinWithNewline
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
