package momoscript

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/itsatony/go-momoscript/internal"
	"go.uber.org/zap"
)

// Engine compiles MomoScript source into transcript documents.
// An Engine holds only immutable configuration and is safe for concurrent
// use; every compilation gets its own state.
type Engine struct {
	config *engineConfig
	logger *zap.Logger
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug(LogMsgEngineCreated,
		zap.Bool(LogFieldTypst, config.typstMode),
		zap.Bool(LogFieldPack, config.directory != nil))

	return &Engine{
		config: config,
		logger: logger,
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Parse splits source into syntax nodes without compiling them.
func (e *Engine) Parse(source string) ([]Node, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}
	return internal.NewParser(source, e.logger).Parse(), nil
}

// Compile parses and compiles source into a Document.
func (e *Engine) Compile(source string) (*Document, error) {
	doc, _, err := e.CompileWithReport(source)
	return doc, err
}

// CompileWithReport compiles source and also returns a summary of the run.
// The only error is source that is not valid UTF-8; every malformed
// construct inside valid text degrades to plain content.
func (e *Engine) CompileWithReport(source string) (*Document, *Report, error) {
	e.logger.Debug(LogMsgCompileStart, zap.Int(LogFieldBytes, len(source)))

	nodes, err := e.Parse(source)
	if err != nil {
		return nil, nil, err
	}

	compiler := internal.NewCompiler(internal.CompilerConfig{
		TypstMode:       e.config.typstMode,
		JoinWithNewline: e.config.joinWithNewline,
		PackRoot:        e.config.packRoot,
		BaseRoot:        e.config.baseRoot,
	}, e.config.directory, e.logger)
	doc, report := compiler.Compile(nodes)

	e.logger.Debug(LogMsgCompileDone,
		zap.Int(LogFieldMessages, report.MessageCount),
		zap.Int(LogFieldCustomChar, report.CustomCharCount))
	return doc, report, nil
}

// CompileJSON compiles source and returns the document as indented JSON.
func (e *Engine) CompileJSON(source string) ([]byte, error) {
	doc, err := e.Compile(source)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// validateSource rejects text that is not UTF-8 and reports where the
// first invalid byte sequence starts.
func validateSource(source string) error {
	if utf8.ValidString(source) {
		return nil
	}
	offset := 0
	for offset < len(source) {
		r, size := utf8.DecodeRuneInString(source[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}
	line := strings.Count(source[:offset], "\n") + 1
	return NewInvalidUTF8Error(line, offset)
}
