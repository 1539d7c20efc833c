package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	momoscript "github.com/itsatony/go-momoscript"
	"go.uber.org/zap"
)

// compileConfig holds parsed compile command configuration
type compileConfig struct {
	inputPath  string
	outputPath string
	reportPath string
	configPath string
	settings   *momoscript.Config
}

// compileFlagValues receives raw flag values before they are merged
// over the configuration file.
type compileFlagValues struct {
	configPath string
	typst      bool
	join       string
	packDriver string
	packDSN    string
	packName   string
	baseRoot   string
	logLevel   string
}

func runCompile(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseCompileFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	logger, err := newLogger(cfg.settings.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoggerFailed, err)
		return ExitCodeUsageError
	}
	defer func() { _ = logger.Sync() }()

	if cfg.configPath != "" {
		logger.Debug(momoscript.LogMsgConfigLoaded, zap.String(momoscript.LogFieldPath, cfg.configPath))
	}

	source, err := readInput(cfg.inputPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()

	dir, err := cfg.settings.LoadDirectory(ctx, logger)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadPackFailed, err)
		return ExitCodeInputError
	}

	engine, err := momoscript.New(
		momoscript.WithConfig(cfg.settings),
		momoscript.WithDirectory(dir),
		momoscript.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCompileFailed, err)
		return ExitCodeError
	}

	doc, report, err := engine.CompileWithReport(string(source))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCompileFailed, err)
		return ExitCodeInputError
	}

	output, err := marshalIndented(doc)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgJSONMarshalFailed, err)
		return ExitCodeError
	}
	if err := writeOutput(cfg.outputPath, output, stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	if cfg.reportPath != "" {
		reportJSON, err := marshalIndented(report)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgJSONMarshalFailed, err)
			return ExitCodeError
		}
		if err := writeOutput(cfg.reportPath, reportJSON, stdout); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteReportFailed, err)
			return ExitCodeError
		}
	}

	logger.Info(momoscript.LogMsgCompileDone,
		zap.String(LogFieldInput, cfg.inputPath),
		zap.Int(momoscript.LogFieldMessages, report.MessageCount))
	return ExitCodeSuccess
}

func parseCompileFlags(args []string) (*compileConfig, error) {
	fs := flag.NewFlagSet(CmdNameCompile, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &compileConfig{}
	values := &compileFlagValues{}

	fs.StringVar(&cfg.inputPath, FlagInput, "", "")
	fs.StringVar(&cfg.inputPath, FlagInputShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVar(&cfg.reportPath, FlagReport, "", "")
	fs.StringVar(&values.configPath, FlagConfig, "", "")
	fs.StringVar(&values.configPath, FlagConfigShort, "", "")
	fs.BoolVar(&values.typst, FlagTypst, false, "")
	fs.StringVar(&values.join, FlagJoin, JoinModeNewline, "")
	fs.StringVar(&values.packDriver, FlagPackDriver, "", "")
	fs.StringVar(&values.packDSN, FlagPackDSN, "", "")
	fs.StringVar(&values.packName, FlagPack, "", "")
	fs.StringVar(&values.baseRoot, FlagBaseRoot, "", "")
	fs.StringVar(&values.logLevel, FlagLogLevel, "", "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.inputPath == "" {
		return nil, errors.New(ErrMsgMissingInput)
	}
	if values.join != JoinModeNewline && values.join != JoinModeSpace {
		return nil, errors.New(ErrMsgInvalidJoin)
	}

	settings := momoscript.DefaultConfig()
	if values.configPath != "" {
		loaded, err := momoscript.LoadConfig(values.configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
		cfg.configPath = values.configPath
	}

	// Flags given on the command line win over the configuration file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case FlagTypst:
			settings.Compile.TypstMode = values.typst
		case FlagJoin:
			settings.Compile.JoinWithNewline = values.join == JoinModeNewline
		case FlagPackDriver:
			settings.Pack.Driver = values.packDriver
		case FlagPackDSN:
			settings.Pack.DSN = values.packDSN
		case FlagPack:
			settings.Pack.Name = values.packName
		case FlagBaseRoot:
			settings.Pack.BaseRoot = values.baseRoot
		case FlagLogLevel:
			settings.Log.Level = values.logLevel
		}
	})

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	cfg.settings = settings

	return cfg, nil
}

// marshalIndented encodes v as indented JSON followed by a newline
func marshalIndented(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", JSONIndent)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
