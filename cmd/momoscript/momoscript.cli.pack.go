package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	momoscript "github.com/itsatony/go-momoscript"
	"go.uber.org/zap"
)

// packValidateConfig holds parsed pack validate configuration
type packValidateConfig struct {
	dir    string
	format string
	strict bool
}

// packImportConfig holds parsed pack import configuration
type packImportConfig struct {
	dir      string
	driver   string
	dsn      string
	name     string
	logLevel string
}

// packListConfig holds parsed pack list configuration
type packListConfig struct {
	driver string
	dsn    string
	prefix string
	format string
}

// packValidationOutput represents JSON output for pack validation
type packValidationOutput struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// packListEntry represents one pack in JSON list output
type packListEntry struct {
	Name      string            `json:"name"`
	Root      string            `json:"root,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func runPack(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, HelpPackUsage)
		return ExitCodeUsageError
	}

	sub := args[0]
	subArgs := args[1:]

	switch sub {
	case PackCmdValidate:
		return runPackValidate(subArgs, stdout, stderr)
	case PackCmdImport:
		return runPackImport(subArgs, stdout, stderr)
	case PackCmdList:
		return runPackList(subArgs, stdout, stderr)
	default:
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgUnknownPackCommand, sub)
		fmt.Fprintln(stdout, HelpPackUsage)
		return ExitCodeUsageError
	}
}

// ==================== pack validate ====================

func runPackValidate(args []string, stdout, stderr io.Writer) int {
	cfg, err := parsePackValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	charIDs, err := os.ReadFile(filepath.Join(cfg.dir, momoscript.PackCharIDFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}
	mapping, err := os.ReadFile(filepath.Join(cfg.dir, momoscript.PackAssetMappingFile))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	result, err := momoscript.ValidatePack(charIDs, mapping)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgValidatePackFailed, err)
		return ExitCodeError
	}

	if cfg.format == OutputFormatJSON {
		return outputPackValidationJSON(result, cfg.strict, stdout)
	}
	return outputPackValidationText(result, cfg.strict, stdout)
}

func parsePackValidateFlags(args []string) (*packValidateConfig, error) {
	fs := flag.NewFlagSet(PackCmdValidate, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &packValidateConfig{}
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.strict, FlagStrictMode, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() == 0 {
		return nil, errors.New(ErrMsgMissingPackDir)
	}
	cfg.dir = fs.Arg(0)

	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}

func outputPackValidationText(result *momoscript.PackValidationResult, strict bool, stdout io.Writer) int {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		fmt.Fprintln(stdout, PackTextValid)
		return ExitCodeSuccess
	}

	fmt.Fprintln(stdout, PackTextIssueHeader)
	for _, issue := range result.Errors {
		fmt.Fprintf(stdout, PackTextIssueFormat+FmtNewline, SeverityNameError, issue)
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(stdout, PackTextIssueFormat+FmtNewline, SeverityNameWarning, issue)
	}
	fmt.Fprintf(stdout, PackTextIssueSummary+FmtNewline, len(result.Errors), len(result.Warnings))

	if !packAccepted(result, strict) {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func outputPackValidationJSON(result *momoscript.PackValidationResult, strict bool, stdout io.Writer) int {
	output := packValidationOutput{
		Valid:    packAccepted(result, strict),
		Errors:   nonNilStrings(result.Errors),
		Warnings: nonNilStrings(result.Warnings),
	}

	jsonBytes, _ := json.MarshalIndent(output, "", JSONIndent)
	fmt.Fprintln(stdout, string(jsonBytes))

	if !output.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func packAccepted(result *momoscript.PackValidationResult, strict bool) bool {
	return result.Valid() && (!strict || len(result.Warnings) == 0)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ==================== pack import ====================

func runPackImport(args []string, stdout, stderr io.Writer) int {
	cfg, err := parsePackImportFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	logConfig := momoscript.DefaultConfig().Log
	if cfg.logLevel != "" {
		logConfig.Level = cfg.logLevel
	}
	logger, err := newLogger(logConfig, stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoggerFailed, err)
		return ExitCodeUsageError
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()

	source, err := momoscript.NewFilesystemStorage(filepath.Dir(cfg.dir))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgOpenStorageFailed, err)
		return ExitCodeInputError
	}
	defer source.Close()

	pack, err := source.Get(ctx, filepath.Base(cfg.dir))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadPackFailed, err)
		return ExitCodeInputError
	}
	if cfg.name != "" {
		pack.Name = cfg.name
	}

	target, err := momoscript.OpenStorage(cfg.driver, cfg.dsn)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgOpenStorageFailed, err)
		return ExitCodeError
	}
	defer target.Close()

	if err := target.Save(ctx, pack); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgSavePackFailed, err)
		if momoscript.IsPackValidationError(err) {
			return ExitCodeValidationError
		}
		return ExitCodeError
	}

	logger.Info(momoscript.LogMsgPackSaved,
		zap.String(momoscript.LogFieldPack, pack.Name),
		zap.String(momoscript.LogFieldDriver, cfg.driver),
		zap.String(LogFieldTarget, cfg.dsn))
	fmt.Fprintf(stdout, PackTextImported, pack.Name, cfg.driver)
	return ExitCodeSuccess
}

func parsePackImportFlags(args []string) (*packImportConfig, error) {
	fs := flag.NewFlagSet(PackCmdImport, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &packImportConfig{}
	fs.StringVar(&cfg.driver, FlagDriver, "", "")
	fs.StringVar(&cfg.dsn, FlagDSN, "", "")
	fs.StringVar(&cfg.name, FlagName, "", "")
	fs.StringVar(&cfg.logLevel, FlagLogLevel, "", "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() == 0 {
		return nil, errors.New(ErrMsgMissingPackDir)
	}
	cfg.dir = filepath.Clean(fs.Arg(0))

	if cfg.driver == "" {
		return nil, errors.New(ErrMsgMissingDriver)
	}

	return cfg, nil
}

// ==================== pack list ====================

func runPackList(args []string, stdout, stderr io.Writer) int {
	cfg, err := parsePackListFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()

	storage, err := momoscript.OpenStorage(cfg.driver, cfg.dsn)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgOpenStorageFailed, err)
		return ExitCodeError
	}
	defer storage.Close()

	packs, err := storage.List(ctx, &momoscript.PackQuery{NamePrefix: cfg.prefix})
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgListPacksFailed, err)
		return ExitCodeError
	}

	if cfg.format == OutputFormatJSON {
		entries := make([]packListEntry, 0, len(packs))
		for _, p := range packs {
			entries = append(entries, packListEntry{
				Name:      p.Name,
				Root:      p.Root,
				Metadata:  p.Metadata,
				UpdatedAt: p.UpdatedAt,
			})
		}
		jsonBytes, _ := json.MarshalIndent(entries, "", JSONIndent)
		fmt.Fprintln(stdout, string(jsonBytes))
		return ExitCodeSuccess
	}

	for _, p := range packs {
		fmt.Fprintf(stdout, PackTextListFormat, p.Name, p.Root, p.UpdatedAt.Format(time.RFC3339))
	}
	return ExitCodeSuccess
}

func parsePackListFlags(args []string) (*packListConfig, error) {
	fs := flag.NewFlagSet(PackCmdList, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &packListConfig{}
	fs.StringVar(&cfg.driver, FlagDriver, "", "")
	fs.StringVar(&cfg.dsn, FlagDSN, "", "")
	fs.StringVar(&cfg.prefix, FlagPrefix, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.driver == "" {
		return nil, errors.New(ErrMsgMissingDriver)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}
