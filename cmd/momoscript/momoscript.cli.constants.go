package main

import "time"

// Command names
const (
	CmdNameCompile = "compile"
	CmdNameParse   = "parse"
	CmdNamePack    = "pack"
	CmdNameVersion = "version"
	CmdNameHelp    = "help"
)

// Pack subcommand names
const (
	PackCmdValidate = "validate"
	PackCmdImport   = "import"
	PackCmdList     = "list"
)

// Flag names - long form
const (
	FlagInput      = "input"
	FlagOutput     = "output"
	FlagTypst      = "typst"
	FlagJoin       = "join"
	FlagPackDriver = "pack-driver"
	FlagPackDSN    = "pack-dsn"
	FlagPack       = "pack"
	FlagBaseRoot   = "base-root"
	FlagReport     = "report"
	FlagConfig     = "config"
	FlagLogLevel   = "log-level"
	FlagFormat     = "format"
	FlagStrictMode = "strict"
	FlagDriver     = "driver"
	FlagDSN        = "dsn"
	FlagName       = "name"
	FlagPrefix     = "prefix"
)

// Flag names - short form
const (
	FlagInputShort  = "i"
	FlagOutputShort = "o"
	FlagConfigShort = "c"
	FlagFormatShort = "F"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
)

// Join modes for --join
const (
	JoinModeNewline = "newline"
	JoinModeSpace   = "space"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand     = "unknown command"
	ErrMsgUnknownPackCommand = "unknown pack command"
	ErrMsgMissingInput       = "input source required"
	ErrMsgMissingPackDir     = "pack directory required"
	ErrMsgMissingDriver      = "storage driver required"
	ErrMsgInvalidJoin        = "invalid join mode"
	ErrMsgInvalidFormat      = "invalid output format"
	ErrMsgInvalidFlags       = "invalid flags"
	ErrMsgReadFileFailed     = "failed to read file"
	ErrMsgWriteOutputFailed  = "failed to write output"
	ErrMsgWriteReportFailed  = "failed to write report"
	ErrMsgCompileFailed      = "compilation failed"
	ErrMsgParseFailed        = "parsing failed"
	ErrMsgLoggerFailed       = "failed to create logger"
	ErrMsgLoadPackFailed     = "failed to load character pack"
	ErrMsgOpenStorageFailed  = "failed to open pack storage"
	ErrMsgSavePackFailed     = "failed to save character pack"
	ErrMsgListPacksFailed    = "failed to list character packs"
	ErrMsgValidatePackFailed = "pack validation failed"
	ErrMsgJSONMarshalFailed  = "failed to marshal JSON"
)

// Help text templates
const (
	HelpMainUsage = `momoscript - MomoScript dialogue compiler CLI

Usage:
    momoscript <command> [options]

Commands:
    compile     Compile a MomoScript file into a transcript document
    parse       Print the syntax nodes of a MomoScript file
    pack        Validate, import and list character packs
    version     Show version information
    help        Show help for a command

Use "momoscript help <command>" for more information about a command.`

	HelpCompileUsage = `Compile a MomoScript file into a transcript document

Usage:
    momoscript compile [options]

Options:
    -i, --input <file>        MomoScript file (use "-" for stdin)
    -o, --output <file>       Output file (default: stdout)
    -c, --config <file>       momoscript.yaml configuration file
    --typst                   Keep Typst markup and emit typst_global
    --join <mode>             Continuation join: newline, space (default: newline)
    --pack-driver <driver>    Pack storage driver: memory, filesystem, postgres, sqlite
    --pack-dsn <dsn>          Pack storage connection string or directory
    --pack <name>             Character pack name (default: ba)
    --base-root <dir>         Directory avatar references are made relative to
    --report <file>           Write a compile report as JSON
    --log-level <level>       debug, info, warn, error

Examples:
    momoscript compile -i story.momo
    momoscript compile -i story.momo --pack-driver filesystem --pack-dsn data/pack-v2
    cat story.momo | momoscript compile -i - -o story.json --report report.json`

	HelpParseUsage = `Print the syntax nodes of a MomoScript file as JSON

Usage:
    momoscript parse [options]

Options:
    -i, --input <file>        MomoScript file (use "-" for stdin)
    -o, --output <file>       Output file (default: stdout)`

	HelpPackUsage = `Validate, import and list character packs

Usage:
    momoscript pack validate [options] <dir>
    momoscript pack import --driver <driver> --dsn <dsn> [options] <dir>
    momoscript pack list --driver <driver> --dsn <dsn> [options]

Validate options:
    -F, --format <format>     Output format: text, json (default: text)
    --strict                  Treat warnings as errors

Import options:
    --driver <driver>         Target storage driver
    --dsn <dsn>               Target storage connection string or directory
    --name <name>             Pack name (default: directory name)

List options:
    --driver <driver>         Storage driver
    --dsn <dsn>               Storage connection string or directory
    --prefix <prefix>         Only list packs whose name starts with prefix
    -F, --format <format>     Output format: text, json (default: text)

Examples:
    momoscript pack validate data/pack-v2/ba
    momoscript pack import --driver sqlite --dsn packs.db data/pack-v2/ba
    momoscript pack list --driver sqlite --dsn packs.db`

	HelpVersionUsage = `Show version information

Usage:
    momoscript version [options]

Options:
    -F, --format <format>     Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    momoscript help [command]

Commands:
    compile     Show help for compile command
    parse       Show help for parse command
    pack        Show help for pack command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "momoscript version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
	VersionsFileName    = "versions.yaml"
)

// Pack validation output
const (
	PackTextValid        = "Pack is valid"
	PackTextIssueHeader  = "Validation issues:"
	PackTextIssueFormat  = "  [%s] %s"
	PackTextIssueSummary = "%d error(s), %d warning(s)"
	PackTextImported     = "imported pack %s into %s\n"
	PackTextListFormat   = "%s\t%s\t%s\n"
)

// Severity names for output
const (
	SeverityNameError   = "ERROR"
	SeverityNameWarning = "WARNING"
)

// CLI metadata
const (
	CLIName = "momoscript"
)

// Log field names
const (
	LogFieldInput  = "input"
	LogFieldTarget = "target"
)

// Log file rotation
const (
	LogFileMaxSizeMB  = 10
	LogFileMaxBackups = 3
	LogFileMaxAgeDays = 28
)

// Timeouts
const (
	CommandTimeout = 60 * time.Second
)

// File permission constant
const (
	FilePermissions = 0o644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
	JSONIndent         = "  "
)
