package momoscript

import "time"

// Compile defaults
const (
	DefaultTypstMode       = false
	DefaultJoinWithNewline = true
)

// Character pack layout
const (
	PackCharIDFile       = "char_id.json"
	PackAssetMappingFile = "asset_mapping.json"
	PackManifestFile     = "manifest.json"
	PackDirName          = "pack-v2"
	PackAvatarField      = "avatar"
	ManifestPackIDKey    = "pack_id"
	DefaultPackName      = "ba"
)

// Pack name validation
const (
	PackNamePattern = `^[A-Za-z0-9_]+$`
	ResourcePack    = "character_pack"
)

// Unsafe avatar path markers
const (
	AvatarPathParent    = ".."
	AvatarPathURLScheme = "://"
)

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
	StorageDriverNameSQLite     = "sqlite"
)

// Filesystem storage permissions
const (
	FilesystemDirPerm  = 0o755
	FilesystemFilePerm = 0o644
)

// PostgreSQL storage defaults
const (
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
	PostgresTablePrefix            = "momoscript_"
	PostgresDriverName             = "postgres"
)

// SQLite storage defaults
const (
	SQLiteDriverName          = "sqlite"
	SQLiteDSNFormat           = "file:%s?cache=shared&_pragma=busy_timeout(5000)"
	SQLiteMemoryPath          = ":memory:"
	SQLiteMemoryDSNFormat     = "file:momoscript-mem-%d?mode=memory&cache=shared"
	SQLiteDefaultQueryTimeout = 5 * time.Second
)

// Cache defaults
const (
	CacheDefaultTTL              = 5 * time.Minute
	CacheDefaultMaxEntries       = 100
	CacheDefaultNegativeCacheTTL = 30 * time.Second
)

// Config defaults
const (
	ConfigDefaultLogLevel  = "info"
	ConfigDefaultLogFormat = "console"
	LogFormatConsole       = "console"
	LogFormatJSON          = "json"
)

// Config field names used in validation errors
const (
	ConfigFieldPackDriver = "pack.driver"
	ConfigFieldPackName   = "pack.name"
	ConfigFieldLogLevel   = "log.level"
	ConfigFieldLogFormat  = "log.format"
)

// Error metadata keys
const (
	MetaKeyLine   = "line"
	MetaKeyOffset = "offset"
	MetaKeyPack   = "pack"
	MetaKeyPath   = "path"
	MetaKeyField  = "field"
	MetaKeyValue  = "value"
	MetaKeyIssues = "issues"
)

// Log messages
const (
	LogMsgEngineCreated   = "momoscript engine created"
	LogMsgCompileStart    = "compiling source"
	LogMsgCompileDone     = "source compiled"
	LogMsgDirectoryLoaded = "character directory loaded"
	LogMsgDirectoryAbsent = "character directory has no avatar entries"
	LogMsgPackSaved       = "character pack saved"
	LogMsgPackLoadFailed  = "character pack load failed"
	LogMsgConfigLoaded    = "configuration loaded"
)

// Log field names
const (
	LogFieldBytes      = "bytes"
	LogFieldMessages   = "messages"
	LogFieldCustomChar = "custom_chars"
	LogFieldPack       = "pack"
	LogFieldAliases    = "aliases"
	LogFieldAvatars    = "avatars"
	LogFieldDriver     = "driver"
	LogFieldPath       = "path"
	LogFieldTypst      = "typst_mode"
)
