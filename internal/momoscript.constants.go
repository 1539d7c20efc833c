package internal

// Line syntax markers
const (
	CommentPrefix      = "//"
	DirectivePrefix    = "@"
	ByteOrderMark      = "\uFEFF"
	ReplyItemBullet    = "- "
	ReplyItemSeparator = "|"
	LineSeparator      = "\n"
	SpaceSeparator     = " "
	AliasAssignment    = "="
)

// Statement markers
const (
	CharMarkerLeft      = '>'
	CharMarkerRight     = '<'
	CharMarkerNarration = '-'
)

// Delimited block constants
const (
	CharQuote          = '"'
	MinBlockQuoteCount = 3
)

// Inline expression characters
const (
	CharBackslash    = '\\'
	CharColon        = ':'
	CharParenOpen    = '('
	CharParenClose   = ')'
	CharBracketOpen  = '['
	CharBracketClose = ']'
	CharFullParen    = '（'
)

// Speaker reference markers
const (
	BackRefMarker   = "_"
	UniqueRefMarker = "~"
)

// Character identity constants
const (
	ExternalPackPrefix = "ba."
	CustomCharPrefix   = "custom-"
	NarratorID         = "__Sensei"
	NarratorDisplay    = "Sensei"
	AssetRefPrefix     = "asset:"
	UploadedAvatarRef  = "uploaded"
	PathSeparator      = "/"
)

// Directive names (compared case-insensitively)
const (
	DirectiveReply       = "reply"
	DirectiveEnd         = "end"
	DirectiveBond        = "bond"
	DirectiveTitle       = "title"
	DirectiveUsePack     = "usepack"
	DirectiveAlias       = "alias"
	DirectiveTmpAlias    = "tmpalias"
	DirectiveAliasID     = "aliasid"
	DirectiveUnaliasID   = "unaliasid"
	DirectiveCharID      = "charid"
	DirectiveUncharID    = "uncharid"
	DirectiveAvatar      = "avatar"
	DirectiveAvatarID    = "avatarid"
	DirectiveUnavatarID  = "unavatarid"
	DirectivePageBreak   = "pagebreak"
	DirectiveTypstGlobal = "typst_global"
	DirectiveAssetPrefix = "asset."
	UsePackKeyword       = "as"
)

// Meta keys
const (
	MetaKeyTitle = "title"
)

// Message kinds
const (
	MessageKindText      = "TEXT"
	MessageKindNarration = "NARRATION"
	MessageKindPageBreak = "PAGEBREAK"
)

// Avatar states
const (
	AvatarStateAuto = "AUTO"
)

// Side names as they appear in output
const (
	SideNameLeft      = "left"
	SideNameRight     = "right"
	SideNameNarration = "narration"
)

// Segment kinds
const (
	SegmentKindText  = "text"
	SegmentKindExpr  = "expr"
	SegmentKindImage = "image"
)

// Node type string names
const (
	NodeTypeNameStatement    = "statement"
	NodeTypeNameDirective    = "directive"
	NodeTypeNameContinuation = "continuation"
	NodeTypeNameBlank        = "blank"
	NodeTypeNameReply        = "reply"
	NodeTypeNameBond         = "bond"
	NodeTypeNameUnknown      = "unknown"
)

// Display constants
const (
	MaxStringDisplayLength = 40
	TruncatedStringLength  = 37
	TruncationSuffix       = "..."
)

// Error messages
const (
	ErrMsgUnknownSegmentType = "unknown segment type"
)

// Log messages
const (
	LogMsgParserStart         = "starting line parse"
	LogMsgParserEnd           = "line parse complete"
	LogMsgBlockUnterminated   = "quoted block runs to end of input"
	LogMsgReplyUnterminated   = "reply block runs to end of input"
	LogMsgCompilerStart       = "starting compilation"
	LogMsgCompilerEnd         = "compilation complete"
	LogMsgDirectiveIgnored    = "directive ignored"
	LogMsgDirectiveMalformed  = "malformed directive ignored"
	LogMsgContinuationOrphan  = "continuation without preceding line dropped"
	LogMsgExprDegraded        = "inline expression degraded to text"
	LogMsgSpeakerUnresolved   = "speaker not found in character directory"
	LogMsgAvatarRefUnresolved = "pack root is not under base root"
)

// Log field names
const (
	LogFieldLine      = "line"
	LogFieldLines     = "lines"
	LogFieldNodes     = "nodes"
	LogFieldMessages  = "messages"
	LogFieldDirective = "directive"
	LogFieldPayload   = "payload"
	LogFieldToken     = "token"
	LogFieldCharID    = "char_id"
	LogFieldRaw       = "raw"
	LogFieldPackRoot  = "pack_root"
	LogFieldBaseRoot  = "base_root"
)
