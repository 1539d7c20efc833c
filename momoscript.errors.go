package momoscript

import (
	"errors"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Input errors
	ErrMsgInvalidUTF8 = "source is not valid UTF-8"

	// Pack errors
	ErrMsgPackNotFound       = "character pack not found"
	ErrMsgInvalidPackName    = "invalid character pack name"
	ErrMsgPackInvalid        = "character pack failed validation"
	ErrMsgPackReadFailed     = "failed to read character pack"
	ErrMsgPackSchemaFailed   = "character pack schema could not be evaluated"
	ErrMsgPackInvalidJSON    = "document is not valid JSON"
	ErrMsgPackNil            = "character pack is nil"
	ErrMsgUnsafeAvatarPath   = "avatar path is not a safe relative path"
	ErrMsgAliasTargetUnknown = "alias points to an id without avatar"

	// Config errors
	ErrMsgConfigReadFailed    = "failed to read configuration file"
	ErrMsgConfigParseFailed   = "failed to parse configuration"
	ErrMsgConfigInvalidDriver = "unknown pack storage driver"
	ErrMsgConfigInvalidFormat = "unknown log format"
	ErrMsgConfigInvalidLevel  = "unknown log level"
)

// Error code constants for categorization
const (
	ErrCodeInput  = "MOMOSCRIPT_INPUT"
	ErrCodePack   = "MOMOSCRIPT_PACK"
	ErrCodeConfig = "MOMOSCRIPT_CONFIG"
)

// NewInvalidUTF8Error creates an error for source text that is not UTF-8.
// offset is the byte offset of the first invalid sequence.
func NewInvalidUTF8Error(line, offset int) error {
	return cuserr.NewValidationError(ErrCodeInput, ErrMsgInvalidUTF8).
		WithMetadata(MetaKeyLine, strconv.Itoa(line)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(offset))
}

// NewPackNotFoundError creates an error for a missing character pack
func NewPackNotFoundError(name string) error {
	return cuserr.NewNotFoundError(ResourcePack, ErrMsgPackNotFound).
		WithMetadata(MetaKeyPack, name)
}

// IsPackNotFound reports whether err reports a missing character pack.
func IsPackNotFound(err error) bool {
	var customErr *cuserr.CustomError
	return errors.As(err, &customErr) && strings.Contains(customErr.Error(), ErrMsgPackNotFound)
}

// IsPackValidationError reports whether err rejected a pack for failing
// validation.
func IsPackValidationError(err error) bool {
	var customErr *cuserr.CustomError
	return errors.As(err, &customErr) && strings.Contains(customErr.Error(), ErrMsgPackInvalid)
}

// NewInvalidPackNameError creates an error for a pack name that cannot be stored
func NewInvalidPackNameError(name string) error {
	return cuserr.NewValidationError(ErrCodePack, ErrMsgInvalidPackName).
		WithMetadata(MetaKeyPack, name)
}

// NewPackValidationError creates an error summarising pack validation issues
func NewPackValidationError(name string, issues []string) error {
	return cuserr.NewValidationError(ErrCodePack, ErrMsgPackInvalid).
		WithMetadata(MetaKeyPack, name).
		WithMetadata(MetaKeyIssues, strings.Join(issues, "; "))
}

// NewPackReadError wraps a failure to read pack files
func NewPackReadError(path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodePack, ErrMsgPackReadFailed).
		WithMetadata(MetaKeyPath, path)
}

// NewPackSchemaError wraps a failure to evaluate a pack file against its schema
func NewPackSchemaError(file string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodePack, ErrMsgPackSchemaFailed).
		WithMetadata(MetaKeyPath, file)
}

// NewConfigError creates a configuration error
func NewConfigError(msg string, field string, value string) error {
	return cuserr.NewValidationError(ErrCodeConfig, msg).
		WithMetadata(MetaKeyField, field).
		WithMetadata(MetaKeyValue, value)
}

// NewConfigReadError wraps a failure to read or decode configuration
func NewConfigReadError(msg string, path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeConfig, msg).
		WithMetadata(MetaKeyPath, path)
}
