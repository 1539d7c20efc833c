package momoscript

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StoredPack is a character pack held by a storage backend. Only the pack
// documents are stored; avatar images stay on disk under Root.
type StoredPack struct {
	// Name is the pack name used for lookups (e.g. "ba").
	Name string `json:"name"`

	// Root is the directory the pack's avatar paths are relative to.
	Root string `json:"root"`

	// CharIDJSON is the raw char_id.json document (alias -> character ID).
	CharIDJSON []byte `json:"char_id"`

	// AssetMappingJSON is the raw asset_mapping.json document.
	AssetMappingJSON []byte `json:"asset_mapping"`

	// Metadata holds manifest fields such as version or type.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the pack was first stored.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the pack was last replaced.
	UpdatedAt time.Time `json:"updated_at"`
}

// PackQuery defines filters for listing packs.
type PackQuery struct {
	// NamePrefix filters to names starting with this prefix.
	NamePrefix string

	// Limit is the maximum number of results (0 = no limit).
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// PackStorage is the interface for pluggable character pack backends.
// Implementations must be safe for concurrent use.
type PackStorage interface {
	// Get retrieves a pack by name.
	// Returns a not-found error if the pack doesn't exist.
	Get(ctx context.Context, name string) (*StoredPack, error)

	// Save stores a pack, replacing any pack with the same name. CreatedAt
	// is kept across replacements; UpdatedAt is set by the storage.
	Save(ctx context.Context, pack *StoredPack) error

	// Delete removes a pack by name.
	// Returns a not-found error if the pack doesn't exist.
	Delete(ctx context.Context, name string) error

	// List returns packs matching the query ordered by name.
	List(ctx context.Context, query *PackQuery) ([]*StoredPack, error)

	// Exists checks if a pack with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Close releases any resources held by the storage.
	Close() error
}

// StorageDriver is a factory for creating storage instances.
// Drivers register themselves during init().
type StorageDriver interface {
	// Open creates a new storage instance. The format of the connection
	// string is driver-specific.
	Open(connectionString string) (PackStorage, error)
}

const jsonNull = "null"

// Storage driver registry
var (
	storageDriversMu sync.RWMutex
	storageDrivers   = make(map[string]StorageDriver)
)

// RegisterStorageDriver registers a storage driver by name.
// Panics if the driver is nil or the name is already registered.
func RegisterStorageDriver(name string, driver StorageDriver) {
	storageDriversMu.Lock()
	defer storageDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilStorageDriver)
	}
	if _, exists := storageDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	storageDrivers[name] = driver
}

// OpenStorage opens a pack storage using the named driver.
//
// Example:
//
//	storage, err := momoscript.OpenStorage("memory", "")
//	storage, err := momoscript.OpenStorage("filesystem", "/data/pack-v2")
func OpenStorage(driverName, connectionString string) (PackStorage, error) {
	storageDriversMu.RLock()
	driver, ok := storageDrivers[driverName]
	storageDriversMu.RUnlock()

	if !ok {
		return nil, NewStorageDriverNotFoundError(driverName)
	}
	return driver.Open(connectionString)
}

// ListStorageDrivers returns the sorted names of all registered drivers.
func ListStorageDrivers() []string {
	storageDriversMu.RLock()
	defer storageDriversMu.RUnlock()

	names := make([]string, 0, len(storageDrivers))
	for name := range storageDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDirectory reads a pack from storage and builds its character
// directory. baseRoot defaults to DefaultBaseRoot of the pack root. A pack
// without usable avatar entries yields a nil directory and no error.
func LoadDirectory(ctx context.Context, storage PackStorage, name, baseRoot string, logger *zap.Logger) (*Directory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pack, err := storage.Get(ctx, name)
	if err != nil {
		logger.Debug(LogMsgPackLoadFailed, zap.String(LogFieldPack, name), zap.Error(err))
		return nil, err
	}

	if baseRoot == "" && pack.Root != "" {
		baseRoot = DefaultBaseRoot(pack.Root)
	}

	dir, err := NewDirectoryFromJSON(pack.Name, pack.Root, baseRoot, pack.CharIDJSON, pack.AssetMappingJSON)
	if err != nil {
		logger.Debug(LogMsgPackLoadFailed, zap.String(LogFieldPack, name), zap.Error(err))
		return nil, err
	}
	if dir == nil {
		logger.Debug(LogMsgDirectoryAbsent, zap.String(LogFieldPack, name))
		return nil, nil
	}

	logger.Debug(LogMsgDirectoryLoaded,
		zap.String(LogFieldPack, name),
		zap.Int(LogFieldAliases, dir.AliasCount()),
		zap.Int(LogFieldAvatars, dir.AvatarCount()))
	return dir, nil
}

// validatePackForSave checks the pack name and contents before a backend
// writes it.
func validatePackForSave(pack *StoredPack) error {
	if pack == nil {
		return &StorageError{Message: ErrMsgPackNil}
	}
	if !IsValidPackName(pack.Name) {
		return NewInvalidPackNameError(pack.Name)
	}
	result, err := ValidatePack(pack.CharIDJSON, pack.AssetMappingJSON)
	if err != nil {
		return err
	}
	if !result.Valid() {
		return NewPackValidationError(pack.Name, result.Errors)
	}
	return nil
}

func matchesPackQuery(name string, query *PackQuery) bool {
	return query.NamePrefix == "" || strings.HasPrefix(name, query.NamePrefix)
}

// paginatePacks sorts packs by name and applies offset and limit.
func paginatePacks(packs []*StoredPack, query *PackQuery) []*StoredPack {
	sort.Slice(packs, func(i, j int) bool {
		return packs[i].Name < packs[j].Name
	})
	if query.Offset > 0 {
		if query.Offset >= len(packs) {
			return []*StoredPack{}
		}
		packs = packs[query.Offset:]
	}
	if query.Limit > 0 && len(packs) > query.Limit {
		packs = packs[:query.Limit]
	}
	return packs
}

// copyStoredPack creates a deep copy of a StoredPack.
func copyStoredPack(pack *StoredPack) *StoredPack {
	if pack == nil {
		return nil
	}
	return &StoredPack{
		Name:             pack.Name,
		Root:             pack.Root,
		CharIDJSON:       copyBytes(pack.CharIDJSON),
		AssetMappingJSON: copyBytes(pack.AssetMappingJSON),
		Metadata:         copyStringMap(pack.Metadata),
		CreatedAt:        pack.CreatedAt,
		UpdatedAt:        pack.UpdatedAt,
	}
}

// marshalMetadata encodes metadata for a nullable JSON column.
func marshalMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalMetadata(data []byte) (map[string]string, error) {
	if len(data) == 0 || string(data) == jsonNull {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Storage error message constants
const (
	ErrMsgNilStorageDriver        = "storage driver is nil"
	ErrMsgDriverAlreadyRegistered = "storage driver already registered"
	ErrMsgStorageDriverNotFound   = "storage driver not found"
	ErrMsgStorageClosed           = "storage is closed"
	ErrMsgInvalidStorageRoot      = "storage root directory is empty"
	ErrMsgCreateStorageDir        = "failed to create storage directory"
	ErrMsgReadStorageDir          = "failed to read storage directory"
	ErrMsgWritePackFile           = "failed to write pack file"
	ErrMsgReadPackFile            = "failed to read pack file"
	ErrMsgDeletePack              = "failed to delete pack"
	ErrMsgMarshalMetadata         = "failed to marshal pack metadata"
	ErrMsgUnmarshalMetadata       = "failed to unmarshal pack metadata"
	ErrMsgManifestMismatch        = "manifest pack_id does not match pack name"
)

// NewStorageDriverNotFoundError creates an error for a missing storage driver.
func NewStorageDriverNotFoundError(name string) error {
	return &StorageError{
		Message: ErrMsgStorageDriverNotFound,
		Name:    name,
	}
}

// NewStorageClosedError creates an error for operations on closed storage.
func NewStorageClosedError() error {
	return &StorageError{
		Message: ErrMsgStorageClosed,
	}
}

// StorageError represents a storage-related error.
type StorageError struct {
	Message string
	Name    string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
