package momoscript

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FilesystemStorage reads and writes packs in the pack-v2 directory layout.
// Avatar images live next to the pack documents and are never touched.
//
// Directory structure:
//
//	<root>/
//	  <pack-name>/
//	    char_id.json
//	    asset_mapping.json
//	    manifest.json       # optional, holds Metadata and pack_id
//	    avatars/...
type FilesystemStorage struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// FilesystemStorageDriver is the driver for creating FilesystemStorage instances.
type FilesystemStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameFilesystem, &FilesystemStorageDriver{})
}

// Open creates a new FilesystemStorage instance.
// The connection string is the pack-v2 root directory.
func (d *FilesystemStorageDriver) Open(connectionString string) (PackStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// NewFilesystemStorage creates a filesystem pack storage rooted at root.
// The root directory is created if it doesn't exist.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}
	if err := os.MkdirAll(root, FilesystemDirPerm); err != nil {
		return nil, &StorageError{Message: ErrMsgCreateStorageDir, Name: root, Cause: err}
	}
	return &FilesystemStorage{root: root}, nil
}

// Root returns the pack-v2 directory the storage reads from.
func (s *FilesystemStorage) Root() string {
	return s.root
}

// Get loads a pack directory by name.
func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsValidPackName(name) {
		return nil, NewInvalidPackNameError(name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	return s.loadPack(name)
}

// Save writes the pack documents into <root>/<name>/.
func (s *FilesystemStorage) Save(ctx context.Context, pack *StoredPack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePackForSave(pack); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := s.packDir(pack.Name)
	if err := os.MkdirAll(dir, FilesystemDirPerm); err != nil {
		return &StorageError{Message: ErrMsgCreateStorageDir, Name: dir, Cause: err}
	}

	created := fileModTime(filepath.Join(dir, PackAssetMappingFile))

	if err := writePackFile(filepath.Join(dir, PackCharIDFile), orEmptyObject(pack.CharIDJSON)); err != nil {
		return err
	}
	if err := writePackFile(filepath.Join(dir, PackAssetMappingFile), pack.AssetMappingJSON); err != nil {
		return err
	}

	manifestPath := filepath.Join(dir, PackManifestFile)
	if len(pack.Metadata) > 0 {
		manifest := copyStringMap(pack.Metadata)
		manifest[ManifestPackIDKey] = pack.Name
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return &StorageError{Message: ErrMsgMarshalMetadata, Name: pack.Name, Cause: err}
		}
		if err := writePackFile(manifestPath, data); err != nil {
			return err
		}
	} else if err := os.Remove(manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Message: ErrMsgWritePackFile, Name: manifestPath, Cause: err}
	}

	updated := fileModTime(filepath.Join(dir, PackAssetMappingFile))
	if created.IsZero() {
		created = updated
	}
	pack.Root = dir
	pack.CreatedAt = created
	pack.UpdatedAt = updated
	return nil
}

// Delete removes the pack documents. Avatar files and other content of
// the pack directory are left in place; the directory itself is removed
// only when it ends up empty.
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !IsValidPackName(name) {
		return NewInvalidPackNameError(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := s.packDir(name)
	if !fileExists(filepath.Join(dir, PackAssetMappingFile)) {
		return NewPackNotFoundError(name)
	}
	for _, file := range []string{PackCharIDFile, PackAssetMappingFile, PackManifestFile} {
		if err := os.Remove(filepath.Join(dir, file)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &StorageError{Message: ErrMsgDeletePack, Name: name, Cause: err}
		}
	}
	_ = os.Remove(dir)
	return nil
}

// List returns every pack directory under the root. Directories that are
// not loadable packs are skipped.
func (s *FilesystemStorage) List(ctx context.Context, query *PackQuery) ([]*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	if query == nil {
		query = &PackQuery{}
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: s.root, Cause: err}
	}

	results := make([]*StoredPack, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !IsValidPackName(name) || !matchesPackQuery(name, query) {
			continue
		}
		pack, err := s.loadPack(name)
		if err != nil {
			continue
		}
		results = append(results, pack)
	}
	return paginatePacks(results, query), nil
}

// Exists checks if <root>/<name>/asset_mapping.json exists.
func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !IsValidPackName(name) {
		return false, NewInvalidPackNameError(name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}
	return fileExists(filepath.Join(s.packDir(name), PackAssetMappingFile)), nil
}

// Close marks the storage as closed.
func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *FilesystemStorage) packDir(name string) string {
	return filepath.Join(s.root, name)
}

// loadPack reads a pack directory. Caller must hold the read lock.
func (s *FilesystemStorage) loadPack(name string) (*StoredPack, error) {
	dir := s.packDir(name)
	mappingPath := filepath.Join(dir, PackAssetMappingFile)

	info, err := os.Stat(mappingPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewPackNotFoundError(name)
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadPackFile, Name: mappingPath, Cause: err}
	}

	mapping, err := os.ReadFile(mappingPath)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadPackFile, Name: mappingPath, Cause: err}
	}
	charIDs, err := readOptionalFile(filepath.Join(dir, PackCharIDFile))
	if err != nil {
		return nil, err
	}
	metadata, err := readManifest(name, filepath.Join(dir, PackManifestFile))
	if err != nil {
		return nil, err
	}

	return &StoredPack{
		Name:             name,
		Root:             dir,
		CharIDJSON:       charIDs,
		AssetMappingJSON: mapping,
		Metadata:         metadata,
		CreatedAt:        info.ModTime(),
		UpdatedAt:        info.ModTime(),
	}, nil
}

// readManifest returns the string fields of manifest.json without
// pack_id, or nil when the file is absent.
func readManifest(name, path string) (map[string]string, error) {
	data, err := readOptionalFile(path)
	if err != nil || data == nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &StorageError{Message: ErrMsgUnmarshalMetadata, Name: path, Cause: err}
	}

	if id, ok := raw[ManifestPackIDKey].(string); ok && id != "" && id != name {
		return nil, NewPackValidationError(name, []string{ErrMsgManifestMismatch + ": " + id})
	}

	metadata := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && k != ManifestPackIDKey {
			metadata[k] = s
		}
	}
	if len(metadata) == 0 {
		return nil, nil
	}
	return metadata, nil
}

func readOptionalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadPackFile, Name: path, Cause: err}
	}
	return data, nil
}

func writePackFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, FilesystemFilePerm); err != nil {
		return &StorageError{Message: ErrMsgWritePackFile, Name: path, Cause: err}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fileModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
