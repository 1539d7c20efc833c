package momoscript

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Directory is a character pack loaded into memory: a map from human
// aliases to character IDs and a map from character IDs to avatar paths
// relative to the pack root. It implements CharacterDirectory.
type Directory struct {
	// Name is the pack name (e.g. "ba").
	Name string

	// Root is the pack directory, e.g. "/data/pack-v2/ba".
	Root string

	// BaseRoot is the directory avatar references are made relative to,
	// usually the parent of the pack-v2 directory.
	BaseRoot string

	aliases map[string]string
	avatars map[string]string
}

// NewDirectory builds a directory from alias and avatar maps. Keys and
// values are trimmed and empty entries are dropped. Every character with
// an avatar is also reachable by its own ID. It returns nil when no avatar
// entry is usable, which callers treat as "no directory".
func NewDirectory(name, root, baseRoot string, aliases, avatars map[string]string) *Directory {
	d := &Directory{
		Name:     name,
		Root:     root,
		BaseRoot: baseRoot,
		aliases:  make(map[string]string, len(aliases)+len(avatars)),
		avatars:  make(map[string]string, len(avatars)),
	}
	for k, v := range avatars {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		d.avatars[k] = v
	}
	if len(d.avatars) == 0 {
		return nil
	}
	for k, v := range aliases {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		d.aliases[k] = v
	}
	for id := range d.avatars {
		if _, ok := d.aliases[id]; !ok {
			d.aliases[id] = id
		}
	}
	return d
}

// NewDirectoryFromJSON builds a directory from the contents of
// char_id.json and asset_mapping.json. Entries of the wrong shape are
// skipped. It returns a nil directory without error when the pack has no
// usable avatar entry.
func NewDirectoryFromJSON(name, root, baseRoot string, charIDJSON, assetMappingJSON []byte) (*Directory, error) {
	aliases, err := decodeCharIDs(charIDJSON)
	if err != nil {
		return nil, NewPackReadError(PackCharIDFile, err)
	}
	avatars, err := decodeAssetMapping(assetMappingJSON)
	if err != nil {
		return nil, NewPackReadError(PackAssetMappingFile, err)
	}
	return NewDirectory(name, root, baseRoot, aliases, avatars), nil
}

func decodeCharIDs(data []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(data) == 0 {
		return out, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

func decodeAssetMapping(data []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(data) == 0 {
		return out, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if avatar, ok := entry[PackAvatarField].(string); ok {
			out[k] = avatar
		}
	}
	return out, nil
}

// LookupID maps a human alias to a bare character ID.
func (d *Directory) LookupID(alias string) (string, bool) {
	id, ok := d.aliases[alias]
	return id, ok
}

// LookupAvatar returns the pack-relative avatar path of a bare character ID.
func (d *Directory) LookupAvatar(id string) (string, bool) {
	avatar, ok := d.avatars[id]
	return avatar, ok
}

// AliasCount returns the number of aliases, including identity aliases.
func (d *Directory) AliasCount() int {
	return len(d.aliases)
}

// AvatarCount returns the number of characters with an avatar.
func (d *Directory) AvatarCount() int {
	return len(d.avatars)
}

// DefaultBaseRoot returns the directory that contains the pack-v2
// directory a pack root lives in, or the pack root's parent when the
// layout is different.
func DefaultBaseRoot(packRoot string) string {
	clean := filepath.Clean(packRoot)
	parent := filepath.Dir(clean)
	if filepath.Base(parent) == PackDirName {
		return filepath.Dir(parent)
	}
	return parent
}
