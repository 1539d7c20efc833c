package momoscript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// charIDSchema describes char_id.json: alias -> character ID.
const charIDSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"propertyNames": {"minLength": 1},
	"additionalProperties": {"type": "string", "minLength": 1}
}`

// assetMappingSchema describes asset_mapping.json: character ID -> assets.
const assetMappingSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"minProperties": 1,
	"propertyNames": {"minLength": 1},
	"additionalProperties": {
		"type": "object",
		"required": ["avatar"],
		"properties": {
			"avatar": {"type": "string", "minLength": 1},
			"expressions_dir": {"type": "string"},
			"tags": {"type": "string"}
		}
	}
}`

const emptyJSONObject = "{}"

var (
	charIDSchemaLoader       = gojsonschema.NewStringLoader(charIDSchema)
	assetMappingSchemaLoader = gojsonschema.NewStringLoader(assetMappingSchema)
	drivePrefixPattern       = regexp.MustCompile(`^[A-Za-z]:`)
	packNamePattern          = regexp.MustCompile(PackNamePattern)
)

// PackValidationResult lists the problems found in a character pack.
// Errors make the pack unusable; warnings do not.
type PackValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Valid reports whether the pack has no errors.
func (r *PackValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidatePack checks char_id.json and asset_mapping.json against their
// JSON schemas, rejects avatar paths that escape the pack root and warns
// about aliases pointing at characters without assets.
func ValidatePack(charIDJSON, assetMappingJSON []byte) (*PackValidationResult, error) {
	result := &PackValidationResult{Errors: []string{}, Warnings: []string{}}

	if err := validateAgainst(result, PackCharIDFile, charIDSchemaLoader, charIDJSON); err != nil {
		return nil, err
	}
	if err := validateAgainst(result, PackAssetMappingFile, assetMappingSchemaLoader, assetMappingJSON); err != nil {
		return nil, err
	}
	if !result.Valid() {
		return result, nil
	}

	avatars, err := decodeAssetMapping(assetMappingJSON)
	if err != nil {
		return nil, NewPackReadError(PackAssetMappingFile, err)
	}
	for _, id := range sortedKeys(avatars) {
		if !IsSafeRelativePath(avatars[id]) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s: %s", id, ErrMsgUnsafeAvatarPath, avatars[id]))
		}
	}

	aliases, err := decodeCharIDs(charIDJSON)
	if err != nil {
		return nil, NewPackReadError(PackCharIDFile, err)
	}
	for _, alias := range sortedKeys(aliases) {
		target := strings.TrimSpace(aliases[alias])
		if _, ok := avatars[target]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s -> %s: %s", alias, target, ErrMsgAliasTargetUnknown))
		}
	}
	return result, nil
}

func validateAgainst(result *PackValidationResult, file string, schema gojsonschema.JSONLoader, data []byte) error {
	data = orEmptyObject(data)
	if !json.Valid(data) {
		result.Errors = append(result.Errors, file+": "+ErrMsgPackInvalidJSON)
		return nil
	}
	res, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return NewPackSchemaError(file, err)
	}
	for _, e := range res.Errors() {
		result.Errors = append(result.Errors, file+": "+e.String())
	}
	return nil
}

// orEmptyObject treats a missing document as an empty JSON object.
func orEmptyObject(data []byte) []byte {
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte(emptyJSONObject)
	}
	return data
}

// IsSafeRelativePath reports whether p is a non-empty relative path that
// stays inside the directory it is resolved against.
func IsSafeRelativePath(p string) bool {
	s := strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if s == "" {
		return false
	}
	if strings.Contains(s, AvatarPathURLScheme) || strings.HasPrefix(s, "/") {
		return false
	}
	if drivePrefixPattern.MatchString(s) {
		return false
	}
	parts := 0
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
			continue
		case AvatarPathParent:
			return false
		}
		parts++
	}
	return parts > 0
}

// IsValidPackName reports whether name can be used as a pack name.
func IsValidPackName(name string) bool {
	return packNamePattern.MatchString(name)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
