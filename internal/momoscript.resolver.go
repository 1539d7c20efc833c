package internal

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// CharacterDirectory is a read-only lookup of a character pack.
// Implementations are supplied by the caller and must not change while a
// compilation is running.
type CharacterDirectory interface {
	// LookupID maps a human alias to a bare character ID
	LookupID(alias string) (string, bool)
	// LookupAvatar returns the pack-relative avatar path of a bare character ID
	LookupAvatar(id string) (string, bool)
}

// sideState tracks who has spoken on one side of the conversation
type sideState struct {
	current string
	history []string // consecutive duplicates collapsed
	unique  []string // first appearance order
}

func (s *sideState) record(id string) {
	s.current = id
	if len(s.history) == 0 || s.history[len(s.history)-1] != id {
		s.history = append(s.history, id)
	}
	for _, seen := range s.unique {
		if seen == id {
			return
		}
	}
	s.unique = append(s.unique, id)
}

// tmpAlias is a one-shot display name bound to a character ID
type tmpAlias struct {
	id   string
	name string
}

// Resolver turns speaker tokens into canonical character IDs and decides
// which display name override applies to each message.
type Resolver struct {
	directory CharacterDirectory
	logger    *zap.Logger

	aliasIDs   map[string]string // token -> substituted token (@aliasid)
	customIDs  map[string]string // custom id -> display name (@charid)
	aliases    map[string]string // char id -> persistent display override
	pending    map[string]string // char id -> temporary override not yet shown
	active     *tmpAlias
	sides      [2]sideState
	unresolved map[string]int
}

// NewResolver creates a resolver. directory may be nil.
func NewResolver(directory CharacterDirectory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		directory:  directory,
		logger:     logger,
		aliasIDs:   make(map[string]string),
		customIDs:  make(map[string]string),
		aliases:    make(map[string]string),
		pending:    make(map[string]string),
		unresolved: make(map[string]int),
	}
}

// ResolveCharID maps a name token to a canonical character ID
func (r *Resolver) ResolveCharID(token string) string {
	id, _ := r.lookupCharID(token)
	return id
}

// lookupCharID resolves token and reports whether a present directory
// missed it.
func (r *Resolver) lookupCharID(token string) (id string, missed bool) {
	t := strings.TrimSpace(token)
	if sub, ok := r.aliasIDs[t]; ok {
		t = sub
	}
	if strings.HasPrefix(t, ExternalPackPrefix) || strings.HasPrefix(t, CustomCharPrefix) {
		return t, false
	}
	if _, ok := r.customIDs[t]; ok {
		return CustomCharPrefix + t, false
	}
	if r.directory != nil {
		if found, ok := r.directory.LookupID(t); ok {
			return ExternalPackPrefix + found, false
		}
		return ExternalPackPrefix + t, true
	}
	return ExternalPackPrefix + t, false
}

// ResolveSpeaker resolves the speaker of a statement on the given side.
// The display name is returned only for explicit name tokens and for the
// narrator stand-in; references and implicit speakers return "".
func (r *Resolver) ResolveSpeaker(side Side, token string) (id string, display string) {
	st := r.side(side)

	if token == "" {
		if st.current != "" {
			return st.current, ""
		}
		return NarratorID, NarratorDisplay
	}

	if n, ok := refCount(token, BackRefMarker); ok {
		if n > 0 && len(st.history) >= n+1 {
			return st.history[len(st.history)-(n+1)], ""
		}
		if len(st.history) > 0 {
			return st.history[len(st.history)-1], ""
		}
	}
	if n, ok := refCount(token, UniqueRefMarker); ok {
		if n > 0 && len(st.unique) >= n {
			return st.unique[n-1], ""
		}
	}

	id, missed := r.lookupCharID(token)
	if missed {
		t := strings.TrimPrefix(id, ExternalPackPrefix)
		r.unresolved[t]++
		r.logger.Debug(LogMsgSpeakerUnresolved, zap.String(LogFieldToken, t))
	}
	return id, r.DisplayForID(id)
}

// refCount parses "<marker>" or "<marker><digits>". An absent count means 1.
func refCount(token, marker string) (int, bool) {
	rest, ok := strings.CutPrefix(token, marker)
	if !ok {
		return 0, false
	}
	if rest == "" {
		return 1, true
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 1, true
	}
	return n, true
}

// Record marks id as the latest speaker of side
func (r *Resolver) Record(side Side, id string) {
	r.side(side).record(id)
}

func (r *Resolver) side(side Side) *sideState {
	if side == SideRight {
		return &r.sides[1]
	}
	return &r.sides[0]
}

// DisplayForID derives the display name for a resolved character ID
func (r *Resolver) DisplayForID(id string) string {
	if raw, ok := strings.CutPrefix(id, CustomCharPrefix); ok {
		if display, ok := r.customIDs[raw]; ok {
			return display
		}
		return raw
	}
	if raw, ok := strings.CutPrefix(id, ExternalPackPrefix); ok {
		return BaseName(raw)
	}
	if id == NarratorID {
		return NarratorDisplay
	}
	return id
}

// NameOverride applies the temporary and persistent alias layers for a
// message spoken by id and returns the display name override.
func (r *Resolver) NameOverride(id string) string {
	if name, ok := r.pending[id]; ok {
		delete(r.pending, id)
		r.active = &tmpAlias{id: id, name: name}
	}
	if r.active != nil && r.active.id != id {
		r.active = nil
	}
	if r.active != nil {
		return r.active.name
	}
	return r.aliases[id]
}

// SetAlias sets or, with an empty name, removes a persistent display override
func (r *Resolver) SetAlias(id, name string) {
	if name == "" {
		delete(r.aliases, id)
		return
	}
	r.aliases[id] = name
}

// SetTemporaryAlias queues a display override for the next message of id
func (r *Resolver) SetTemporaryAlias(id, name string) {
	r.pending[id] = name
}

// SetAliasID substitutes token with target before character resolution
func (r *Resolver) SetAliasID(token, target string) {
	r.aliasIDs[token] = target
}

// RemoveAliasID drops a token substitution
func (r *Resolver) RemoveAliasID(token string) {
	delete(r.aliasIDs, token)
}

// SetCustomID registers a custom character and its display name
func (r *Resolver) SetCustomID(id, display string) {
	r.customIDs[id] = display
}

// RemoveCustomID unregisters a custom character
func (r *Resolver) RemoveCustomID(id string) {
	delete(r.customIDs, id)
}

// CustomDisplay returns the registered display name of a custom character
func (r *Resolver) CustomDisplay(id string) (string, bool) {
	display, ok := r.customIDs[id]
	return display, ok
}

// Unresolved returns how often each speaker token missed the character
// directory. Tokens used only in directives are not counted.
func (r *Resolver) Unresolved() map[string]int {
	out := make(map[string]int, len(r.unresolved))
	for k, v := range r.unresolved {
		out[k] = v
	}
	return out
}

// BaseName strips a trailing parenthetical qualifier from a display name,
// e.g. "Hoshino (Swimsuit)" becomes "Hoshino".
func BaseName(name string) string {
	if idx := strings.IndexAny(name, string(CharParenOpen)+string(CharFullParen)); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}
