package internal

import (
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// CompilerConfig holds compilation options
type CompilerConfig struct {
	TypstMode       bool   // Typst rendering: colon-gated expressions, escapes kept, blank lines kept
	JoinWithNewline bool   // Join continuation lines with "\n" instead of " "
	PackRoot        string // Directory holding the character pack
	BaseRoot        string // Directory avatar references are made relative to
}

// DefaultCompilerConfig returns the default compiler configuration
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{JoinWithNewline: true}
}

// Report summarises a compilation
type Report struct {
	MessageCount        int            `json:"message_count"`
	CustomCharCount     int            `json:"custom_char_count"`
	ReplyCount          int            `json:"reply_count"`
	BondCount           int            `json:"bond_count"`
	DegradedExpressions int            `json:"degraded_expressions"`
	UnresolvedSpeakers  map[string]int `json:"unresolved_speakers"`
	IgnoredDirectives   map[string]int `json:"ignored_directives"`
}

// Compiler walks syntax nodes once and builds a Document. A Compiler holds
// the mutable state of one compilation and must not be reused.
type Compiler struct {
	config    CompilerConfig
	directory CharacterDirectory
	resolver  *Resolver
	logger    *zap.Logger

	doc             *Document
	avatarOverrides map[string]string
	firstDisplay    map[string]string
	report          *Report
}

// NewCompiler creates a compiler. directory may be nil.
func NewCompiler(config CompilerConfig, directory CharacterDirectory, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		config:          config,
		directory:       directory,
		resolver:        NewResolver(directory, logger),
		logger:          logger,
		doc:             NewDocument(),
		avatarOverrides: make(map[string]string),
		firstDisplay:    make(map[string]string),
		report: &Report{
			IgnoredDirectives: make(map[string]int),
		},
	}
}

// Compile processes nodes in order and returns the document and a report
func (c *Compiler) Compile(nodes []Node) (*Document, *Report) {
	c.logger.Debug(LogMsgCompilerStart, zap.Int(LogFieldNodes, len(nodes)))

	for _, node := range nodes {
		switch n := node.(type) {
		case *DirectiveNode:
			c.handleDirective(n)
		case *StatementNode:
			c.handleStatement(n)
		case *ContinuationNode:
			c.handleContinuation(n)
		case *BlankLineNode:
			c.handleBlankLine()
		case *ReplyNode:
			c.report.ReplyCount++
		case *BondNode:
			c.report.BondCount++
		}
	}

	c.attachSegments()
	c.doc.CustomChars = c.buildCustomChars()

	c.report.MessageCount = len(c.doc.Chat)
	c.report.CustomCharCount = len(c.doc.CustomChars)
	c.report.UnresolvedSpeakers = c.resolver.Unresolved()

	c.logger.Debug(LogMsgCompilerEnd, zap.Int(LogFieldMessages, len(c.doc.Chat)))
	return c.doc, c.report
}

func (c *Compiler) handleDirective(d *DirectiveNode) {
	name := strings.ToLower(strings.TrimSpace(d.Name))
	payload := d.Payload

	switch name {
	case DirectiveTitle:
		c.doc.Meta[MetaKeyTitle] = payload
	case DirectiveTypstGlobal:
		c.doc.TypstGlobal = payload
	case DirectiveUsePack:
		parts := strings.Fields(payload)
		if len(parts) < 3 || parts[1] != UsePackKeyword {
			c.malformed(d)
			return
		}
		pack, alias := parts[0], parts[2]
		c.doc.Packs.Aliases[alias] = pack
		if !slices.Contains(c.doc.Packs.Order, alias) {
			c.doc.Packs.Order = append(c.doc.Packs.Order, alias)
		}
	case DirectiveAlias:
		key, value, ok := strings.Cut(payload, AliasAssignment)
		if !ok {
			c.malformed(d)
			return
		}
		c.resolver.SetAlias(c.resolver.ResolveCharID(key), strings.TrimSpace(value))
	case DirectiveTmpAlias:
		key, value, ok := strings.Cut(payload, AliasAssignment)
		if !ok {
			c.malformed(d)
			return
		}
		c.resolver.SetTemporaryAlias(c.resolver.ResolveCharID(key), strings.TrimSpace(value))
	case DirectiveAliasID:
		parts := strings.Fields(payload)
		if len(parts) < 2 {
			c.malformed(d)
			return
		}
		c.resolver.SetAliasID(parts[0], strings.Join(parts[1:], SpaceSeparator))
	case DirectiveUnaliasID:
		if token := strings.TrimSpace(payload); token != "" {
			c.resolver.RemoveAliasID(token)
		}
	case DirectiveCharID:
		parts := strings.Fields(payload)
		if len(parts) < 2 {
			c.malformed(d)
			return
		}
		c.resolver.SetCustomID(parts[0], strings.Join(parts[1:], SpaceSeparator))
	case DirectiveUncharID:
		if id := strings.TrimSpace(payload); id != "" {
			c.resolver.RemoveCustomID(id)
		}
	case DirectiveAvatar:
		key, asset, ok := strings.Cut(payload, AliasAssignment)
		if !ok {
			c.malformed(d)
			return
		}
		c.setAvatarOverride(c.resolver.ResolveCharID(key), asset)
	case DirectiveAvatarID:
		parts := strings.Fields(payload)
		if len(parts) < 2 {
			c.malformed(d)
			return
		}
		c.setAvatarOverride(c.resolver.ResolveCharID(parts[0]), strings.Join(parts[1:], SpaceSeparator))
	case DirectiveUnavatarID:
		if token := strings.TrimSpace(payload); token != "" {
			delete(c.avatarOverrides, c.resolver.ResolveCharID(token))
		}
	case DirectivePageBreak:
		c.doc.Chat = append(c.doc.Chat, ChatLine{
			LineNo: d.LineNo,
			YuzuTalk: YuzuTalk{
				AvatarState: AvatarStateAuto,
				Type:        MessageKindPageBreak,
			},
		})
	default:
		if strings.HasPrefix(name, DirectiveAssetPrefix) {
			c.doc.Meta[name] = payload
			return
		}
		c.report.IgnoredDirectives[name]++
		c.logger.Debug(LogMsgDirectiveIgnored,
			zap.String(LogFieldDirective, name),
			zap.Int(LogFieldLine, d.LineNo))
	}
}

func (c *Compiler) malformed(d *DirectiveNode) {
	c.report.IgnoredDirectives[strings.ToLower(d.Name)]++
	c.logger.Debug(LogMsgDirectiveMalformed,
		zap.String(LogFieldDirective, d.Name),
		zap.String(LogFieldPayload, d.Payload),
		zap.Int(LogFieldLine, d.LineNo))
}

func (c *Compiler) setAvatarOverride(id, asset string) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		delete(c.avatarOverrides, id)
		return
	}
	if !strings.HasPrefix(strings.ToLower(asset), AssetRefPrefix) {
		asset = AssetRefPrefix + asset
	}
	c.avatarOverrides[id] = asset
}

func (c *Compiler) handleStatement(s *StatementNode) {
	if s.Side == SideNarration {
		c.doc.Chat = append(c.doc.Chat, ChatLine{
			Content: s.Content,
			LineNo:  s.LineNo,
			YuzuTalk: YuzuTalk{
				AvatarState: AvatarStateAuto,
				Type:        MessageKindNarration,
			},
		})
		return
	}

	id, display := c.resolver.ResolveSpeaker(s.Side, s.Speaker)
	c.resolver.Record(s.Side, id)
	if display != "" {
		if _, seen := c.firstDisplay[id]; !seen {
			c.firstDisplay[id] = display
		}
	}

	line := ChatLine{
		CharID:  stringPtr(id),
		Content: s.Content,
		LineNo:  s.LineNo,
		Side:    stringPtr(s.Side.String()),
		YuzuTalk: YuzuTalk{
			AvatarState:  AvatarStateAuto,
			NameOverride: c.resolver.NameOverride(id),
			Type:         MessageKindText,
		},
	}
	if avatar, ok := c.avatarOverrides[id]; ok {
		line.AvatarOverride = stringPtr(avatar)
	}
	c.doc.Chat = append(c.doc.Chat, line)
}

func (c *Compiler) separator() string {
	if c.config.JoinWithNewline {
		return LineSeparator
	}
	return SpaceSeparator
}

func (c *Compiler) handleContinuation(n *ContinuationNode) {
	if len(c.doc.Chat) == 0 {
		c.logger.Debug(LogMsgContinuationOrphan, zap.Int(LogFieldLine, n.LineNo))
		return
	}
	last := &c.doc.Chat[len(c.doc.Chat)-1]
	last.Content += c.separator() + n.Text
}

func (c *Compiler) handleBlankLine() {
	if !c.config.TypstMode || len(c.doc.Chat) == 0 {
		return
	}
	last := &c.doc.Chat[len(c.doc.Chat)-1]
	last.Content += c.separator()
}

// attachSegments splits every message except page breaks into segments.
// Narration lines bind bare expressions to the most recent speaker.
func (c *Compiler) attachSegments() {
	scanner := InlineScanner{RequireColon: c.config.TypstMode, PreserveEscape: c.config.TypstMode}
	current := ""
	for i := range c.doc.Chat {
		line := &c.doc.Chat[i]
		switch line.YuzuTalk.Type {
		case MessageKindPageBreak:
			continue
		case MessageKindText:
			current = ""
			if line.CharID != nil {
				current = *line.CharID
			}
		}
		line.Segments = c.buildSegments(scanner, line.Content, current)
	}
}

func (c *Compiler) buildSegments(scanner InlineScanner, content, current string) []Segment {
	var out []Segment
	for _, frag := range scanner.Scan(content) {
		if frag.Kind == InlineText {
			if frag.Text != "" {
				out = append(out, TextSegment(frag.Text))
			}
			continue
		}
		seg, ok := c.exprSegment(frag, current)
		if !ok {
			c.report.DegradedExpressions++
			c.logger.Debug(LogMsgExprDegraded, zap.String(LogFieldRaw, frag.Raw))
			out = append(out, TextSegment(frag.Raw))
			continue
		}
		out = append(out, seg)
	}
	if len(out) == 0 {
		return []Segment{TextSegment(content)}
	}
	return out
}

// exprSegment resolves a scanned expression. It returns false when the
// expression has to be kept as literal text.
func (c *Compiler) exprSegment(frag InlineFragment, current string) (Segment, bool) {
	query := strings.TrimSpace(frag.Query)
	gated := strings.HasPrefix(query, string(CharColon))
	if gated {
		query = strings.TrimSpace(query[1:])
	}
	if c.config.TypstMode && !gated {
		return Segment{}, false
	}
	if query == "" {
		return Segment{}, false
	}

	var target string
	switch {
	case strings.TrimSpace(frag.Target) == "":
		if current == "" {
			return Segment{}, false
		}
		target = current
	case strings.HasPrefix(frag.Target, ExternalPackPrefix):
		target = frag.Target
	default:
		target = ExternalPackPrefix + frag.Target
	}
	return ExprSegment(string(CharBracketOpen)+query+string(CharBracketClose), query, target), true
}

// buildCustomChars lists every speaking character once, in order of first
// appearance, with its avatar reference and display name.
func (c *Compiler) buildCustomChars() []CustomChar {
	out := []CustomChar{}
	seen := make(map[string]bool)
	for _, line := range c.doc.Chat {
		if line.CharID == nil || *line.CharID == NarratorID {
			continue
		}
		id := *line.CharID
		if seen[id] {
			continue
		}
		seen[id] = true

		if raw, ok := strings.CutPrefix(id, CustomCharPrefix); ok {
			display, ok := c.resolver.CustomDisplay(raw)
			if !ok {
				display = raw
			}
			out = append(out, CustomChar{CharID: id, AvatarRef: UploadedAvatarRef, DisplayName: display})
			continue
		}

		bare := strings.TrimPrefix(id, ExternalPackPrefix)
		display := c.firstDisplay[id]
		if display == "" {
			display = bare
		}
		ref := UploadedAvatarRef
		if strings.HasPrefix(id, ExternalPackPrefix) {
			if r, ok := c.avatarRef(bare); ok {
				ref = r
			}
		}
		out = append(out, CustomChar{CharID: id, AvatarRef: ref, DisplayName: BaseName(display)})
	}
	return out
}

// avatarRef builds "/<pack root relative to base root>/<avatar path>"
func (c *Compiler) avatarRef(bare string) (string, bool) {
	if c.directory == nil || c.config.BaseRoot == "" {
		return "", false
	}
	avatar, ok := c.directory.LookupAvatar(bare)
	if !ok {
		return "", false
	}
	rel, err := filepath.Rel(c.config.BaseRoot, c.config.PackRoot)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		c.logger.Debug(LogMsgAvatarRefUnresolved,
			zap.String(LogFieldCharID, bare),
			zap.String(LogFieldPackRoot, c.config.PackRoot),
			zap.String(LogFieldBaseRoot, c.config.BaseRoot))
		return "", false
	}
	avatar = strings.TrimPrefix(avatar, PathSeparator)
	if rel == "." {
		return PathSeparator + avatar, true
	}
	return PathSeparator + filepath.ToSlash(rel) + PathSeparator + avatar, true
}

func stringPtr(s string) *string {
	return &s
}
