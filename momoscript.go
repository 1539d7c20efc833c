// Package momoscript compiles MomoScript dialogue markup into chat
// transcript documents for a downstream renderer.
//
// A script is line oriented. Speaker lines open with a side marker, the
// speaker name and a colon; lines without a marker continue the previous
// message:
//
//	@title: After School
//	> 星野: Sensei, over here.
//	  It's nap time.
//	> 白子: Hoshino again?
//	- The classroom is quiet.
//
// # Basic Usage
//
//	engine := momoscript.MustNew()
//	doc, err := engine.Compile(source)
//	data, err := json.Marshal(doc)
//
// Compile only fails on source that is not valid UTF-8. Malformed
// directives and inline expressions degrade to plain text, and
// CompileWithReport returns a Report describing what was degraded.
//
// # Character Packs
//
// A character pack maps display names to character ids (char_id.json) and
// ids to avatar files (asset_mapping.json). Packs are kept in a PackStorage
// backend (memory, filesystem, postgres or sqlite) and loaded into a
// Directory:
//
//	storage, err := momoscript.OpenStorage("filesystem", "data/pack-v2")
//	dir, err := momoscript.LoadDirectory(ctx, storage, "ba", "", logger)
//	engine := momoscript.MustNew(momoscript.WithDirectory(dir))
//
// ValidatePack checks pack documents against their JSON schemas and
// rejects avatar paths that escape the pack directory.
//
// # Configuration
//
// Engines are configured with functional options or from a momoscript.yaml
// file through LoadConfig and WithConfig.
package momoscript
