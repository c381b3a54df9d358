// Package cue provides embedded CUE schema modules.
package cue

import "embed"

// SchemaFS contains the embedded manifest shape declarations.
// This embeds all .cue files from the schemas directory.
//
//go:embed schemas/*.cue
var SchemaFS embed.FS

// SchemaDir is the root directory within the embedded filesystem.
const SchemaDir = "schemas"
