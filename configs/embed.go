// Package configs embeds the commented configuration template written by
// `rspecgen config init`.
//
// The template spells out every default from internal/config NewConfig, so
// a freshly written file changes nothing until it is edited.
package configs

import _ "embed"

// Template is written to .rspecgen.yaml, or to the user config with --user.
//
//go:embed config.example.yaml
var Template string
