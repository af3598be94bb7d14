// Package data embeds the MBTA rapid transit network served by default.
package data

import "embed"

// FS holds network.toml and the line and connection files it names.
//
//go:embed network.toml *.dat
var FS embed.FS
