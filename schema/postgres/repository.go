// Package postgres holds versioned SQL migrations of geoflow.
//
// Each directory under "versions" is named with its version number,
// and SQL files in it are applied in lexical order.
package postgres

import (
	"embed"
	"io/fs"
)

//go:embed versions
var repository embed.FS

// Versions returns the schema repository bundled in the binary.
func Versions() fs.FS {
	sub, err := fs.Sub(repository, "versions")
	if err != nil {
		panic(err) // "versions" is embedded
	}
	return sub
}
