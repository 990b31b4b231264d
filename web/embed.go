// Package web embeds the static dashboard for serving from the Go binary.
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed static
var dist embed.FS

// DistFS returns a filesystem rooted at the embedded static/ directory,
// ready for http.FileServerFS.
func DistFS() fs.FS {
	sub, err := fs.Sub(dist, "static")
	if err != nil {
		log.Fatalf("web.DistFS: %v", err)
	}
	return sub
}
