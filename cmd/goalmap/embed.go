package main

import (
	"embed"
	"io/fs"
	"log"

	"github.com/goalmap/goalmap/internal/server"
)

// The ui directory holds the built front-end bundle. A placeholder
// index.html is checked in so the binary always builds.
//
//go:embed all:ui
var uiDist embed.FS

func init() {
	sub, err := fs.Sub(uiDist, "ui")
	if err != nil {
		log.Printf("ui: %v", err)
		return
	}
	server.SetUI(sub)
}
