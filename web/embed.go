// Package web embeds the page templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

func sub(dir string) fs.FS {
	f, err := fs.Sub(content, dir)
	if err != nil {
		panic("web: missing embedded directory " + dir)
	}
	return f
}

// StaticFS returns the stylesheet and other static files.
func StaticFS() fs.FS { return sub("static") }

// TemplatesFS returns the HTML page templates.
func TemplatesFS() fs.FS { return sub("templates") }
