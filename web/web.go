// Package web embeds the browser player served at the root path.
package web

import "embed"

//go:embed index.html
var Assets embed.FS

//go:embed index.html
var IndexHTML []byte
