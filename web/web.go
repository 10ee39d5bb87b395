// Package web embeds the built dashboard so the service ships as a
// single binary. The dashboard renders every figure (availability bars,
// heatmap, trend lines, SOE distribution and boxes) from the JSON API.
package web

import "embed"

// DistFS holds the built frontend. Run the frontend build before
// building the binary; a placeholder index.html is committed so the
// binary always builds.
//
//go:embed all:dist
var DistFS embed.FS
