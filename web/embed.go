// Package web holds the page shell templates and the browser assets that
// apply the permission manifest.
package web

import "embed"

// Templates embeds layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds the stylesheet and the manifest script served under /static.
//
//go:embed static/**/*
var Static embed.FS
