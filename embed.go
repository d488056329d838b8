package shire

import "embed"

// EmbeddedAssets contains static assets shipped with shire:
// editor.js and shire.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
