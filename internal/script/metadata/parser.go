// Package metadata extracts the Tampermonkey-style header block from raw
// userscript text.
//
// A header looks like:
//
//	// ==UserScript==
//	// @name        Blink
//	// @version     2.1.0
//	// @require     https://cdn.example.com/framework.min.js
//	// ==/UserScript==
//
// Parsing is pure and never fails: a missing block or directive simply
// yields empty fields.
package metadata

import (
	"regexp"
	"strings"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

var (
	blockRe       = regexp.MustCompile(`(?s)//\s*==UserScript==(.*?)//\s*==/UserScript==`)
	nameRe        = regexp.MustCompile(`@name\s+(.+)`)
	versionRe     = regexp.MustCompile(`@version\s+(.+)`)
	descriptionRe = regexp.MustCompile(`@description\s+(.+)`)
	authorRe      = regexp.MustCompile(`@author\s+(.+)`)
	requireRe     = regexp.MustCompile(`@require\s+(https?://\S+)`)
)

// Parse extracts metadata from script code. Single-valued directives take
// the first match; @require repeats and is collected in declaration order
// with duplicates removed.
func Parse(code string) types.Metadata {
	var meta types.Metadata

	block := blockRe.FindStringSubmatch(code)
	if block == nil {
		return meta
	}
	body := block[1]

	meta.Name = firstMatch(nameRe, body)
	meta.Version = firstMatch(versionRe, body)
	meta.Description = firstMatch(descriptionRe, body)
	meta.Author = firstMatch(authorRe, body)

	seen := make(map[string]bool)
	for _, m := range requireRe.FindAllStringSubmatch(body, -1) {
		url := strings.TrimSpace(m[1])
		if seen[url] {
			continue
		}
		seen[url] = true
		meta.Requires = append(meta.Requires, url)
	}

	return meta
}

// DisplayName returns the parsed name or a fallback for headerless scripts.
func DisplayName(meta types.Metadata) string {
	if meta.Name != "" {
		return meta.Name
	}
	return "Unnamed Script"
}

func firstMatch(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
