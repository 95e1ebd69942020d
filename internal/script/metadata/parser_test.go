package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleScript = `// ==UserScript==
// @name         Blink Timer
// @version      2.1.0
// @description  Shows a countdown overlay
// @author       miraclewhips
// @require      https://cdn.example.com/framework.min.js
// @require      https://cdn.example.com/helpers.js
// @require      https://cdn.example.com/framework.min.js
// @require      ftp://cdn.example.com/rejected.js
// ==/UserScript==
console.log('hello');
`

func TestParseFullHeader(t *testing.T) {
	meta := Parse(sampleScript)

	assert.Equal(t, "Blink Timer", meta.Name)
	assert.Equal(t, "2.1.0", meta.Version)
	assert.Equal(t, "Shows a countdown overlay", meta.Description)
	assert.Equal(t, "miraclewhips", meta.Author)
}

func TestParseRequiresOrderedAndDeduplicated(t *testing.T) {
	meta := Parse(sampleScript)

	assert.Equal(t, []string{
		"https://cdn.example.com/framework.min.js",
		"https://cdn.example.com/helpers.js",
	}, meta.Requires)
}

func TestParseNoHeader(t *testing.T) {
	meta := Parse("console.log('no header here');")

	assert.Empty(t, meta.Name)
	assert.Empty(t, meta.Version)
	assert.Empty(t, meta.Description)
	assert.Empty(t, meta.Author)
	assert.Empty(t, meta.Requires)
}

func TestParseUnterminatedHeader(t *testing.T) {
	code := "// ==UserScript==\n// @name Dangling\nconsole.log(1);"
	meta := Parse(code)

	assert.Empty(t, meta.Name, "unterminated block must not be recognized")
}

func TestParseFirstMatchWins(t *testing.T) {
	code := `// ==UserScript==
// @name First
// @name Second
// ==/UserScript==`
	meta := Parse(code)

	assert.Equal(t, "First", meta.Name)
}

func TestParseThreeRequires(t *testing.T) {
	code := `// ==UserScript==
// @require https://a.example.com/1.js
// @require https://b.example.com/2.js
// @require https://c.example.com/3.js
// ==/UserScript==`
	meta := Parse(code)

	assert.Len(t, meta.Requires, 3)
	assert.Equal(t, "https://a.example.com/1.js", meta.Requires[0])
	assert.Equal(t, "https://c.example.com/3.js", meta.Requires[2])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Unnamed Script", DisplayName(Parse("x = 1;")))
	assert.Equal(t, "Blink Timer", DisplayName(Parse(sampleScript)))
}
