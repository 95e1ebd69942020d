package inject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

func testAssembler() *Assembler {
	return New("ws://127.0.0.1:7420/ws")
}

func script(name string, order int, enabled bool, requires ...string) types.Script {
	return types.Script{
		ID:       "scr_" + name,
		Name:     name,
		Code:     "console.log('" + name + " ran');",
		Enabled:  enabled,
		Order:    order,
		Requires: requires,
	}
}

func TestBuildOrdering(t *testing.T) {
	scripts := []types.Script{
		script("Second", 5, true),
		script("First", 1, true, "https://cdn.example.com/dep.js"),
	}
	deps := map[string]types.Dependency{
		"https://cdn.example.com/dep.js": {URL: "https://cdn.example.com/dep.js", Code: "window.dep = 1;"},
	}

	payload := testAssembler().Build(scripts, deps)

	markers := []string{
		"window.__geoguessrDesktopInjected",
		"'tampermonkey-api'",
		"'custom-titlebar'",
		"'presence-hook'",
		"Loading dependency: https://cdn.example.com/dep.js",
		"Queuing script: First",
		"Queuing script: Second",
		"Bridge listeners initialized",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(payload, m)
		require.GreaterOrEqual(t, idx, 0, "missing marker %q", m)
		assert.Greater(t, idx, last, "marker %q out of order", m)
		last = idx
	}
}

func TestBuildSkipsDisabledScripts(t *testing.T) {
	scripts := []types.Script{
		script("Active", 0, true),
		script("Dormant", 1, false, "https://cdn.example.com/unused.js"),
	}

	payload := testAssembler().Build(scripts, nil)

	assert.Contains(t, payload, "Queuing script: Active")
	assert.NotContains(t, payload, "Queuing script: Dormant")
	assert.NotContains(t, payload, "Missing dependency: https://cdn.example.com/unused.js",
		"requires of disabled scripts are not part of the union")

	// Disabled scripts still show up in the settings panel data.
	assert.Contains(t, payload, `"scr_Dormant"`)
}

func TestBuildMissingDependency(t *testing.T) {
	scripts := []types.Script{
		script("A", 0, true, "https://cdn.example.com/gone.js"),
	}

	payload := testAssembler().Build(scripts, nil)

	assert.Contains(t, payload, "Missing dependency: https://cdn.example.com/gone.js")
	assert.NotContains(t, payload, "'dependency-0'")
}

func TestBuildDeduplicatesSharedRequires(t *testing.T) {
	const dep = "https://cdn.example.com/shared.js"
	scripts := []types.Script{
		script("A", 0, true, dep),
		script("B", 1, true, dep, "https://cdn.example.com/extra.js"),
	}
	deps := map[string]types.Dependency{
		dep: {URL: dep, Code: "shared();"},
		"https://cdn.example.com/extra.js": {URL: "https://cdn.example.com/extra.js", Code: "extra();"},
	}

	payload := testAssembler().Build(scripts, deps)

	assert.Equal(t, 1, strings.Count(payload, "Loading dependency: "+dep))
	assert.Contains(t, payload, "'dependency-0'")
	assert.Contains(t, payload, "'dependency-1'")
}

func TestBuildEmbedsBridgeURL(t *testing.T) {
	payload := New("ws://127.0.0.1:9999/ws").Build(nil, nil)
	assert.Contains(t, payload, "new WebSocket('ws://127.0.0.1:9999/ws')")
}

func TestPayloadCompiles(t *testing.T) {
	hostile := types.Script{
		ID:      "scr_hostile",
		Name:    "It's \\ tricky\nname",
		Code:    "var s = \"quotes ' and \\ backslashes\";\nvar tpl = `backtick ${s}`;",
		Enabled: true,
		Order:   0,
	}
	scripts := []types.Script{hostile, script("Plain", 1, true, "https://cdn.example.com/dep.js")}
	deps := map[string]types.Dependency{
		"https://cdn.example.com/dep.js": {URL: "https://cdn.example.com/dep.js", Code: "var x = '</script>';"},
	}

	payload := testAssembler().Build(scripts, deps)
	require.NoError(t, Check(payload))
}

func TestEmptyRegistryStillCompiles(t *testing.T) {
	payload := testAssembler().Build(nil, nil)
	require.NoError(t, Check(payload))
	assert.Contains(t, payload, "'tampermonkey-api'")
}
