// Package inject assembles the initialization payload executed inside the
// webview.
//
// The payload is a single self-guarding IIFE. User-supplied code (scripts and
// their dependencies) is embedded base64-encoded and decoded at runtime, so a
// stray quote or backtick in a userscript can never break the payload's own
// syntax. Assembly is pure string work; nothing here touches the network.
package inject

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

const (
	scriptsJSONToken = "__SCRIPTS_JSON__"
	bridgeURLToken   = "__BRIDGE_URL__"
)

// Assembler builds injection payloads for a fixed bridge endpoint.
type Assembler struct {
	bridgeURL string
}

// New creates an assembler. bridgeURL is the websocket endpoint the isolated
// context connects back to, e.g. "ws://127.0.0.1:7420/ws".
func New(bridgeURL string) *Assembler {
	return &Assembler{bridgeURL: bridgeURL}
}

// Build assembles the full payload. Only enabled scripts are injected, in
// ascending order (stable on ties). All scripts, enabled or not, appear in
// the settings panel data. Dependencies are the first-seen-order union of the
// enabled scripts' requires; a require missing from the cache becomes a
// console.warn diagnostic instead of an injection.
func (a *Assembler) Build(scripts []types.Script, deps map[string]types.Dependency) string {
	ordered := make([]types.Script, len(scripts))
	copy(ordered, scripts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	var enabled []types.Script
	for _, s := range ordered {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}

	scriptsJSON, err := json.Marshal(ordered)
	if err != nil {
		scriptsJSON = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("(function() {\n")
	b.WriteString("  // Only run in the main frame, never iframes.\n")
	b.WriteString("  if (window !== window.top) return;\n")
	b.WriteString("  if (window.__geoguessrDesktopInjected) return;\n")
	b.WriteString("  window.__geoguessrDesktopInjected = true;\n\n")
	b.WriteString("  console.log('[GeoGuessr Desktop] Initializing userscripts...');\n\n")

	b.WriteString("  function decodeBase64(str) {\n")
	b.WriteString("    return decodeURIComponent(atob(str).split('').map(function(c) {\n")
	b.WriteString("      return '%' + ('00' + c.charCodeAt(0).toString(16)).slice(-2);\n")
	b.WriteString("    }).join(''));\n")
	b.WriteString("  }\n\n")

	// Script tags escape the isolated context into the page's main world.
	b.WriteString("  function injectIntoPage(code, name) {\n")
	b.WriteString("    console.log('[GeoGuessr Desktop] Injecting into page:', name);\n")
	b.WriteString("    var script = document.createElement('script');\n")
	b.WriteString("    script.textContent = code;\n")
	b.WriteString("    script.setAttribute('data-geoguessr-desktop', name || 'userscript');\n")
	b.WriteString("    document.documentElement.appendChild(script);\n")
	b.WriteString("    script.remove();\n")
	b.WriteString("  }\n\n")

	b.WriteString("  function waitForDocumentElement(callback) {\n")
	b.WriteString("    if (document.documentElement) {\n")
	b.WriteString("      callback();\n")
	b.WriteString("    } else {\n")
	b.WriteString("      var interval = setInterval(function() {\n")
	b.WriteString("        if (document.documentElement) {\n")
	b.WriteString("          clearInterval(interval);\n")
	b.WriteString("          callback();\n")
	b.WriteString("        }\n")
	b.WriteString("      }, 1);\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n\n")

	b.WriteString("  waitForDocumentElement(function() {\n")

	writeInjection(&b, gmShim, "tampermonkey-api")

	titlebar := strings.Replace(titlebarChrome, scriptsJSONToken, string(scriptsJSON), 1)
	writeInjection(&b, titlebar, "custom-titlebar")

	writeInjection(&b, presenceHook, "presence-hook")

	for i, depURL := range requireUnion(enabled) {
		dep, ok := deps[depURL]
		if !ok {
			fmt.Fprintf(&b, "    console.warn('[GeoGuessr Desktop] Missing dependency: %s');\n", jsEscape(depURL))
			continue
		}
		fmt.Fprintf(&b, "    console.log('[GeoGuessr Desktop] Loading dependency: %s');\n", jsEscape(depURL))
		writeInjection(&b, dep.Code, fmt.Sprintf("dependency-%d", i))
	}

	for _, s := range enabled {
		fmt.Fprintf(&b, "    console.log('[GeoGuessr Desktop] Queuing script: %s');\n", jsEscape(s.Name))
		writeInjection(&b, wrapScript(s), s.Name)
	}

	b.WriteString("  });\n")

	b.WriteString(strings.Replace(bridgeListeners, bridgeURLToken, a.bridgeURL, 1))
	b.WriteString("})();\n")
	return b.String()
}

// writeInjection emits an injectIntoPage call with the code base64-encoded.
func writeInjection(b *strings.Builder, code, name string) {
	encoded := base64.StdEncoding.EncodeToString([]byte(code))
	fmt.Fprintf(b, "    injectIntoPage(decodeBase64('%s'), '%s');\n\n", encoded, jsEscape(name))
}

// wrapScript defers a script to the window load event (or runs it immediately
// if load already fired) and fences its errors so one broken script cannot
// take down the rest of the payload.
func wrapScript(s types.Script) string {
	name := jsEscape(s.Name)
	return fmt.Sprintf(`(function() {
  var runScript = function() {
    try {
      console.log('[GeoGuessr Desktop] Executing script: %s');
%s
      console.log('[GeoGuessr Desktop] Script completed: %s');
    } catch(e) {
      console.error('[GeoGuessr Desktop] Error in script %s: ', e);
    }
  };
  if (document.readyState === 'complete') {
    runScript();
  } else {
    window.addEventListener('load', runScript);
  }
})();`, name, s.Code, name, name)
}

// requireUnion collects the requires of the given scripts, deduplicated in
// first-seen order.
func requireUnion(scripts []types.Script) []string {
	var union []string
	seen := map[string]struct{}{}
	for _, s := range scripts {
		for _, u := range s.Requires {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			union = append(union, u)
		}
	}
	return union
}

var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
)

func jsEscape(s string) string { return jsEscaper.Replace(s) }

// Check compiles the payload, catching assembler regressions before they hit
// a webview. Test aid; never on the serving path.
func Check(payload string) error {
	if _, err := goja.Compile("payload.js", payload, false); err != nil {
		return fmt.Errorf("payload does not compile: %w", err)
	}
	return nil
}
