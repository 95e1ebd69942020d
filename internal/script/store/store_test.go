package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

func strPtr(s string) *string { return &s }

func TestLoadMissingFiles(t *testing.T) {
	s := New(t.TempDir(), nil)

	assert.Empty(t, s.LoadScripts())
	assert.Empty(t, s.LoadDependencies())
}

func TestLoadMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dependencies.json"), []byte("[]"), 0o644))

	s := New(dir, nil)
	assert.Empty(t, s.LoadScripts())
	assert.Empty(t, s.LoadDependencies())
}

func TestRoundTrip(t *testing.T) {
	s := New(t.TempDir(), nil)

	now := time.Now().Unix()
	scripts := []types.Script{
		{
			ID:          "scr_1",
			Name:        "First",
			Code:        "console.log(1);",
			Enabled:     true,
			Order:       0,
			URL:         strPtr("https://example.com/a.js"),
			Requires:    []string{"https://cdn.example.com/dep.js"},
			LastUpdated: &now,
		},
		{ID: "scr_2", Name: "Second", Code: "console.log(2);", Order: 1},
	}
	deps := map[string]types.Dependency{
		"https://cdn.example.com/dep.js": {
			URL:         "https://cdn.example.com/dep.js",
			Code:        "window.dep = true;",
			LastUpdated: now,
		},
	}

	require.NoError(t, s.SaveScripts(scripts))
	require.NoError(t, s.SaveDependencies(deps))

	assert.Equal(t, scripts, s.LoadScripts())
	assert.Equal(t, deps, s.LoadDependencies())
}

func TestWatchReportsExternalWrites(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	stop := make(chan struct{})
	defer close(stop)
	changes, err := s.Watch(stop)
	require.NoError(t, err)

	require.NoError(t, s.SaveScripts([]types.Script{{ID: "scr_1", Name: "x"}}))

	select {
	case name := <-changes:
		assert.Equal(t, "scripts.json", name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
}
