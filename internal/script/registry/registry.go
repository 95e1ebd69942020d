// Package registry owns the installed script collection and the shared
// dependency cache.
//
// All mutations go through the Registry; callers get defensive copies. Two
// locks guard the two collections, acquired scripts-before-dependencies when
// an operation needs both. Network fetches always happen outside the locks:
// the fetch result is computed first and the locks are taken only to
// re-validate preconditions and commit, so one slow remote host never blocks
// unrelated reads.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/metadata"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/store"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/id"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

// Fetcher retrieves remote script text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchResult is the outcome of the fetch+parse+dependency pipeline. By the
// time a FetchResult exists, every declared dependency is in the cache.
type FetchResult struct {
	Code string
	Meta types.Metadata
}

// Registry is the durable, ordered collection of installed scripts plus the
// dependency cache.
type Registry struct {
	fetcher Fetcher
	store   *store.Store
	logger  *logging.Logger
	now     func() int64

	scriptsMu sync.RWMutex
	scripts   []types.Script

	// Lock order: scriptsMu before depsMu, never the reverse.
	depsMu sync.RWMutex
	deps   map[string]types.Dependency
}

// New creates a registry backed by the given store, loading persisted state.
func New(fetcher Fetcher, st *store.Store, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Registry{
		fetcher: fetcher,
		store:   st,
		logger:  logger,
		now:     func() int64 { return time.Now().Unix() },
		scripts: st.LoadScripts(),
		deps:    st.LoadDependencies(),
	}
}

// SetClock overrides the timestamp source. Tests only.
func (r *Registry) SetClock(now func() int64) { r.now = now }

// List returns a copy of all scripts sorted by order (ties keep insertion
// order).
func (r *Registry) List() []types.Script {
	r.scriptsMu.RLock()
	out := make([]types.Script, 0, len(r.scripts))
	for i := range r.scripts {
		out = append(out, r.scripts[i].Clone())
	}
	r.scriptsMu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Get returns a copy of the script with the given id.
func (r *Registry) Get(scriptID string) (types.Script, error) {
	r.scriptsMu.RLock()
	defer r.scriptsMu.RUnlock()
	for i := range r.scripts {
		if r.scripts[i].ID == scriptID {
			return r.scripts[i].Clone(), nil
		}
	}
	return types.Script{}, ErrNotFound
}

// Dependencies returns a copy of the dependency cache.
func (r *Registry) Dependencies() map[string]types.Dependency {
	r.depsMu.RLock()
	defer r.depsMu.RUnlock()
	out := make(map[string]types.Dependency, len(r.deps))
	for k, v := range r.deps {
		out[k] = v
	}
	return out
}

// AddFromURL fetches a script, its metadata, and any uncached dependencies,
// then registers it enabled at the end of the load order.
func (r *Registry) AddFromURL(ctx context.Context, url string) (types.Script, error) {
	if r.hasURL(url) {
		return types.Script{}, ErrDuplicateSource
	}

	// Network work happens before any lock is held for commit.
	result, err := r.Pipeline(ctx, url)
	if err != nil {
		return types.Script{}, err
	}

	now := r.now()
	r.scriptsMu.Lock()
	// Re-validate: another caller may have added the same URL during the
	// fetch.
	for i := range r.scripts {
		if r.scripts[i].URL != nil && *r.scripts[i].URL == url {
			r.scriptsMu.Unlock()
			return types.Script{}, ErrDuplicateSource
		}
	}

	maxOrder := -1
	for i := range r.scripts {
		if r.scripts[i].Order > maxOrder {
			maxOrder = r.scripts[i].Order
		}
	}

	script := types.Script{
		ID:          id.NewScriptID().String(),
		Name:        metadata.DisplayName(result.Meta),
		Code:        result.Code,
		Enabled:     true,
		Order:       maxOrder + 1,
		URL:         &url,
		Requires:    result.Meta.Requires,
		LastUpdated: &now,
	}
	setOptional(&script, result.Meta)

	r.scripts = append(r.scripts, script)
	out := script.Clone()
	r.scriptsMu.Unlock()

	if err := r.SaveAll(); err != nil {
		return types.Script{}, err
	}
	r.logger.Info("Script added",
		zap.String("id", script.ID),
		zap.String("name", script.Name),
		zap.Int("requires", len(script.Requires)))
	return out, nil
}

// AddManual registers a locally authored script. It has no source URL and
// can never be refreshed or auto-updated.
func (r *Registry) AddManual(name, code string) (types.Script, error) {
	if name == "" {
		name = metadata.DisplayName(metadata.Parse(code))
	}

	r.scriptsMu.Lock()
	maxOrder := -1
	for i := range r.scripts {
		if r.scripts[i].Order > maxOrder {
			maxOrder = r.scripts[i].Order
		}
	}
	script := types.Script{
		ID:      id.NewScriptID().String(),
		Name:    name,
		Code:    code,
		Enabled: true,
		Order:   maxOrder + 1,
	}
	r.scripts = append(r.scripts, script)
	out := script.Clone()
	r.scriptsMu.Unlock()

	if err := r.saveScripts(); err != nil {
		return types.Script{}, err
	}
	return out, nil
}

// Toggle enables or disables a script.
func (r *Registry) Toggle(scriptID string, enabled bool) error {
	return r.mutate(scriptID, func(s *types.Script) { s.Enabled = enabled })
}

// Reorder sets a script's load order. Other scripts are not renormalized;
// ties are resolved by the stable sort at assembly time.
func (r *Registry) Reorder(scriptID string, newOrder int) error {
	return r.mutate(scriptID, func(s *types.Script) { s.Order = newOrder })
}

// Delete removes a script. The dependency cache is left alone: entries
// persist even when no script references them.
func (r *Registry) Delete(scriptID string) error {
	r.scriptsMu.Lock()
	idx := -1
	for i := range r.scripts {
		if r.scripts[i].ID == scriptID {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.scriptsMu.Unlock()
		return ErrNotFound
	}
	r.scripts = append(r.scripts[:idx], r.scripts[idx+1:]...)
	r.scriptsMu.Unlock()

	return r.saveScripts()
}

// Refresh re-runs the fetch pipeline against the script's stored URL and
// overwrites its content, preserving id, enabled, and order. A failed
// refresh leaves the script untouched; only the auto-updater records fetch
// errors on the script itself.
func (r *Registry) Refresh(ctx context.Context, scriptID string) (types.Script, error) {
	current, err := r.Get(scriptID)
	if err != nil {
		return types.Script{}, err
	}
	if current.URL == nil {
		return types.Script{}, ErrNotRefreshable
	}

	result, err := r.Pipeline(ctx, *current.URL)
	if err != nil {
		return types.Script{}, err
	}

	now := r.now()
	r.scriptsMu.Lock()
	idx := -1
	for i := range r.scripts {
		if r.scripts[i].ID == scriptID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Deleted while the fetch was in flight.
		r.scriptsMu.Unlock()
		return types.Script{}, ErrNotFound
	}
	applyResult(&r.scripts[idx], result, now)
	out := r.scripts[idx].Clone()
	r.scriptsMu.Unlock()

	if err := r.SaveAll(); err != nil {
		return types.Script{}, err
	}
	r.logger.Info("Script refreshed", zap.String("id", scriptID))
	return out, nil
}

// Pipeline fetches a script, parses its metadata, and fetches every
// declared dependency that is not yet cached. The first dependency failure
// aborts with a DependencyError; dependencies cached earlier in the same
// call stay cached.
func (r *Registry) Pipeline(ctx context.Context, url string) (*FetchResult, error) {
	code, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	meta := metadata.Parse(code)
	for _, depURL := range meta.Requires {
		if r.hasDependency(depURL) {
			continue
		}
		depCode, err := r.fetcher.Fetch(ctx, depURL)
		if err != nil {
			return nil, &DependencyError{URL: depURL, Err: err}
		}
		r.depsMu.Lock()
		r.deps[depURL] = types.Dependency{
			URL:         depURL,
			Code:        depCode,
			LastUpdated: r.now(),
		}
		r.depsMu.Unlock()
	}

	return &FetchResult{Code: code, Meta: meta}, nil
}

// ApplySuccess commits a pipeline result onto an existing script, preserving
// id, enabled, and order. Used by the auto-updater; does not persist.
func (r *Registry) ApplySuccess(scriptID string, result *FetchResult) error {
	now := r.now()
	r.scriptsMu.Lock()
	defer r.scriptsMu.Unlock()
	for i := range r.scripts {
		if r.scripts[i].ID == scriptID {
			applyResult(&r.scripts[i], result, now)
			return nil
		}
	}
	return ErrNotFound
}

// ApplyFailure records a fetch error on a script and stamps LastUpdated so
// the error backoff window starts now. Used by the auto-updater; does not
// persist.
func (r *Registry) ApplyFailure(scriptID string, message string) error {
	now := r.now()
	r.scriptsMu.Lock()
	defer r.scriptsMu.Unlock()
	for i := range r.scripts {
		if r.scripts[i].ID == scriptID {
			r.scripts[i].LastFetchError = &message
			r.scripts[i].LastUpdated = &now
			return nil
		}
	}
	return ErrNotFound
}

// SaveAll persists both documents from cloned snapshots, outside the locks.
func (r *Registry) SaveAll() error {
	if err := r.saveScripts(); err != nil {
		return err
	}
	r.depsMu.RLock()
	deps := make(map[string]types.Dependency, len(r.deps))
	for k, v := range r.deps {
		deps[k] = v
	}
	r.depsMu.RUnlock()
	return r.store.SaveDependencies(deps)
}

// Reload re-reads both documents from disk, replacing in-memory state. Used
// when the store watcher reports an external edit.
func (r *Registry) Reload() {
	scripts := r.store.LoadScripts()
	deps := r.store.LoadDependencies()

	r.scriptsMu.Lock()
	r.scripts = scripts
	r.scriptsMu.Unlock()

	r.depsMu.Lock()
	r.deps = deps
	r.depsMu.Unlock()
}

// DataDir returns the backing store directory.
func (r *Registry) DataDir() string { return r.store.Dir() }

func (r *Registry) mutate(scriptID string, fn func(*types.Script)) error {
	r.scriptsMu.Lock()
	found := false
	for i := range r.scripts {
		if r.scripts[i].ID == scriptID {
			fn(&r.scripts[i])
			found = true
			break
		}
	}
	r.scriptsMu.Unlock()
	if !found {
		return ErrNotFound
	}
	return r.saveScripts()
}

func (r *Registry) saveScripts() error {
	r.scriptsMu.RLock()
	scripts := make([]types.Script, 0, len(r.scripts))
	for i := range r.scripts {
		scripts = append(scripts, r.scripts[i].Clone())
	}
	r.scriptsMu.RUnlock()
	return r.store.SaveScripts(scripts)
}

func (r *Registry) hasURL(url string) bool {
	r.scriptsMu.RLock()
	defer r.scriptsMu.RUnlock()
	for i := range r.scripts {
		if r.scripts[i].URL != nil && *r.scripts[i].URL == url {
			return true
		}
	}
	return false
}

func (r *Registry) hasDependency(url string) bool {
	r.depsMu.RLock()
	defer r.depsMu.RUnlock()
	_, ok := r.deps[url]
	return ok
}

func applyResult(s *types.Script, result *FetchResult, now int64) {
	s.Name = metadata.DisplayName(result.Meta)
	s.Code = result.Code
	s.Requires = result.Meta.Requires
	s.LastUpdated = &now
	s.LastFetchError = nil
	setOptional(s, result.Meta)
}

func setOptional(s *types.Script, meta types.Metadata) {
	s.Version = optional(meta.Version)
	s.Description = optional(meta.Description)
	s.Author = optional(meta.Author)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
