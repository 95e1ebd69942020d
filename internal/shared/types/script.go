package types

// Script is a unit of user-supplied code plus metadata, independently
// enabled, ordered, and deletable. The registry exclusively owns the
// collection; no other component mutates Script state directly.
type Script struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Enabled bool   `json:"enabled"`
	Order   int    `json:"order"`

	// URL is set iff the script was fetched remotely. A script without a
	// URL can never be refreshed or auto-updated.
	URL         *string  `json:"url,omitempty"`
	Version     *string  `json:"version,omitempty"`
	Description *string  `json:"description,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Requires    []string `json:"requires,omitempty"`

	// LastUpdated is a unix timestamp recording the last update attempt.
	// On success it also marks the last successful fetch; the auto-updater
	// relies on this dual duty for its 24h/1h backoff windows.
	LastUpdated    *int64  `json:"last_updated,omitempty"`
	LastFetchError *string `json:"last_fetch_error,omitempty"`
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (s *Script) Clone() Script {
	out := *s
	out.URL = clonePtr(s.URL)
	out.Version = clonePtr(s.Version)
	out.Description = clonePtr(s.Description)
	out.Author = clonePtr(s.Author)
	out.LastUpdated = clonePtr(s.LastUpdated)
	out.LastFetchError = clonePtr(s.LastFetchError)
	if s.Requires != nil {
		out.Requires = append([]string(nil), s.Requires...)
	}
	return out
}

// Dependency is remote code required by a script's declared header, fetched
// and cached independently of any single script's lifecycle. Keyed by URL;
// re-fetching overwrites.
type Dependency struct {
	URL         string `json:"url"`
	Code        string `json:"code"`
	LastUpdated int64  `json:"last_updated"`
}

// Metadata is the parsed form of a userscript header block. All fields are
// optional; it is derived per fetch and never persisted on its own.
type Metadata struct {
	Name        string
	Version     string
	Description string
	Author      string
	Requires    []string
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
