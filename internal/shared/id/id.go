// Package id provides centralized ID generation for the backend.
//
// Script and request identifiers are prefixed ULIDs: lexicographically
// sortable, unique without coordination, and readable in logs (scr_*, req_*).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ScriptID identifies an installed userscript.
type ScriptID string

// RequestID identifies an outstanding bridge request.
type RequestID string

const (
	ScriptPrefix  = "scr"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewScriptID generates a new script ID.
func NewScriptID() ScriptID {
	return ScriptID(Default().GenerateWithPrefix(ScriptPrefix))
}

// NewRequestID generates a new bridge request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id ScriptID) String() string  { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsValid reports whether an ID string is a prefixed ULID.
func IsValid(s string) bool {
	_, rest, ok := strings.Cut(s, "_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(rest)
	return err == nil
}

// Timestamp extracts the creation time from a prefixed ID.
func Timestamp(s string) (time.Time, error) {
	_, rest, ok := strings.Cut(s, "_")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed id: %s", s)
	}
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
