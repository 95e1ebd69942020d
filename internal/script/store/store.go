// Package store persists the script collection and dependency cache as two
// independent JSON documents under the application data directory.
//
// Writes replace the whole document through a temp-file rename so a crash
// mid-write never leaves a truncated file. Reads are forgiving: a missing or
// malformed document is an empty collection, never a startup failure.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

const (
	scriptsFile      = "scripts.json"
	dependenciesFile = "dependencies.json"
)

// Store reads and writes the two persisted documents.
type Store struct {
	dir    string
	logger *logging.Logger
}

// New creates a store rooted at dir.
func New(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// ScriptsPath returns the script document path.
func (s *Store) ScriptsPath() string { return filepath.Join(s.dir, scriptsFile) }

// DependenciesPath returns the dependency document path.
func (s *Store) DependenciesPath() string { return filepath.Join(s.dir, dependenciesFile) }

// LoadScripts reads the script collection.
func (s *Store) LoadScripts() []types.Script {
	var scripts []types.Script
	s.loadDocument(s.ScriptsPath(), &scripts)
	if scripts == nil {
		scripts = []types.Script{}
	}
	return scripts
}

// LoadDependencies reads the dependency cache.
func (s *Store) LoadDependencies() map[string]types.Dependency {
	var deps map[string]types.Dependency
	s.loadDocument(s.DependenciesPath(), &deps)
	if deps == nil {
		deps = map[string]types.Dependency{}
	}
	return deps
}

// SaveScripts replaces the script document.
func (s *Store) SaveScripts(scripts []types.Script) error {
	if err := s.saveDocument(s.ScriptsPath(), scripts); err != nil {
		return fmt.Errorf("failed to write scripts file: %w", err)
	}
	return nil
}

// SaveDependencies replaces the dependency document.
func (s *Store) SaveDependencies(deps map[string]types.Dependency) error {
	if err := s.saveDocument(s.DependenciesPath(), deps); err != nil {
		return fmt.Errorf("failed to write dependencies file: %w", err)
	}
	return nil
}

func (s *Store) loadDocument(path string, out interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read document, treating as empty",
				zap.String("path", path), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("Malformed document, treating as empty",
			zap.String("path", path), zap.Error(err))
	}
}

func (s *Store) saveDocument(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".document-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Watch reports external modifications to either document on the returned
// channel until stop is closed. Writes performed through this store also
// trigger events; callers that care should reconcile rather than assume the
// change came from outside.
func (s *Store) Watch(stop <-chan struct{}) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	changes := make(chan string, 4)
	go func() {
		defer watcher.Close()
		defer close(changes)
		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if name != scriptsFile && name != dependenciesFile {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case changes <- name:
				default:
					// Collapse bursts; one pending notification is enough.
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Watcher error", zap.Error(err))
			}
		}
	}()
	return changes, nil
}
