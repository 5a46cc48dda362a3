package catalog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Store publishes the active catalog. Readers always see a complete catalog;
// a reload swaps it atomically.
type Store struct {
	current atomic.Pointer[Catalog]
	path    string
	logger  zerolog.Logger
}

// NewStore loads the catalog at path (or the default when path is empty).
func NewStore(path string, logger *zerolog.Logger) (*Store, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, logger: zerolog.New(io.Discard)}
	if logger != nil {
		s.logger = logger.With().Str("component", "catalog").Logger()
	}
	s.current.Store(c)
	return s, nil
}

// Static wraps a fixed catalog.
func Static(c *Catalog) *Store {
	s := &Store{logger: zerolog.New(io.Discard)}
	s.current.Store(c)
	return s
}

// Current returns the active catalog.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Reload re-reads the catalog file. An invalid file keeps the previous catalog.
func (s *Store) Reload() error {
	c, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	s.logger.Info().Int("version", c.Version()).Int("effects", len(c.effects)).Msg("catalog reloaded")
	return nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// The parent directory is watched so atomic rename-based saves are seen.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("catalog: watch %s: %w", target, err)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn().Err(err).Msg("catalog reload failed, keeping previous catalog")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Msg("catalog watcher error")
			}
		}
	}()
	return nil
}
