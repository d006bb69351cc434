package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the new selection every time the registry's
// active pointers change on disk, until ctx is done. Downstream consumers use
// it to re-resolve their paths after a switch. The workspace root is watched
// rather than the file itself because atomic saves replace the file.
func (s *RegistryStore) Watch(ctx context.Context, onChange func(Selection)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating registry watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := ensureDir(s.layout.Root); err != nil {
		return err
	}
	if err := watcher.Add(s.layout.Root); err != nil {
		return fmt.Errorf("watching %s: %w", s.layout.Root, err)
	}

	var last Selection
	if reg, err := s.Load(); err == nil {
		last = reg.Active()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("registry watcher error", "error", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != RegistryFile || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			reg, err := s.Load()
			if err != nil {
				if !errors.Is(err, ErrLegacyMode) {
					s.logger.Warn("failed to reload registry", "error", err)
				}
				continue
			}
			if current := reg.Active(); current != last {
				last = current
				onChange(current)
			}
		}
	}
}
