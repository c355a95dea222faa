package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	nserrors "github.com/nushape/nushape/internal/errors"
)

// reloadInterval bounds how often a burst of edits triggers a reload
const reloadInterval = 200 * time.Millisecond

// Watch reloads the config whenever the file changes and reports the result
// to onChange. It watches the containing directory so editors that replace
// the file are seen. The watcher stops when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func(*Config, error)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nserrors.ConfigError("failed to create config dir", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nserrors.ConfigError("failed to start config watcher", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nserrors.ConfigError("failed to watch config dir", err)
	}

	limiter := rate.NewLimiter(rate.Every(reloadInterval), 1)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !s.relevant(ev) {
					continue
				}
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				s.drain(w)
				cfg, err := s.Load(ctx)
				if ctx.Err() != nil {
					return
				}
				onChange(cfg, err)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				onChange(nil, nserrors.ConfigError("config watcher failed", err))
			}
		}
	}()
	return nil
}

func (s *Store) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != s.path {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// drain discards events already queued so one reload covers a burst
func (s *Store) drain(w *fsnotify.Watcher) {
	for {
		select {
		case <-w.Events:
		default:
			return
		}
	}
}
