package kv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// File is a Backend keeping one JSON file per key in a directory, like a browser's local storage area.
// Other processes may share the directory; their writes are reported through Watch.
type File struct {
	dir string

	mu      sync.Mutex
	written map[string][]byte // last value we wrote per key, to tell our writes apart
}

var (
	_ Backend = (*File)(nil)
	_ Watcher = (*File)(nil)
)

func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &File{dir: dir, written: make(map[string][]byte)}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Set writes atomically through a temporary file.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err = tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "closing temp file")
	}
	f.written[key] = append([]byte(nil), value...)
	if err = os.Rename(tmp.Name(), f.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "replacing value file")
	}
	return nil
}

func (f *File) Close() error { return nil }

func (f *File) ownWrite(key string) bool {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	last, ok := f.written[key]
	return ok && bytes.Equal(last, data)
}

// Watch reports writes to keys made by others. Bursts are debounced per key.
func (f *File) Watch(ctx context.Context, keys []string, fn func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(f.dir); err != nil {
		return errors.Wrap(err, "watching storage directory")
	}

	wanted := keySet(keys)
	pending := make(map[string]time.Time)
	debounce := 100 * time.Millisecond
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".json") {
				continue
			}
			key := strings.TrimSuffix(base, ".json")
			if _, ok := wanted[key]; ok {
				pending[key] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watching storage directory")

		case now := <-ticker.C:
			for key, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, key)
				if !f.ownWrite(key) {
					fn(key)
				}
			}
		}
	}
}
