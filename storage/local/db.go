// Package localdb persists the class board on this device, through a kv.Backend.
package localdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/storage/kv"
)

// Keys are the storage keys of a namespace: the three collections, and the ids of
// local writes still waiting for the remote store.
type Keys struct {
	Work           string
	Notices        string
	Completed      string
	PendingWork    string
	PendingNotices string
}

func KeysFor(namespace string) Keys {
	return Keys{
		Work:           namespace + "-work-items",
		Notices:        namespace + "-announcements",
		Completed:      namespace + "-completed-ids",
		PendingWork:    namespace + "-pending-work-ids",
		PendingNotices: namespace + "-pending-announcement-ids",
	}
}

// All returns the collection keys, in a stable order.
func (k Keys) All() []string {
	return []string{k.Work, k.Notices, k.Completed}
}

// DB is the local store. Every read-modify-write of a collection holds mu,
// so concurrent requests never interleave their updates.
type DB struct {
	kv   kv.Backend
	keys Keys
	log  core.Logger
	mu   sync.Mutex
}

func New(backend kv.Backend, namespace string, logger core.Logger) *DB {
	return &DB{kv: backend, keys: KeysFor(namespace), log: logger}
}

// Open returns the backend named by conf.Driver.
func Open(ctx context.Context, conf core.StorageConfig) (kv.Backend, error) {
	switch conf.Driver {
	case "memory":
		return kv.NewMemory(), nil
	case "bolt", "":
		return kv.OpenBolt(conf.Path, conf.Namespace)
	case "file":
		// the path names a directory; a ".db" suffix from the bolt default is dropped
		dir := conf.Path
		if ext := filepath.Ext(dir); ext != "" {
			dir = dir[:len(dir)-len(ext)]
		}
		return kv.OpenFile(dir)
	case "redis":
		return kv.OpenRedis(ctx, conf.RedisAddr, conf.Namespace)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Driver)
	}
}

func (db *DB) Keys() Keys { return db.keys }

func (db *DB) Close() error {
	return db.kv.Close()
}

// Watch calls fn for every change of one of the namespace keys made by another writer.
// It returns kv.ErrWatchUnsupported if the backend cannot report them.
func (db *DB) Watch(ctx context.Context, fn func(key string)) error {
	return kv.Watch(ctx, db.kv, db.keys.All(), fn)
}

// load reads key. Missing keys read as nil.
func (db *DB) load(ctx context.Context, key string) ([]byte, error) {
	raw, err := db.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	return raw, nil
}

func (db *DB) store(ctx context.Context, key string, raw []byte) error {
	if err := db.kv.Set(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "writing %s", key)
	}
	return nil
}

func (db *DB) malformed(key string, err error) {
	db.log.Debug("discarding malformed local data", map[string]interface{}{"key": key}, err)
}
