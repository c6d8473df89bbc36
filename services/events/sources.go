package eventsvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/storage/kv"
	localdb "github.com/trezcool/classboard/storage/local"
	remotedb "github.com/trezcool/classboard/storage/remote"
)

// WatchLocal publishes the changes other writers make to the local store. It returns
// kv.ErrWatchUnsupported right away when the backend cannot report them; polling covers that case.
func WatchLocal(ctx context.Context, db *localdb.DB, hub *Hub) error {
	keys := db.Keys()
	return db.Watch(ctx, func(key string) {
		switch key {
		case keys.Work:
			hub.Publish(NewEvent(KindWork, "storage"))
		case keys.Notices:
			hub.Publish(NewEvent(KindNotices, "storage"))
		case keys.Completed:
			hub.Publish(NewEvent(KindCompleted, "storage"))
		}
	})
}

// ListenRemote publishes the writes committed to the remote store, by this process or any other.
func ListenRemote(ctx context.Context, dsn string, hub *Hub, log core.Logger) error {
	return remotedb.Listen(ctx, dsn, log, func(table string) {
		switch table {
		case "work_items":
			hub.Publish(NewEvent(KindWork, "remote"))
		case "announcements":
			hub.Publish(NewEvent(KindNotices, "remote"))
		default:
			hub.Publish(NewEvent(KindRefresh, "remote"))
		}
	})
}

// IsUnsupported reports whether err only means that no live source is available.
func IsUnsupported(err error) bool {
	return errors.Is(err, kv.ErrWatchUnsupported)
}
