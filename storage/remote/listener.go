package remotedb

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

// Listen calls fn with the changed table name for every committed write to the board tables, by anyone.
// After a reconnection fn is called with an empty table, since notifications may have been missed.
// Listen blocks until ctx is done.
func Listen(ctx context.Context, dsn string, log core.Logger, fn func(table string)) error {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("remote listener", map[string]interface{}{"event": int(ev)}, err)
		}
	})
	defer func() { _ = listener.Close() }()

	if err := listener.Listen(ChangesChannel); err != nil {
		return errors.Wrap(err, "listening for remote changes")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				fn("")
				continue
			}
			fn(n.Extra)
		case <-time.After(90 * time.Second):
			// the connection may be dead without us knowing
			go func() { _ = listener.Ping() }()
		}
	}
}
