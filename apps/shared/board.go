// Package shared wires the class board storage and services from the configuration.
// Both the API server and the admin CLI start from it.
package shared

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/notice"
	"github.com/trezcool/classboard/core/work"
	eventsvc "github.com/trezcool/classboard/services/events"
	localdb "github.com/trezcool/classboard/storage/local"
	remotedb "github.com/trezcool/classboard/storage/remote"
	"github.com/trezcool/classboard/storage/synced"
)

// Board holds the opened stores and the services built on top of them.
type Board struct {
	Local  *localdb.DB
	Remote *sqlx.DB // nil when remote sync is not configured
	DSN    string

	WorkSvc   *work.Service
	NoticeSvc *notice.Service
}

// Open opens the local store and, when configured, the remote one. A remote store that cannot be
// reached is logged and skipped: the board then runs local only.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (*Board, error) {
	backend, err := localdb.Open(ctx, conf.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "opening local storage")
	}
	b := &Board{Local: localdb.New(backend, conf.Storage.Namespace, logger)}

	localWork := localdb.NewWorkRepository(b.Local)
	localNotices := localdb.NewNoticeRepository(b.Local)
	var (
		workRepo   work.Repository   = localWork
		noticeRepo notice.Repository = localNotices
		files      work.FileStore    = work.EmbeddedFiles{
			MaxDimension: conf.Attachments.MaxDimension,
			JPEGQuality:  conf.Attachments.JPEGQuality,
		}
	)

	if conf.RemoteEnabled() {
		if err = b.openRemote(ctx, conf); err != nil {
			logger.Error("remote storage unavailable, running local only", err)
		} else {
			workRepo = synced.NewWorkRepository(localWork, localdb.NewPendingWorkRepository(b.Local), remotedb.NewWorkRepository(b.Remote), logger)
			noticeRepo = synced.NewNoticeRepository(localNotices, localdb.NewPendingNoticeRepository(b.Local), remotedb.NewNoticeRepository(b.Remote), logger)
		}
	}
	if b.Remote != nil && conf.ObjectsEnabled() {
		objects, err := remotedb.NewB2Files(ctx, conf.Objects, files, logger)
		if err != nil {
			logger.Error("object storage unavailable, embedding attachments", err)
		} else {
			files = objects
		}
	}

	b.WorkSvc = work.NewService(workRepo, localdb.NewCompletionRepository(b.Local), files)
	b.NoticeSvc = notice.NewService(noticeRepo)
	return b, nil
}

func (b *Board) openRemote(ctx context.Context, conf *core.Config) error {
	dsn, err := remotedb.DSN(conf.Remote)
	if err != nil {
		return err
	}
	db, err := remotedb.Open(ctx, conf.Remote)
	if err != nil {
		return err
	}
	if err = remotedb.Migrate(db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "migrating remote storage")
	}
	b.Remote, b.DSN = db, dsn
	return nil
}

// Fingerprint summarizes everything a client displays. The poller compares it between ticks.
func (b *Board) Fingerprint(ctx context.Context) (string, error) {
	items, err := b.WorkSvc.Query(ctx, work.Filter{})
	if err != nil {
		return "", err
	}
	notices, err := b.NoticeSvc.QueryAll(ctx)
	if err != nil {
		return "", err
	}
	completed, err := b.WorkSvc.CompletedIDs(ctx)
	if err != nil {
		return "", err
	}
	return eventsvc.Fingerprint(items, notices, completed)
}

// Watch feeds hub from every live change source available until ctx is done: the local store
// when its backend reports changes, the remote notifications, and always the poller.
func (b *Board) Watch(ctx context.Context, conf *core.Config, hub *eventsvc.Hub, logger core.Logger) {
	go func() {
		if err := eventsvc.WatchLocal(ctx, b.Local, hub); err != nil && !eventsvc.IsUnsupported(err) {
			logger.Warn("watching local storage", err)
		}
	}()
	if b.Remote != nil {
		go func() {
			if err := eventsvc.ListenRemote(ctx, b.DSN, hub, logger); err != nil {
				logger.Warn("listening to remote changes", err)
			}
		}()
	}
	go eventsvc.NewPoller(conf.Server.PollInterval, b.Fingerprint, hub, logger).Run(ctx)
}

func (b *Board) Close() error {
	var err error
	if b.Remote != nil {
		err = b.Remote.Close()
	}
	if lErr := b.Local.Close(); lErr != nil && err == nil {
		err = lErr
	}
	return err
}
