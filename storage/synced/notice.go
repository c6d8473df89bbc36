package synced

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/notice"
)

type LocalNotices interface {
	notice.Repository
	ReplaceNotices(ctx context.Context, notices []notice.Notice) error
}

type NoticeRepository struct {
	local   LocalNotices
	pending Pending
	remote  notice.Repository
	log     core.Logger
}

var _ notice.Repository = (*NoticeRepository)(nil)

func NewNoticeRepository(local LocalNotices, pending Pending, remote notice.Repository, log core.Logger) *NoticeRepository {
	return &NoticeRepository{local: local, pending: pending, remote: remote, log: log}
}

// push sends the pending local writes to the remote, stopping at the first failure.
// It returns the ids still pending.
func (repo *NoticeRepository) push(ctx context.Context) (map[string]bool, error) {
	ids, err := repo.pending.PendingIDs(ctx)
	if err != nil {
		return nil, err
	}
	left := make(map[string]bool)
	for i, id := range ids {
		n, err := repo.local.GetNoticeByID(ctx, id)
		switch {
		case err == nil:
			err = repo.upsertRemote(ctx, n)
		case errors.Is(err, notice.ErrNotFound):
			_, err = repo.remote.DeleteNotice(ctx, id)
		}
		if err != nil {
			for _, rest := range ids[i:] {
				left[rest] = true
			}
			return left, nil
		}
		track(ctx, repo.pending, repo.log, id, nil)
	}
	return left, nil
}

func (repo *NoticeRepository) upsertRemote(ctx context.Context, n notice.Notice) error {
	_, err := repo.remote.UpdateNotice(ctx, n)
	if errors.Is(err, notice.ErrNotFound) {
		_, err = repo.remote.CreateNotice(ctx, n)
	}
	return err
}

func (repo *NoticeRepository) QueryAllNotices(ctx context.Context) ([]notice.Notice, error) {
	left, err := repo.push(ctx)
	if err != nil {
		repo.log.Error("reading pending announcements, reading local copy", err)
		return repo.local.QueryAllNotices(ctx)
	}
	notices, err := repo.remote.QueryAllNotices(ctx)
	if err != nil {
		repo.log.Warn("remote announcements unavailable, reading local copy", err)
		return repo.local.QueryAllNotices(ctx)
	}

	if len(left) > 0 {
		localNotices, err := repo.local.QueryAllNotices(ctx)
		if err != nil {
			return nil, err
		}
		notices = mergeNotices(notices, localNotices, left)
	}
	if err = repo.local.ReplaceNotices(ctx, notices); err != nil {
		repo.log.Error("refreshing local announcements", err)
	}
	return notices, nil
}

func mergeNotices(remote, local []notice.Notice, pending map[string]bool) []notice.Notice {
	merged := make([]notice.Notice, 0, len(remote)+len(pending))
	for _, n := range remote {
		if !pending[n.ID] {
			merged = append(merged, n)
		}
	}
	for _, n := range local {
		if pending[n.ID] {
			merged = append(merged, n)
		}
	}
	notice.SortNewest(merged)
	return merged
}

func (repo *NoticeRepository) GetNoticeByID(ctx context.Context, id string) (notice.Notice, error) {
	if p, err := isPending(ctx, repo.pending, id); err != nil || p {
		return repo.local.GetNoticeByID(ctx, id)
	}
	n, err := repo.remote.GetNoticeByID(ctx, id)
	if err != nil {
		if !errors.Is(err, notice.ErrNotFound) {
			repo.log.Warn("remote announcement unavailable, reading local copy", map[string]interface{}{"id": id}, err)
		}
		return repo.local.GetNoticeByID(ctx, id)
	}
	return n, nil
}

func (repo *NoticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (core.SyncStatus, error) {
	if _, err := repo.local.CreateNotice(ctx, n); err != nil {
		return core.SyncStatus{}, err
	}
	_, err := repo.remote.CreateNotice(ctx, n)
	if err != nil {
		repo.log.Warn("announcement saved locally only", map[string]interface{}{"id": n.ID}, err)
	}
	track(ctx, repo.pending, repo.log, n.ID, err)
	return status(err), nil
}

func (repo *NoticeRepository) UpdateNotice(ctx context.Context, n notice.Notice) (core.SyncStatus, error) {
	_, err := repo.local.UpdateNotice(ctx, n)
	if errors.Is(err, notice.ErrNotFound) {
		_, err = repo.local.CreateNotice(ctx, n)
	}
	if err != nil {
		return core.SyncStatus{}, err
	}

	if err = repo.upsertRemote(ctx, n); err != nil {
		repo.log.Warn("announcement updated locally only", map[string]interface{}{"id": n.ID}, err)
	}
	track(ctx, repo.pending, repo.log, n.ID, err)
	return status(err), nil
}

func (repo *NoticeRepository) DeleteNotice(ctx context.Context, id string) (core.SyncStatus, error) {
	if _, err := repo.local.DeleteNotice(ctx, id); err != nil {
		return core.SyncStatus{}, err
	}
	_, err := repo.remote.DeleteNotice(ctx, id)
	if err != nil {
		repo.log.Warn("announcement deleted locally only", map[string]interface{}{"id": id}, err)
	}
	track(ctx, repo.pending, repo.log, id, err)
	return status(err), nil
}
