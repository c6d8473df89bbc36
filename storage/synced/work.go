// Package synced combines the shared remote store with the local one: reads prefer the remote
// and fall back to the local copy, writes land locally first and are then pushed to the remote.
// Writes the remote missed stay pending and are pushed again before the next remote read, and
// until then the local version is the one listed.
package synced

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/work"
)

// LocalWork is the local work item store, which can also be refreshed wholesale.
type LocalWork interface {
	work.Repository
	ReplaceItems(ctx context.Context, items []work.Item) error
}

// Pending keeps the ids whose last local write has not reached the remote store.
type Pending interface {
	PendingIDs(ctx context.Context) ([]string, error)
	SetPending(ctx context.Context, id string, pending bool) error
}

type WorkRepository struct {
	local   LocalWork
	pending Pending
	remote  work.Repository
	log     core.Logger
}

var _ work.Repository = (*WorkRepository)(nil)

func NewWorkRepository(local LocalWork, pending Pending, remote work.Repository, log core.Logger) *WorkRepository {
	return &WorkRepository{local: local, pending: pending, remote: remote, log: log}
}

func status(err error) core.SyncStatus {
	if err != nil {
		return core.SyncStatus{RemoteOK: false, Error: err.Error()}
	}
	return core.SyncStatus{RemoteOK: true}
}

// track records whether the write of id reached the remote.
func track(ctx context.Context, pending Pending, log core.Logger, id string, remoteErr error) {
	if err := pending.SetPending(ctx, id, remoteErr != nil); err != nil {
		log.Error("tracking pending write", map[string]interface{}{"id": id}, err)
	}
}

func isPending(ctx context.Context, pending Pending, id string) (bool, error) {
	ids, err := pending.PendingIDs(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range ids {
		if p == id {
			return true, nil
		}
	}
	return false, nil
}

// push sends the pending local writes to the remote, stopping at the first failure.
// It returns the ids still pending.
func (repo *WorkRepository) push(ctx context.Context) (map[string]bool, error) {
	ids, err := repo.pending.PendingIDs(ctx)
	if err != nil {
		return nil, err
	}
	left := make(map[string]bool)
	for i, id := range ids {
		it, err := repo.local.GetItemByID(ctx, id)
		switch {
		case err == nil:
			err = repo.upsertRemote(ctx, it)
		case errors.Is(err, work.ErrNotFound):
			_, err = repo.remote.DeleteItem(ctx, id)
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

func (repo *WorkRepository) upsertRemote(ctx context.Context, it work.Item) error {
	_, err := repo.remote.UpdateItem(ctx, it)
	if errors.Is(err, work.ErrNotFound) {
		_, err = repo.remote.CreateItem(ctx, it)
	}
	return err
}

func (repo *WorkRepository) QueryAllItems(ctx context.Context) ([]work.Item, error) {
	left, err := repo.push(ctx)
	if err != nil {
		repo.log.Error("reading pending work items, reading local copy", err)
		return repo.local.QueryAllItems(ctx)
	}
	items, err := repo.remote.QueryAllItems(ctx)
	if err != nil {
		repo.log.Warn("remote work items unavailable, reading local copy", err)
		return repo.local.QueryAllItems(ctx)
	}

	if len(left) > 0 {
		localItems, err := repo.local.QueryAllItems(ctx)
		if err != nil {
			return nil, err
		}
		items = mergeItems(items, localItems, left)
	}
	if err = repo.local.ReplaceItems(ctx, items); err != nil {
		repo.log.Error("refreshing local work items", err)
	}
	return items, nil
}

// mergeItems lists the remote items, except that the local version wins for pending ids:
// pending records missing locally were deleted here and are left out.
func mergeItems(remote, local []work.Item, pending map[string]bool) []work.Item {
	merged := make([]work.Item, 0, len(remote)+len(pending))
	for _, it := range remote {
		if !pending[it.ID] {
			merged = append(merged, it)
		}
	}
	for _, it := range local {
		if pending[it.ID] {
			merged = append(merged, it)
		}
	}
	return work.SortItems(merged, work.SortNewest)
}

func (repo *WorkRepository) GetItemByID(ctx context.Context, id string) (work.Item, error) {
	if p, err := isPending(ctx, repo.pending, id); err != nil || p {
		return repo.local.GetItemByID(ctx, id)
	}
	it, err := repo.remote.GetItemByID(ctx, id)
	if err != nil {
		if !errors.Is(err, work.ErrNotFound) {
			repo.log.Warn("remote work item unavailable, reading local copy", map[string]interface{}{"id": id}, err)
		}
		return repo.local.GetItemByID(ctx, id)
	}
	return it, nil
}

func (repo *WorkRepository) CreateItem(ctx context.Context, it work.Item) (core.SyncStatus, error) {
	if _, err := repo.local.CreateItem(ctx, it); err != nil {
		return core.SyncStatus{}, err
	}
	_, err := repo.remote.CreateItem(ctx, it)
	if err != nil {
		repo.log.Warn("work item saved locally only", map[string]interface{}{"id": it.ID}, err)
	}
	track(ctx, repo.pending, repo.log, it.ID, err)
	return status(err), nil
}

// UpdateItem writes it on both sides, creating it where it is missing.
func (repo *WorkRepository) UpdateItem(ctx context.Context, it work.Item) (core.SyncStatus, error) {
	_, err := repo.local.UpdateItem(ctx, it)
	if errors.Is(err, work.ErrNotFound) {
		_, err = repo.local.CreateItem(ctx, it)
	}
	if err != nil {
		return core.SyncStatus{}, err
	}

	if err = repo.upsertRemote(ctx, it); err != nil {
		repo.log.Warn("work item updated locally only", map[string]interface{}{"id": it.ID}, err)
	}
	track(ctx, repo.pending, repo.log, it.ID, err)
	return status(err), nil
}

func (repo *WorkRepository) DeleteItem(ctx context.Context, id string) (core.SyncStatus, error) {
	if _, err := repo.local.DeleteItem(ctx, id); err != nil {
		return core.SyncStatus{}, err
	}
	_, err := repo.remote.DeleteItem(ctx, id)
	if err != nil {
		repo.log.Warn("work item deleted locally only", map[string]interface{}{"id": id}, err)
	}
	track(ctx, repo.pending, repo.log, id, err)
	return status(err), nil
}
