package localdb

import (
	"context"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/work"
)

type WorkRepository struct {
	db *DB
}

var _ work.Repository = (*WorkRepository)(nil)

// NewWorkRepository returns the local-only work.Repository. Mutations report core.LocalOnly.
func NewWorkRepository(db *DB) *WorkRepository {
	return &WorkRepository{db: db}
}

func (repo *WorkRepository) query(ctx context.Context) ([]work.Item, error) {
	raw, err := repo.db.load(ctx, repo.db.keys.Work)
	if err != nil {
		return nil, err
	}
	items, err := work.DecodeItems(raw)
	if err != nil {
		repo.db.malformed(repo.db.keys.Work, err)
		return []work.Item{}, nil
	}
	return items, nil
}

func (repo *WorkRepository) save(ctx context.Context, items []work.Item) error {
	raw, err := work.EncodeItems(items)
	if err != nil {
		return err
	}
	return repo.db.store(ctx, repo.db.keys.Work, raw)
}

func (repo *WorkRepository) QueryAllItems(ctx context.Context) ([]work.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	items, err := repo.query(ctx)
	if err != nil {
		return nil, err
	}
	return work.SortItems(items, work.SortNewest), nil
}

func (repo *WorkRepository) GetItemByID(ctx context.Context, id string) (work.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	items, err := repo.query(ctx)
	if err != nil {
		return work.Item{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return work.Item{}, work.ErrNotFound
}

func (repo *WorkRepository) CreateItem(ctx context.Context, it work.Item) (core.SyncStatus, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	items, err := repo.query(ctx)
	if err != nil {
		return core.SyncStatus{}, err
	}
	items = append([]work.Item{it}, items...)
	return core.LocalOnly, repo.save(ctx, items)
}

func (repo *WorkRepository) UpdateItem(ctx context.Context, it work.Item) (core.SyncStatus, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	items, err := repo.query(ctx)
	if err != nil {
		return core.SyncStatus{}, err
	}
	found := false
	for i := range items {
		if items[i].ID == it.ID {
			items[i] = it
			found = true
			break
		}
	}
	if !found {
		return core.SyncStatus{}, work.ErrNotFound
	}
	return core.LocalOnly, repo.save(ctx, items)
}

// DeleteItem removes the item with id, if any. Every other item is kept as is.
func (repo *WorkRepository) DeleteItem(ctx context.Context, id string) (core.SyncStatus, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	items, err := repo.query(ctx)
	if err != nil {
		return core.SyncStatus{}, err
	}
	kept := make([]work.Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return core.LocalOnly, repo.save(ctx, kept)
}

// ReplaceItems overwrites the whole local collection, eg. with a fresh remote listing.
func (repo *WorkRepository) ReplaceItems(ctx context.Context, items []work.Item) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.save(ctx, items)
}
