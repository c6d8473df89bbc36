package localdb

import (
	"context"
	"encoding/json"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/notice"
)

type NoticeRepository struct {
	db *DB
}

var _ notice.Repository = (*NoticeRepository)(nil)

func NewNoticeRepository(db *DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func (repo *NoticeRepository) query(ctx context.Context) ([]notice.Notice, error) {
	raw, err := repo.db.load(ctx, repo.db.keys.Notices)
	if err != nil {
		return nil, err
	}
	notices, err := notice.Decode(raw)
	if err != nil {
		repo.db.malformed(repo.db.keys.Notices, err)
		return []notice.Notice{}, nil
	}
	return notices, nil
}

func (repo *NoticeRepository) save(ctx context.Context, notices []notice.Notice) error {
	raw, err := json.Marshal(notices)
	if err != nil {
		return err
	}
	return repo.db.store(ctx, repo.db.keys.Notices, raw)
}

func (repo *NoticeRepository) QueryAllNotices(ctx context.Context) ([]notice.Notice, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	notices, err := repo.query(ctx)
	if err != nil {
		return nil, err
	}
	notice.SortNewest(notices)
	return notices, nil
}

func (repo *NoticeRepository) GetNoticeByID(ctx context.Context, id string) (notice.Notice, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	notices, err := repo.query(ctx)
	if err != nil {
		return notice.Notice{}, err
	}
	for _, n := range notices {
		if n.ID == id {
			return n, nil
		}
	}
	return notice.Notice{}, notice.ErrNotFound
}

func (repo *NoticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (core.SyncStatus, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	notices, err := repo.query(ctx)
	if err != nil {
		return core.SyncStatus{}, err
	}
	notices = append([]notice.Notice{n}, notices...)
	return core.LocalOnly, repo.save(ctx, notices)
}

func (repo *NoticeRepository) UpdateNotice(ctx context.Context, n notice.Notice) (core.SyncStatus, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	notices, err := repo.query(ctx)
	if err != nil {
		return core.SyncStatus{}, err
	}
	found := false
	for i := range notices {
		if notices[i].ID == n.ID {
			notices[i] = n
			found = true
			break
		}
	}
	if !found {
		return core.SyncStatus{}, notice.ErrNotFound
	}
	return core.LocalOnly, repo.save(ctx, notices)
}

func (repo *NoticeRepository) DeleteNotice(ctx context.Context, id string) (core.SyncStatus, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	notices, err := repo.query(ctx)
	if err != nil {
		return core.SyncStatus{}, err
	}
	kept := make([]notice.Notice, 0, len(notices))
	for _, n := range notices {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	return core.LocalOnly, repo.save(ctx, kept)
}

func (repo *NoticeRepository) ReplaceNotices(ctx context.Context, notices []notice.Notice) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.save(ctx, notices)
}
