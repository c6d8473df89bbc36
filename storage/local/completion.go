package localdb

import (
	"context"
	"encoding/json"

	"github.com/trezcool/classboard/core/work"
)

// idSet is a JSON array of distinct ids stored under one key.
type idSet struct {
	db  *DB
	key string
}

func (s idSet) query(ctx context.Context) ([]string, error) {
	raw, err := s.db.load(ctx, s.key)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	if len(raw) == 0 {
		return ids, nil
	}
	if err = json.Unmarshal(raw, &ids); err != nil {
		s.db.malformed(s.key, err)
		return []string{}, nil
	}
	return ids, nil
}

func (s idSet) ids(ctx context.Context) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.query(ctx)
}

// set adds or removes id. Adding an id twice stores it once.
func (s idSet) set(ctx context.Context, id string, present bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ids, err := s.query(ctx)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(ids)+1)
	var found bool
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if found == present {
		return nil
	}
	if present {
		kept = append(kept, id)
	}
	raw, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return s.db.store(ctx, s.key, raw)
}

// CompletionRepository keeps the ids a student marked as done. It is never synchronized.
type CompletionRepository struct {
	set idSet
}

var _ work.CompletionRepository = (*CompletionRepository)(nil)

func NewCompletionRepository(db *DB) *CompletionRepository {
	return &CompletionRepository{set: idSet{db: db, key: db.keys.Completed}}
}

func (repo *CompletionRepository) CompletedIDs(ctx context.Context) ([]string, error) {
	return repo.set.ids(ctx)
}

// SetCompleted adds or removes id. Marking an id twice stores it once.
func (repo *CompletionRepository) SetCompleted(ctx context.Context, id string, completed bool) error {
	return repo.set.set(ctx, id, completed)
}

// PendingRepository keeps the ids of records whose last local write has not reached the remote store.
type PendingRepository struct {
	set idSet
}

func NewPendingWorkRepository(db *DB) *PendingRepository {
	return &PendingRepository{set: idSet{db: db, key: db.keys.PendingWork}}
}

func NewPendingNoticeRepository(db *DB) *PendingRepository {
	return &PendingRepository{set: idSet{db: db, key: db.keys.PendingNotices}}
}

func (repo *PendingRepository) PendingIDs(ctx context.Context) ([]string, error) {
	return repo.set.ids(ctx)
}

func (repo *PendingRepository) SetPending(ctx context.Context, id string, pending bool) error {
	return repo.set.set(ctx, id, pending)
}
