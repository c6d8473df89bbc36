package work

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

var (
	// errors
	ErrNotFound = errors.New("work item not found")
)

type (
	// Repository persists work items. Implementations are selected once at startup:
	// local-only, or remote-backed with local fallback.
	Repository interface {
		// QueryAllItems returns every item, newest first.
		QueryAllItems(ctx context.Context) ([]Item, error)
		GetItemByID(ctx context.Context, id string) (Item, error)
		CreateItem(ctx context.Context, it Item) (core.SyncStatus, error)
		UpdateItem(ctx context.Context, it Item) (core.SyncStatus, error)
		DeleteItem(ctx context.Context, id string) (core.SyncStatus, error)
	}

	// CompletionRepository persists the completion markers of this installation. It is never synchronized.
	CompletionRepository interface {
		CompletedIDs(ctx context.Context) ([]string, error)
		SetCompleted(ctx context.Context, id string, completed bool) error
	}

	Service struct {
		repo      Repository
		completed CompletionRepository
		files     FileStore
		now       func() int64
	}
)

func NewService(repo Repository, completed CompletionRepository, files FileStore) *Service {
	return &Service{
		repo:      repo,
		completed: completed,
		files:     files,
		now:       core.NowMillis,
	}
}

// Create stores a new item built from ni. Uploads are turned into attachments through the FileStore.
func (svc *Service) Create(ctx context.Context, ni NewItem) (Item, core.SyncStatus, error) {
	now := svc.now()
	it := Item{
		ID:          core.NewID(now),
		Subject:     ni.Subject,
		Type:        ni.Type,
		Date:        ni.Date,
		Description: ni.Description,
		CreatedAt:   now,
	}
	for i, u := range ni.Uploads {
		f, err := svc.files.StoreFile(ctx, it, i, u)
		if err != nil {
			return Item{}, core.SyncStatus{}, errors.Wrapf(err, "storing attachment %q", u.Name)
		}
		it.Files = append(it.Files, f)
	}

	status, err := svc.repo.CreateItem(ctx, it)
	if err != nil {
		return Item{}, core.SyncStatus{}, errors.Wrap(err, "creating work item")
	}
	return it, status, nil
}

// Query returns the items matching the filter, sorted as it asks.
func (svc *Service) Query(ctx context.Context, filter Filter) ([]Item, error) {
	items, err := svc.repo.QueryAllItems(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying work items")
	}
	return Apply(items, filter), nil
}

// QueryGrouped returns the items matching the filter bucketed by month.
func (svc *Service) QueryGrouped(ctx context.Context, filter Filter) ([]MonthGroup, error) {
	items, err := svc.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return GroupByMonth(items, filter.Sort), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItemByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateItem) (Item, core.SyncStatus, error) {
	it, err := svc.repo.GetItemByID(ctx, id)
	if err != nil {
		return Item{}, core.SyncStatus{}, err
	}
	it = uu.Apply(it)
	status, err := svc.repo.UpdateItem(ctx, it)
	if err != nil {
		return Item{}, core.SyncStatus{}, errors.Wrap(err, "updating work item")
	}
	return it, status, nil
}

func (svc *Service) Delete(ctx context.Context, id string) (core.SyncStatus, error) {
	return svc.repo.DeleteItem(ctx, id)
}

// CompletedIDs returns the ids marked as done. Ids of deleted items may linger.
func (svc *Service) CompletedIDs(ctx context.Context) ([]string, error) {
	return svc.completed.CompletedIDs(ctx)
}

// SetCompleted marks or unmarks id as done. The id is not checked against existing items.
func (svc *Service) SetCompleted(ctx context.Context, id string, completed bool) error {
	if core.CleanString(id) == "" {
		return core.NewFieldError("id", "this field is required")
	}
	return svc.completed.SetCompleted(ctx, id, completed)
}
