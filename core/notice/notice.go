// Package notice handles class announcements.
package notice

import (
	"context"
	"encoding/json"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

type Category string

const (
	CategoryInfo   Category = "info"
	CategoryUrgent Category = "urgent"
)

var (
	// errors
	ErrNotFound = errors.New("announcement not found")

	categoryTag  = "category"
	categoryText = "{0} must be info or urgent"
)

func (c Category) Valid() bool {
	return c == CategoryInfo || c == CategoryUrgent
}

type Notice struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Type      Category `json:"type"`
	Date      string   `json:"date"` // YYYY-MM-DD
	CreatedAt int64    `json:"created_at"`
}

func (n Notice) IsUrgent() bool { return n.Type == CategoryUrgent }

type NewNotice struct {
	Title   string   `json:"title" validate:"required"`
	Message string   `json:"message" validate:"required"`
	Type    Category `json:"type" validate:"omitempty,category"`
	Date    string   `json:"date" validate:"required,calendardate"`
}

func (nn *NewNotice) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Date = core.CleanString(nn.Date)
	if nn.Type == "" {
		nn.Type = CategoryInfo
	}
	if core.CleanString(nn.Message) == "" {
		nn.Message = ""
	}
	return validate.Struct(nn)
}

// UpdateNotice defines what may be changed on an existing Notice. Nil fields are left untouched.
type UpdateNotice struct {
	Title   *string   `json:"title" validate:"omitempty,min=1"`
	Message *string   `json:"message" validate:"omitempty,min=1"`
	Type    *Category `json:"type" validate:"omitempty,category"`
	Date    *string   `json:"date" validate:"omitempty,calendardate"`
}

func (un *UpdateNotice) Validate(validate *validator.Validate) error {
	if un.Title != nil {
		t := core.CleanString(*un.Title)
		un.Title = &t
	}
	if un.Message != nil && core.CleanString(*un.Message) == "" {
		empty := ""
		un.Message = &empty
	}
	return validate.Struct(un)
}

func (un UpdateNotice) Apply(n Notice) Notice {
	if un.Title != nil {
		n.Title = *un.Title
	}
	if un.Message != nil {
		n.Message = *un.Message
	}
	if un.Type != nil {
		n.Type = *un.Type
	}
	if un.Date != nil {
		n.Date = core.CleanString(*un.Date)
	}
	return n
}

// InitValidators registers the announcement validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

// SortNewest sorts notices by creation time, newest first.
func SortNewest(notices []Notice) {
	sort.SliceStable(notices, func(i, j int) bool { return notices[i].CreatedAt > notices[j].CreatedAt })
}

// Decode decodes a stored JSON array of notices.
func Decode(raw []byte) ([]Notice, error) {
	notices := make([]Notice, 0)
	if len(raw) == 0 {
		return notices, nil
	}
	if err := json.Unmarshal(raw, &notices); err != nil {
		return nil, err
	}
	return notices, nil
}

type (
	Repository interface {
		// QueryAllNotices returns every announcement, newest first.
		QueryAllNotices(ctx context.Context) ([]Notice, error)
		GetNoticeByID(ctx context.Context, id string) (Notice, error)
		CreateNotice(ctx context.Context, n Notice) (core.SyncStatus, error)
		UpdateNotice(ctx context.Context, n Notice) (core.SyncStatus, error)
		DeleteNotice(ctx context.Context, id string) (core.SyncStatus, error)
	}

	Service struct {
		repo Repository
		now  func() int64
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: core.NowMillis}
}

func (svc *Service) Create(ctx context.Context, nn NewNotice) (Notice, core.SyncStatus, error) {
	now := svc.now()
	n := Notice{
		ID:        core.NewID(now),
		Title:     nn.Title,
		Message:   nn.Message,
		Type:      nn.Type,
		Date:      nn.Date,
		CreatedAt: now,
	}
	status, err := svc.repo.CreateNotice(ctx, n)
	if err != nil {
		return Notice{}, core.SyncStatus{}, errors.Wrap(err, "creating announcement")
	}
	return n, status, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Notice, error) {
	return svc.repo.QueryAllNotices(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Notice, error) {
	return svc.repo.GetNoticeByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, un UpdateNotice) (Notice, core.SyncStatus, error) {
	n, err := svc.repo.GetNoticeByID(ctx, id)
	if err != nil {
		return Notice{}, core.SyncStatus{}, err
	}
	n = un.Apply(n)
	status, err := svc.repo.UpdateNotice(ctx, n)
	if err != nil {
		return Notice{}, core.SyncStatus{}, errors.Wrap(err, "updating announcement")
	}
	return n, status, nil
}

func (svc *Service) Delete(ctx context.Context, id string) (core.SyncStatus, error) {
	return svc.repo.DeleteNotice(ctx, id)
}
