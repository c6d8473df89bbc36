package remotedb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/notice"
)

type noticeRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	Type      string `db:"type"`
	Date      string `db:"date"`
	CreatedAt int64  `db:"created_at"`
}

const noticeColumns = `id, title, message, type, date, created_at`

type noticeRepository struct {
	db *sqlx.DB
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *sqlx.DB) *noticeRepository {
	return &noticeRepository{db: db}
}

func (repo noticeRepository) boil(n notice.Notice) noticeRow {
	return noticeRow{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Date:      n.Date,
		CreatedAt: n.CreatedAt,
	}
}

func (repo noticeRepository) unboil(row noticeRow) notice.Notice {
	return notice.Notice{
		ID:        row.ID,
		Title:     row.Title,
		Message:   row.Message,
		Type:      notice.Category(row.Type),
		Date:      row.Date,
		CreatedAt: row.CreatedAt,
	}
}

func (repo noticeRepository) QueryAllNotices(ctx context.Context) ([]notice.Notice, error) {
	var rows []noticeRow
	q := `SELECT ` + noticeColumns + ` FROM announcements ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}
	notices := make([]notice.Notice, 0, len(rows))
	for _, row := range rows {
		notices = append(notices, repo.unboil(row))
	}
	return notices, nil
}

func (repo noticeRepository) GetNoticeByID(ctx context.Context, id string) (notice.Notice, error) {
	var row noticeRow
	q := `SELECT ` + noticeColumns + ` FROM announcements WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notice.Notice{}, notice.ErrNotFound
		}
		return notice.Notice{}, errors.Wrap(err, "selecting announcement")
	}
	return repo.unboil(row), nil
}

func (repo noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (core.SyncStatus, error) {
	q := `INSERT INTO announcements (` + noticeColumns + `)
		VALUES (:id, :title, :message, :type, :date, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(n)); err != nil {
		return core.SyncStatus{}, errors.Wrap(err, "inserting announcement")
	}
	return remoteOK, nil
}

func (repo noticeRepository) UpdateNotice(ctx context.Context, n notice.Notice) (core.SyncStatus, error) {
	q := `UPDATE announcements SET title = :title, message = :message, type = :type, date = :date WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(n))
	if err != nil {
		return core.SyncStatus{}, errors.Wrap(err, "updating announcement")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return core.SyncStatus{}, notice.ErrNotFound
	}
	return remoteOK, nil
}

func (repo noticeRepository) DeleteNotice(ctx context.Context, id string) (core.SyncStatus, error) {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id); err != nil {
		return core.SyncStatus{}, errors.Wrap(err, "deleting announcement")
	}
	return remoteOK, nil
}
