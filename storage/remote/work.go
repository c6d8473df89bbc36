package remotedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/work"
)

var remoteOK = core.SyncStatus{RemoteOK: true}

// fileList is the jsonb `files` column.
type fileList []work.File

func (fl fileList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	// text, not bytes: lib/pq would send []byte as bytea
	return string(raw), nil
}

func (fl *fileList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*fl = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into files", src)
	}
	var files []work.File
	if err := json.Unmarshal(raw, &files); err != nil {
		return errors.Wrap(err, "decoding files")
	}
	if len(files) == 0 {
		files = nil
	}
	*fl = files
	return nil
}

type workRow struct {
	ID          string      `db:"id"`
	Subject     string      `db:"subject"`
	Type        string      `db:"type"`
	Date        string      `db:"date"`
	Description null.String `db:"description"`
	Files       fileList    `db:"files"`
	CreatedAt   int64       `db:"created_at"`
}

const workColumns = `id, subject, type, date, description, files, created_at`

type workRepository struct {
	db *sqlx.DB
}

var _ work.Repository = (*workRepository)(nil) // interface compliance check

func NewWorkRepository(db *sqlx.DB) *workRepository {
	return &workRepository{db: db}
}

func (repo workRepository) boil(it work.Item) workRow {
	return workRow{
		ID:          it.ID,
		Subject:     string(it.Subject),
		Type:        string(it.Type),
		Date:        it.Date,
		Description: null.NewString(it.Description, it.Description != ""),
		Files:       fileList(it.Files),
		CreatedAt:   it.CreatedAt,
	}
}

func (repo workRepository) unboil(row workRow) work.Item {
	return work.Item{
		ID:          row.ID,
		Subject:     work.Subject(row.Subject),
		Type:        work.Type(row.Type),
		Date:        row.Date,
		Description: row.Description.String,
		Files:       []work.File(row.Files),
		CreatedAt:   row.CreatedAt,
	}
}

// trapNoRowsErr maps "no rows" to work.ErrNotFound
func (repo workRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return work.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo workRepository) QueryAllItems(ctx context.Context) ([]work.Item, error) {
	var rows []workRow
	q := `SELECT ` + workColumns + ` FROM work_items ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting work items")
	}
	items := make([]work.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, repo.unboil(row))
	}
	return items, nil
}

func (repo workRepository) GetItemByID(ctx context.Context, id string) (work.Item, error) {
	var row workRow
	q := `SELECT ` + workColumns + ` FROM work_items WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return work.Item{}, repo.trapNoRowsErr(err, "selecting work item")
	}
	return repo.unboil(row), nil
}

func (repo workRepository) CreateItem(ctx context.Context, it work.Item) (core.SyncStatus, error) {
	q := `INSERT INTO work_items (` + workColumns + `)
		VALUES (:id, :subject, :type, :date, :description, :files, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(it)); err != nil {
		return core.SyncStatus{}, errors.Wrap(err, "inserting work item")
	}
	return remoteOK, nil
}

// UpdateItem overwrites the stored item. The last writer wins.
func (repo workRepository) UpdateItem(ctx context.Context, it work.Item) (core.SyncStatus, error) {
	q := `UPDATE work_items
		SET subject = :subject, type = :type, date = :date, description = :description, files = :files
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(it))
	if err != nil {
		return core.SyncStatus{}, errors.Wrap(err, "updating work item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.SyncStatus{}, work.ErrNotFound
	}
	return remoteOK, nil
}

func (repo workRepository) DeleteItem(ctx context.Context, id string) (core.SyncStatus, error) {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM work_items WHERE id = $1`, id); err != nil {
		return core.SyncStatus{}, errors.Wrap(err, "deleting work item")
	}
	return remoteOK, nil
}
