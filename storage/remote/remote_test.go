package remotedb

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/notice"
	"github.com/trezcool/classboard/core/work"
	logsvc "github.com/trezcool/classboard/services/logger"
)

func TestDSN(t *testing.T) {
	_, err := DSN(core.RemoteConfig{URL: "postgres://db.example.com/board"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = DSN(core.RemoteConfig{Token: "t"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = DSN(core.RemoteConfig{URL: "https://db.example.com", Token: "t"})
	assert.Error(t, err)

	dsn, err := DSN(core.RemoteConfig{URL: "postgres://db.example.com:5432/board", Token: "s3cr3t"})
	require.NoError(t, err)
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "anon", u.User.Username())
	pwd, _ := u.User.Password()
	assert.Equal(t, "s3cr3t", pwd)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "utc", u.Query().Get("timezone"))

	dsn, err = DSN(core.RemoteConfig{URL: "postgres://db.example.com/board", User: "board", Token: "t", DisableTLS: true})
	require.NoError(t, err)
	u, err = url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "board", u.User.Username())
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestFileList(t *testing.T) {
	v, err := fileList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	files := fileList{{Name: "a.png", URL: "https://x/a.png", MimeType: "image/png"}}
	v, err = files.Value()
	require.NoError(t, err)

	var back fileList
	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, files, back)

	require.NoError(t, back.Scan("[]"))
	assert.Nil(t, back)
	assert.Error(t, back.Scan(42))
}

func TestWorkRepository_Boil(t *testing.T) {
	repo := workRepository{}
	it := work.Item{ID: "1_aaaaaa", Subject: work.SubjectMath, Type: work.TypeHomework, Date: "2024-03-01", CreatedAt: 1}
	row := repo.boil(it)
	assert.False(t, row.Description.Valid, "empty description is stored as null")
	assert.Equal(t, it, repo.unboil(row))

	it.Description = "p. 12"
	row = repo.boil(it)
	assert.True(t, row.Description.Valid)
	assert.Equal(t, it, repo.unboil(row))
}

func TestObjectKey(t *testing.T) {
	it := work.Item{Subject: work.SubjectSocialScience, Type: work.TypeHomework, Date: "2024-03-07", CreatedAt: 1709800000000}
	assert.Equal(t,
		"2024/03/07/Social_Science/Homework/1709800000000_2_my_map_final_.png",
		ObjectKey(it, 2, "my map (final).png"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":     "report.pdf",
		"../../etc/pwd":  ".._.._etc_pwd",
		"  spaced out  ": "spaced_out",
		"":               "file",
		"...":            "file",
		"ñandú.jpg":      "_and_.jpg",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestB2Files_StoreFile(t *testing.T) {
	ctx := context.Background()
	it := work.Item{Subject: work.SubjectArt, Type: work.TypeClasswork, Date: "2024-03-07", CreatedAt: 5}
	up := work.Upload{Name: "sheet.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4\n")}
	fallback := work.EmbeddedFiles{MaxDimension: 100, JPEGQuality: 80}

	var gotKey, gotType string
	var gotBody []byte
	bf := &B2Files{
		upload: func(_ context.Context, key, contentType string, r io.Reader) (string, error) {
			gotKey, gotType = key, contentType
			gotBody, _ = io.ReadAll(r)
			return "https://f000.example.com/file/board/" + key, nil
		},
		fallback: fallback,
		log:      logsvc.NewNopLogger(),
	}
	f, err := bf.StoreFile(ctx, it, 0, up)
	require.NoError(t, err)
	assert.Equal(t, "2024/03/07/Art/Classwork/5_0_sheet.pdf", gotKey)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, up.Data, gotBody)
	assert.Equal(t, work.File{Name: "sheet.pdf", URL: "https://f000.example.com/file/board/" + gotKey, MimeType: "application/pdf"}, f)

	bf.upload = func(context.Context, string, string, io.Reader) (string, error) {
		return "", errors.New("bucket unreachable")
	}
	f, err = bf.StoreFile(ctx, it, 0, up)
	require.NoError(t, err)
	assert.Equal(t, work.DataURL("application/pdf", up.Data), f.URL, "falls back to embedding")
}

// TestRepositories runs against a real database when TEST_REMOTE_URL is set, eg.
// postgres://postgres@localhost:5432/classboard_test with TEST_REMOTE_TOKEN as password.
func TestRepositories(t *testing.T) {
	rawURL := os.Getenv("TEST_REMOTE_URL")
	if rawURL == "" {
		t.Skip("TEST_REMOTE_URL not set")
	}
	ctx := context.Background()
	conf := core.RemoteConfig{URL: rawURL, User: os.Getenv("TEST_REMOTE_USER"), Token: os.Getenv("TEST_REMOTE_TOKEN"), DisableTLS: true}
	db, err := Open(ctx, conf)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))
	_, err = db.Exec(`TRUNCATE work_items, announcements`)
	require.NoError(t, err)

	works := NewWorkRepository(db)
	it := work.Item{ID: core.NewID(10), Subject: work.SubjectMath, Type: work.TypeHomework, Date: "2024-03-01", CreatedAt: 10,
		Files: []work.File{{Name: "a.png", URL: "https://x/a.png", MimeType: "image/png"}}}
	status, err := works.CreateItem(ctx, it)
	require.NoError(t, err)
	assert.True(t, status.RemoteOK)

	got, err := works.GetItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, got)

	it.Description = "updated"
	_, err = works.UpdateItem(ctx, it)
	require.NoError(t, err)
	items, err := works.QueryAllItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []work.Item{it}, items)

	_, err = works.UpdateItem(ctx, work.Item{ID: "nope"})
	assert.ErrorIs(t, err, work.ErrNotFound)
	_, err = works.DeleteItem(ctx, it.ID)
	require.NoError(t, err)
	_, err = works.GetItemByID(ctx, it.ID)
	assert.ErrorIs(t, err, work.ErrNotFound)

	notices := NewNoticeRepository(db)
	n := notice.Notice{ID: core.NewID(20), Title: "Trip", Message: "Lunch", Type: notice.CategoryInfo, Date: "2024-03-01", CreatedAt: 20}
	_, err = notices.CreateNotice(ctx, n)
	require.NoError(t, err)
	all, err := notices.QueryAllNotices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []notice.Notice{n}, all)
	_, err = notices.DeleteNotice(ctx, n.ID)
	require.NoError(t, err)
	_, err = notices.GetNoticeByID(ctx, n.ID)
	assert.ErrorIs(t, err, notice.ErrNotFound)
}
