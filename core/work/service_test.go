package work_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/work"
	logsvc "github.com/trezcool/classboard/services/logger"
	"github.com/trezcool/classboard/storage/kv"
	localdb "github.com/trezcool/classboard/storage/local"
)

func newService(t *testing.T) *work.Service {
	t.Helper()
	db := localdb.New(kv.NewMemory(), "kv8", logsvc.NewNopLogger())
	return work.NewService(
		localdb.NewWorkRepository(db),
		localdb.NewCompletionRepository(db),
		work.EmbeddedFiles{MaxDimension: 1600, JPEGQuality: 80},
	)
}

func TestValidateNewItem(t *testing.T) {
	validate, translator := core.NewValidator()
	work.InitValidators(validate, translator)

	ok := work.NewItem{Subject: " Math ", Type: "Homework", Date: "2024-03-01", Description: "   "}
	require.NoError(t, ok.Validate(validate))
	assert.Equal(t, work.SubjectMath, ok.Subject)
	assert.Empty(t, ok.Description)

	tests := []struct {
		name string
		ni   work.NewItem
	}{
		{name: "no subject", ni: work.NewItem{Type: "Homework", Date: "2024-03-01"}},
		{name: "unknown subject", ni: work.NewItem{Subject: "Chess", Type: "Homework", Date: "2024-03-01"}},
		{name: "unknown type", ni: work.NewItem{Subject: "Math", Type: "Quiz", Date: "2024-03-01"}},
		{name: "bad date", ni: work.NewItem{Subject: "Math", Type: "Homework", Date: "01/03/2024"}},
		{name: "bad upload", ni: work.NewItem{Subject: "Math", Type: "Homework", Date: "2024-03-01",
			Uploads: []work.Upload{{Name: "x.gif", MimeType: "image/gif", Data: []byte("GIF89a")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.ni.Validate(validate))
		})
	}
}

func TestService_CreateThenQuery(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	it, status, err := svc.Create(ctx, work.NewItem{Subject: work.SubjectMath, Type: work.TypeHomework, Date: "2024-03-01"})
	require.NoError(t, err)
	assert.False(t, status.RemoteOK, "no remote configured")
	assert.NotEmpty(t, status.Error)
	assert.NotEmpty(t, it.ID)
	assert.NotZero(t, it.CreatedAt)

	items, err := svc.Query(ctx, work.Filter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it, items[0])

	items, err = svc.Query(ctx, work.Filter{Subject: string(work.SubjectScience)})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.Query(ctx, work.Filter{Subject: work.All})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestService_UniqueIDs(t *testing.T) {
	nowMillis := core.NowMillis
	core.NowMillis = func() int64 { return 1709251200000 }
	defer func() { core.NowMillis = nowMillis }()

	ctx := context.Background()
	svc := newService(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		it, _, err := svc.Create(ctx, work.NewItem{Subject: work.SubjectArt, Type: work.TypeClasswork, Date: "2024-03-01"})
		require.NoError(t, err)
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}

	items, err := svc.Query(ctx, work.Filter{})
	require.NoError(t, err)
	assert.Len(t, items, 50)
}

func TestService_Attachments(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	it, _, err := svc.Create(ctx, work.NewItem{
		Subject: work.SubjectScience,
		Type:    work.TypeHomework,
		Date:    "2024-03-01",
		Uploads: []work.Upload{{Name: "sheet.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4\n")}},
	})
	require.NoError(t, err)
	require.Len(t, it.Files, 1)
	assert.Equal(t, "sheet.pdf", it.Files[0].Name)
	assert.Equal(t, "application/pdf", it.Files[0].MimeType)
	assert.Equal(t, work.DataURL("application/pdf", []byte("%PDF-1.4\n")), it.Files[0].URL)
}

func TestService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	keep, _, err := svc.Create(ctx, work.NewItem{Subject: work.SubjectHindi, Type: work.TypeHomework, Date: "2024-03-01"})
	require.NoError(t, err)
	gone, _, err := svc.Create(ctx, work.NewItem{Subject: work.SubjectSports, Type: work.TypeClasswork, Date: "2024-03-02"})
	require.NoError(t, err)

	desc := "Run 2 laps"
	updated, _, err := svc.Update(ctx, gone.ID, work.UpdateItem{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, gone.CreatedAt, updated.CreatedAt)

	_, _, err = svc.Update(ctx, "nope", work.UpdateItem{Description: &desc})
	assert.ErrorIs(t, err, work.ErrNotFound)

	_, err = svc.Delete(ctx, gone.ID)
	require.NoError(t, err)
	items, err := svc.Query(ctx, work.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []work.Item{keep}, items)

	_, err = svc.GetByID(ctx, gone.ID)
	assert.ErrorIs(t, err, work.ErrNotFound)
}

func TestService_QueryGrouped(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, date := range []string{"2024-03-01", "2024-04-10", "2024-03-20"} {
		_, _, err := svc.Create(ctx, work.NewItem{Subject: work.SubjectMath, Type: work.TypeHomework, Date: date})
		require.NoError(t, err)
	}

	groups, err := svc.QueryGrouped(ctx, work.Filter{Sort: work.SortNewest})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-04", groups[0].Month)
	assert.Len(t, groups[0].Items, 1)
	assert.Equal(t, "2024-03", groups[1].Month)
	assert.Len(t, groups[1].Items, 2)
}

func TestService_Completion(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	// ids are not checked against existing items
	require.NoError(t, svc.SetCompleted(ctx, "1700000000000_zzzzzz", true))
	ids, err := svc.CompletedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1700000000000_zzzzzz"}, ids)

	require.NoError(t, svc.SetCompleted(ctx, "1700000000000_zzzzzz", false))
	ids, err = svc.CompletedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = svc.SetCompleted(ctx, "  ", true)
	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}
