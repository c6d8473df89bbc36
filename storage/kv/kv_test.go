package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "kv8-work-items")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, "kv8-work-items", []byte(`[]`)))
	require.NoError(t, b.Set(ctx, "kv8-work-items", []byte(`[{"id":"1"}]`)))
	got, err := b.Get(ctx, "kv8-work-items")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))

	// values are copied in and out
	got[0] = 'X'
	again, err := b.Get(ctx, "kv8-work-items")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(again))

	_, err = b.Get(ctx, "kv8-announcements")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	b := NewMemory()
	testBackend(t, b)
	assert.ErrorIs(t, Watch(context.Background(), b, []string{"k"}, func(string) {}), ErrWatchUnsupported)
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "classboard.db")
	b, err := OpenBolt(path, "kv8")
	require.NoError(t, err)
	testBackend(t, b)
	require.NoError(t, b.Close())

	// values survive a reopen
	b, err = OpenBolt(path, "kv8")
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Get(context.Background(), "kv8-work-items")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))
	assert.ErrorIs(t, Watch(context.Background(), b, []string{"k"}, func(string) {}), ErrWatchUnsupported)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenFile(dir)
	require.NoError(t, err)
	testBackend(t, b)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
	assert.Equal(t, "kv8-work-items.json", entries[0].Name())
}

func TestFile_Watch(t *testing.T) {
	dir := t.TempDir()
	mine, err := OpenFile(dir)
	require.NoError(t, err)
	theirs, err := OpenFile(dir)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- mine.Watch(ctx, []string{"kv8-work-items"}, func(key string) {
			mu.Lock()
			seen = append(seen, key)
			mu.Unlock()
		})
	}()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	bg := context.Background()
	// our own writes and unwatched keys are not reported
	require.NoError(t, mine.Set(bg, "kv8-work-items", []byte(`[]`)))
	require.NoError(t, theirs.Set(bg, "kv8-announcements", []byte(`[]`)))
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, seen)
	mu.Unlock()

	n := 0
	require.Eventually(t, func() bool {
		n++
		_ = theirs.Set(bg, "kv8-work-items", []byte(fmt.Sprintf(`[{"id":"%d"}]`, n)))
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 200*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "kv8-work-items", seen[0])
	mu.Unlock()
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	ns := fmt.Sprintf("test%d", time.Now().UnixNano())
	b, err := OpenRedis(ctx, addr, ns)
	require.NoError(t, err)
	defer b.Close()

	key := ns + "-work-items"
	_, err = b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, b.Set(ctx, key, []byte(`[]`)))
	got, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}
