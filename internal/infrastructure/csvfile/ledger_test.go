package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), "stored.csv"))
}

func TestInit_Idempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Init(ctx))
	require.NoError(t, l.Init(ctx))

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	assert.Equal(t, "email,username\n", string(data))
}

func TestRecordIfAbsent_DeduplicatesByHandle(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	recorded, err := l.RecordIfAbsent(ctx, "a@x.com", "@bob")
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = l.RecordIfAbsent(ctx, "a@x.com", "@bob")
	require.NoError(t, err)
	assert.False(t, recorded)

	// A different email for the same handle still loses: first write wins.
	recorded, err = l.RecordIfAbsent(ctx, "other@x.com", "@bob")
	require.NoError(t, err)
	assert.False(t, recorded)

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	assert.Equal(t, "email,username\na@x.com,@bob\n", string(data))
}

func TestRecordIfAbsent_CreatesFileOnFirstUse(t *testing.T) {
	l := newTestLedger(t)

	recorded, err := l.RecordIfAbsent(context.Background(), "a@x.com", "@alice")
	require.NoError(t, err)
	assert.True(t, recorded)

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	assert.Equal(t, "email,username\na@x.com,@alice\n", string(data))
}

func TestRecordIfAbsent_ConcurrentWriters(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.RecordIfAbsent(ctx, fmt.Sprintf("u%d@x.com", i), fmt.Sprintf("@user%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestCount_EmptyBeforeInit(t *testing.T) {
	l := newTestLedger(t)
	n, err := l.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
