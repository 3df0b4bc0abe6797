package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/duo/internal/models"
	"github.com/xhad/duo/internal/types"
	"github.com/xhad/duo/pkg/store"
)

var (
	_ types.Ledger = (*store.MemoryStore)(nil)
	_ types.Ledger = (*store.PostgresStore)(nil)
)

func exerciseLedger(t *testing.T, ledger types.Ledger) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	found, err := ledger.Lookup(ctx, "missing", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, ledger.Record(ctx, models.IndexedDocument{
		StoreID: "files/old", Filename: "a.pdf", SHA256: "abc", Size: 10, CreatedAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, ledger.Record(ctx, models.IndexedDocument{
		StoreID: "files/new", Filename: "a.pdf", SHA256: "abc", Size: 10, CreatedAt: now.Add(-time.Minute),
	}))

	found, err = ledger.Lookup(ctx, "abc", now.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "files/new", found.StoreID)
	assert.Equal(t, int64(10), found.Size)

	found, err = ledger.Lookup(ctx, "abc", now)
	require.NoError(t, err)
	assert.Nil(t, found, "entries older than the window are ignored")
}

func TestMemoryStore(t *testing.T) {
	ledger := store.NewMemory()
	defer ledger.Close()

	exerciseLedger(t, ledger)
}

func TestMemoryStoreDefaultsCreatedAt(t *testing.T) {
	ledger := store.NewMemory()
	require.NoError(t, ledger.Record(context.Background(), models.IndexedDocument{StoreID: "files/x", SHA256: "h"}))

	found, err := ledger.Lookup(context.Background(), "h", time.Now().Add(-time.Second))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.CreatedAt.IsZero())
}

// Runs against a real database when DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	conn := os.Getenv("DATABASE_URL")
	if conn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("test_indexed_documents_%d", time.Now().UnixNano())

	ledger, err := store.NewPostgres(ctx, store.PostgresConfig{ConnString: conn, TableName: table})
	require.NoError(t, err)
	defer ledger.Close()

	exerciseLedger(t, ledger)
}

func TestNewPostgresRequiresConnString(t *testing.T) {
	_, err := store.NewPostgres(context.Background(), store.PostgresConfig{})
	assert.Error(t, err)
}
