//go:build integration

package momoscript

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer creates an ephemeral PostgreSQL container for testing.
func setupPostgresContainer(t *testing.T) (*PostgresStorage, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("momoscript_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	storage, err := NewPostgresStorage(PostgresConfig{
		ConnectionString: connStr,
		AutoMigrate:      true,
		QueryTimeout:     30 * time.Second,
	})
	require.NoError(t, err, "failed to create postgres storage")

	cleanup := func() {
		if storage != nil {
			_ = storage.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	}

	return storage, cleanup
}

func TestPostgres_E2E_PackCRUD(t *testing.T) {
	storage, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("Save and Get", func(t *testing.T) {
		pack := samplePack("ba")
		require.NoError(t, storage.Save(ctx, pack))
		assert.False(t, pack.CreatedAt.IsZero())

		got, err := storage.Get(ctx, "ba")
		require.NoError(t, err)
		assert.Equal(t, pack.Root, got.Root)
		assert.JSONEq(t, testCharIDJSON, string(got.CharIDJSON))
		assert.JSONEq(t, testAssetMappingJSON, string(got.AssetMappingJSON))
		assert.Equal(t, "1.0", got.Metadata["version"])
	})

	t.Run("Replace keeps CreatedAt", func(t *testing.T) {
		first, err := storage.Get(ctx, "ba")
		require.NoError(t, err)

		replacement := samplePack("ba")
		replacement.Metadata = nil
		require.NoError(t, storage.Save(ctx, replacement))
		assert.True(t, first.CreatedAt.Equal(replacement.CreatedAt))

		got, err := storage.Get(ctx, "ba")
		require.NoError(t, err)
		assert.Nil(t, got.Metadata)
	})

	t.Run("List with prefix", func(t *testing.T) {
		require.NoError(t, storage.Save(ctx, samplePack("ba_event")))
		require.NoError(t, storage.Save(ctx, samplePack("other")))

		packs, err := storage.List(ctx, &PackQuery{NamePrefix: "ba"})
		require.NoError(t, err)
		require.Len(t, packs, 2)
		assert.Equal(t, "ba", packs[0].Name)
		assert.Equal(t, "ba_event", packs[1].Name)

		paged, err := storage.List(ctx, &PackQuery{Limit: 1, Offset: 2})
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, "other", paged[0].Name)
	})

	t.Run("Load directory", func(t *testing.T) {
		dir, err := LoadDirectory(ctx, storage, "ba", "", nil)
		require.NoError(t, err)
		require.NotNil(t, dir)
		id, ok := dir.LookupID("星野")
		assert.True(t, ok)
		assert.Equal(t, "hoshino", id)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, storage.Delete(ctx, "other"))

		exists, err := storage.Exists(ctx, "other")
		require.NoError(t, err)
		assert.False(t, exists)

		err = storage.Delete(ctx, "other")
		assert.True(t, IsPackNotFound(err))
	})
}

func TestPostgres_E2E_Migrations(t *testing.T) {
	storage, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	version, err := storage.CurrentSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(storage.getMigrations()), version)

	require.NoError(t, storage.RunMigrations(ctx), "migrations must be idempotent")
}

func TestPostgres_E2E_ConcurrentSaves(t *testing.T) {
	storage, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- storage.Save(ctx, samplePack(fmt.Sprintf("pack_%d", i%3)))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	packs, err := storage.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, packs, 3)
}

func TestPostgres_E2E_Close(t *testing.T) {
	storage, cleanup := setupPostgresContainer(t)
	defer cleanup()

	require.NoError(t, storage.Close())
	err := storage.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgPostgresAlreadyClosed)

	_, err = storage.Get(context.Background(), "ba")
	assert.Contains(t, err.Error(), ErrMsgStorageClosed)
}
