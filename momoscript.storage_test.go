package momoscript

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCharIDJSON       = `{"星野": "hoshino", "白子": "shiroko", "ghost": "nobody"}`
	testAssetMappingJSON = `{"hoshino": {"avatar": "avatars/hoshino.png"}, "shiroko": {"avatar": "avatars/shiroko.png"}}`
)

func samplePack(name string) *StoredPack {
	return &StoredPack{
		Name:             name,
		Root:             filepath.Join("data", PackDirName, name),
		CharIDJSON:       []byte(testCharIDJSON),
		AssetMappingJSON: []byte(testAssetMappingJSON),
		Metadata:         map[string]string{"version": "1.0"},
	}
}

// storageFactories returns every backend that runs without external services.
func storageFactories(t *testing.T) map[string]func() PackStorage {
	return map[string]func() PackStorage{
		StorageDriverNameMemory: func() PackStorage {
			return NewMemoryStorage()
		},
		StorageDriverNameFilesystem: func() PackStorage {
			s, err := NewFilesystemStorage(t.TempDir())
			require.NoError(t, err)
			return s
		},
		StorageDriverNameSQLite: func() PackStorage {
			s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "packs.sqlite"))
			require.NoError(t, err)
			return s
		},
		"cached-memory": func() PackStorage {
			return NewCachedStorage(NewMemoryStorage(), DefaultCacheConfig())
		},
	}
}

func TestPackStorage_Backends(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("save and get", func(t *testing.T) {
				s := factory()
				defer s.Close()

				pack := samplePack("ba")
				require.NoError(t, s.Save(ctx, pack))
				assert.False(t, pack.CreatedAt.IsZero())
				assert.False(t, pack.UpdatedAt.IsZero())

				got, err := s.Get(ctx, "ba")
				require.NoError(t, err)
				assert.Equal(t, "ba", got.Name)
				assert.JSONEq(t, testCharIDJSON, string(got.CharIDJSON))
				assert.JSONEq(t, testAssetMappingJSON, string(got.AssetMappingJSON))
				assert.Equal(t, "1.0", got.Metadata["version"])
				assert.NotEmpty(t, got.Root)
			})

			t.Run("get missing", func(t *testing.T) {
				s := factory()
				defer s.Close()

				_, err := s.Get(ctx, "missing")
				require.Error(t, err)
				assert.True(t, IsPackNotFound(err))

				var customErr *cuserr.CustomError
				require.True(t, errors.As(err, &customErr))
				pack, ok := customErr.GetMetadata(MetaKeyPack)
				assert.True(t, ok)
				assert.Equal(t, "missing", pack)
			})

			t.Run("save replaces", func(t *testing.T) {
				s := factory()
				defer s.Close()

				require.NoError(t, s.Save(ctx, samplePack("ba")))

				replacement := samplePack("ba")
				replacement.AssetMappingJSON = []byte(`{"hoshino": {"avatar": "new/hoshino.png"}}`)
				replacement.Metadata = nil
				require.NoError(t, s.Save(ctx, replacement))

				got, err := s.Get(ctx, "ba")
				require.NoError(t, err)
				assert.JSONEq(t, `{"hoshino": {"avatar": "new/hoshino.png"}}`, string(got.AssetMappingJSON))
				assert.Empty(t, got.Metadata)
			})

			t.Run("invalid name", func(t *testing.T) {
				s := factory()
				defer s.Close()

				pack := samplePack("../evil")
				err := s.Save(ctx, pack)
				require.Error(t, err)
				assert.Contains(t, err.Error(), ErrMsgInvalidPackName)
			})

			t.Run("invalid pack", func(t *testing.T) {
				s := factory()
				defer s.Close()

				pack := samplePack("ba")
				pack.AssetMappingJSON = []byte(`{"hoshino": {"avatar": "../../etc/passwd"}}`)
				err := s.Save(ctx, pack)
				require.Error(t, err)
				assert.Contains(t, err.Error(), ErrMsgPackInvalid)
			})

			t.Run("nil pack", func(t *testing.T) {
				s := factory()
				defer s.Close()

				err := s.Save(ctx, nil)
				require.Error(t, err)
				assert.Contains(t, err.Error(), ErrMsgPackNil)
			})

			t.Run("exists and delete", func(t *testing.T) {
				s := factory()
				defer s.Close()

				require.NoError(t, s.Save(ctx, samplePack("ba")))

				exists, err := s.Exists(ctx, "ba")
				require.NoError(t, err)
				assert.True(t, exists)

				require.NoError(t, s.Delete(ctx, "ba"))

				exists, err = s.Exists(ctx, "ba")
				require.NoError(t, err)
				assert.False(t, exists)

				err = s.Delete(ctx, "ba")
				require.Error(t, err)
				assert.True(t, IsPackNotFound(err))
			})

			t.Run("list", func(t *testing.T) {
				s := factory()
				defer s.Close()

				for _, n := range []string{"ba_event", "ba", "other"} {
					require.NoError(t, s.Save(ctx, samplePack(n)))
				}

				all, err := s.List(ctx, nil)
				require.NoError(t, err)
				require.Len(t, all, 3)
				assert.Equal(t, "ba", all[0].Name)
				assert.Equal(t, "ba_event", all[1].Name)
				assert.Equal(t, "other", all[2].Name)

				prefixed, err := s.List(ctx, &PackQuery{NamePrefix: "ba"})
				require.NoError(t, err)
				assert.Len(t, prefixed, 2)

				paged, err := s.List(ctx, &PackQuery{Limit: 1, Offset: 1})
				require.NoError(t, err)
				require.Len(t, paged, 1)
				assert.Equal(t, "ba_event", paged[0].Name)
			})

			t.Run("closed", func(t *testing.T) {
				s := factory()
				require.NoError(t, s.Close())

				_, err := s.Get(ctx, "ba")
				require.Error(t, err)
				assert.Contains(t, err.Error(), ErrMsgStorageClosed)
			})

			t.Run("cancelled context", func(t *testing.T) {
				s := factory()
				defer s.Close()

				cctx, cancel := context.WithCancel(ctx)
				cancel()

				_, err := s.Get(cctx, "ba")
				assert.ErrorIs(t, err, context.Canceled)
			})
		})
	}
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	require.NoError(t, s.Save(ctx, samplePack("ba")))

	got, err := s.Get(ctx, "ba")
	require.NoError(t, err)
	got.Metadata["version"] = "changed"
	got.CharIDJSON[0] = '['

	again, err := s.Get(ctx, "ba")
	require.NoError(t, err)
	assert.Equal(t, "1.0", again.Metadata["version"])
	assert.JSONEq(t, testCharIDJSON, string(again.CharIDJSON))
}

func TestMemoryStorage_KeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	first := samplePack("ba")
	require.NoError(t, s.Save(ctx, first))

	second := samplePack("ba")
	require.NoError(t, s.Save(ctx, second))

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestStorageRegistry(t *testing.T) {
	t.Run("builtin drivers", func(t *testing.T) {
		drivers := ListStorageDrivers()
		assert.Contains(t, drivers, StorageDriverNameMemory)
		assert.Contains(t, drivers, StorageDriverNameFilesystem)
		assert.Contains(t, drivers, StorageDriverNamePostgres)
		assert.Contains(t, drivers, StorageDriverNameSQLite)
	})

	t.Run("open memory", func(t *testing.T) {
		s, err := OpenStorage(StorageDriverNameMemory, "")
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &MemoryStorage{}, s)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenStorage("nope", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgStorageDriverNotFound)

		var storageErr *StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, "nope", storageErr.Name)
	})

	t.Run("nil driver panics", func(t *testing.T) {
		assert.Panics(t, func() {
			RegisterStorageDriver("nil-driver", nil)
		})
	})

	t.Run("duplicate driver panics", func(t *testing.T) {
		assert.Panics(t, func() {
			RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
		})
	})
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Message: ErrMsgWritePackFile, Name: "ba", Cause: cause}

	assert.Equal(t, ErrMsgWritePackFile+": ba: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrMsgStorageClosed, NewStorageClosedError().Error())
}

func TestLoadDirectory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	pack := samplePack("ba")
	pack.Root = filepath.Join("data", PackDirName, "ba")
	require.NoError(t, s.Save(ctx, pack))

	t.Run("loads directory", func(t *testing.T) {
		dir, err := LoadDirectory(ctx, s, "ba", "", nil)
		require.NoError(t, err)
		require.NotNil(t, dir)

		assert.Equal(t, "ba", dir.Name)
		assert.Equal(t, pack.Root, dir.Root)
		assert.Equal(t, "data", dir.BaseRoot)

		id, ok := dir.LookupID("星野")
		assert.True(t, ok)
		assert.Equal(t, "hoshino", id)

		avatar, ok := dir.LookupAvatar("shiroko")
		assert.True(t, ok)
		assert.Equal(t, "avatars/shiroko.png", avatar)
	})

	t.Run("explicit base root", func(t *testing.T) {
		dir, err := LoadDirectory(ctx, s, "ba", "elsewhere", nil)
		require.NoError(t, err)
		assert.Equal(t, "elsewhere", dir.BaseRoot)
	})

	t.Run("missing pack", func(t *testing.T) {
		dir, err := LoadDirectory(ctx, s, "missing", "", nil)
		require.Error(t, err)
		assert.Nil(t, dir)
		assert.True(t, IsPackNotFound(err))
	})
}
