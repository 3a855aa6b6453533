package inmemory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donmikel/partstore/applications/server/domain"
)

func TestStorageChunkLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewStorage("storage_0", 10, log.NewNopLogger())

	require.NoError(t, st.UploadChunk(ctx, "a.0", strings.NewReader("12345")))
	free, err := st.GetFreeSpace()
	require.NoError(t, err)
	assert.Equal(t, int64(5), free)

	assert.Error(t, st.UploadChunk(ctx, "b.0", strings.NewReader("123456")))

	body, err := st.ReadChunk(ctx, "a.0")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	require.NoError(t, st.DeleteChunk(ctx, "a.0"))
	free, err = st.GetFreeSpace()
	require.NoError(t, err)
	assert.Equal(t, int64(10), free)

	_, err = st.ReadChunk(ctx, "a.0")
	assert.Error(t, err)
}

func TestStorageManagerPrefersFreeSpace(t *testing.T) {
	ctx := context.Background()
	logger := log.NewNopLogger()
	manager := NewStorageManager(logger)

	full := NewStorage("full", 10, logger)
	require.NoError(t, full.UploadChunk(ctx, "x", strings.NewReader("123456789")))
	require.NoError(t, manager.AddStorage(ctx, "full", full))
	require.NoError(t, manager.AddStorage(ctx, "empty", NewStorage("empty", 10, logger)))
	assert.Error(t, manager.AddStorage(ctx, "empty", NewStorage("empty", 10, logger)))

	got, err := manager.GetStorages(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "empty", got[0].GetStorageURL())
	assert.Equal(t, "full", got[1].GetStorageURL())
	assert.Equal(t, "empty", got[2].GetStorageURL())

	_, err = manager.GetStorage(ctx, "absent")
	assert.Error(t, err)
}

func TestUploadMetaStorage(t *testing.T) {
	ctx := context.Background()
	s := NewUploadMetaStorage()

	require.NoError(t, s.Begin(ctx, domain.UploadMeta{Name: "a"}))
	assert.Error(t, s.Begin(ctx, domain.UploadMeta{Name: "a"}))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, replaced, err := s.Complete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, replaced)
	meta, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", meta.Name)

	require.NoError(t, s.Delete(ctx, "a"))
	_, _, err = s.Complete(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadMetaStorageReplace(t *testing.T) {
	ctx := context.Background()
	s := NewUploadMetaStorage()

	first := domain.UploadMeta{Name: "a", ContentLength: 1}
	require.NoError(t, s.Begin(ctx, first))
	_, _, err := s.Complete(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Begin(ctx, domain.UploadMeta{Name: "a", ContentLength: 2}))
	meta, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first, meta)

	require.NoError(t, s.Abort(ctx, "a"))
	meta, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first, meta)

	second := domain.UploadMeta{Name: "a", ContentLength: 3}
	require.NoError(t, s.Begin(ctx, second))
	previous, replaced, err := s.Complete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, first, previous)
	meta, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, second, meta)
}
