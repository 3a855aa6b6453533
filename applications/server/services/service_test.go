package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donmikel/partstore/applications/server/adapters/inmemory"
	"github.com/donmikel/partstore/applications/server/domain"
	"github.com/donmikel/partstore/applications/server/interfaces"
	"github.com/donmikel/partstore/applications/server/multipart"
)

func newTestService(t *testing.T, storageCount int, freeSpace int64) (*service, interfaces.StorageManager) {
	t.Helper()
	ctx := context.Background()
	logger := log.NewNopLogger()

	manager := inmemory.NewStorageManager(logger)
	for i := 0; i < storageCount; i++ {
		url := fmt.Sprintf("storage_%d", i)
		require.NoError(t, manager.AddStorage(ctx, url, inmemory.NewStorage(url, freeSpace, logger)))
	}

	svc := NewService(inmemory.NewUploadMetaStorage(), manager, Options{}, logger)
	return svc.(*service), manager
}

func TestSplitSizes(t *testing.T) {
	s := &service{minChunkSizeInBytes: 10}

	tests := []struct {
		total int64
		split int
		want  []int64
	}{
		{total: 0, split: 5, want: []int64{}},
		{total: 7, split: 5, want: []int64{7}},
		{total: 100, split: 5, want: []int64{20, 20, 20, 20, 20}},
		{total: 101, split: 5, want: []int64{21, 20, 20, 20, 20}},
		{total: 25, split: 5, want: []int64{10, 10, 5}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.splitSizes(tt.total, tt.split), "total %d", tt.total)
	}
}

func TestStoreAndOpen(t *testing.T) {
	svc, _ := newTestService(t, 3, 1<<20)
	ctx := context.Background()

	content := bytes.Repeat([]byte("partstore"), 10_000)
	meta, err := svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "a.bin", Field: "file", ContentLength: int64(len(content))},
		Body: bytes.NewReader(content),
	})
	require.NoError(t, err)
	assert.Len(t, meta.Chunks, defaultChunksPerUpload)

	var offset int64
	for _, chunk := range meta.Chunks {
		assert.Equal(t, offset, chunk.Offset)
		offset += chunk.ContentLength
	}
	assert.Equal(t, int64(len(content)), offset)

	download, err := svc.Open(ctx, "a.bin")
	require.NoError(t, err)
	defer download.Body.Close()

	got, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got))
}

func TestStoreFromMultipartPart(t *testing.T) {
	svc, _ := newTestService(t, 2, 1<<20)
	ctx := context.Background()

	content := strings.Repeat("0123456789abcdef", 4096)
	body, err := multipart.Fake(&multipart.Config{SpillThreshold: 1024, TempDir: t.TempDir()},
		multipart.FakePart{Name: "file", Filename: "hex.txt", Body: []byte(content)},
	)
	require.NoError(t, err)
	defer body.Close()

	part, err := body.Single("file")
	require.NoError(t, err)

	_, err = svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "hex.txt", ContentLength: part.Size()},
		Body: part,
	})
	require.NoError(t, err)

	download, err := svc.Open(ctx, "hex.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestStoreReplacesPrevious(t *testing.T) {
	svc, manager := newTestService(t, 1, 1<<20)
	ctx := context.Background()

	for _, content := range []string{strings.Repeat("x", 50_000), "short"} {
		_, err := svc.Store(ctx, domain.Upload{
			Meta: domain.UploadMeta{Name: "same", ContentLength: int64(len(content))},
			Body: strings.NewReader(content),
		})
		require.NoError(t, err)
	}

	download, err := svc.Open(ctx, "same")
	require.NoError(t, err)
	got, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "short", string(got))

	storage, err := manager.GetStorage(ctx, "storage_0")
	require.NoError(t, err)
	free, err := storage.GetFreeSpace()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20-len("short")), free)
}

func TestStoreFailedReplacementKeepsPrevious(t *testing.T) {
	svc, manager := newTestService(t, 2, 20_000)
	ctx := context.Background()

	_, err := svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "doc", ContentLength: 5},
		Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)

	content := bytes.Repeat([]byte("z"), 100_000)
	_, err = svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "doc", ContentLength: int64(len(content))},
		Body: bytes.NewReader(content),
	})
	require.Error(t, err)

	download, err := svc.Open(ctx, "doc")
	require.NoError(t, err)
	got, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, int64(5), download.Meta.ContentLength)

	var free int64
	for _, url := range []string{"storage_0", "storage_1"} {
		storage, err := manager.GetStorage(ctx, url)
		require.NoError(t, err)
		n, err := storage.GetFreeSpace()
		require.NoError(t, err)
		free += n
	}
	assert.Equal(t, int64(40_000-len("hello")), free)
}

func TestStoreFailureDiscardsChunks(t *testing.T) {
	svc, manager := newTestService(t, 2, 20_000)
	ctx := context.Background()

	content := bytes.Repeat([]byte("y"), 100_000)
	_, err := svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "big", ContentLength: int64(len(content))},
		Body: bytes.NewReader(content),
	})
	require.Error(t, err)

	_, err = svc.Open(ctx, "big")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	for _, url := range []string{"storage_0", "storage_1"} {
		storage, err := manager.GetStorage(ctx, url)
		require.NoError(t, err)
		free, err := storage.GetFreeSpace()
		require.NoError(t, err)
		assert.Equal(t, int64(20_000), free, url)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, 2, 1<<20)
	ctx := context.Background()

	_, err := svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "gone", ContentLength: 3},
		Body: strings.NewReader("abc"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "gone"))

	_, err = svc.Open(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "gone"), domain.ErrNotFound)
}

func TestStoreEmptyUpload(t *testing.T) {
	svc, _ := newTestService(t, 1, 1<<20)
	ctx := context.Background()

	meta, err := svc.Store(ctx, domain.Upload{
		Meta: domain.UploadMeta{Name: "empty"},
		Body: strings.NewReader(""),
	})
	require.NoError(t, err)
	assert.Empty(t, meta.Chunks)

	download, err := svc.Open(ctx, "empty")
	require.NoError(t, err)
	got, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Empty(t, got)
}
