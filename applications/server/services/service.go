package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/donmikel/partstore/applications/server"
	"github.com/donmikel/partstore/applications/server/domain"
	"github.com/donmikel/partstore/applications/server/interfaces"
)

const (
	defaultChunksPerUpload     = 5
	defaultMinChunkSizeInBytes = 10 * 1024 // 10 kB
)

type Options struct {
	ChunksPerUpload     int
	MinChunkSizeInBytes int64
}

type service struct {
	metaStorage         interfaces.UploadMetaStorage
	storageManager      interfaces.StorageManager
	chunksPerUpload     int
	minChunkSizeInBytes int64
	logger              log.Logger

	// generation keeps chunk paths of a replacement apart from the upload
	// it replaces.
	generation atomic.Uint64
}

func NewService(metaStorage interfaces.UploadMetaStorage, storageManager interfaces.StorageManager, opts Options, logger log.Logger) server.UploadService {
	s := &service{
		metaStorage:         metaStorage,
		storageManager:      storageManager,
		chunksPerUpload:     opts.ChunksPerUpload,
		minChunkSizeInBytes: opts.MinChunkSizeInBytes,
		logger:              logger,
	}
	if s.chunksPerUpload <= 0 {
		s.chunksPerUpload = defaultChunksPerUpload
	}
	if s.minChunkSizeInBytes <= 0 {
		s.minChunkSizeInBytes = defaultMinChunkSizeInBytes
	}
	s.generation.Store(uint64(time.Now().UnixNano()))
	return s
}

// Store splits the upload into chunks spread over the storages with most
// free space. A previous upload with the same name stays readable until the
// new one is complete and is removed after that; if storing fails the
// previous upload is kept.
func (s *service) Store(ctx context.Context, upload domain.Upload) (domain.UploadMeta, error) {
	chunkSizes := s.splitSizes(upload.Meta.ContentLength, s.chunksPerUpload)

	storages, err := s.storageManager.GetStorages(ctx, len(chunkSizes))
	if err != nil {
		return domain.UploadMeta{}, fmt.Errorf("can't get storages error: %w", err)
	}

	meta := upload.Meta
	meta.Chunks = s.planChunks(storages, meta, chunkSizes, s.generation.Add(1))

	if err = s.metaStorage.Begin(ctx, meta); err != nil {
		return domain.UploadMeta{}, fmt.Errorf("can't begin upload meta: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, chunk := range meta.Chunks {
		group.Go(func() error {
			storage, err := s.storageManager.GetStorage(gctx, chunk.StorageURL)
			if err != nil {
				return fmt.Errorf("can't get storage error: %w", err)
			}

			body := io.NewSectionReader(upload.Body, chunk.Offset, chunk.ContentLength)
			if err = storage.UploadChunk(gctx, chunk.Path, body); err != nil {
				return fmt.Errorf("can't upload chunk %s: %w", chunk.Path, err)
			}
			return nil
		})
	}

	if err = group.Wait(); err != nil {
		s.discard(ctx, meta)
		return domain.UploadMeta{}, err
	}

	replaced, ok, err := s.metaStorage.Complete(ctx, meta.Name)
	if err != nil {
		s.discard(ctx, meta)
		return domain.UploadMeta{}, fmt.Errorf("can't complete upload meta: %w", err)
	}
	if ok {
		for _, chunk := range replaced.Chunks {
			if err = s.deleteChunk(ctx, chunk); err != nil {
				level.Warn(s.logger).Log("msg", "can't delete replaced chunk", "path", chunk.Path, "err", err)
			}
		}
	}

	level.Info(s.logger).Log("msg", "upload stored",
		"name", meta.Name,
		"field", meta.Field,
		"size", humanize.IBytes(uint64(meta.ContentLength)),
		"chunks", len(meta.Chunks),
		"replaced", ok,
	)

	return meta, nil
}

// discard removes whatever part of a failed upload reached the storages and
// drops its pending metadata. A completed upload of the same name is left
// alone.
func (s *service) discard(ctx context.Context, meta domain.UploadMeta) {
	for _, chunk := range meta.Chunks {
		if err := s.deleteChunk(ctx, chunk); err != nil {
			level.Warn(s.logger).Log("msg", "can't discard chunk", "path", chunk.Path, "err", err)
		}
	}
	if err := s.metaStorage.Abort(ctx, meta.Name); err != nil {
		level.Warn(s.logger).Log("msg", "can't discard upload meta", "name", meta.Name, "err", err)
	}
}

func (s *service) deleteChunk(ctx context.Context, chunk domain.Chunk) error {
	storage, err := s.storageManager.GetStorage(ctx, chunk.StorageURL)
	if err != nil {
		return fmt.Errorf("can't get storage error: %w", err)
	}
	return storage.DeleteChunk(ctx, chunk.Path)
}

func (s *service) Delete(ctx context.Context, name string) error {
	meta, err := s.metaStorage.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("can't get upload metadata, error: %w", err)
	}

	for _, chunk := range meta.Chunks {
		if err = s.deleteChunk(ctx, chunk); err != nil {
			return fmt.Errorf("can't delete chunk %s: %w", chunk.Path, err)
		}
	}

	if err = s.metaStorage.Delete(ctx, name); err != nil {
		return fmt.Errorf("can't delete upload metadata: %w", err)
	}

	level.Info(s.logger).Log("msg", "upload deleted", "name", name)

	return nil
}

// chunkReader reads the chunks of an upload in order, opening each one only
// when the previous one is exhausted.
type chunkReader struct {
	next           int
	storageManager interfaces.StorageManager
	current        io.ReadCloser
	meta           domain.UploadMeta
	ctx            context.Context
}

func (c *chunkReader) openNext() error {
	if c.next >= len(c.meta.Chunks) {
		return io.EOF
	}

	chunk := c.meta.Chunks[c.next]
	storage, err := c.storageManager.GetStorage(c.ctx, chunk.StorageURL)
	if err != nil {
		return fmt.Errorf("can't get storage by URL, error: %w", err)
	}

	body, err := storage.ReadChunk(c.ctx, chunk.Path)
	if err != nil {
		return fmt.Errorf("can't read chunk from storage, error: %w", err)
	}

	c.current = body
	c.next++

	return nil
}

func (c *chunkReader) Read(p []byte) (int, error) {
	for {
		if c.current == nil {
			if err := c.openNext(); err != nil {
				return 0, err
			}
		}

		n, err := c.current.Read(p)
		if errors.Is(err, io.EOF) {
			if cerr := c.current.Close(); cerr != nil {
				return n, fmt.Errorf("can't close chunk, error: %w", cerr)
			}
			c.current = nil
			err = nil
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (c *chunkReader) Close() error {
	if c.current != nil {
		return c.current.Close()
	}

	return nil
}

func (s *service) Open(ctx context.Context, name string) (domain.Download, error) {
	meta, err := s.metaStorage.Get(ctx, name)
	if err != nil {
		return domain.Download{}, fmt.Errorf("can't get upload metadata, error: %w", err)
	}

	return domain.Download{
		Meta: meta,
		Body: &chunkReader{
			storageManager: s.storageManager,
			meta:           meta,
			ctx:            ctx,
		},
	}, nil
}

func (s *service) planChunks(storages []interfaces.Storage, meta domain.UploadMeta, chunkSizes []int64, generation uint64) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(chunkSizes))

	var offset int64
	for i, size := range chunkSizes {
		chunks = append(chunks, domain.Chunk{
			StorageURL:    storages[i].GetStorageURL(),
			Path:          fmt.Sprintf("%s.%x.%d", meta.Name, generation, i),
			Offset:        offset,
			ContentLength: size,
		})
		offset += size
	}

	return chunks
}

// splitSizes divides total into at most splitCount chunks, none smaller than
// the minimum chunk size except the last.
func (s *service) splitSizes(total int64, splitCount int) []int64 {
	result := make([]int64, 0, splitCount)

	remain := total
	for remain > 0 {
		chunkSize := remain / int64(splitCount)
		if remain%int64(splitCount) != 0 {
			chunkSize++
		}

		if chunkSize <= s.minChunkSizeInBytes {
			chunkSize = min(remain, s.minChunkSizeInBytes)
		}

		result = append(result, chunkSize)

		remain -= chunkSize
		splitCount--
	}

	return result
}
