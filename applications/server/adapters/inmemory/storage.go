package inmemory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/donmikel/partstore/applications/server/interfaces"
)

type inMemoryStorage struct {
	dataByPath map[string][]byte
	freeSpace  int64
	url        string
	log        log.Logger
	mutex      sync.RWMutex
}

func NewStorage(url string, freeSpace int64, logger log.Logger) interfaces.Storage {
	return &inMemoryStorage{
		url:        url,
		log:        logger,
		dataByPath: map[string][]byte{},
		freeSpace:  freeSpace,
	}
}

func (m *inMemoryStorage) GetStorageURL() string {
	return m.url
}

func (m *inMemoryStorage) UploadChunk(ctx context.Context, path string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("can't read chunk body: %w", err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	dataLen := int64(len(data))
	if old, ok := m.dataByPath[path]; ok {
		dataLen -= int64(len(old))
	}
	if dataLen > m.freeSpace {
		return fmt.Errorf("not enough free space on %s: need %s, have %s",
			m.url, humanize.IBytes(uint64(dataLen)), humanize.IBytes(uint64(m.freeSpace)))
	}

	m.dataByPath[path] = data
	m.freeSpace -= dataLen

	level.Info(m.log).Log("msg", "chunk uploaded",
		"path", path,
		"storage", m.url,
		"size", humanize.IBytes(uint64(len(data))),
		"free_space", humanize.IBytes(uint64(m.freeSpace)),
	)

	return nil
}

func (m *inMemoryStorage) ReadChunk(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	data, ok := m.dataByPath[path]
	if !ok {
		return nil, fmt.Errorf("chunk %s not found on %s", path, m.url)
	}

	level.Debug(m.log).Log("msg", "chunk read",
		"path", path,
		"storage", m.url,
	)

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *inMemoryStorage) DeleteChunk(ctx context.Context, path string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.freeSpace += int64(len(m.dataByPath[path]))
	delete(m.dataByPath, path)

	return nil
}

func (m *inMemoryStorage) GetFreeSpace() (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.freeSpace, nil
}
