package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/donmikel/partstore/applications/server/domain"
	"github.com/donmikel/partstore/applications/server/interfaces"
)

type inMemoryUploadMetaStorage struct {
	pending   map[string]domain.UploadMeta
	completed map[string]domain.UploadMeta
	mutex     sync.RWMutex
}

func NewUploadMetaStorage() interfaces.UploadMetaStorage {
	return &inMemoryUploadMetaStorage{
		pending:   map[string]domain.UploadMeta{},
		completed: map[string]domain.UploadMeta{},
	}
}

func (i *inMemoryUploadMetaStorage) Begin(ctx context.Context, meta domain.UploadMeta) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if _, ok := i.pending[meta.Name]; ok {
		return fmt.Errorf("upload %s is already in progress", meta.Name)
	}

	i.pending[meta.Name] = meta

	return nil
}

func (i *inMemoryUploadMetaStorage) Complete(ctx context.Context, name string) (domain.UploadMeta, bool, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	meta, ok := i.pending[name]
	if !ok {
		return domain.UploadMeta{}, false, fmt.Errorf("upload %s: %w", name, domain.ErrNotFound)
	}

	replaced, hadPrevious := i.completed[name]
	i.completed[name] = meta
	delete(i.pending, name)

	return replaced, hadPrevious, nil
}

func (i *inMemoryUploadMetaStorage) Abort(ctx context.Context, name string) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	delete(i.pending, name)

	return nil
}

func (i *inMemoryUploadMetaStorage) Get(ctx context.Context, name string) (domain.UploadMeta, error) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	meta, ok := i.completed[name]
	if !ok {
		return domain.UploadMeta{}, fmt.Errorf("upload %s: %w", name, domain.ErrNotFound)
	}

	return meta, nil
}

func (i *inMemoryUploadMetaStorage) Delete(ctx context.Context, name string) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	delete(i.completed, name)

	return nil
}
