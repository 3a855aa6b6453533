package interfaces

import (
	"context"
	"io"
)

type Storage interface {
	UploadChunk(ctx context.Context, path string, body io.Reader) error
	ReadChunk(ctx context.Context, path string) (io.ReadCloser, error)
	DeleteChunk(ctx context.Context, path string) error
	GetFreeSpace() (int64, error)
	GetStorageURL() string
}

type StorageManager interface {
	GetStorages(ctx context.Context, count int) ([]Storage, error)
	GetStorage(ctx context.Context, storageURL string) (Storage, error)
	AddStorage(ctx context.Context, storageURL string, storage Storage) error
}
