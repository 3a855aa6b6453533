package domain

import (
	"errors"
	"io"
)

var ErrNotFound = errors.New("upload not found")

// Chunk is the slice [Offset, Offset+ContentLength) of an upload kept by one storage.
type Chunk struct {
	StorageURL    string
	Path          string
	Offset        int64
	ContentLength int64
}

type UploadMeta struct {
	Name          string
	Field         string
	ContentType   string
	ContentLength int64
	Chunks        []Chunk
}

// Upload is a form file on its way into the storages. Body is read by
// offset so chunks can be uploaded independently.
type Upload struct {
	Meta UploadMeta
	Body io.ReaderAt
}

type Download struct {
	Meta UploadMeta
	Body io.ReadCloser
}
