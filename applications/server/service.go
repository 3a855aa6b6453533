package server

import (
	"context"

	"github.com/donmikel/partstore/applications/server/domain"
)

type UploadService interface {
	Store(ctx context.Context, upload domain.Upload) (domain.UploadMeta, error)
	Open(ctx context.Context, name string) (domain.Download, error)
	Delete(ctx context.Context, name string) error
}
