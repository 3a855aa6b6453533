package interfaces

import (
	"context"

	"github.com/donmikel/partstore/applications/server/domain"
)

// UploadMetaStorage keeps upload metadata. An upload is visible to Get only
// after Complete. A pending upload and a completed one may share a name;
// Complete swaps the pending one in and returns the one it replaced.
type UploadMetaStorage interface {
	Begin(ctx context.Context, meta domain.UploadMeta) error
	Complete(ctx context.Context, name string) (replaced domain.UploadMeta, ok bool, err error)
	Abort(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (domain.UploadMeta, error)
	Delete(ctx context.Context, name string) error
}
