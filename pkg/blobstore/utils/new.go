package blobstoreutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/blobstore"
	"github.com/papercomputeco/stacks/pkg/blobstore/gcs"
	"github.com/papercomputeco/stacks/pkg/blobstore/local"
)

type NewStoreOpts struct {
	ProviderType string

	// Target is the directory path for local or the bucket name for gcs.
	Target string

	// Prefix restricts gcs listing to objects under the given prefix.
	Prefix string

	Logger *zap.Logger
}

// NewStore constructs the blob store named by ProviderType.
func NewStore(ctx context.Context, o *NewStoreOpts) (blobstore.Store, error) {
	switch o.ProviderType {
	case "local":
		return local.NewStore(o.Target, o.Logger)
	case "gcs":
		return gcs.NewStore(ctx, gcs.Config{
			Bucket: o.Target,
			Prefix: o.Prefix,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported blob store provider: %s", o.ProviderType)
	}
}
