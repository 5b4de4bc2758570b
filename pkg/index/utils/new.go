package indexutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/index"
	"github.com/papercomputeco/stacks/pkg/index/chroma"
	"github.com/papercomputeco/stacks/pkg/index/memory"
	"github.com/papercomputeco/stacks/pkg/index/pgvector"
	"github.com/papercomputeco/stacks/pkg/index/qdrant"
	"github.com/papercomputeco/stacks/pkg/index/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string

	// TargetURL is the server URL for chroma, the DSN for pgvector, the
	// host for qdrant, and the database path for sqlitevec.
	TargetURL string

	// Collection names the chroma collection, qdrant collection or
	// pgvector table. Drivers fall back to their defaults when empty.
	Collection string

	// Dimensions is the embedding vector size, required by drivers that
	// create their schema up front.
	Dimensions int

	Logger *zap.Logger
}

// NewDriver constructs the index driver named by ProviderType.
func NewDriver(ctx context.Context, o *NewDriverOpts) (index.Driver, error) {
	switch o.ProviderType {
	case "memory":
		return memory.NewDriver(), nil
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Host:           o.TargetURL,
			CollectionName: o.Collection,
			Dimensions:     uint64(o.Dimensions),
		}, o.Logger)
	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.TargetURL,
			TableName:  o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: uint(o.Dimensions),
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported index provider: %s", o.ProviderType)
	}
}
