package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/papercomputeco/memoria/pkg/vector"
	"github.com/papercomputeco/memoria/pkg/vector/qdrant"
	"github.com/papercomputeco/memoria/pkg/vector/sqlitevec"
)

const connectTimeout = 10 * time.Second

type NewIndexFactoryOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Logger       *slog.Logger
}

// NewIndexFactory returns the accelerated index factory for a provider.
// "none" and "" return a nil factory: collections then search by brute force.
func NewIndexFactory(o *NewIndexFactoryOpts) (vector.IndexFactory, error) {
	switch o.ProviderType {
	case "", "none":
		return nil, nil

	case "sqlite", "sqlite-vec", "sqlitevec":
		return func(spec vector.IndexSpec) (vector.Index, error) {
			return sqlitevec.New(sqlitevec.Config{
				DBPath:     filepath.Join(spec.Dir, spec.Collection+".sqlite"),
				Dimensions: spec.Dimensions,
			}, o.Logger)
		}, nil

	case "qdrant":
		return func(spec vector.IndexSpec) (vector.Index, error) {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()

			return qdrant.New(ctx, qdrant.Config{
				Target:     o.TargetURL,
				APIKey:     o.APIKey,
				Collection: CollectionName(spec),
				Dimensions: spec.Dimensions,
			}, o.Logger)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// CollectionName is the remote collection name of a namespace collection.
func CollectionName(spec vector.IndexSpec) string {
	if spec.Namespace == "" {
		return "memoria_" + spec.Collection
	}
	return "memoria_" + spec.Namespace + "_" + spec.Collection
}
