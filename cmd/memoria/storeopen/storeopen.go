// Package storeopen resolves configuration for the commands that open a
// memoria namespace and builds the store from it.
package storeopen

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/pkg/config"
	"github.com/papercomputeco/memoria/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/memoria/pkg/embeddings/utils"
	"github.com/papercomputeco/memoria/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/memoria/pkg/eventstream/utils"
	"github.com/papercomputeco/memoria/pkg/memoria"
	summarizerutils "github.com/papercomputeco/memoria/pkg/summarizer/utils"
	vectorutils "github.com/papercomputeco/memoria/pkg/vector/utils"
)

// Flags are the store flags shared by every command that opens a namespace.
type Flags struct {
	Root        string
	Namespace   string
	ChunkTokens uint

	SummarizerProvider string
	SummarizerTarget   string
	SummarizerModel    string

	VectorStoreProvider string
	VectorStoreTarget   string

	EmbeddingProvider   string
	EmbeddingTarget     string
	EmbeddingModel      string
	EmbeddingDimensions uint

	EventsProvider string
	EventsBrokers  string
}

var storeFlagKeys = []string{
	config.FlagStoreRoot,
	config.FlagNamespace,
	config.FlagChunkTokens,
	config.FlagSummarizerProv,
	config.FlagSummarizerTgt,
	config.FlagSummarizerModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
}

// AddFlags registers the store flags on cmd.
func AddFlags(cmd *cobra.Command, f *Flags) {
	config.AddStringFlag(cmd, config.Flags, config.FlagStoreRoot, &f.Root)
	config.AddStringFlag(cmd, config.Flags, config.FlagNamespace, &f.Namespace)
	config.AddUintFlag(cmd, config.Flags, config.FlagChunkTokens, &f.ChunkTokens)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizerProv, &f.SummarizerProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizerTgt, &f.SummarizerTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizerModel, &f.SummarizerModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &f.VectorStoreProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &f.VectorStoreTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &f.EmbeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &f.EmbeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &f.EmbeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &f.EmbeddingDimensions)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &f.EventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &f.EventsBrokers)
}

// Env is the resolved configuration of one command invocation.
type Env struct {
	Config *config.Config

	// ConfigDir is the resolved .memoria/ directory.
	ConfigDir string

	// Root holds the namespaces: store.root or ConfigDir.
	Root string

	// Namespace is the --namespace flag, else the namespace selected with
	// "memoria use", else store.namespace.
	Namespace string

	Logger *slog.Logger
}

// Load resolves configuration for cmd with precedence flags > env > config
// file > defaults. extraKeys binds additional registry flags the command
// registered itself.
func Load(cmd *cobra.Command, log *slog.Logger, extraKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	return LoadDir(cmd, configDir, log, extraKeys...)
}

// LoadDir is Load with an explicit .memoria directory override.
func LoadDir(cmd *cobra.Command, configDir string, log *slog.Logger, extraKeys ...string) (*Env, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, append(append([]string{}, storeFlagKeys...), extraKeys...))
	cfg := config.FromViper(v)

	ddm := dotdir.NewManager()
	dir, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving memoria dir: %w", err)
	}

	env := &Env{
		Config:    cfg,
		ConfigDir: dir,
		Root:      cfg.Store.Root,
		Namespace: cfg.Store.Namespace,
		Logger:    log,
	}
	if env.Root == "" {
		env.Root = dir
	}

	if nsFlag := cmd.Flags().Lookup(config.Flags[config.FlagNamespace].Name); nsFlag == nil || !nsFlag.Changed {
		active, err := ddm.LoadActive(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading active namespace: %w", err)
		}
		if active != nil && active.Namespace != "" {
			env.Namespace = active.Namespace
		}
	}

	return env, nil
}

// Components are the adapters built from configuration.
type Components struct {
	Options []memoria.Option

	// Publisher is nil when events are disabled.
	Publisher eventstream.Publisher
}

// Components builds the embedder, summarizer, accelerated index factory and
// event publisher the store options are made of.
func (e *Env) Components() (*Components, error) {
	cfg := e.Config

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Summarizer.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
		CacheSize:    cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	sum, err := summarizerutils.NewSummarizer(&summarizerutils.NewSummarizerOpts{
		ProviderType: cfg.Summarizer.Provider,
		TargetURL:    cfg.Summarizer.Target,
		Model:        cfg.Summarizer.Model,
		APIKey:       cfg.Summarizer.APIKey,
		Temperature:  cfg.Summarizer.Temperature,
		MaxTokens:    cfg.Summarizer.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}

	factory, err := vectorutils.NewIndexFactory(&vectorutils.NewIndexFactoryOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Logger:       e.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	c := &Components{
		Options: []memoria.Option{
			memoria.WithEmbedder(embedder),
			memoria.WithSummarizer(sum),
			memoria.WithIndexFactory(factory),
			memoria.WithChunkTokens(int(cfg.Store.ChunkTokens)),
			memoria.WithLogger(e.Logger),
		},
	}

	if cfg.Events.Provider != "" && cfg.Events.Provider != "none" {
		c.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: cfg.Events.Provider,
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating event publisher: %w", err)
		}
	}

	return c, nil
}

// Open opens the resolved namespace. The store owns the event publisher.
func (e *Env) Open() (*memoria.Store, error) {
	c, err := e.Components()
	if err != nil {
		return nil, err
	}

	opts := c.Options
	if c.Publisher != nil {
		opts = append(opts, memoria.WithPublisher(c.Publisher))
	}

	s, err := memoria.Open(e.Root, e.Namespace, opts...)
	if err != nil {
		if c.Publisher != nil {
			_ = c.Publisher.Close()
		}
		return nil, fmt.Errorf("opening namespace %q: %w", e.Namespace, err)
	}
	return s, nil
}

// Registry returns a registry over the root whose stores share one event
// publisher. The returned close function closes the registry, then the
// publisher.
func (e *Env) Registry() (*memoria.Registry, func() error, error) {
	c, err := e.Components()
	if err != nil {
		return nil, nil, err
	}

	opts := c.Options
	if c.Publisher != nil {
		opts = append(opts, memoria.WithPublisher(eventstream.NopCloser(c.Publisher)))
	}

	reg := memoria.NewRegistry(e.Root, opts...)
	closeFn := func() error {
		err := reg.Close()
		if c.Publisher != nil {
			err = errors.Join(err, c.Publisher.Close())
		}
		return err
	}
	return reg, closeFn, nil
}
