package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/memoria/pkg/fileutil"
	"github.com/papercomputeco/memoria/pkg/logger"
)

// collectionFile is the persisted form of a Collection.
type collectionFile struct {
	Dimension int         `json:"dimension"`
	IDs       []string    `json:"ids"`
	Vectors   [][]float32 `json:"vectors"`
}

// Collection is a named set of vectors persisted to <dir>/<name>.json.
type Collection struct {
	dir       string
	name      string
	namespace string
	factory   IndexFactory
	logger    *slog.Logger

	mu    sync.RWMutex
	data  collectionFile
	pos   map[string]int
	index Index
}

type CollectionOption func(*Collection)

// WithIndexFactory mirrors the collection into an accelerated index.
func WithIndexFactory(f IndexFactory) CollectionOption {
	return func(c *Collection) {
		c.factory = f
	}
}

func WithNamespace(ns string) CollectionOption {
	return func(c *Collection) {
		c.namespace = ns
	}
}

func WithLogger(log *slog.Logger) CollectionOption {
	return func(c *Collection) {
		if log != nil {
			c.logger = log
		}
	}
}

// OpenCollection loads the named collection from dir. A missing file is an
// empty collection; an unreadable one is logged and treated as empty until
// the next write or rebuild replaces it.
func OpenCollection(dir, name string, opts ...CollectionOption) (*Collection, error) {
	c := &Collection{
		dir:    dir,
		name:   name,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vectors directory: %w", err)
	}

	data, err := os.ReadFile(c.path())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading collection %s: %w", name, err)
	default:
		if err := json.Unmarshal(data, &c.data); err != nil || len(c.data.IDs) != len(c.data.Vectors) {
			c.logger.Warn("collection unreadable, starting empty", "collection", name, "error", err)
			c.data = collectionFile{}
		}
	}
	c.reindex()

	if c.data.Dimension > 0 {
		c.openIndex(context.Background())
	}

	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data.IDs)
}

// Dimension returns the vector dimension, 0 while empty.
func (c *Collection) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Dimension
}

// IDs returns the record ids in insertion order.
func (c *Collection) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.IDs)
}

// Get returns the vector stored under id.
func (c *Collection) Get(id string) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.pos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
	}
	return slices.Clone(c.data.Vectors[i]), nil
}

// Add stores records, replacing the vector of an existing id in place.
// The first record fixes the dimension of an empty collection; later
// records must match it.
func (c *Collection) Add(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.data.Dimension
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	for _, r := range records {
		if len(r.Vector) == 0 || len(r.Vector) != dim {
			return fmt.Errorf("%w: %s/%s has %d, collection has %d", ErrDimension, c.name, r.ID, len(r.Vector), dim)
		}
	}

	next := c.cloneData()
	next.Dimension = dim
	pos := maps.Clone(c.pos)
	for _, r := range records {
		if i, ok := pos[r.ID]; ok {
			next.Vectors[i] = slices.Clone(r.Vector)
			continue
		}
		pos[r.ID] = len(next.IDs)
		next.IDs = append(next.IDs, r.ID)
		next.Vectors = append(next.Vectors, slices.Clone(r.Vector))
	}

	if err := c.save(next); err != nil {
		return err
	}
	c.data = next
	c.pos = pos

	if c.index == nil {
		c.openIndex(ctx)
	}
	if c.index != nil {
		if err := c.index.Upsert(ctx, records); err != nil {
			c.logger.Warn("accelerated index upsert failed", "collection", c.name, "error", err)
		}
	}

	return nil
}

// Remove deletes records by id and returns how many existed.
func (c *Collection) Remove(ctx context.Context, ids ...string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.pos[id]; ok {
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	next := collectionFile{Dimension: c.data.Dimension}
	for i, id := range c.data.IDs {
		if _, ok := drop[id]; ok {
			continue
		}
		next.IDs = append(next.IDs, id)
		next.Vectors = append(next.Vectors, c.data.Vectors[i])
	}

	if err := c.save(next); err != nil {
		return 0, err
	}
	c.data = next
	c.reindex()

	if c.index != nil {
		removed := make([]string, 0, len(drop))
		for id := range drop {
			removed = append(removed, id)
		}
		slices.Sort(removed)
		if err := c.index.Delete(ctx, removed); err != nil {
			c.logger.Warn("accelerated index delete failed", "collection", c.name, "error", err)
		}
	}

	return len(drop), nil
}

// Search returns up to topN records ranked by similarity to query. The
// accelerated index answers when it holds records; otherwise every vector
// is scored by cosine similarity and ties keep insertion order.
func (c *Collection) Search(ctx context.Context, query []float32, topN int) ([]Match, error) {
	if topN <= 0 {
		return []Match{}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.data.IDs) == 0 {
		return []Match{}, nil
	}

	if c.index != nil {
		n, err := c.index.Count(ctx)
		if err == nil && n > 0 {
			matches, err := c.index.Query(ctx, query, topN)
			if err == nil {
				return matches, nil
			}
			c.logger.Warn("accelerated index query failed, using brute force", "collection", c.name, "error", err)
		}
	}

	matches := make([]Match, len(c.data.IDs))
	for i, id := range c.data.IDs {
		matches[i] = Match{ID: id, Score: Cosine(query, c.data.Vectors[i])}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}

// Rebuild recomputes every vector from sources, in order. The new file is
// written beside the old one and renamed over it, and the accelerated index
// is replaced the same way. On any embedding failure the collection is left
// untouched.
func (c *Collection) Rebuild(ctx context.Context, sources []Source, embed EmbedFunc) error {
	next := collectionFile{IDs: []string{}, Vectors: [][]float32{}}
	records := make([]Record, 0, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := embed(ctx, src.Text)
		if err != nil {
			return fmt.Errorf("rebuilding %s at %s: %w", c.name, src.ID, err)
		}
		if next.Dimension == 0 {
			next.Dimension = len(vec)
		}
		if len(vec) != next.Dimension {
			return fmt.Errorf("%w: rebuilding %s at %s", ErrDimension, c.name, src.ID)
		}
		next.IDs = append(next.IDs, src.ID)
		next.Vectors = append(next.Vectors, vec)
		records = append(records, Record{ID: src.ID, Vector: vec})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.save(next); err != nil {
		return err
	}

	dimChanged := c.data.Dimension != 0 && c.data.Dimension != next.Dimension
	c.data = next
	c.reindex()

	if c.index != nil && dimChanged {
		_ = c.index.Close()
		c.index = nil
	}
	if c.index == nil {
		c.openIndex(ctx)
	}
	if c.index != nil {
		if err := c.index.Replace(ctx, records); err != nil {
			c.logger.Warn("accelerated index rebuild failed", "collection", c.name, "error", err)
		}
	}

	c.logger.Debug("rebuilt collection", "collection", c.name, "records", len(records))
	return nil
}

// Reset empties the collection.
func (c *Collection) Reset(ctx context.Context) error {
	return c.Rebuild(ctx, nil, nil)
}

// Init writes an empty file for a collection that has never been saved.
func (c *Collection) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.path()); errors.Is(err, os.ErrNotExist) {
		return c.save(c.data)
	}
	return nil
}

// Close releases the accelerated index.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	return err
}

func (c *Collection) path() string {
	return filepath.Join(c.dir, c.name+".json")
}

func (c *Collection) save(data collectionFile) error {
	if data.IDs == nil {
		data.IDs = []string{}
	}
	if data.Vectors == nil {
		data.Vectors = [][]float32{}
	}
	if err := fileutil.WriteJSON(c.path(), data); err != nil {
		return fmt.Errorf("writing collection %s: %w", c.name, err)
	}
	return nil
}

// openIndex asks the factory for an index once the dimension is known. A
// failing index is logged and the collection keeps working without it.
func (c *Collection) openIndex(ctx context.Context) {
	if c.factory == nil || c.data.Dimension == 0 {
		return
	}

	idx, err := c.factory(IndexSpec{
		Dir:        c.dir,
		Namespace:  c.namespace,
		Collection: c.name,
		Dimensions: c.data.Dimension,
	})
	if err != nil {
		c.logger.Warn("accelerated index unavailable", "collection", c.name, "error", err)
		return
	}
	if idx == nil {
		return
	}
	c.index = idx

	// Bring an index that lags the collection back in line.
	n, err := idx.Count(ctx)
	if err == nil && n == len(c.data.IDs) {
		return
	}
	records := make([]Record, len(c.data.IDs))
	for i, id := range c.data.IDs {
		records[i] = Record{ID: id, Vector: c.data.Vectors[i]}
	}
	if err := idx.Replace(ctx, records); err != nil {
		c.logger.Warn("accelerated index sync failed", "collection", c.name, "error", err)
	}
}

func (c *Collection) reindex() {
	c.pos = make(map[string]int, len(c.data.IDs))
	for i, id := range c.data.IDs {
		c.pos[id] = i
	}
}

func (c *Collection) cloneData() collectionFile {
	return collectionFile{
		Dimension: c.data.Dimension,
		IDs:       slices.Clone(c.data.IDs),
		Vectors:   slices.Clone(c.data.Vectors),
	}
}
