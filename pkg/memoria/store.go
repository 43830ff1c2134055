// Package memoria is the hierarchical conversational memory store.
//
// A Store owns one namespace directory: the raw message log, the episodic,
// branch and global summary tiers, and the derived vector collections used
// for retrieval. Every rollup check and vector update runs inline in Append;
// summarizer and embedding failures are logged and never fail the append.
package memoria

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/papercomputeco/memoria/pkg/chunker"
	"github.com/papercomputeco/memoria/pkg/embeddings"
	"github.com/papercomputeco/memoria/pkg/embeddings/hash"
	"github.com/papercomputeco/memoria/pkg/eventstream"
	"github.com/papercomputeco/memoria/pkg/fileutil"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/rawlog"
	"github.com/papercomputeco/memoria/pkg/rollup"
	"github.com/papercomputeco/memoria/pkg/summarizer"
	"github.com/papercomputeco/memoria/pkg/vector"
	"github.com/papercomputeco/memoria/pkg/worker"
)

const (
	// DefaultNamespace is used when no namespace is configured.
	DefaultNamespace = "default"

	// DefaultTopN is the retrieval size used when none is given.
	DefaultTopN = 5

	vectorsDir = "vectors"
)

// Store is an open namespace.
type Store struct {
	root      string
	namespace string
	dir       string

	embedder     embeddings.Embedder
	summarizer   summarizer.Summarizer
	indexFactory vector.IndexFactory
	publisher    eventstream.Publisher
	logger       *slog.Logger
	chunkTokens  int
	rotate       int

	pool *worker.Pool

	// writeMu serializes writers in the process and the namespace flock
	// across processes. Readers only take mu, which Reset holds while it
	// replaces the components, so they see the transient states of an
	// append in progress.
	writeMu sync.Mutex
	mu      sync.RWMutex
	log     *rawlog.Log
	tiers   *rollup.Tiers
	vectors *vector.Set
}

// AppendResult reports what one append produced.
type AppendResult struct {
	ID       uint64                   `json:"id"`
	Episodic []rollup.EpisodicSummary `json:"episodic,omitempty"`
	Branch   []rollup.BranchSummary   `json:"branch,omitempty"`
	Global   []rollup.GlobalSummary   `json:"global,omitempty"`
}

// Open opens the namespace under root, initializing it when new.
func Open(root, namespace string, opts ...Option) (*Store, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	s := &Store{
		root:        root,
		namespace:   namespace,
		dir:         filepath.Join(root, namespace),
		logger:      logger.Nop(),
		chunkTokens: chunker.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.embedder == nil {
		s.embedder = hash.NewEmbedder(hash.DefaultDimensions)
	}
	s.logger = s.logger.With("namespace", namespace)

	if err := s.openComponents(); err != nil {
		return nil, err
	}
	if err := s.Init(context.Background()); err != nil {
		_ = s.vectors.Close()
		return nil, err
	}

	if s.publisher != nil {
		pool, err := worker.NewPool(&worker.Config{Publisher: s.publisher, Logger: s.logger})
		if err != nil {
			_ = s.vectors.Close()
			return nil, err
		}
		s.pool = pool
	}

	return s, nil
}

// ValidateNamespace rejects names that are not a single directory name.
func ValidateNamespace(ns string) error {
	if ns == "" || ns == "." || ns == ".." || strings.ContainsAny(ns, `/\`) || strings.TrimSpace(ns) != ns {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	return nil
}

// Namespaces lists the initialized namespaces under root.
func Namespaces(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "metadata.json")); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (s *Store) openComponents() error {
	logOpts := []rawlog.Option{rawlog.WithLogger(s.logger)}
	if s.rotate > 0 {
		logOpts = append(logOpts, rawlog.WithRotate(s.rotate))
	}
	log, err := rawlog.Open(s.dir, logOpts...)
	if err != nil {
		return err
	}

	vectors, err := vector.OpenSet(filepath.Join(s.dir, vectorsDir),
		vector.WithIndexFactory(s.indexFactory),
		vector.WithNamespace(s.namespace),
		vector.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}

	s.log = log
	s.tiers = rollup.New(s.dir, s.summarizer, rollup.WithLogger(s.logger))
	s.vectors = vectors
	return nil
}

// Namespace returns the namespace name.
func (s *Store) Namespace() string {
	return s.namespace
}

// Dir returns the namespace directory.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates any missing file of the namespace. It is idempotent.
func (s *Store) Init(_ context.Context) error {
	if err := s.tiers.Init(); err != nil {
		return err
	}
	return s.vectors.Init()
}

// beginWrite makes the caller the single writer of the namespace until the
// returned release is called.
func (s *Store) beginWrite() (func(), error) {
	s.writeMu.Lock()
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	lock, err := fileutil.Acquire(filepath.Join(s.root, "."+s.namespace+".lock"))
	if err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	return func() {
		lock.Release()
		s.writeMu.Unlock()
	}, nil
}

// Append records one message and runs the rollup checks it triggers.
func (s *Store) Append(ctx context.Context, role rawlog.Role, content string) (*AppendResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", rawlog.ErrInvalidRole, role)
	}

	release, err := s.beginWrite()
	if err != nil {
		return nil, err
	}
	defer release()

	id, err := s.log.Append(role, content)
	if err != nil {
		return nil, err
	}
	res := &AppendResult{ID: id}

	s.indexMessage(ctx, rawlog.Message{ID: id, Role: role, Content: content})

	res.Episodic, err = s.tiers.MaybeEpisodic(ctx, id, s.log)
	if err != nil {
		s.logger.Warn("episodic rollup error", "error", err)
	}
	for _, ep := range res.Episodic {
		s.indexEpisode(ctx, ep)
		s.publish(eventstream.TierEpisodic, ep.ID, ep.Summary, eventstream.Coverage{StartID: ep.StartID, EndID: ep.EndID})
	}

	res.Branch, err = s.tiers.MaybeBranch(ctx)
	if err != nil {
		s.logger.Warn("branch rollup error", "error", err)
	}
	if len(res.Branch) > 0 {
		if err := s.rebuild(ctx, vector.Episodic, vector.Branch); err != nil {
			s.logger.Warn("summary collection rebuild failed", "error", err)
		}
	}
	for _, b := range res.Branch {
		s.publish(eventstream.TierBranch, b.ID, b.Summary, eventstream.Coverage{EpisodicIDs: b.EpisodicIDs})
	}

	res.Global, err = s.tiers.MaybeGlobal(ctx)
	if err != nil {
		s.logger.Warn("global rollup error", "error", err)
	}
	for _, g := range res.Global {
		s.publish(eventstream.TierGlobal, g.ID, g.Summary, eventstream.Coverage{BranchIDs: g.BranchIDs})
	}

	return res, nil
}

// indexMessage embeds a message and its chunks. Failures are logged.
func (s *Store) indexMessage(ctx context.Context, m rawlog.Message) {
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	rawID := strconv.FormatUint(m.ID, 10)
	if vec, err := s.embedder.Embed(ctx, m.Content); err != nil {
		s.logger.Warn("raw embedding failed", "id", m.ID, "error", err)
	} else if err := s.vectors.Raw().Add(ctx, vector.Record{ID: rawID, Vector: vec}); err != nil {
		s.logger.Warn("raw vector insert failed", "id", m.ID, "error", err)
	}

	var records []vector.Record
	for pos, chunk := range chunker.Chunk(m.Content, s.chunkTokens) {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			s.logger.Warn("chunk embedding failed", "id", m.ID, "position", pos, "error", err)
			continue
		}
		records = append(records, vector.Record{ID: chunker.ID(m.ID, pos), Vector: vec})
	}
	if err := s.vectors.RawChunk().Add(ctx, records...); err != nil {
		s.logger.Warn("chunk vector insert failed", "id", m.ID, "error", err)
	}
}

func (s *Store) indexEpisode(ctx context.Context, ep rollup.EpisodicSummary) {
	vec, err := s.embedder.Embed(ctx, ep.Summary)
	if err != nil {
		s.logger.Warn("episodic embedding failed", "episode", ep.ID, "error", err)
		return
	}
	rec := vector.Record{ID: strconv.FormatUint(uint64(ep.ID), 10), Vector: vec}
	if err := s.vectors.Episodic().Add(ctx, rec); err != nil {
		s.logger.Warn("episodic vector insert failed", "episode", ep.ID, "error", err)
	}
}

func (s *Store) publish(tier string, id uint32, summary string, coverage eventstream.Coverage) {
	if s.pool == nil {
		return
	}
	s.pool.Enqueue(worker.Job{Event: eventstream.NewSummaryEmitted(s.namespace, tier, id, summary, coverage)})
}

// ReadRange returns the raw messages start through end, inclusive.
func (s *Store) ReadRange(start, end uint64) ([]rawlog.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.ReadRange(start, end)
}

// Recent returns up to n of the newest messages, oldest first.
func (s *Store) Recent(n int) ([]rawlog.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Tail(n)
}

// LastID returns the id of the newest message.
func (s *Store) LastID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.LastID()
}

// Summaries returns the valid summaries of every tier.
func (s *Store) Summaries() ([]rollup.EpisodicSummary, []rollup.BranchSummary, []rollup.GlobalSummary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiers.Episodic(), s.tiers.Branch(), s.tiers.Global()
}

// TruncateLast removes the newest n messages and their raw and chunk
// vectors. Summaries are never touched. Returns the number removed.
func (s *Store) TruncateLast(ctx context.Context, n int) (int, error) {
	release, err := s.beginWrite()
	if err != nil {
		return 0, err
	}
	defer release()

	removed, err := s.log.TruncateLast(n)
	if err != nil || removed == 0 {
		return removed, err
	}
	last := s.log.LastID()

	var rawIDs []string
	for id := last + 1; id <= last+uint64(removed); id++ {
		rawIDs = append(rawIDs, strconv.FormatUint(id, 10))
	}
	if _, err := s.vectors.Raw().Remove(ctx, rawIDs...); err != nil {
		s.logger.Warn("raw vector removal failed", "error", err)
	}

	var chunkIDs []string
	for _, id := range s.vectors.RawChunk().IDs() {
		rawID, _, err := chunker.ParseID(id)
		if err == nil && rawID > last {
			chunkIDs = append(chunkIDs, id)
		}
	}
	if _, err := s.vectors.RawChunk().Remove(ctx, chunkIDs...); err != nil {
		s.logger.Warn("chunk vector removal failed", "error", err)
	}

	s.logger.Info("truncated raw log", "removed", removed, "last_id", last)
	return removed, nil
}

// Reset discards every file of the namespace and reinitializes it empty.
func (s *Store) Reset(ctx context.Context) error {
	release, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vectors.Close(); err != nil {
		s.logger.Warn("closing vector indexes", "error", err)
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing namespace %s: %w", s.namespace, err)
	}
	if err := s.openComponents(); err != nil {
		return err
	}
	if err := s.Init(ctx); err != nil {
		return err
	}

	s.logger.Info("namespace reset")
	return nil
}

// Rebuild recomputes the named collections, or all of them, from the raw
// log and tier files. Running it twice with no writes in between leaves
// identical files.
func (s *Store) Rebuild(ctx context.Context, collections ...string) error {
	release, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer release()

	if len(collections) == 0 {
		collections = vector.Names
	}
	return s.rebuild(ctx, collections...)
}

func (s *Store) rebuild(ctx context.Context, collections ...string) error {
	var messages []rawlog.Message
	needRaw := false
	for _, name := range collections {
		if name == vector.Raw || name == vector.RawChunk {
			needRaw = true
		}
	}
	if needRaw {
		var err error
		messages, err = s.log.ReadRange(1, s.log.LastID())
		if err != nil {
			return fmt.Errorf("reading raw log: %w", err)
		}
	}

	for _, name := range collections {
		c, err := s.vectors.Get(name)
		if err != nil {
			return err
		}
		if err := c.Rebuild(ctx, s.sources(name, messages), s.embedder.Embed); err != nil {
			return err
		}
		s.logger.Debug("rebuilt collection", "collection", name, "records", c.Len())
	}
	return nil
}

// sources lists the source text of every record of a collection in
// insertion order.
func (s *Store) sources(name string, messages []rawlog.Message) []vector.Source {
	var out []vector.Source
	switch name {
	case vector.Raw:
		for _, m := range messages {
			if strings.TrimSpace(m.Content) != "" {
				out = append(out, vector.Source{ID: strconv.FormatUint(m.ID, 10), Text: m.Content})
			}
		}
	case vector.RawChunk:
		for _, m := range messages {
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			for pos, chunk := range chunker.Chunk(m.Content, s.chunkTokens) {
				out = append(out, vector.Source{ID: chunker.ID(m.ID, pos), Text: chunk})
			}
		}
	case vector.Episodic:
		for _, ep := range s.tiers.Episodic() {
			out = append(out, vector.Source{ID: strconv.FormatUint(uint64(ep.ID), 10), Text: ep.Summary})
		}
	case vector.Branch:
		for _, b := range s.tiers.Branch() {
			out = append(out, vector.Source{ID: strconv.FormatUint(uint64(b.ID), 10), Text: b.Summary})
		}
	}
	return out
}

// Close waits for a write in progress, drains pending events and releases
// the vector indexes.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var errs []error
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	errs = append(errs, s.vectors.Close())

	return errors.Join(errs...)
}
