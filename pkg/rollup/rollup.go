// Package rollup maintains the three summary tiers of a namespace.
//
// Every EpisodeSize raw messages are condensed into an episodic summary,
// every EpisodesPerBranch unconsumed episodic summaries into a branch
// summary, and every BranchesPerGlobal unconsumed branch summaries into a
// global summary. Tiers always consume the oldest unconsumed batch first, so
// coverage is monotonic and gap free. Tier files are JSON arrays replaced
// atomically on every write.
package rollup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/rawlog"
	"github.com/papercomputeco/memoria/pkg/summarizer"
)

// Tiers is the rollup state of one namespace directory.
type Tiers struct {
	dir        string
	summarizer summarizer.Summarizer
	logger     *slog.Logger

	mu sync.Mutex
}

type Option func(*Tiers)

func WithLogger(log *slog.Logger) Option {
	return func(t *Tiers) {
		if log != nil {
			t.logger = log
		}
	}
}

// New returns the tiers stored in dir. A nil summarizer disables rollups;
// the readers still work.
func New(dir string, s summarizer.Summarizer, opts ...Option) *Tiers {
	t := &Tiers{
		dir:        dir,
		summarizer: s,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init creates any missing tier file as an empty array.
func (t *Tiers) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("creating tier directory: %w", err)
	}
	for _, file := range tierFiles {
		_, err := os.Stat(filepath.Join(t.dir, file))
		switch {
		case errors.Is(err, os.ErrNotExist):
			if err := t.writeEmpty(file); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("checking %s: %w", file, err)
		}
	}
	return nil
}

// Reset rewrites every tier file as an empty array.
func (t *Tiers) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, file := range tierFiles {
		if err := t.writeEmpty(file); err != nil {
			return err
		}
	}
	return nil
}

// Episodic returns the valid episodic summaries in creation order.
func (t *Tiers) Episodic() []EpisodicSummary {
	_, valid := readTier[EpisodicSummary](t, episodicFile, "id", "summary", "start_id", "end_id")
	return valid
}

// Branch returns the valid branch summaries in creation order.
func (t *Tiers) Branch() []BranchSummary {
	_, valid := readTier[BranchSummary](t, branchFile, "id", "summary")
	return valid
}

// Global returns the valid global summaries in creation order.
func (t *Tiers) Global() []GlobalSummary {
	_, valid := readTier[GlobalSummary](t, globalFile, "id", "summary")
	return valid
}

// Cursor returns the last raw id covered by an episodic summary.
func (t *Tiers) Cursor() uint64 {
	return episodicCursor(t.Episodic())
}

func episodicCursor(eps []EpisodicSummary) uint64 {
	var cursor uint64
	for _, ep := range eps {
		cursor = max(cursor, ep.EndID)
	}
	return cursor
}

// MaybeEpisodic summarizes every complete, unsummarized window of
// EpisodeSize messages up to lastID, oldest first. It only fires when
// lastID is a multiple of EpisodeSize. A summarizer failure stops the
// round without persisting anything further; the windows stay pending. So
// does a window with unreadable raw messages.
func (t *Tiers) MaybeEpisodic(ctx context.Context, lastID uint64, source RangeReader) ([]EpisodicSummary, error) {
	if t.summarizer == nil || lastID == 0 || lastID%EpisodeSize != 0 {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	raw, valid := readTier[EpisodicSummary](t, episodicFile, "id", "summary", "start_id", "end_id")
	cursor := episodicCursor(valid)
	nextID := max(nextEpisodicID(valid), uint32(len(raw))+1)

	var out []EpisodicSummary
	for cursor+EpisodeSize <= lastID {
		start, end := cursor+1, cursor+EpisodeSize

		msgs, err := source.ReadRange(start, end)
		if err != nil {
			return out, fmt.Errorf("reading raw range %d-%d: %w", start, end, err)
		}
		if !complete(msgs, start, end) {
			t.logger.Warn("raw range incomplete, deferring episodic rollup",
				"start_id", start, "end_id", end, "readable", len(msgs))
			return out, nil
		}

		excerpts := make([]string, len(msgs))
		for i, m := range msgs {
			excerpts[i] = m.Excerpt()
		}

		text, err := t.summarizer.Summarize(ctx, excerpts, summarizer.KindEpisodic)
		if err != nil {
			t.logger.Warn("episodic rollup failed, will retry", "start_id", start, "end_id", end, "error", err)
			return out, nil
		}

		ep := EpisodicSummary{ID: nextID, StartID: start, EndID: end, Summary: text}
		next, err := t.appendTier(episodicFile, raw, ep)
		if err != nil {
			return out, err
		}
		raw = next

		t.logger.Info("episodic summary created", "id", ep.ID, "start_id", start, "end_id", end)
		out = append(out, ep)
		cursor = end
		nextID++
	}

	return out, nil
}

// complete reports whether msgs holds every id from start to end in order.
// Unreadable raw lines are skipped by the reader and leave a gap.
func complete(msgs []rawlog.Message, start, end uint64) bool {
	if uint64(len(msgs)) != end-start+1 {
		return false
	}
	for i, m := range msgs {
		if m.ID != start+uint64(i) {
			return false
		}
	}
	return true
}

// MaybeBranch condenses the oldest EpisodesPerBranch unconsumed episodic
// summaries while enough exist.
func (t *Tiers) MaybeBranch(ctx context.Context) ([]BranchSummary, error) {
	if t.summarizer == nil {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, episodes := readTier[EpisodicSummary](t, episodicFile, "id", "summary", "start_id", "end_id")
	raw, branches := readTier[BranchSummary](t, branchFile, "id", "summary")

	consumed := make(map[uint32]struct{})
	nextID := uint32(1)
	for _, b := range branches {
		for _, id := range b.EpisodicIDs {
			consumed[id] = struct{}{}
		}
		nextID = max(nextID, b.ID+1)
	}
	nextID = max(nextID, uint32(len(raw))+1)

	units := make([]unit, 0, len(episodes))
	for _, ep := range episodes {
		if _, ok := consumed[ep.ID]; !ok {
			units = append(units, unit{id: ep.ID, text: ep.Summary})
		}
	}

	var out []BranchSummary
	for len(units) >= EpisodesPerBranch {
		batch := units[:EpisodesPerBranch]

		text, err := t.summarizer.Summarize(ctx, texts(batch), summarizer.KindBranch)
		if err != nil {
			t.logger.Warn("branch rollup failed, will retry", "episodic_ids", ids(batch), "error", err)
			return out, nil
		}

		b := BranchSummary{ID: nextID, EpisodicIDs: ids(batch), Summary: text}
		next, err := t.appendTier(branchFile, raw, b)
		if err != nil {
			return out, err
		}
		raw = next

		t.logger.Info("branch summary created", "id", b.ID, "episodic_ids", b.EpisodicIDs)
		out = append(out, b)
		units = units[EpisodesPerBranch:]
		nextID++
	}

	return out, nil
}

// MaybeGlobal condenses the oldest BranchesPerGlobal unconsumed branch
// summaries while enough exist.
func (t *Tiers) MaybeGlobal(ctx context.Context) ([]GlobalSummary, error) {
	if t.summarizer == nil {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, branches := readTier[BranchSummary](t, branchFile, "id", "summary")
	raw, globals := readTier[GlobalSummary](t, globalFile, "id", "summary")

	consumed := make(map[uint32]struct{})
	nextID := uint32(1)
	for _, g := range globals {
		for _, id := range g.BranchIDs {
			consumed[id] = struct{}{}
		}
		nextID = max(nextID, g.ID+1)
	}
	nextID = max(nextID, uint32(len(raw))+1)

	units := make([]unit, 0, len(branches))
	for _, b := range branches {
		if _, ok := consumed[b.ID]; !ok {
			units = append(units, unit{id: b.ID, text: b.Summary})
		}
	}

	var out []GlobalSummary
	for len(units) >= BranchesPerGlobal {
		batch := units[:BranchesPerGlobal]

		text, err := t.summarizer.Summarize(ctx, texts(batch), summarizer.KindGlobal)
		if err != nil {
			t.logger.Warn("global rollup failed, will retry", "branch_ids", ids(batch), "error", err)
			return out, nil
		}

		g := GlobalSummary{ID: nextID, BranchIDs: ids(batch), Summary: text}
		next, err := t.appendTier(globalFile, raw, g)
		if err != nil {
			return out, err
		}
		raw = next

		t.logger.Info("global summary created", "id", g.ID, "branch_ids", g.BranchIDs)
		out = append(out, g)
		units = units[BranchesPerGlobal:]
		nextID++
	}

	return out, nil
}

type unit struct {
	id   uint32
	text string
}

func texts(units []unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.text
	}
	return out
}

func ids(units []unit) []uint32 {
	out := make([]uint32, len(units))
	for i, u := range units {
		out[i] = u.id
	}
	return out
}

func nextEpisodicID(eps []EpisodicSummary) uint32 {
	next := uint32(1)
	for _, ep := range eps {
		next = max(next, ep.ID+1)
	}
	return next
}

// Files lists the tier file names, for callers that copy or inspect a
// namespace directory.
func Files() []string {
	return slices.Clone(tierFiles)
}
