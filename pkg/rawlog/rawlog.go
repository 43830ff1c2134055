// Package rawlog is the append-only message log of a memoria namespace.
//
// Messages are stored one JSON object per line in rotating segment files
// (raw/segment-000001.jsonl, ...). metadata.json holds the resume counters and
// a segment index mapping each segment to its first id, message count and
// committed byte offset. Bytes past a committed offset are never read and are
// discarded by the next append, so a crash between the segment write and the
// metadata write leaves no observable message.
package rawlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/papercomputeco/memoria/pkg/fileutil"
	"github.com/papercomputeco/memoria/pkg/logger"
)

const (
	// DefaultRotate is the number of messages a segment holds before a new
	// one is opened.
	DefaultRotate = 500

	metadataFile = "metadata.json"
	rawDir       = "raw"
)

// Log is the raw message log of one namespace. It is safe for concurrent
// use within a process; cross-process writers must be serialized by the
// caller.
type Log struct {
	dir    string
	rotate uint32
	logger *slog.Logger

	mu   sync.RWMutex
	meta Metadata
}

type Option func(*Log)

// WithRotate overrides DefaultRotate. Values below 1 are ignored.
func WithRotate(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.rotate = uint32(n)
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Log) {
		if log != nil {
			l.logger = log
		}
	}
}

// Open loads the log rooted at dir, creating the directory layout when
// missing. A missing or unusable metadata file is rebuilt from the segment
// files; corruption is logged, never returned.
func Open(dir string, opts ...Option) (*Log, error) {
	l := &Log{
		dir:    dir,
		rotate: DefaultRotate,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(filepath.Join(dir, rawDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating raw log directory: %w", err)
	}

	if err := l.load(); err != nil {
		return nil, err
	}

	return l, nil
}

// Dir returns the namespace directory the log lives in.
func (l *Log) Dir() string {
	return l.dir
}

// Metadata returns a copy of the current counters.
func (l *Log) Metadata() Metadata {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.clone()
}

// LastID returns the id of the newest message, 0 when the log is empty.
func (l *Log) LastID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.LastID
}

// Append writes one message and returns its id.
func (l *Log) Append(role Role, content string) (uint64, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.meta.clone()
	id := next.LastID + 1
	cur := next.current()

	line, err := json.Marshal(Message{ID: id, Role: role, Content: content})
	if err != nil {
		return 0, fmt.Errorf("encoding message: %w", err)
	}
	line = append(line, '\n')

	path := l.segmentPath(cur.Segment)
	if err := writeAt(path, cur.Offset, line); err != nil {
		return 0, err
	}

	if cur.Count == 0 {
		cur.FirstID = id
	}
	cur.Count++
	cur.Offset += int64(len(line))
	next.LastID = id
	next.CountInCurrentSegment = cur.Count

	rotated := false
	if next.CountInCurrentSegment >= l.rotate {
		next.CurrentSegment++
		next.CountInCurrentSegment = 0
		next.Segments = append(next.Segments, SegmentIndex{
			Segment: next.CurrentSegment,
			FirstID: id + 1,
		})
		if err := createEmpty(l.segmentPath(next.CurrentSegment)); err != nil {
			l.rollback(path, l.meta.current().Offset)
			return 0, err
		}
		rotated = true
	}

	if err := l.saveMetadata(next); err != nil {
		l.rollback(path, l.meta.current().Offset)
		if rotated {
			_ = os.Remove(l.segmentPath(next.CurrentSegment))
		}
		return 0, err
	}

	l.meta = next
	if rotated {
		l.logger.Debug("rotated raw segment", "segment", next.CurrentSegment, "last_id", id)
	}

	return id, nil
}

// ReadRange returns the messages with start <= id <= end in id order.
// An inverted range returns nil.
func (l *Log) ReadRange(start, end uint64) ([]Message, error) {
	if start == 0 {
		start = 1
	}
	if end < start {
		return nil, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Message
	for _, seg := range l.meta.Segments {
		if seg.Count == 0 || seg.lastID() < start {
			continue
		}
		if seg.FirstID > end {
			break
		}

		done := false
		err := l.scanSegment(seg, func(m Message, _ int64) bool {
			if m.ID < start {
				return true
			}
			out = append(out, m)
			if m.ID >= end {
				done = true
				return false
			}
			return true
		})
		if err != nil {
			return out, err
		}
		if done {
			break
		}
	}

	return out, nil
}

// Tail returns up to n of the newest messages in id order.
func (l *Log) Tail(n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	last := l.LastID()
	if last == 0 {
		return nil, nil
	}
	start := uint64(1)
	if last > uint64(n) {
		start = last - uint64(n) + 1
	}
	return l.ReadRange(start, last)
}

// TruncateLast removes the newest n messages, walking back across segment
// boundaries. It stops early when the log becomes empty and returns the
// number of messages removed.
func (l *Log) TruncateLast(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.meta.clone()
	var dropped []uint32
	removed := 0

	for removed < n && next.LastID > 0 {
		cur := next.current()

		if cur.Count == 0 {
			if len(next.Segments) == 1 {
				break
			}
			dropped = append(dropped, cur.Segment)
			next.Segments = next.Segments[:len(next.Segments)-1]
			next.CurrentSegment = next.current().Segment
			next.CountInCurrentSegment = next.current().Count
			continue
		}

		k := min(uint32(n-removed), cur.Count)
		keep := cur.Count - k

		offset, err := l.offsetOf(*cur, keep)
		if err != nil {
			return 0, err
		}

		cur.Count = keep
		cur.Offset = offset
		next.LastID -= uint64(k)
		next.CountInCurrentSegment = keep
		removed += int(k)
	}

	if removed == 0 && len(dropped) == 0 {
		return 0, nil
	}

	// Metadata first: bytes past the committed offset are already invisible,
	// so a crash before the file truncation below loses nothing.
	if err := l.saveMetadata(next); err != nil {
		return 0, err
	}
	l.meta = next

	cur := next.current()
	if err := os.Truncate(l.segmentPath(cur.Segment), cur.Offset); err != nil {
		l.logger.Warn("could not truncate raw segment", "segment", cur.Segment, "error", err)
	}
	for _, seg := range dropped {
		if err := os.Remove(l.segmentPath(seg)); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("could not remove raw segment", "segment", seg, "error", err)
		}
	}

	return removed, nil
}

// Reset discards every segment and the metadata, leaving an empty log.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(l.dir, rawDir)); err != nil {
		return fmt.Errorf("removing raw segments: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(l.dir, rawDir), 0o755); err != nil {
		return fmt.Errorf("creating raw log directory: %w", err)
	}

	meta := defaultMetadata()
	if err := l.saveMetadata(meta); err != nil {
		return err
	}
	l.meta = meta

	return nil
}

func (l *Log) segmentPath(seg uint32) string {
	return filepath.Join(l.dir, rawDir, segmentName(seg))
}

func (l *Log) metadataPath() string {
	return filepath.Join(l.dir, metadataFile)
}

func (l *Log) saveMetadata(meta Metadata) error {
	if err := fileutil.WriteJSON(l.metadataPath(), meta); err != nil {
		return fmt.Errorf("writing raw log metadata: %w", err)
	}
	return nil
}

func (l *Log) rollback(path string, offset int64) {
	if err := os.Truncate(path, offset); err != nil {
		l.logger.Warn("could not roll back raw segment", "path", path, "error", err)
	}
}

// scanSegment decodes the committed lines of seg in order. fn receives each
// message with the byte offset of the line that follows it and returns false
// to stop early. Undecodable lines are logged and skipped.
func (l *Log) scanSegment(seg SegmentIndex, fn func(Message, int64) bool) error {
	f, err := os.Open(l.segmentPath(seg.Segment))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("raw segment missing", "segment", seg.Segment)
			return nil
		}
		return fmt.Errorf("opening raw segment %d: %w", seg.Segment, err)
	}
	defer f.Close()

	return scanLines(io.LimitReader(f, seg.Offset), func(line []byte, end int64) bool {
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			l.logger.Warn("skipping unreadable raw message", "segment", seg.Segment, "offset", end-int64(len(line)), "error", err)
			return true
		}
		return fn(m, end)
	})
}

// offsetOf returns the byte offset just past the first keep lines of seg.
func (l *Log) offsetOf(seg SegmentIndex, keep uint32) (int64, error) {
	if keep == 0 {
		return 0, nil
	}

	f, err := os.Open(l.segmentPath(seg.Segment))
	if err != nil {
		return 0, fmt.Errorf("opening raw segment %d: %w", seg.Segment, err)
	}
	defer f.Close()

	var (
		seen   uint32
		offset int64
	)
	err = scanLines(io.LimitReader(f, seg.Offset), func(_ []byte, end int64) bool {
		seen++
		offset = end
		return seen < keep
	})
	if err != nil {
		return 0, err
	}
	if seen < keep {
		return 0, fmt.Errorf("raw segment %d holds %d lines, index expects %d", seg.Segment, seen, seg.Count)
	}

	return offset, nil
}

// scanLines calls fn for every newline terminated line in r with the offset
// just past it. A trailing partial line is ignored.
func scanLines(r io.Reader, fn func(line []byte, end int64) bool) error {
	br := bufio.NewReader(r)
	var offset int64
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			offset += int64(len(line))
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				if !fn(trimmed, offset) {
					return nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading raw segment: %w", err)
		}
	}
}

// writeAt discards anything past offset and appends data there, synced.
func writeAt(path string, offset int64, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("opening raw segment: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(offset); err != nil {
		return fmt.Errorf("truncating raw segment: %w", err)
	}
	if _, err := f.WriteAt(data, offset); err != nil {
		_ = f.Truncate(offset)
		return fmt.Errorf("writing raw segment: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Truncate(offset)
		return fmt.Errorf("syncing raw segment: %w", err)
	}

	return nil
}

func createEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating raw segment: %w", err)
	}
	return f.Close()
}
