package rawlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
)

// Metadata holds the counters that make the log resumable.
type Metadata struct {
	CurrentSegment        uint32 `json:"current_segment"`
	CountInCurrentSegment uint32 `json:"count_in_current_segment"`
	LastID                uint64 `json:"last_id"`

	// Segments indexes every segment from 1 to CurrentSegment.
	Segments []SegmentIndex `json:"segments"`
}

// SegmentIndex locates the committed content of one segment file.
type SegmentIndex struct {
	Segment uint32 `json:"segment"`
	FirstID uint64 `json:"first_id"`
	Count   uint32 `json:"count"`

	// Offset is the committed length of the segment file in bytes.
	Offset int64 `json:"offset"`
}

func (s SegmentIndex) lastID() uint64 {
	if s.Count == 0 {
		return 0
	}
	return s.FirstID + uint64(s.Count) - 1
}

func defaultMetadata() Metadata {
	return Metadata{
		CurrentSegment: 1,
		Segments:       []SegmentIndex{{Segment: 1, FirstID: 1}},
	}
}

func (m *Metadata) current() *SegmentIndex {
	return &m.Segments[len(m.Segments)-1]
}

func (m Metadata) clone() Metadata {
	m.Segments = slices.Clone(m.Segments)
	return m
}

// validate checks the counters against the segment index.
func (m Metadata) validate() error {
	if len(m.Segments) == 0 {
		return errors.New("missing segment index")
	}

	var total uint64
	for i, seg := range m.Segments {
		if seg.Segment != uint32(i+1) {
			return fmt.Errorf("segment index out of order at %d", seg.Segment)
		}
		if seg.Count > 0 && seg.FirstID != total+1 {
			return fmt.Errorf("segment %d starts at id %d, expected %d", seg.Segment, seg.FirstID, total+1)
		}
		total += uint64(seg.Count)
	}

	cur := m.Segments[len(m.Segments)-1]
	switch {
	case cur.Segment != m.CurrentSegment:
		return fmt.Errorf("current segment %d does not match index %d", m.CurrentSegment, cur.Segment)
	case cur.Count != m.CountInCurrentSegment:
		return fmt.Errorf("current count %d does not match index %d", m.CountInCurrentSegment, cur.Count)
	case total != m.LastID:
		return fmt.Errorf("last id %d does not match indexed total %d", m.LastID, total)
	}

	return nil
}

func (l *Log) load() error {
	data, err := os.ReadFile(l.metadataPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		segs, listErr := l.listSegments()
		if listErr != nil {
			return listErr
		}
		if len(segs) == 0 {
			l.meta = defaultMetadata()
			return l.saveMetadata(l.meta)
		}
		l.logger.Warn("raw log metadata missing, rebuilding from segments")
		return l.recover()

	case err != nil:
		return fmt.Errorf("reading raw log metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		l.logger.Warn("raw log metadata unreadable, rebuilding from segments", "error", err)
		return l.recover()
	}
	if err := meta.validate(); err != nil {
		l.logger.Warn("raw log metadata inconsistent, rebuilding from segments", "error", err)
		return l.recover()
	}
	if err := l.checkSegmentFiles(meta); err != nil {
		l.logger.Warn("raw segment files disagree with metadata, rebuilding", "error", err)
		return l.recover()
	}

	l.meta = meta
	return nil
}

// checkSegmentFiles verifies every committed offset is present on disk.
func (l *Log) checkSegmentFiles(meta Metadata) error {
	for _, seg := range meta.Segments {
		info, err := os.Stat(l.segmentPath(seg.Segment))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && seg.Offset == 0 {
				continue
			}
			return err
		}
		if info.Size() < seg.Offset {
			return fmt.Errorf("segment %d is %d bytes, %d committed", seg.Segment, info.Size(), seg.Offset)
		}
	}
	return nil
}

// recover rebuilds metadata by scanning segment files in order. Scanning
// stops at the first record that is unreadable or out of sequence; whatever
// follows is treated as uncommitted.
func (l *Log) recover() error {
	segs, err := l.listSegments()
	if err != nil {
		return err
	}

	meta := Metadata{}
	next := uint64(1)
	broken := false

	for i, num := range segs {
		if num != uint32(i+1) || broken {
			break
		}

		idx := SegmentIndex{Segment: num, FirstID: next}
		f, err := os.Open(l.segmentPath(num))
		if err != nil {
			return fmt.Errorf("opening raw segment %d: %w", num, err)
		}
		err = scanLines(f, func(line []byte, end int64) bool {
			var m Message
			if json.Unmarshal(line, &m) != nil || m.ID != next || !m.Role.Valid() {
				broken = true
				return false
			}
			idx.Count++
			idx.Offset = end
			next++
			return idx.Count < l.rotate
		})
		_ = f.Close()
		if err != nil {
			return err
		}

		meta.Segments = append(meta.Segments, idx)
		if idx.Count < l.rotate {
			break
		}
	}

	if len(meta.Segments) == 0 {
		meta = defaultMetadata()
	} else if meta.current().Count >= l.rotate {
		meta.Segments = append(meta.Segments, SegmentIndex{
			Segment: meta.current().Segment + 1,
			FirstID: next,
		})
	}

	meta.LastID = next - 1
	meta.CurrentSegment = meta.current().Segment
	meta.CountInCurrentSegment = meta.current().Count

	// Segment files past the recovered tail hold nothing committed.
	for _, num := range segs {
		if num > meta.CurrentSegment {
			_ = os.Remove(l.segmentPath(num))
		}
	}

	if err := l.saveMetadata(meta); err != nil {
		return err
	}
	l.meta = meta

	l.logger.Info("recovered raw log", "last_id", meta.LastID, "segments", len(meta.Segments))
	return nil
}

var segmentPattern = regexp.MustCompile(`^segment-(\d+)\.jsonl$`)

func segmentName(seg uint32) string {
	return fmt.Sprintf("segment-%06d.jsonl", seg)
}

// listSegments returns the segment numbers present on disk, ascending.
func (l *Log) listSegments() ([]uint32, error) {
	entries, err := os.ReadDir(filepath.Join(l.dir, rawDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing raw segments: %w", err)
	}

	var segs []uint32
	for _, e := range entries {
		match := segmentPattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		n, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil || n == 0 {
			continue
		}
		segs = append(segs, uint32(n))
	}
	slices.Sort(segs)

	return segs, nil
}
