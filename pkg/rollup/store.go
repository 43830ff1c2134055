package rollup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercomputeco/memoria/pkg/fileutil"
)

const (
	episodicFile = "episodic_summaries.json"
	branchFile   = "branch_summaries.json"
	globalFile   = "global_summaries.json"
)

var tierFiles = []string{episodicFile, branchFile, globalFile}

// readTier loads a tier file. It returns every entry as stored, so that
// rewriting the file never drops entries, and the entries that decode into
// T with every required field present. A missing or unparsable file reads
// as empty.
func readTier[T any](t *Tiers, file string, required ...string) ([]json.RawMessage, []T) {
	data, err := os.ReadFile(filepath.Join(t.dir, file))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("could not read tier file", "file", file, "error", err)
		}
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.logger.Warn("tier file unreadable, treating as empty", "file", file, "error", err)
		return nil, nil
	}

	valid := make([]T, 0, len(raw))
	for i, entry := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			t.logger.Warn("skipping malformed tier entry", "file", file, "index", i, "error", err)
			continue
		}
		if missing := missingField(fields, required); missing != "" {
			t.logger.Warn("skipping malformed tier entry", "file", file, "index", i, "missing", missing)
			continue
		}

		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			t.logger.Warn("skipping malformed tier entry", "file", file, "index", i, "error", err)
			continue
		}
		valid = append(valid, v)
	}

	return raw, valid
}

func missingField(fields map[string]json.RawMessage, required []string) string {
	for _, name := range required {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return name
		}
	}
	return ""
}

// appendTier atomically rewrites file with rec added after the existing
// entries and returns the new entry list.
func (t *Tiers) appendTier(file string, existing []json.RawMessage, rec any) ([]json.RawMessage, error) {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding %s entry: %w", file, err)
	}

	entries := make([]json.RawMessage, 0, len(existing)+1)
	entries = append(entries, existing...)
	entries = append(entries, encoded)

	if err := fileutil.WriteJSON(filepath.Join(t.dir, file), entries); err != nil {
		return nil, fmt.Errorf("writing %s: %w", file, err)
	}
	return entries, nil
}

func (t *Tiers) writeEmpty(file string) error {
	if err := fileutil.WriteJSON(filepath.Join(t.dir, file), []json.RawMessage{}); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return nil
}
