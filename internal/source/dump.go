package source

import (
	"fmt"
	"os"
	"path/filepath"
)

// RawSink persists raw upstream payloads for diagnostics. Writes are
// best-effort: a failed dump never affects the fetch that produced it.
type RawSink struct {
	dir string
}

// NewRawSink returns a sink rooted at dir, or nil when dir is empty; a nil
// sink is valid and drops everything.
func NewRawSink(dir string) *RawSink {
	if dir == "" {
		return nil
	}
	return &RawSink{dir: dir}
}

// Dump writes payload to <dir>/<adapter>_<entity>.json, creating the
// directory as needed.
func (s *RawSink) Dump(adapter, entityID string, payload []byte) error {
	if s == nil || len(payload) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", adapter, entityID))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}
