package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"dexpulse/internal/model"
)

// JSONL is a line-delimited JSON variant of the file store: one MetricRow
// per line, rewritten atomically on every upsert. It keeps the full row
// structure intact, which the flat CSV format cannot.
type JSONL struct {
	path string
	lock *flock.Flock
}

func NewJSONL(path string) *JSONL {
	return &JSONL{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *JSONL) Close() error { return nil }

func (s *JSONL) Series(ctx context.Context, entityID string) ([]model.MetricRow, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	defer s.lock.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	return filterEntity(all, entityID), nil
}

func (s *JSONL) Upsert(ctx context.Context, row model.MetricRow) ([]model.MetricRow, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	defer s.lock.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var mine, others []model.MetricRow
	for _, r := range all {
		if sameEntity(r, row.EntityID) {
			r.EntityID = row.EntityID
			mine = append(mine, r)
		} else {
			others = append(others, r)
		}
	}

	mine = applyUpsert(mine, row)

	merged := append(others, mine...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].EntityID != merged[j].EntityID {
			return merged[i].EntityID < merged[j].EntityID
		}
		return merged[i].Date < merged[j].Date
	})

	if err := s.writeAll(merged); err != nil {
		return nil, err
	}
	return mine, nil
}

func (s *JSONL) readAll() ([]model.MetricRow, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrCorrupt, s.path, err)
	}
	defer file.Close()

	var rows []model.MetricRow
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row model.MetricRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, s.path, err)
		}
		if _, err := row.ParseDate(); err != nil {
			// Malformed dates are excluded from the series, not fatal.
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCorrupt, s.path, err)
	}
	return rows, nil
}

func (s *JSONL) writeAll(rows []model.MetricRow) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := bufio.NewWriter(tmp)
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("marshal store row: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			tmp.Close()
			return fmt.Errorf("write store row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			tmp.Close()
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
