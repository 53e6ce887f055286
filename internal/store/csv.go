package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gofrs/flock"

	"dexpulse/internal/model"
)

// CSV is the file-backed store: one shared table with an entity column,
// rewritten atomically on every upsert. A sibling lock file serializes
// read-modify-write between overlapping runs.
type CSV struct {
	path string
	lock *flock.Flock
}

func NewCSV(path string) *CSV {
	return &CSV{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *CSV) Close() error { return nil }

func (s *CSV) Series(ctx context.Context, entityID string) ([]model.MetricRow, error) {
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

func (s *CSV) Upsert(ctx context.Context, row model.MetricRow) ([]model.MetricRow, error) {
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

func filterEntity(rows []model.MetricRow, entityID string) []model.MetricRow {
	var out []model.MetricRow
	for _, r := range rows {
		if sameEntity(r, entityID) {
			r.EntityID = entityID
			out = append(out, r)
		}
	}
	return out
}

// sameEntity also claims rows with an empty entity column so that files
// written before the column existed keep working.
func sameEntity(r model.MetricRow, entityID string) bool {
	return r.EntityID == entityID || r.EntityID == ""
}

func (s *CSV) readAll() ([]model.MetricRow, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrCorrupt, s.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, s.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	dateIdx, hasDate := col["date"]
	if !hasDate {
		return nil, fmt.Errorf("%w: %s has no date column", ErrCorrupt, s.path)
	}

	cell := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []model.MetricRow
	for _, record := range records[1:] {
		if dateIdx >= len(record) {
			continue
		}
		row := model.NewMetricRow(cell(record, "entity_id"), record[dateIdx])
		if _, err := row.ParseDate(); err != nil {
			// Malformed dates are excluded from the series, not fatal.
			continue
		}
		for _, field := range model.AllFields {
			if v, ok := parseCell(cell(record, string(field))); ok {
				row.Set(field, v)
			}
		}
		if v, ok := parseCell(cell(record, "rolling_7d_volume")); ok {
			row.Rolling7dVolume = &v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *CSV) writeAll(rows []model.MetricRow) error {
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

	writer := csv.NewWriter(tmp)

	header := []string{"date", "entity_id"}
	for _, field := range model.AllFields {
		header = append(header, string(field))
	}
	header = append(header, "rolling_7d_volume")
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write store header: %w", err)
	}

	for _, row := range rows {
		record := []string{row.Date, row.EntityID}
		for _, field := range model.AllFields {
			record = append(record, formatCell(row.Value(field)))
		}
		if row.Rolling7dVolume != nil {
			record = append(record, strconv.FormatFloat(*row.Rolling7dVolume, 'f', -1, 64))
		} else {
			record = append(record, "")
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write store row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
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

func parseCell(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatCell(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
