package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File writes the report to a text file, the hand-off point for an external
// posting step (a workflow job picks the file up and does the actual send).
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return "file" }

func (f *File) Publish(ctx context.Context, text string) error {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &Error{Kind: Other, Err: fmt.Errorf("create report dir: %w", err)}
		}
	}
	if err := os.WriteFile(f.path, []byte(text), 0o644); err != nil {
		if os.IsPermission(err) {
			return &Error{Kind: PermissionDenied, Err: err}
		}
		return &Error{Kind: Other, Err: err}
	}
	return nil
}
