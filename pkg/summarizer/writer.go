package summarizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Formatter renders a Summary as text.
type Formatter interface {
	Format(summary *Summary) string
}

// Fprint writes the formatted summary to w.
func Fprint(w io.Writer, f Formatter, summary *Summary) error {
	if _, err := io.WriteString(w, f.Format(summary)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Save writes the formatted summary to path, creating missing parent
// directories.
func Save(path string, f Formatter, summary *Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(f.Format(summary)), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
