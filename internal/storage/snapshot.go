package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is a point-in-time dump of one resource list, as the API
// returned it.
type Snapshot struct {
	ID         string           `json:"id"`
	Resource   string           `json:"resource"`
	BaseURL    string           `json:"base_url"`
	ExportedAt time.Time        `json:"exported_at"`
	Count      int              `json:"count"`
	Items      []map[string]any `json:"items"`
}

func NewSnapshot(id string, resource string, baseURL string, items []map[string]any, now time.Time) Snapshot {
	if items == nil {
		items = []map[string]any{}
	}
	return Snapshot{
		ID:         id,
		Resource:   resource,
		BaseURL:    baseURL,
		ExportedAt: now.UTC(),
		Count:      len(items),
		Items:      items,
	}
}

func Encode(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// WriteFile writes the snapshot next to path first and renames it into
// place.
func WriteFile(path string, snap Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.json")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move export file: %w", err)
	}
	return nil
}
