package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Storage persists completed analyses. The pipeline calls it only at the end
// of a run and never depends on the engine behind it.
type Storage interface {
	SaveAnalysis(ctx context.Context, rec *Record) (string, error)
	IncrementUsage(ctx context.Context, userID string, pageCount int) error
	LoadHistory(ctx context.Context, userID string) ([]Record, error)
	DeleteAnalysis(ctx context.Context, id string) error
}

// FileStorage keeps one JSON file per analysis under a directory, with usage
// counters in a sidecar file. It is the default Storage for the CLI.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates the directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (fs *FileStorage) SaveAnalysis(ctx context.Context, rec *Record) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}

	path := filepath.Join(fs.dir, rec.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write analysis %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

func (fs *FileStorage) IncrementUsage(ctx context.Context, userID string, pageCount int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	usage := map[string]int{}
	path := filepath.Join(fs.dir, "usage.json")
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &usage); err != nil {
			return fmt.Errorf("parse usage file: %w", err)
		}
	}

	usage[userID] += pageCount

	data, err := json.MarshalIndent(usage, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write usage file: %w", err)
	}
	return nil
}

func (fs *FileStorage) LoadHistory(ctx context.Context, userID string) ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == "usage.json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read analysis %s: %w", name, err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue // skip unreadable records rather than failing history
		}
		if userID == "" || rec.UserID == userID {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (fs *FileStorage) DeleteAnalysis(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := filepath.Join(fs.dir, id+".json")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	return nil
}
