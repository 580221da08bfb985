package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingJSONLStore stores records in a JSONL file with automatic rotation.
type RotatingJSONLStore struct {
	logger *lumberjack.Logger
	path   string
}

// NewRotatingJSONLStore creates a store with rotation thresholds in
// megabytes and days.
func NewRotatingJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingJSONLStore, error) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   false,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &RotatingJSONLStore{logger: lj, path: path}, nil
}

// Append writes the record and triggers rotation if needed.
func (s *RotatingJSONLStore) Append(ctx context.Context, rec Record) error {
	_ = ctx
	enc := json.NewEncoder(s.logger)
	return enc.Encode(rec)
}

// Query reads every file matching the store's rotation pattern, including
// rotated backups.
func (s *RotatingJSONLStore) Query(ctx context.Context, q Query) ([]Record, error) {
	_ = ctx
	// lumberjack names backups <name>-<timestamp><ext> next to the live file.
	ext := filepath.Ext(s.path)
	backups, err := filepath.Glob(strings.TrimSuffix(s.path, ext) + "-*" + ext)
	if err != nil {
		return nil, err
	}
	files := append(backups, s.path)

	var res []Record
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var r Record
			if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
				continue
			}
			if matches(r, q) {
				res = append(res, r)
			}
		}
		_ = f.Close()
	}
	return res, nil
}

// Close closes the underlying rotating writer.
func (s *RotatingJSONLStore) Close() error {
	return s.logger.Close()
}
