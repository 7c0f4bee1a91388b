package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunRecord is one entry of a result log.
type RunRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Status    string    `json:"status"` // "pass" or "fail" validation
	Host      HostInfo  `json:"host"`
	Result    *Result   `json:"result"`
}

// NewRunRecord stamps res with the current time and its validation status.
func NewRunRecord(res *Result, host HostInfo, version string) RunRecord {
	status := "pass"
	if res.Validation == nil || !res.Validation.Passed() {
		status = "fail"
	}
	return RunRecord{
		Timestamp: time.Now(),
		Version:   version,
		Status:    status,
		Host:      host,
		Result:    res,
	}
}

// ResultLog accumulates run records in a JSON array on disk. Every Append
// rewrites the file so an interrupted session keeps what it recorded.
type ResultLog struct {
	mu      sync.Mutex
	path    string
	records []RunRecord
}

// OpenResultLog loads the records already in path, if any.
func OpenResultLog(path string) (*ResultLog, error) {
	records, err := ReadResultLog(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return &ResultLog{path: path, records: records}, nil
}

// Append adds rec and flushes the log.
func (l *ResultLog) Append(rec RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	return l.flush()
}

// Records returns the records held by the log.
func (l *ResultLog) Records() []RunRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RunRecord(nil), l.records...)
}

func (l *ResultLog) flush() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(l.path, data, 0644)
}

// ReadResultLog decodes the records stored at path.
func ReadResultLog(path string) ([]RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse result log %s: %w", path, err)
	}
	return records, nil
}
