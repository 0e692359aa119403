package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"escrowScope/internal/model"
)

// JsonlStorage appends records to a JSONL file, one object per line.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

type jsonlLine struct {
	Type      string                `json:"type"`
	Event     *model.EventRecord    `json:"event,omitempty"`
	Agreement *model.AggregateState `json:"agreement,omitempty"`
}

// PutEventBatch appends a batch of event records.
func (s *JsonlStorage) PutEventBatch(_ context.Context, records []model.EventRecord) error {
	lines := make([]jsonlLine, 0, len(records))
	for i := range records {
		lines = append(lines, jsonlLine{Type: "event", Event: &records[i]})
	}
	return s.append(lines)
}

// PutAgreements appends a batch of agreement snapshots.
func (s *JsonlStorage) PutAgreements(_ context.Context, states []model.AggregateState) error {
	lines := make([]jsonlLine, 0, len(states))
	for i := range states {
		lines = append(lines, jsonlLine{Type: "agreement", Agreement: &states[i]})
	}
	return s.append(lines)
}

func (s *JsonlStorage) append(lines []jsonlLine) error {
	if len(lines) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("marshal %s line: %w", line.Type, err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("write %s line: %w", line.Type, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
