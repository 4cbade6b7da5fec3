package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

// FileDeadLetter escribe los payloads descartados como JSON lines en un archivo
// local. Es el fallback cuando no hay topic de dead letter configurado.
type FileDeadLetter struct {
	file   *os.File
	logger observability.Logger
	mu     sync.Mutex
}

type deadLetterEntry struct {
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RawBase64 []byte          `json:"raw,omitempty"`
}

func NewFileDeadLetter(outputDir string, logger observability.Logger) (*FileDeadLetter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create dead letter dir: %w", err)
	}

	filePath := filepath.Join(outputDir, "dead_letter.jsonl")

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open dead letter file: %w", err)
	}

	return &FileDeadLetter{
		file:   file,
		logger: logger,
	}, nil
}

func (d *FileDeadLetter) Publish(ctx context.Context, payload []byte, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry := deadLetterEntry{
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	// Payloads que no son JSON válido se guardan en crudo
	if json.Valid(payload) {
		entry.Payload = payload
	} else {
		entry.RawBase64 = payload
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("serialize dead letter entry: %w", err)
	}

	if _, err := d.file.Write(jsonData); err != nil {
		return fmt.Errorf("write to dead letter file: %w", err)
	}

	if _, err := d.file.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	return nil
}

func (d *FileDeadLetter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.file.Close()
}
