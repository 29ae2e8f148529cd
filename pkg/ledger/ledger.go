// Package ledger is an append-only JSONL store for durable learnings the
// assistant records across sessions.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one recorded learning.
type Entry struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger appends entries to a single JSONL file.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// New creates a ledger at path, creating parent directories as needed.
func New(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &Ledger{path: path}, nil
}

// Record appends a learning and returns it with ID and timestamp filled.
func (l *Ledger) Record(topic, content string, tags []string) (Entry, error) {
	if strings.TrimSpace(content) == "" {
		return Entry{}, fmt.Errorf("learning content must not be empty")
	}
	entry := Entry{
		ID:        ulid.Make().String(),
		Topic:     topic,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encode learning: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("append learning: %w", err)
	}
	return entry, nil
}

// List returns entries, newest last, optionally filtered by topic substring.
// A missing file is an empty ledger.
func (l *Ledger) List(topic string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			// Skip corrupt lines rather than losing the whole ledger.
			continue
		}
		if topic != "" && !strings.Contains(strings.ToLower(e.Topic), strings.ToLower(topic)) {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return out, nil
}
