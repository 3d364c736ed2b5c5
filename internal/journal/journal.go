// Package journal appends confirmed swap receipts to a JSON Lines file.
package journal

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/swap"
)

type entry struct {
	RecordedAt time.Time `json:"recordedAt"`
	swap.Receipt
}

// Journal is safe for concurrent use. Path "-" writes to stdout.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

func Open(path string) (*Journal, error) {
	if path == "-" {
		return newJournal(os.Stdout, nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return newJournal(f, f), nil
}

func newJournal(w io.Writer, f *os.File) *Journal {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Journal{file: f, enc: enc, now: time.Now}
}

func (j *Journal) Record(ctx context.Context, r swap.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(entry{RecordedAt: j.now().UTC(), Receipt: r})
}

func (j *Journal) Close() error {
	if j.file == nil {
		return nil
	}
	return j.file.Close()
}
