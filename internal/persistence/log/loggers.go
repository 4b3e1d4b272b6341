package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"pixelgrid.io/internal/sim/grid"
)

// JSONLZstdWriter appends JSON lines to hourly-rotated zstd files.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	if w.f == nil {
		return nil
	}
	var firstErr error
	if w.w != nil {
		if err := w.w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.enc != nil {
		if err := w.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := w.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	w.f = nil
	w.enc = nil
	w.w = nil
	w.curHour = ""
	return firstErr
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// AuditWriter persists registry mutations as an append-only audit trail.
type AuditWriter struct {
	w *JSONLZstdWriter
}

func NewAuditWriter(baseDir string) *AuditWriter {
	return &AuditWriter{w: NewJSONLZstdWriter(baseDir, "audit")}
}

func (a *AuditWriter) WriteAudit(entry grid.AuditEntry) error { return a.w.Write(entry) }
func (a *AuditWriter) Close() error                           { return a.w.Close() }

// EventWriter persists the journal for offline replay of the presentation
// layer's view.
type EventWriter struct {
	w *JSONLZstdWriter
}

func NewEventWriter(baseDir string) *EventWriter {
	return &EventWriter{w: NewJSONLZstdWriter(baseDir, "events")}
}

func (e *EventWriter) WriteEvent(entry grid.EventLogEntry) error { return e.w.Write(entry) }
func (e *EventWriter) Close() error                              { return e.w.Close() }

// PayoutLedger records treasury withdrawals. It implements grid.Transferrer:
// a payout "transfer" here is an acknowledged ledger append, and any write
// failure is reported back so the registry keeps the balance.
type PayoutLedger struct {
	w *JSONLZstdWriter
}

func NewPayoutLedger(baseDir string) *PayoutLedger {
	return &PayoutLedger{w: NewJSONLZstdWriter(baseDir, "payouts")}
}

type payoutRecord struct {
	Dest     string `json:"dest"`
	Amount   uint64 `json:"amount"`
	Recorded string `json:"recorded_at"`
}

func (p *PayoutLedger) Transfer(dest string, amount uint64) error {
	return p.w.Write(payoutRecord{
		Dest:     dest,
		Amount:   amount,
		Recorded: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (p *PayoutLedger) Close() error { return p.w.Close() }
