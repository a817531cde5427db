package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"arborcraft.ai/internal/sim/arbor"
)

const (
	bucketLayout = "2006-01-02-15"
	filePattern  = "events-*.jsonl.zst"

	// DefaultFlushEvery is how many events are buffered before they are
	// pushed into the compressor.
	DefaultFlushEvery = 64
)

// EventLogger appends engine events as zstd-compressed JSONL. Files are
// bucketed by the UTC hour the event happened in, so replaying a world
// keeps its events in the hour they were recorded.
type EventLogger struct {
	dir        string
	flushEvery int

	mu      sync.Mutex
	bucket  string
	f       *os.File
	enc     *zstd.Encoder
	buf     *bufio.Writer
	pending int
}

func NewEventLogger(worldDir string) *EventLogger {
	return &EventLogger{dir: filepath.Join(worldDir, "events"), flushEvery: DefaultFlushEvery}
}

// SetFlushEvery changes the buffering cadence; n <= 1 flushes every event.
func (l *EventLogger) SetFlushEvery(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushEvery = n
}

func (l *EventLogger) WriteEvent(e arbor.Event) error {
	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}
	bucket := at.UTC().Format(bucketLayout)

	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket != l.bucket {
		if err := l.openLocked(bucket); err != nil {
			return err
		}
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := l.buf.Write(line); err != nil {
		return err
	}
	l.pending++
	if l.pending >= l.flushEvery {
		return l.flushLocked()
	}
	return nil
}

// Flush pushes buffered events into the compressor.
func (l *EventLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *EventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *EventLogger) flushLocked() error {
	l.pending = 0
	if l.buf == nil {
		return nil
	}
	return l.buf.Flush()
}

func (l *EventLogger) openLocked(bucket string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(bucketPath(l.dir, bucket), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f, l.enc, l.bucket = f, enc, bucket
	l.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (l *EventLogger) closeLocked() error {
	flushErr := l.flushLocked()
	var encErr error
	if l.enc != nil {
		encErr = l.enc.Close()
	}
	if l.f != nil {
		_ = l.f.Close()
	}
	l.f, l.enc, l.buf, l.bucket = nil, nil, nil, ""
	if flushErr != nil {
		return flushErr
	}
	return encErr
}

func bucketPath(dir, bucket string) string {
	return filepath.Join(dir, fmt.Sprintf("events-%s.jsonl.zst", bucket))
}

// EventFiles lists a world's event files, oldest first.
func EventFiles(worldDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(worldDir, "events", filePattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadWorldEvents decodes every event file of a world in recording order.
func ReadWorldEvents(worldDir string) ([]arbor.Event, error) {
	files, err := EventFiles(worldDir)
	if err != nil {
		return nil, err
	}
	var out []arbor.Event
	for _, f := range files {
		evs, err := ReadEvents(f)
		if err != nil {
			return out, err
		}
		out = append(out, evs...)
	}
	return out, nil
}

// ReadEvents decodes one event file. A file reopened for appending holds
// several zstd frames; DecodeAll reads them back to back.
func ReadEvents(path string) ([]arbor.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	var out []arbor.Event
	for _, line := range bytes.Split(plain, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e arbor.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, e)
	}
	return out, nil
}
