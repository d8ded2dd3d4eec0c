// Package replay writes and reads compressed match event logs.
//
// A log is JSON Lines, one engine.Event per line, compressed with zstd. Each
// Writer produces one zstd frame; reopening a log appends a new frame, and
// readers decode the concatenated frames as one stream.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

// Ext is the file extension of event logs.
const Ext = ".jsonl.zst"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("replay: writer closed")

// Writer appends events to one log file.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

var _ service.EventLog = (*Writer)(nil)

// Create opens path for appending, creating parent directories as needed.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Opener returns a service.EventLogOpener writing <dir>/<matchID>.jsonl.zst.
func Opener(dir string) service.EventLogOpener {
	return func(matchID string) (service.EventLog, error) {
		return Create(Path(dir, matchID))
	}
}

// Path is the log file for a match.
func Path(dir, matchID string) string {
	return filepath.Join(dir, matchID+Ext)
}

// Append writes events and flushes them into the compressor.
func (w *Writer) Append(events []engine.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return ErrClosed
	}
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("replay: encode event %d: %w", e.Seq, err)
		}
		if _, err := w.w.Write(b); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close finishes the zstd frame and closes the file. It is safe to call
// twice.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	var errs []error
	errs = append(errs, w.w.Flush(), w.enc.Close(), w.f.Close())
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(errs...)
}

// Read decodes every event in r.
func Read(r io.Reader) ([]engine.Event, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var events []engine.Event
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e engine.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return events, fmt.Errorf("replay: line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return events, fmt.Errorf("replay: %w", err)
	}
	return events, nil
}

// ReadFile decodes the log at path.
func ReadFile(path string) ([]engine.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := Read(f)
	if err != nil {
		return events, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return events, nil
}
