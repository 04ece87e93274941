// Package log keeps the append-only JSONL histories of a world: one file of
// tick entries and one of block audits per UTC hour, zstd compressed.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	hourLayout = "2006-01-02-15"
	fileSuffix = ".jsonl.zst"
)

// ErrStop ends a Scan early without reporting a failure.
var ErrStop = errors.New("log: stop scan")

// Rotating appends JSON lines to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst,
// starting a new file when the UTC hour changes. Every Append ends a zstd
// block, so a crash loses at most the entry being written.
type Rotating struct {
	dir    string
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	hour  string
	file  *os.File
	zw    *zstd.Encoder
	buf   *bufio.Writer
	lines uint64
}

func NewRotating(dir, prefix string) *Rotating {
	return &Rotating{dir: dir, prefix: prefix, now: time.Now}
}

func (r *Rotating) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s log: marshal: %w", r.prefix, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.openFor(r.now().UTC().Format(hourLayout)); err != nil {
		return fmt.Errorf("%s log: %w", r.prefix, err)
	}
	r.buf.Write(line)
	r.buf.WriteByte('\n')
	if err := r.buf.Flush(); err != nil {
		return fmt.Errorf("%s log: %w", r.prefix, err)
	}
	if err := r.zw.Flush(); err != nil {
		return fmt.Errorf("%s log: %w", r.prefix, err)
	}
	r.lines++
	return nil
}

// Lines is the number of entries appended since construction.
func (r *Rotating) Lines() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines
}

func (r *Rotating) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeFile()
}

func (r *Rotating) openFor(hour string) error {
	if r.file != nil && hour == r.hour {
		return nil
	}
	if err := r.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	// Appending to an existing hour adds a new zstd frame; readers decode
	// concatenated frames.
	f, err := os.OpenFile(filepath.Join(r.dir, r.prefix+"-"+hour+fileSuffix), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	r.hour, r.file, r.zw = hour, f, zw
	r.buf = bufio.NewWriterSize(zw, 64*1024)
	return nil
}

func (r *Rotating) closeFile() error {
	if r.file == nil {
		return nil
	}
	err := errors.Join(r.buf.Flush(), r.zw.Close(), r.file.Close())
	r.file, r.zw, r.buf = nil, nil, nil
	return err
}

// Files lists the <prefix>-*.jsonl.zst files in dir, oldest first.
func Files(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	// The hour stamp sorts lexically.
	sort.Strings(out)
	return out, nil
}

// Scan decodes every line of a log file into a T and hands it to fn. If fn
// returns ErrStop, Scan stops and returns ErrStop.
func Scan[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for n := 1; sc.Scan(); n++ {
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), n, err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return sc.Err()
}
