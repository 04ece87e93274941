package mirror

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Uploader is the part of Client the mirror needs.
type Uploader interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type Stats struct {
	Queued   int
	Uploaded uint64
	Failed   uint64
	Dropped  uint64
}

// Mirror uploads files below a data directory from a bounded queue. Object
// keys are the file's path relative to the data directory under prefix.
type Mirror struct {
	up      Uploader
	dataDir string
	prefix  string
	log     *logrus.Entry

	jobs     chan string
	wg       sync.WaitGroup
	attempts int
	backoff  time.Duration

	uploaded atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

func New(up Uploader, dataDir, prefix string, workers, queue int, log *logrus.Entry) *Mirror {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 64
	}
	m := &Mirror{
		up:       up,
		dataDir:  dataDir,
		prefix:   strings.Trim(filepath.ToSlash(prefix), "/"),
		log:      log,
		jobs:     make(chan string, queue),
		attempts: 4,
		backoff:  200 * time.Millisecond,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Enqueue never blocks the caller; a full queue drops the file.
func (m *Mirror) Enqueue(localPath string) {
	if m == nil {
		return
	}
	select {
	case m.jobs <- localPath:
	default:
		m.dropped.Add(1)
		m.log.WithField("path", localPath).Warn("mirror queue full, dropping upload")
	}
}

// Close drains the queue and waits for in-flight uploads.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	close(m.jobs)
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Queued:   len(m.jobs),
		Uploaded: m.uploaded.Load(),
		Failed:   m.failed.Load(),
		Dropped:  m.dropped.Load(),
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for p := range m.jobs {
		key, err := m.objectKey(p)
		if err != nil {
			m.failed.Add(1)
			m.log.WithError(err).WithField("path", p).Warn("mirror skip")
			continue
		}
		if err := m.upload(key, p); err != nil {
			m.failed.Add(1)
			m.log.WithError(err).WithField("key", key).Error("mirror upload failed")
			continue
		}
		m.uploaded.Add(1)
		m.log.WithField("key", key).Debug("mirror uploaded")
	}
}

func (m *Mirror) upload(key, localPath string) error {
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.up.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < m.attempts {
			time.Sleep(time.Duration(attempt*attempt) * m.backoff)
		}
	}
	return err
}

func (m *Mirror) objectKey(localPath string) (string, error) {
	base, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, base)
	}
	if m.prefix == "" {
		return rel, nil
	}
	return path.Join(m.prefix, rel), nil
}
