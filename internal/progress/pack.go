package progress

import (
	"io"
	"sync/atomic"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// WatchedStorage is a filesystem storage whose incoming packfiles are
// scanned on the fly to drive receive and resolve progress. Everything
// else is delegated to the embedded storage.
type WatchedStorage struct {
	*filesystem.Storage
	transfer *Transfer
}

// WatchStorage wraps s so packfiles written through it report to t
func WatchStorage(s *filesystem.Storage, t *Transfer) *WatchedStorage {
	return &WatchedStorage{Storage: s, transfer: t}
}

// PackfileWriter implements storer.PackfileWriter
func (s *WatchedStorage) PackfileWriter() (io.WriteCloser, error) {
	w, err := s.Storage.PackfileWriter()
	if err != nil {
		return nil, err
	}
	if s.transfer == nil {
		return w, nil
	}
	return newPackWatcher(w, s.transfer), nil
}

// packWatcher tees a packfile into the real writer and a scanner that
// counts objects and deltas as their headers go by
type packWatcher struct {
	dst      io.WriteCloser
	pipe     *io.PipeWriter
	done     chan struct{}
	transfer *Transfer
	bytes    atomic.Uint64

	// written by scan, read after done is closed
	scanned bool
	total   uint64
	deltas  uint64
}

func newPackWatcher(dst io.WriteCloser, t *Transfer) *packWatcher {
	pr, pw := io.Pipe()
	w := &packWatcher{
		dst:      dst,
		pipe:     pw,
		done:     make(chan struct{}),
		transfer: t,
	}
	go w.scan(pr)
	return w
}

func (w *packWatcher) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if n > 0 {
		w.bytes.Add(uint64(n))
		// scan keeps reading until the pipe is closed
		_, _ = w.pipe.Write(p[:n])
	}
	return n, err
}

func (w *packWatcher) scan(r *io.PipeReader) {
	defer close(w.done)
	defer func() { _, _ = io.Copy(io.Discard, r) }()

	s := packfile.NewScanner(r)
	_, objects, err := s.Header()
	if err != nil {
		return
	}
	w.scanned = true
	w.total = uint64(objects)

	for i := uint64(0); i < w.total; i++ {
		h, err := s.NextObjectHeader()
		if err != nil {
			return
		}
		if h.Type == plumbing.OFSDeltaObject || h.Type == plumbing.REFDeltaObject {
			w.deltas++
		}
		// objects before this header are complete
		if i > 0 {
			w.transfer.Receiving(i, w.total, w.bytes.Load())
		}
	}
}

// Close finishes receiving, then lets the real writer build the index,
// which is where deltas get resolved.
func (w *packWatcher) Close() error {
	_ = w.pipe.Close()
	<-w.done

	if w.scanned && w.total > 0 {
		w.transfer.Receiving(w.total, w.total, w.bytes.Load())
		if w.deltas > 0 {
			w.transfer.Resolving(0, w.deltas)
		}
	}

	if err := w.dst.Close(); err != nil {
		return err
	}

	if w.scanned && w.deltas > 0 {
		w.transfer.Resolving(w.deltas, w.deltas)
	}
	return nil
}
