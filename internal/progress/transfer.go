package progress

import "sync"

// Transfer tracks the receive/resolve message stream of one transfer
type Transfer struct {
	r     *Reporter
	mu    sync.Mutex
	index int
	bytes uint64
}

// Transfer starts a receive/resolve stream at index
func (r *Reporter) Transfer(index int) *Transfer {
	return &Transfer{r: r, index: index}
}

// Receiving forwards to UpdateReceiving with the stream's index
func (t *Transfer) Receiving(received, total, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bytes = bytes
	t.index = t.r.UpdateReceiving(received, total, bytes, t.index)
}

// Resolving forwards to UpdateResolving with the stream's index
func (t *Transfer) Resolving(indexed, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = t.r.UpdateResolving(indexed, total, t.index)
}

// Index returns the next index of the stream
func (t *Transfer) Index() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

// Bytes returns the byte count of the last receive update
func (t *Transfer) Bytes() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

// SidebandWriter is an io.Writer for go-git's Progress option. Everything
// written is treated as server sideband text.
type SidebandWriter struct {
	r     *Reporter
	mu    sync.Mutex
	index int
}

// Sideband starts a "remote:" stream at index
func (r *Reporter) Sideband(index int) *SidebandWriter {
	return &SidebandWriter{r: r, index: index}
}

// Write implements io.Writer
func (w *SidebandWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index = w.r.UpdateRemote(w.index, p)
	return len(p), nil
}
