package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// updateInterval gates incomplete receive/resolve lines
	updateInterval = 100 * time.Millisecond
	// sampleInterval is the minimum window for a throughput sample
	sampleInterval = 500 * time.Millisecond
)

// State is the accumulator shared by the receive and resolve lines of
// one transfer
type State struct {
	LastUpdate  time.Time
	LastSample  time.Time
	SampleBytes uint64
	Throughput  uint64 // bytes per second, as of LastSample

	receivingDone bool
	resolvingDone bool
}

// Reporter turns raw transfer counters into git-style progress lines.
// One Reporter belongs to one clone or fetch.
type Reporter struct {
	mu    sync.Mutex
	sink  *Sink
	state State
	now   func() time.Time
}

// NewReporter creates a reporter writing to sink. A nil sink discards.
func NewReporter(sink *Sink) *Reporter {
	return &Reporter{
		sink: sink,
		now:  time.Now,
	}
}

// State returns a snapshot of the accumulator
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Send emits a free-form line at index
func (r *Reporter) Send(index int, text string) {
	r.sink.Send(Message{Index: index, Text: text})
}

// UpdateRemote splits sideband output into lines, prefixes each with
// "remote: " and emits it at index. A fragment ending in "done." moves
// the index on. Returns the index for the next call.
func (r *Reporter) UpdateRemote(index int, raw []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range strings.Split(string(raw), "\n") {
		for _, frag := range strings.Split(line, "\r") {
			if frag == "" {
				continue
			}
			r.Send(index, "remote: "+frag)
			if strings.HasSuffix(frag, "done.") {
				index++
			}
		}
	}
	return index
}

// UpdateReceiving reports object download progress. Lines are emitted at
// most every 100ms until received == total, which is always emitted with
// ", done." and advances the index.
func (r *Reporter) UpdateReceiving(received, total, bytes uint64, index int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sample(now, bytes)

	done := received >= total
	if done && r.state.receivingDone {
		return index
	}
	if !done && now.Sub(r.state.LastUpdate) < updateInterval {
		return index
	}
	r.state.LastUpdate = now

	text := fmt.Sprintf("Receiving objects: %d%% (%d/%d), %s | %s",
		percent(received, total), received, total,
		FormatBytes(bytes), FormatRate(r.state.Throughput))
	if !done {
		r.Send(index, text)
		return index
	}

	r.state.receivingDone = true
	r.Send(index, text+", done.")
	return index + 1
}

// UpdateResolving reports delta resolution with the same gating as
// UpdateReceiving.
func (r *Reporter) UpdateResolving(indexed, total uint64, index int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	done := indexed >= total
	if done && r.state.resolvingDone {
		return index
	}
	if !done && now.Sub(r.state.LastUpdate) < updateInterval {
		return index
	}
	r.state.LastUpdate = now

	text := fmt.Sprintf("Resolving deltas: %d%% (%d/%d)", percent(indexed, total), indexed, total)
	if !done {
		r.Send(index, text)
		return index
	}

	r.state.resolvingDone = true
	r.Send(index, text+", done.")
	return index + 1
}

// sample recomputes throughput once at least sampleInterval has passed
// since the previous sample. Caller holds mu.
func (r *Reporter) sample(now time.Time, bytes uint64) {
	if r.state.LastSample.IsZero() {
		r.state.LastSample = now
		r.state.SampleBytes = bytes
		return
	}
	elapsed := now.Sub(r.state.LastSample)
	if elapsed < sampleInterval {
		return
	}
	var delta uint64
	if bytes > r.state.SampleBytes {
		delta = bytes - r.state.SampleBytes
	}
	r.state.Throughput = delta * 1000 / uint64(elapsed.Milliseconds())
	r.state.LastSample = now
	r.state.SampleBytes = bytes
}
