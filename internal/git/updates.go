package git

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/NicabarNimble/go-gitconf/internal/progress"
)

// updates is embedded by configs whose operation can report progress
type updates struct {
	sink *progress.Sink
}

// UpdateChannel creates the channel progress lines are delivered on. The
// operation closes it when it returns. Without a call, progress is not
// tracked at all.
func (u *updates) UpdateChannel() <-chan progress.Message {
	sink, ch := progress.NewChannel()
	u.sink = sink
	return ch
}

// SetUpdateChannel delivers progress to a channel owned by the caller,
// which stays open after the operation
func (u *updates) SetUpdateChannel(ch chan<- progress.Message) {
	u.sink = progress.NewSink(ch)
}

func (u *updates) reporter() *progress.Reporter {
	if u.sink == nil {
		return nil
	}
	return progress.NewReporter(u.sink)
}

func (u *updates) close() {
	u.sink.Close()
}

// matchPathspec reports whether p is selected by any of specs. No specs
// or "." select everything; otherwise a spec selects itself, anything
// below it, or whatever it matches as a glob.
func matchPathspec(specs []string, p string) bool {
	if len(specs) == 0 {
		return true
	}
	p = filepath.ToSlash(p)
	for _, spec := range specs {
		spec = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(spec)), "/")
		switch {
		case spec == ".":
			return true
		case p == spec, strings.HasPrefix(p, spec+"/"):
			return true
		}
		if ok, _ := path.Match(spec, p); ok {
			return true
		}
	}
	return false
}
