package progress

import (
	"fmt"
	"io"
	"time"
)

// Tracker interface defines methods for tracking operation progress
type Tracker interface {
	Start(operation string)
	Update(m Message)
	Complete()
	Error(err error)
}

// Operation represents a tracked operation
type Operation struct {
	Name      string
	StartTime time.Time
	Status    string
	Messages  int
	LastIndex int
}

// DefaultTracker records operation state without printing anything
type DefaultTracker struct {
	CurrentOperation *Operation
	Lines            []string
}

// Start begins tracking a new operation
func (t *DefaultTracker) Start(operation string) {
	t.CurrentOperation = &Operation{
		Name:      operation,
		StartTime: time.Now(),
		Status:    "in_progress",
		LastIndex: -1,
	}
	t.Lines = nil
}

// Update records a message. A message with the same index as the
// previous one replaces it.
func (t *DefaultTracker) Update(m Message) {
	if t.CurrentOperation == nil {
		return
	}
	if m.Index == t.CurrentOperation.LastIndex && len(t.Lines) > 0 {
		t.Lines[len(t.Lines)-1] = m.Text
	} else {
		t.Lines = append(t.Lines, m.Text)
	}
	t.CurrentOperation.LastIndex = m.Index
	t.CurrentOperation.Messages++
}

// Complete marks the operation as completed
func (t *DefaultTracker) Complete() {
	if t.CurrentOperation != nil {
		t.CurrentOperation.Status = "completed"
	}
}

// Error marks the operation as failed with an error
func (t *DefaultTracker) Error(err error) {
	if t.CurrentOperation != nil {
		t.CurrentOperation.Status = "failed"
	}
}

// ConsoleTracker prints messages the way git does: lines sharing an index
// overwrite each other with a carriage return.
type ConsoleTracker struct {
	w                io.Writer
	currentOperation *Operation
	open             bool
}

// NewConsoleTracker creates a new console-based progress tracker
func NewConsoleTracker(w io.Writer) *ConsoleTracker {
	return &ConsoleTracker{w: w}
}

// Start begins tracking a new operation
func (t *ConsoleTracker) Start(operation string) {
	t.currentOperation = &Operation{
		Name:      operation,
		StartTime: time.Now(),
		Status:    "in_progress",
		LastIndex: -1,
	}
	t.open = false
}

// Update prints a message
func (t *ConsoleTracker) Update(m Message) {
	if t.currentOperation == nil {
		return
	}
	switch {
	case !t.open:
		fmt.Fprint(t.w, m.Text)
	case m.Index == t.currentOperation.LastIndex:
		fmt.Fprintf(t.w, "\r%s\x1b[K", m.Text)
	default:
		fmt.Fprintf(t.w, "\n%s", m.Text)
	}
	t.open = true
	t.currentOperation.LastIndex = m.Index
	t.currentOperation.Messages++
}

// Complete ends the current line and reports the elapsed time
func (t *ConsoleTracker) Complete() {
	if t.currentOperation == nil {
		return
	}
	if t.open {
		fmt.Fprintln(t.w)
	}
	t.currentOperation.Status = "completed"
	t.currentOperation = nil
}

// Error marks the current operation as failed
func (t *ConsoleTracker) Error(err error) {
	if t.currentOperation == nil {
		return
	}
	if t.open {
		fmt.Fprintln(t.w)
	}
	fmt.Fprintf(t.w, "error: %s: %v\n", t.currentOperation.Name, err)
	t.currentOperation = nil
}

// Drain feeds every message from ch to t until ch is closed
func Drain(t Tracker, ch <-chan Message) {
	for m := range ch {
		t.Update(m)
	}
}
