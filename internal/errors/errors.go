package errors

import "fmt"

// Kind classifies an OperationError so callers can react without string matching
type Kind int

const (
	// KindInternal is anything not covered by the other kinds
	KindInternal Kind = iota
	// KindNotFound means a repository, reference or revision does not exist
	KindNotFound
	// KindConflict means the operation is not allowed in the current state
	KindConflict
	// KindTransport means a remote connect, fetch or push failed
	KindTransport
	// KindWorkingTreeConflict means local modifications would be overwritten
	KindWorkingTreeConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	case KindWorkingTreeConflict:
		return "working tree conflict"
	default:
		return "internal"
	}
}

// OperationError represents an error that occurred during a git operation
type OperationError struct {
	Op      string // The operation being performed
	Kind    Kind   // Error class
	Subject string // The spec, path or remote the operation was given
	Err     error  // The underlying error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	msg := e.Op
	if e.Subject != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Subject)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// New creates a new OperationError, deriving its Kind from err
func New(op string, err error) *OperationError {
	return &OperationError{
		Op:   op,
		Kind: KindOf(err),
		Err:  err,
	}
}

// E creates a new OperationError with an explicit kind and subject
func E(op string, kind Kind, subject string, err error) *OperationError {
	return &OperationError{
		Op:      op,
		Kind:    kind,
		Subject: subject,
		Err:     err,
	}
}

// Wrap is New with a subject. A nil err yields nil.
func Wrap(op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{
		Op:      op,
		Kind:    KindOf(err),
		Subject: subject,
		Err:     err,
	}
}

// Is implements error matching for OperationError. Empty fields on the
// target act as wildcards.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	if t.Op != "" && e.Op != t.Op {
		return false
	}
	if t.Kind != KindInternal && e.Kind != t.Kind {
		return false
	}
	return t.Op != "" || t.Kind != KindInternal
}
