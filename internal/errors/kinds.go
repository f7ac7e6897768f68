package errors

import (
	"errors"
	"net"
	"net/url"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Sentinels for errors.Is matching by kind
var (
	ErrNotFound            = &OperationError{Kind: KindNotFound}
	ErrConflict            = &OperationError{Kind: KindConflict}
	ErrTransport           = &OperationError{Kind: KindTransport}
	ErrWorkingTreeConflict = &OperationError{Kind: KindWorkingTreeConflict}
)

var kindTable = []struct {
	err  error
	kind Kind
}{
	{gogit.ErrRepositoryNotExists, KindNotFound},
	{gogit.ErrRemoteNotFound, KindNotFound},
	{gogit.ErrBranchNotFound, KindNotFound},
	{gogit.ErrTagNotFound, KindNotFound},
	{gogit.ErrIsBareRepository, KindNotFound},
	{plumbing.ErrReferenceNotFound, KindNotFound},
	{plumbing.ErrObjectNotFound, KindNotFound},
	{gogit.NoMatchingRefSpecError{}, KindNotFound},

	{gogit.ErrRepositoryAlreadyExists, KindConflict},
	{gogit.ErrRemoteExists, KindConflict},
	{gogit.ErrBranchExists, KindConflict},
	{gogit.ErrTagExists, KindConflict},
	{gogit.ErrNonFastForwardUpdate, KindConflict},
	{gogit.ErrFastForwardMergeNotPossible, KindConflict},
	{gogit.ErrForceNeeded, KindConflict},

	{gogit.ErrUnstagedChanges, KindWorkingTreeConflict},
	{gogit.ErrWorktreeNotClean, KindWorkingTreeConflict},

	{transport.ErrRepositoryNotFound, KindTransport},
	{transport.ErrEmptyRemoteRepository, KindTransport},
	{transport.ErrAuthenticationRequired, KindTransport},
	{transport.ErrAuthorizationFailed, KindTransport},
	{transport.ErrInvalidAuthMethod, KindTransport},
	{gogit.ErrFetching, KindTransport},
}

// go-git builds some errors with fmt.Errorf and no sentinel
var messageTable = []struct {
	prefix string
	kind   Kind
}{
	{"non-fast-forward update", KindConflict},
}

// KindOf reports the Kind of err. An OperationError anywhere in the chain
// wins over go-git sentinel classification.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Kind != KindInternal {
		return opErr.Kind
	}
	for _, k := range kindTable {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	for _, m := range messageTable {
		if strings.HasPrefix(err.Error(), m.prefix) || strings.Contains(err.Error(), ": "+m.prefix) {
			return m.kind
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	return KindInternal
}

// IsNotFound checks if the error indicates a repository, reference or
// revision was not found
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict checks if the operation was refused because of current state
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsTransport checks if the error came from talking to a remote
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// IsWorkingTreeConflict checks if a checkout was refused due to local changes
func IsWorkingTreeConflict(err error) bool {
	return KindOf(err) == KindWorkingTreeConflict
}
