package resolver

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Outcome is what a spec resolved to. The set of implementations is
// closed: LocalBranch, LocalTag, RemoteBranch, RemoteTag, DetachedCommit.
type Outcome interface {
	// Kind is a stable snake_case label, used for metrics and logs
	Kind() string
	String() string

	outcome()
}

// LocalBranch is an existing refs/heads/<spec>
type LocalBranch struct {
	Ref *plumbing.Reference
}

// LocalTag is an existing refs/tags/<spec>
type LocalTag struct {
	Ref *plumbing.Reference
}

// RemoteBranch is a branch fetched from Remote. Ref is the local branch
// created for it, tracking the remote one.
type RemoteBranch struct {
	Remote string
	Ref    *plumbing.Reference
	Commit plumbing.Hash
}

// RemoteTag is a tag fetched from Remote into refs/tags
type RemoteTag struct {
	Remote string
	Ref    *plumbing.Reference
}

// DetachedCommit is any other revision that names a commit
type DetachedCommit struct {
	Hash plumbing.Hash
}

func (LocalBranch) outcome()    {}
func (LocalTag) outcome()       {}
func (RemoteBranch) outcome()   {}
func (RemoteTag) outcome()      {}
func (DetachedCommit) outcome() {}

func (LocalBranch) Kind() string    { return "local_branch" }
func (LocalTag) Kind() string       { return "local_tag" }
func (RemoteBranch) Kind() string   { return "remote_branch" }
func (RemoteTag) Kind() string      { return "remote_tag" }
func (DetachedCommit) Kind() string { return "detached_commit" }

func (o LocalBranch) String() string {
	return fmt.Sprintf("local branch %s", o.Ref.Name().Short())
}

func (o LocalTag) String() string {
	return fmt.Sprintf("local tag %s", o.Ref.Name().Short())
}

func (o RemoteBranch) String() string {
	return fmt.Sprintf("branch %s from %s at %s", o.Ref.Name().Short(), o.Remote, o.Commit)
}

func (o RemoteTag) String() string {
	return fmt.Sprintf("tag %s from %s", o.Ref.Name().Short(), o.Remote)
}

func (o DetachedCommit) String() string {
	return fmt.Sprintf("commit %s", o.Hash)
}
