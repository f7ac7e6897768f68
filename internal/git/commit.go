package git

import (
	"context"
	"errors"
	"time"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
)

// ErrEmptyMessage is returned for a commit without a message unless
// AllowEmptyMessage is set
var ErrEmptyMessage = errors.New("aborting commit due to empty commit message")

// CommitConfig describes a commit of the current index
type CommitConfig struct {
	// Name and Email sign the commit; when Name is empty they come from
	// the repository configuration
	Name  string
	Email string

	Message           string
	AllowEmptyMessage bool
}

// Commit records the index on top of HEAD and returns the new commit.
// With nothing staged it does nothing and returns the zero hash.
func (r *Repository) Commit(ctx context.Context, cfg CommitConfig) (hash plumbing.Hash, err error) {
	const op = "commit"
	defer func() { metrics.Operation(op, err) }()

	repo, err := r.require(op)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if cfg.Message == "" && !cfg.AllowEmptyMessage {
		return plumbing.ZeroHash, gcerrors.E(op, gcerrors.KindConflict, "", ErrEmptyMessage)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, gcerrors.Wrap(op, "", err)
	}
	staged, err := hasStaged(wt)
	if err != nil {
		return plumbing.ZeroHash, gcerrors.Wrap(op, "", err)
	}
	if !staged {
		clog.FromContext(ctx).Debug("nothing staged, skipping commit")
		return plumbing.ZeroHash, nil
	}

	opts := &gogit.CommitOptions{}
	if cfg.Name != "" {
		sig := &object.Signature{Name: cfg.Name, Email: cfg.Email, When: time.Now()}
		opts.Author = sig
		opts.Committer = sig
	}

	hash, err = wt.Commit(cfg.Message, opts)
	if err != nil {
		return plumbing.ZeroHash, gcerrors.Wrap(op, "", err)
	}
	clog.FromContext(ctx).Infof("created commit %s", hash)
	return hash, nil
}

// hasStaged reports whether the index differs from HEAD
func hasStaged(wt *gogit.Worktree) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	for _, fs := range status {
		if fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			return true, nil
		}
	}
	return false, nil
}
