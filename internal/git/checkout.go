package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
	"github.com/NicabarNimble/go-gitconf/internal/resolver"
)

// ErrLocalChanges is returned when a checkout would overwrite tracked
// modifications
var ErrLocalChanges = errors.New("your local changes would be overwritten by checkout")

// CheckoutConfig names what to check out. Spec may be a branch, a tag or
// any revision; branches and tags only present on a remote are fetched.
type CheckoutConfig struct {
	Spec string

	updates
}

// Checkout resolves cfg.Spec and moves HEAD and the worktree to it.
// Branches leave HEAD symbolic, tags and revisions detach it. Nothing
// moves when tracked files have local changes: the spec is resolved
// first, so an unknown spec reports NotFound, and a match on a remote
// fails with WorkingTreeConflict before any branch is created.
func (r *Repository) Checkout(ctx context.Context, cfg CheckoutConfig) (err error) {
	const op = "checkout"
	defer func() { metrics.Operation(op, err) }()
	defer cfg.close()

	repo, err := r.require(op)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return gcerrors.Wrap(op, cfg.Spec, err)
	}
	clean := func() error {
		if err := ensureClean(wt); err != nil {
			return gcerrors.E(op, gcerrors.KindWorkingTreeConflict, cfg.Spec, err)
		}
		return nil
	}

	// A spec that resolves nowhere is NotFound even on a dirty tree; a
	// remote match is checked before its branch is created.
	opts := r.resolverOptions()
	opts.Progress = cfg.reporter()
	opts.BeforeFetch = clean
	out, err := resolver.New(repo, opts).Resolve(ctx, cfg.Spec)
	if err != nil {
		return err
	}
	if err := clean(); err != nil {
		return err
	}

	co := &gogit.CheckoutOptions{}
	switch o := out.(type) {
	case resolver.LocalBranch:
		co.Branch = o.Ref.Name()
	case resolver.RemoteBranch:
		co.Branch = o.Ref.Name()
	case resolver.LocalTag:
		co.Hash, err = peel(repo, o.Ref)
	case resolver.RemoteTag:
		co.Hash, err = peel(repo, o.Ref)
	case resolver.DetachedCommit:
		co.Hash = o.Hash
	default:
		err = fmt.Errorf("unhandled resolution %T", out)
	}
	if err != nil {
		return gcerrors.Wrap(op, cfg.Spec, err)
	}

	if err := wt.Checkout(co); err != nil {
		return gcerrors.Wrap(op, cfg.Spec, err)
	}

	clog.FromContext(ctx).Infof("checked out %s", out)
	return nil
}

// peel returns the commit a tag reference points at, through any
// annotated tag object
func peel(repo *gogit.Repository, ref *plumbing.Reference) (plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref.Name()))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("peel %s: %w", ref.Name(), err)
	}
	return *hash, nil
}

// ensureClean fails when any tracked file is staged or modified.
// Untracked files are left alone.
func ensureClean(wt *gogit.Worktree) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}
	for path, fs := range status {
		if fs.Staging == gogit.Untracked && fs.Worktree == gogit.Untracked {
			continue
		}
		if fs.Staging != gogit.Unmodified || fs.Worktree != gogit.Unmodified {
			return fmt.Errorf("%w: %s", ErrLocalChanges, path)
		}
	}
	return nil
}
