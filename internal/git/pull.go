package git

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
)

// ErrDetachedHead is returned by operations that need a current branch
var ErrDetachedHead = errors.New("HEAD does not point at a branch")

// PullConfig describes a fast-forward pull into the current branch
type PullConfig struct {
	// Remote defaults to the upstream of the current branch, then origin
	Remote string
	// Branch on the remote; defaults to the upstream merge ref, then the
	// current branch's name
	Branch string
	Depth  int

	updates
}

// Pull fetches and fast-forwards the current branch. A diverged branch
// fails with a Conflict error and is left as it was.
func (r *Repository) Pull(ctx context.Context, cfg PullConfig) (err error) {
	const op = "pull"
	defer func() { metrics.Operation(op, err) }()
	defer cfg.close()

	repo, err := r.require(op)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return gcerrors.Wrap(op, "", err)
	}

	branch := currentBranch(repo)
	if branch == "" {
		return gcerrors.E(op, gcerrors.KindConflict, "", ErrDetachedHead)
	}

	name := cfg.Remote
	if name == "" {
		name = defaultRemote(repo)
	}

	ref := branch
	switch {
	case cfg.Branch != "":
		ref = plumbing.NewBranchReferenceName(cfg.Branch)
	default:
		if b := currentBranchConfig(repo); b != nil && b.Merge != "" {
			ref = b.Merge
		}
	}

	auth, err := r.authFor(ctx, name)
	if err != nil {
		return gcerrors.Wrap(op, name, err)
	}

	opts := &gogit.PullOptions{
		RemoteName:      name,
		ReferenceName:   ref,
		Depth:           cfg.Depth,
		Auth:            auth,
		InsecureSkipTLS: r.bypassCertificateCheck,
	}
	if rep := cfg.reporter(); rep != nil {
		opts.Progress = rep.Sideband(1)
	}

	err = wt.PullContext(ctx, opts)
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		clog.FromContext(ctx).Infof("already up to date")
		return nil
	}
	if err != nil {
		return remoteErr(op, name, err)
	}
	clog.FromContext(ctx).Infof("fast-forwarded %s from %s/%s", branch.Short(), name, ref.Short())
	return nil
}

// currentBranchConfig returns the [branch] section of the current
// branch, nil when there is none
func currentBranchConfig(repo *gogit.Repository) *config.Branch {
	branch := currentBranch(repo)
	if branch == "" {
		return nil
	}
	cfg, err := repo.Config()
	if err != nil {
		return nil
	}
	return cfg.Branches[branch.Short()]
}
