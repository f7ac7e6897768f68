package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
)

// ErrNoUpstream is returned when SetUpstream lacks a remote or branch
var ErrNoUpstream = errors.New("the current branch has no upstream branch, provide remote and branch")

// PushConfig describes a push of local branches
type PushConfig struct {
	Remote string // defaults to origin
	// Branch is the destination branch for HEAD. Without it the branch's
	// configured upstream is used, then the same name.
	Branch string
	// SetUpstream records Remote/Branch as the upstream of the current
	// branch. It needs both.
	SetUpstream bool
	// All pushes every local branch to its upstream, or the same name
	All bool

	updates
}

// Push sends local branches to a remote
func (r *Repository) Push(ctx context.Context, cfg PushConfig) (err error) {
	const op = "push"
	defer func() { metrics.Operation(op, err) }()
	defer cfg.close()

	repo, err := r.require(op)
	if err != nil {
		return err
	}

	name := cfg.Remote
	if name == "" {
		name = gogit.DefaultRemoteName
	}

	gitCfg, err := repo.Config()
	if err != nil {
		return gcerrors.Wrap(op, name, err)
	}

	var specs []config.RefSpec
	if cfg.All {
		specs, err = allBranchSpecs(repo, gitCfg)
	} else {
		specs, err = headSpec(repo, gitCfg, cfg)
	}
	if err != nil {
		return err
	}

	if cfg.SetUpstream && (cfg.Remote == "" || cfg.Branch == "") {
		return gcerrors.E(op, gcerrors.KindConflict, "", ErrNoUpstream)
	}

	auth, err := r.authFor(ctx, name)
	if err != nil {
		return gcerrors.Wrap(op, name, err)
	}

	opts := &gogit.PushOptions{
		RemoteName:      name,
		RefSpecs:        specs,
		Auth:            auth,
		InsecureSkipTLS: r.bypassCertificateCheck,
	}
	if rep := cfg.reporter(); rep != nil {
		opts.Progress = rep.Sideband(1)
	}

	clog.FromContext(ctx).Debugf("pushing %v to %s", specs, name)
	err = repo.PushContext(ctx, opts)
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return remoteErr(op, name, err)
	}

	if cfg.SetUpstream {
		return setUpstream(ctx, repo, gitCfg, cfg)
	}
	return nil
}

// headSpec maps the current branch to its destination
func headSpec(repo *gogit.Repository, gitCfg *config.Config, cfg PushConfig) ([]config.RefSpec, error) {
	src := currentBranch(repo)
	if src == "" {
		return nil, gcerrors.E("push", gcerrors.KindConflict, "", ErrDetachedHead)
	}

	dst := src
	switch b := gitCfg.Branches[src.Short()]; {
	case cfg.Branch != "":
		dst = plumbing.NewBranchReferenceName(cfg.Branch)
	case b != nil && b.Merge != "":
		dst = b.Merge
	}
	return []config.RefSpec{refSpec(src, dst)}, nil
}

// allBranchSpecs maps every local branch to its upstream merge ref, or
// the same name
func allBranchSpecs(repo *gogit.Repository, gitCfg *config.Config) ([]config.RefSpec, error) {
	iter, err := repo.Branches()
	if err != nil {
		return nil, gcerrors.Wrap("push", "", err)
	}
	var specs []config.RefSpec
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		dst := ref.Name()
		if b := gitCfg.Branches[ref.Name().Short()]; b != nil && b.Merge != "" {
			dst = b.Merge
		}
		specs = append(specs, refSpec(ref.Name(), dst))
		return nil
	})
	if err != nil {
		return nil, gcerrors.Wrap("push", "", err)
	}
	return specs, nil
}

// setUpstream records cfg.Remote/cfg.Branch as the upstream of the
// current branch
func setUpstream(ctx context.Context, repo *gogit.Repository, gitCfg *config.Config, cfg PushConfig) error {
	src := currentBranch(repo)
	if src == "" {
		return gcerrors.E("push", gcerrors.KindConflict, "", ErrDetachedHead)
	}
	gitCfg.Branches[src.Short()] = &config.Branch{
		Name:   src.Short(),
		Remote: cfg.Remote,
		Merge:  plumbing.NewBranchReferenceName(cfg.Branch),
	}
	if err := repo.SetConfig(gitCfg); err != nil {
		return gcerrors.Wrap("push", src.Short(), err)
	}
	clog.FromContext(ctx).Infof("branch %s set up to track %s", src.Short(), upstreamOf(gitCfg, src.Short()))
	return nil
}

func refSpec(src, dst plumbing.ReferenceName) config.RefSpec {
	return config.RefSpec(fmt.Sprintf("%s:%s", src, dst))
}

// upstreamOf formats the upstream of branch as remote/branch, "" when unset
func upstreamOf(gitCfg *config.Config, branch string) string {
	b := gitCfg.Branches[branch]
	if b == nil || b.Remote == "" || b.Merge == "" {
		return ""
	}
	return strings.Join([]string{b.Remote, b.Merge.Short()}, "/")
}
