package git

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
)

// ErrBareSeparateGitDir is returned for an InitConfig asking for both
var ErrBareSeparateGitDir = errors.New("separate git dir is incompatible with bare")

// InitConfig describes a new repository
type InitConfig struct {
	Dir           string
	InitialBranch string // name of the unborn branch HEAD points at
	Bare          bool
	// SeparateGitDir keeps the repository data outside Dir; Dir gets a
	// .git file pointing at it
	SeparateGitDir string
}

// Init creates a repository and populates the handle
func (r *Repository) Init(ctx context.Context, cfg InitConfig) (err error) {
	const op = "init"
	defer func() { metrics.Operation(op, err) }()

	if err := r.populate(op); err != nil {
		return err
	}
	if cfg.Dir == "" {
		return gcerrors.E(op, gcerrors.KindInternal, "", errors.New("no directory given"))
	}
	if cfg.Bare && cfg.SeparateGitDir != "" {
		return gcerrors.E(op, gcerrors.KindConflict, cfg.Dir, ErrBareSeparateGitDir)
	}

	opts := gogit.InitOptions{}
	if cfg.InitialBranch != "" {
		opts.DefaultBranch = plumbing.NewBranchReferenceName(cfg.InitialBranch)
	}

	var repo *gogit.Repository
	if cfg.SeparateGitDir != "" {
		st := filesystem.NewStorage(osfs.New(cfg.SeparateGitDir), cache.NewObjectLRUDefault())
		repo, err = gogit.InitWithOptions(st, osfs.New(cfg.Dir), opts)
	} else {
		repo, err = gogit.PlainInitWithOptions(cfg.Dir, &gogit.PlainInitOptions{
			InitOptions: opts,
			Bare:        cfg.Bare,
		})
	}
	if err != nil {
		return gcerrors.Wrap(op, cfg.Dir, err)
	}

	r.repo = repo
	r.path = cfg.Dir
	clog.FromContext(ctx).Infof("initialized empty repository in %s", cfg.Dir)
	return nil
}
