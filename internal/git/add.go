package git

import (
	"context"
	"errors"
	"sort"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
)

// ErrNothingSpecified is returned by Add without pathspecs
var ErrNothingSpecified = errors.New("nothing specified, nothing added")

// AddConfig selects what to stage
type AddConfig struct {
	Pathspecs []string
	// Update stages modifications and deletions of tracked files only.
	// Without pathspecs it covers the whole tree.
	Update bool
	// DryRun reports what would be staged and leaves the index alone
	DryRun bool
}

// Add stages the changed files selected by cfg and returns their paths,
// sorted
func (r *Repository) Add(ctx context.Context, cfg AddConfig) (paths []string, err error) {
	const op = "add"
	defer func() { metrics.Operation(op, err) }()

	repo, err := r.require(op)
	if err != nil {
		return nil, err
	}
	if len(cfg.Pathspecs) == 0 && !cfg.Update {
		return nil, gcerrors.E(op, gcerrors.KindConflict, "", ErrNothingSpecified)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, gcerrors.Wrap(op, "", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, gcerrors.Wrap(op, "", err)
	}

	deleted := map[string]bool{}
	for path, fs := range status {
		switch fs.Worktree {
		case gogit.Unmodified:
			continue
		case gogit.Untracked:
			if cfg.Update {
				continue
			}
		case gogit.Deleted:
			deleted[path] = true
		}
		if matchPathspec(cfg.Pathspecs, path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	if cfg.DryRun {
		return paths, nil
	}

	for _, path := range paths {
		if deleted[path] {
			_, err = wt.Remove(path)
		} else {
			_, err = wt.Add(path)
		}
		if err != nil {
			return nil, gcerrors.Wrap(op, path, err)
		}
	}

	clog.FromContext(ctx).Debugf("staged %d paths", len(paths))
	return paths, nil
}
