package git

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
)

// RestoreConfig selects what to restore
type RestoreConfig struct {
	Pathspecs []string
	// Staged resets the index entries to HEAD and leaves the worktree
	// alone. Otherwise worktree files are rewritten from the index.
	Staged bool
}

// Restore discards changes to the selected paths and returns them,
// sorted
func (r *Repository) Restore(ctx context.Context, cfg RestoreConfig) (paths []string, err error) {
	const op = "restore"
	defer func() { metrics.Operation(op, err) }()

	repo, err := r.require(op)
	if err != nil {
		return nil, err
	}
	if len(cfg.Pathspecs) == 0 {
		return nil, gcerrors.E(op, gcerrors.KindConflict, "", gogit.ErrNoRestorePaths)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, gcerrors.Wrap(op, "", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, gcerrors.Wrap(op, "", err)
	}

	for path, fs := range status {
		var changed bool
		if cfg.Staged {
			changed = fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked
		} else {
			changed = fs.Worktree == gogit.Modified || fs.Worktree == gogit.Deleted
		}
		if changed && matchPathspec(cfg.Pathspecs, path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, nil
	}

	if cfg.Staged {
		if err := wt.Restore(&gogit.RestoreOptions{Staged: true, Files: paths}); err != nil {
			return nil, gcerrors.Wrap(op, "", err)
		}
	} else {
		idx, err := repo.Storer.Index()
		if err != nil {
			return nil, gcerrors.Wrap(op, "", err)
		}
		for _, path := range paths {
			if err := checkoutEntry(repo, wt.Filesystem, idx, path); err != nil {
				return nil, gcerrors.Wrap(op, path, err)
			}
		}
	}

	clog.FromContext(ctx).Infof("restored %d path(s)", len(paths))
	return paths, nil
}

// checkoutEntry writes the index version of path into the worktree
func checkoutEntry(repo *gogit.Repository, fs billy.Filesystem, idx *index.Index, path string) error {
	entry, err := idx.Entry(path)
	if err != nil {
		return err
	}
	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return err
	}
	rc, err := blob.Reader()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	if entry.Mode == filemode.Symlink {
		target, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		return fs.Symlink(string(target), path)
	}

	mode, err := entry.Mode.ToOSFileMode()
	if err != nil {
		return err
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
