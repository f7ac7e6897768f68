package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/NicabarNimble/go-gitconf/internal/credentials"
	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
	"github.com/NicabarNimble/go-gitconf/internal/progress"
	"github.com/NicabarNimble/go-gitconf/internal/remotes"
	"github.com/NicabarNimble/go-gitconf/internal/urlutils"
)

// ErrDirNotEmpty is returned when the clone destination has content
var ErrDirNotEmpty = errors.New("destination path already exists and is not an empty directory")

// CloneConfig contains configuration for repository cloning
type CloneConfig struct {
	URL    string
	Parent string // directory the clone directory is created in
	Dir    string // overrides the directory name derived from URL

	Branch       string // checked out instead of the remote's HEAD
	Depth        int    // shallow clone of this many commits, 0 for full history
	SingleBranch bool
	Bare         bool
	Recursive    bool     // initialize submodules after the clone
	Submodules   []string // with Recursive: paths or names, empty for all

	updates
}

// NewCloneConfig clones url into a new directory under parent, named
// after the repository
func NewCloneConfig(url, parent string) CloneConfig {
	return CloneConfig{URL: url, Parent: parent}
}

// DirName returns the name of the clone directory. Bare clones of a
// derived name get a ".git" suffix.
func (c CloneConfig) DirName() string {
	if c.Dir != "" {
		return c.Dir
	}
	name := urlutils.DirName(c.URL)
	if c.Bare && name != "" {
		name += ".git"
	}
	return name
}

// Path returns Parent/DirName
func (c CloneConfig) Path() string {
	return filepath.Join(c.Parent, c.DirName())
}

// Clone clones cfg.URL and populates the handle. On failure the handle
// stays empty and a directory created by the clone is removed.
func (r *Repository) Clone(ctx context.Context, cfg CloneConfig) (err error) {
	const op = "clone"
	defer func() { metrics.Operation(op, err) }()
	defer cfg.close()

	if err := r.populate(op); err != nil {
		return err
	}
	if err := urlutils.ValidateURL(cfg.URL); err != nil {
		return gcerrors.E(op, gcerrors.KindInternal, cfg.URL, err)
	}
	if cfg.DirName() == "" {
		return gcerrors.E(op, gcerrors.KindInternal, cfg.URL, errors.New("cannot derive a directory name"))
	}

	log := clog.FromContext(ctx)
	start := time.Now()
	dir := cfg.Path()

	created, err := prepareDir(dir)
	if errors.Is(err, ErrDirNotEmpty) {
		return gcerrors.E(op, gcerrors.KindConflict, dir, err)
	}
	if err != nil {
		return gcerrors.Wrap(op, dir, err)
	}
	defer func() {
		if err != nil {
			cleanupDir(dir, created)
		}
	}()

	advertised, err := remotes.ListURL(ctx, cfg.URL, r.remoteOptions())
	if err != nil {
		return err
	}
	branch := cfg.Branch
	ref := plumbing.NewBranchReferenceName(branch)
	switch {
	case branch == "":
		branch = advertised.DefaultBranch()
		ref = plumbing.NewBranchReferenceName(branch)
	case advertised.HasBranch(branch):
	case advertised.HasTag(branch):
		// HEAD ends detached at the tagged commit
		ref = plumbing.NewTagReferenceName(branch)
	default:
		return gcerrors.E(op, gcerrors.KindNotFound, branch,
			fmt.Errorf("remote branch %s not found in upstream origin: %w", branch, plumbing.ErrReferenceNotFound))
	}

	auth, err := credentials.Auth(ctx, r.creds, cfg.URL)
	if err != nil {
		return gcerrors.E(op, gcerrors.KindTransport, cfg.URL, err)
	}

	gitDir := dir
	var wt billy.Filesystem
	if !cfg.Bare {
		wt = osfs.New(dir)
		gitDir = filepath.Join(dir, gogit.GitDirName)
	}
	fsStorage := filesystem.NewStorage(osfs.New(gitDir), cache.NewObjectLRUDefault())

	var st storage.Storer = fsStorage
	var sideband io.Writer
	var transfer *progress.Transfer
	if rep := cfg.reporter(); rep != nil {
		rep.Send(0, fmt.Sprintf("Cloning into '%s'...", cfg.DirName()))
		transfer = rep.Transfer(1)
		sideband = rep.Sideband(1)
		st = progress.WatchStorage(fsStorage, transfer)
	}

	opts := &gogit.CloneOptions{
		URL:             cfg.URL,
		Auth:            auth,
		RemoteName:      gogit.DefaultRemoteName,
		ReferenceName:   ref,
		SingleBranch:    cfg.SingleBranch || cfg.Depth > 0,
		Depth:           cfg.Depth,
		Progress:        sideband,
		InsecureSkipTLS: r.bypassCertificateCheck,
	}
	if opts.SingleBranch {
		opts.Tags = gogit.NoTags
	}

	log.Infof("cloning %s into %s (%s)", urlutils.Redact(cfg.URL), dir, ref)
	if _, err = gogit.CloneContext(ctx, st, wt, opts); err != nil {
		return remoteErr(op, cfg.URL, err)
	}

	// reopen on the plain storage so later operations skip the watcher
	repo, err := gogit.Open(fsStorage, wt)
	if err != nil {
		return gcerrors.Wrap(op, dir, err)
	}

	if cfg.Recursive && !cfg.Bare {
		updateSubmodules(ctx, repo, cfg.Submodules, auth)
	}

	r.repo = repo
	r.path = dir

	metrics.Clone(time.Since(start))
	if transfer != nil {
		metrics.Received(transfer.Bytes())
	}
	return nil
}

// prepareDir makes sure dir exists and is empty, and reports whether it
// had to be created
func prepareDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("read directory: %w", err)
	case len(entries) > 0:
		return false, ErrDirNotEmpty
	}
	return false, nil
}

// cleanupDir removes what a failed clone left behind
func cleanupDir(dir string, created bool) {
	if created {
		_ = os.RemoveAll(dir)
		return
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}

// updateSubmodules initializes and updates submodules selected by paths.
// Failures are logged and skipped, as git does.
func updateSubmodules(ctx context.Context, repo *gogit.Repository, paths []string, auth transport.AuthMethod) {
	log := clog.FromContext(ctx)

	wt, err := repo.Worktree()
	if err != nil {
		return
	}
	subs, err := wt.Submodules()
	if err != nil {
		log.Warnf("list submodules: %v", err)
		return
	}

	for _, sub := range subs {
		c := sub.Config()
		if len(paths) > 0 && !slices.Contains(paths, c.Path) && !slices.Contains(paths, c.Name) {
			continue
		}
		err := sub.UpdateContext(ctx, &gogit.SubmoduleUpdateOptions{
			Init:              true,
			RecurseSubmodules: gogit.DefaultSubmoduleRecursionDepth,
			Auth:              auth,
		})
		if err != nil {
			log.Warnf("submodule %s: %v", c.Path, err)
		}
	}
}

// remoteErr wraps an error from a network operation. Errors go-git does
// not tag are taken to come from the remote.
func remoteErr(op, subject string, err error) error {
	kind := gcerrors.KindOf(err)
	if kind == gcerrors.KindInternal && !errors.Is(err, context.Canceled) {
		kind = gcerrors.KindTransport
	}
	return gcerrors.E(op, kind, subject, err)
}
