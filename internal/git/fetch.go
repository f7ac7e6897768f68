package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
	"github.com/NicabarNimble/go-gitconf/internal/progress"
)

// FetchConfig describes a fetch. go-git cannot unshallow, so there is no
// option for it; Deepen with a large depth comes closest.
type FetchConfig struct {
	// Remote defaults to the upstream of the current branch, then origin
	Remote string
	Deepen int  // limit history to this many commits from each tip
	Prune  bool // delete remote-tracking refs the remote no longer has
	Tags   bool // fetch every tag, not only those on fetched history

	updates
}

// Fetch updates remote-tracking references from one remote
func (r *Repository) Fetch(ctx context.Context, cfg FetchConfig) (err error) {
	const op = "fetch"
	defer func() { metrics.Operation(op, err) }()
	defer cfg.close()

	repo, err := r.require(op)
	if err != nil {
		return err
	}

	name := cfg.Remote
	if name == "" {
		name = defaultRemote(repo)
	}
	auth, err := r.authFor(ctx, name)
	if err != nil {
		return gcerrors.Wrap(op, name, err)
	}

	opts := &gogit.FetchOptions{
		RemoteName:      name,
		Depth:           cfg.Deepen,
		Auth:            auth,
		Prune:           cfg.Prune,
		InsecureSkipTLS: r.bypassCertificateCheck,
	}
	if cfg.Tags {
		opts.Tags = gogit.AllTags
	}

	transfer, err := fetchWithProgress(ctx, repo, name, opts, cfg.reporter())
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		clog.FromContext(ctx).Debugf("%s already up to date", name)
		return nil
	}
	if err != nil {
		return remoteErr(op, name, err)
	}
	if transfer != nil {
		metrics.Received(transfer.Bytes())
	}
	return nil
}

// fetchWithProgress runs a fetch on name, reporting to rep when it is set.
// The returned transfer is nil when nothing was watched.
func fetchWithProgress(ctx context.Context, repo *gogit.Repository, name string, opts *gogit.FetchOptions, rep *progress.Reporter) (*progress.Transfer, error) {
	remote, err := repo.Remote(name)
	if err != nil {
		return nil, err
	}

	var st storage.Storer = repo.Storer
	var transfer *progress.Transfer
	if rep != nil {
		rep.Send(0, fmt.Sprintf("Fetching %s", name))
		opts.Progress = rep.Sideband(1)
		if fs, ok := repo.Storer.(*filesystem.Storage); ok {
			transfer = rep.Transfer(1)
			st = progress.WatchStorage(fs, transfer)
		}
	}

	return transfer, gogit.NewRemote(st, remote.Config()).FetchContext(ctx, opts)
}

// defaultRemote is the remote the current branch tracks, or origin
func defaultRemote(repo *gogit.Repository) string {
	if b := currentBranchConfig(repo); b != nil && b.Remote != "" {
		return b.Remote
	}
	return gogit.DefaultRemoteName
}

// currentBranch returns the branch HEAD points at, or "" when detached
func currentBranch(repo *gogit.Repository) plumbing.ReferenceName {
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil || head.Type() != plumbing.SymbolicReference {
		return ""
	}
	return head.Target()
}
