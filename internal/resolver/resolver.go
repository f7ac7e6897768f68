// Package resolver turns a user-supplied spec (branch, tag or revision)
// into a concrete reference, fetching it from a remote when it only
// exists there.
//
// Resolution order is fixed and the first match wins:
//
//  1. local branch refs/heads/<spec>
//  2. local tag refs/tags/<spec>
//  3. a branch or tag advertised by a configured remote, remotes taken
//     in name order
//  4. any revision go-git can parse, such as a full or short hash
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/NicabarNimble/go-gitconf/internal/credentials"
	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/metrics"
	"github.com/NicabarNimble/go-gitconf/internal/progress"
	"github.com/NicabarNimble/go-gitconf/internal/remotes"
)

// Options configures remote access during step 3
type Options struct {
	Credentials     credentials.Provider
	InsecureSkipTLS bool
	// Progress receives fetch progress when set
	Progress *progress.Reporter
	// BeforeFetch runs when a remote has the spec, before anything is
	// fetched or created; its error is returned unchanged
	BeforeFetch func() error
}

// step returns a nil Outcome and nil error when it does not match
type step func(ctx context.Context, spec string) (Outcome, error)

// Resolver resolves specs against one repository
type Resolver struct {
	repo  *gogit.Repository
	opts  Options
	steps []step
}

// New creates a resolver for repo
func New(repo *gogit.Repository, opts Options) *Resolver {
	r := &Resolver{repo: repo, opts: opts}
	r.steps = []step{
		r.localBranch,
		r.localTag,
		r.remoteScan,
		r.revision,
	}
	return r
}

// Resolve runs the steps in order and returns the first match. It fails
// with a NotFound error carrying spec when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, spec string) (Outcome, error) {
	log := clog.FromContext(ctx)

	if spec != "" {
		steps := r.steps
		// Only a valid branch name may be joined under refs/; anything
		// else, like "HEAD~1" or "../config", is parsed as a revision.
		if plumbing.NewBranchReferenceName(spec).Validate() != nil {
			log.Debugf("%q is not a valid reference name", spec)
			steps = []step{r.revision}
		}
		for _, s := range steps {
			out, err := s(ctx, spec)
			if err != nil {
				return nil, err
			}
			if out != nil {
				log.Debugf("resolved %q to %s", spec, out)
				metrics.Resolution(out.Kind())
				return out, nil
			}
		}
	}

	metrics.Resolution("not_found")
	return nil, gcerrors.E("resolve", gcerrors.KindNotFound, spec, plumbing.ErrReferenceNotFound)
}

func (r *Resolver) lookup(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := r.repo.Storer.Reference(name)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, gcerrors.Wrap("resolve", name.String(), err)
	}
	return ref, nil
}

func (r *Resolver) localBranch(_ context.Context, spec string) (Outcome, error) {
	ref, err := r.lookup(plumbing.NewBranchReferenceName(spec))
	if ref == nil || err != nil {
		return nil, err
	}
	return LocalBranch{Ref: ref}, nil
}

func (r *Resolver) localTag(_ context.Context, spec string) (Outcome, error) {
	ref, err := r.lookup(plumbing.NewTagReferenceName(spec))
	if ref == nil || err != nil {
		return nil, err
	}
	return LocalTag{Ref: ref}, nil
}

// remoteScan asks each remote in turn for refs/heads/<spec> then
// refs/tags/<spec>, and fetches the first one found
func (r *Resolver) remoteScan(ctx context.Context, spec string) (Outcome, error) {
	names, err := remotes.Names(r.repo)
	if err != nil {
		return nil, gcerrors.Wrap("resolve", spec, err)
	}

	branch := plumbing.NewBranchReferenceName(spec)
	tag := plumbing.NewTagReferenceName(spec)
	ropts := remotes.Options{
		Credentials:     r.opts.Credentials,
		InsecureSkipTLS: r.opts.InsecureSkipTLS,
	}

	for _, name := range names {
		remote, err := r.repo.Remote(name)
		if err != nil {
			return nil, gcerrors.Wrap("resolve", name, err)
		}
		refs, err := remotes.ListRefs(ctx, remote, ropts)
		if err != nil {
			return nil, err
		}

		// refs are sorted, so a branch is always seen before a tag of
		// the same name
		for _, ref := range refs {
			switch ref.Name() {
			case branch:
				return r.fetchBranch(ctx, remote, spec)
			case tag:
				return r.fetchTag(ctx, remote, spec)
			}
		}
	}
	return nil, nil
}

func (r *Resolver) fetchBranch(ctx context.Context, remote *gogit.Remote, spec string) (Outcome, error) {
	name := remote.Config().Name
	tracking := plumbing.NewRemoteReferenceName(name, spec)
	refspec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(spec), tracking))

	if err := r.fetch(ctx, remote, refspec); err != nil {
		return nil, err
	}

	fetched, err := r.repo.Storer.Reference(tracking)
	if err != nil {
		return nil, gcerrors.Wrap("resolve", spec, err)
	}

	local := plumbing.NewHashReference(plumbing.NewBranchReferenceName(spec), fetched.Hash())
	if err := r.repo.Storer.SetReference(local); err != nil {
		return nil, gcerrors.Wrap("create branch", spec, err)
	}
	if err := r.setUpstream(spec, name); err != nil {
		return nil, gcerrors.Wrap("set upstream", spec, err)
	}

	clog.FromContext(ctx).Infof("branch %s set up to track %s/%s", spec, name, spec)
	return RemoteBranch{Remote: name, Ref: local, Commit: fetched.Hash()}, nil
}

func (r *Resolver) fetchTag(ctx context.Context, remote *gogit.Remote, spec string) (Outcome, error) {
	tag := plumbing.NewTagReferenceName(spec)
	refspec := config.RefSpec(fmt.Sprintf("+%s:%s", tag, tag))

	if err := r.fetch(ctx, remote, refspec); err != nil {
		return nil, err
	}

	ref, err := r.repo.Storer.Reference(tag)
	if err != nil {
		return nil, gcerrors.Wrap("resolve", spec, err)
	}
	return RemoteTag{Remote: remote.Config().Name, Ref: ref}, nil
}

// setUpstream writes branch.<spec>.remote and branch.<spec>.merge
func (r *Resolver) setUpstream(spec, remote string) error {
	cfg, err := r.repo.Config()
	if err != nil {
		return err
	}
	cfg.Branches[spec] = &config.Branch{
		Name:   spec,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(spec),
	}
	return r.repo.SetConfig(cfg)
}

func (r *Resolver) fetch(ctx context.Context, remote *gogit.Remote, refspec config.RefSpec) error {
	if r.opts.BeforeFetch != nil {
		if err := r.opts.BeforeFetch(); err != nil {
			return err
		}
	}
	cfg := remote.Config()

	auth, err := credentials.Auth(ctx, r.opts.Credentials, cfg.URLs[0])
	if err != nil {
		return gcerrors.E("fetch", gcerrors.KindTransport, cfg.Name, err)
	}

	var st storage.Storer = r.repo.Storer
	var sideband io.Writer
	if p := r.opts.Progress; p != nil {
		p.Send(0, fmt.Sprintf("Fetching %s from %s", refspec.Src(), cfg.Name))
		sideband = p.Sideband(1)
		if fs, ok := r.repo.Storer.(*filesystem.Storage); ok {
			st = progress.WatchStorage(fs, p.Transfer(1))
		}
	}

	err = gogit.NewRemote(st, cfg).FetchContext(ctx, &gogit.FetchOptions{
		RemoteName:      cfg.Name,
		RefSpecs:        []config.RefSpec{refspec},
		Auth:            auth,
		Progress:        sideband,
		InsecureSkipTLS: r.opts.InsecureSkipTLS,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return gcerrors.E("fetch", gcerrors.KindTransport, cfg.Name, err)
	}
	return nil
}

func (r *Resolver) revision(_ context.Context, spec string) (Outcome, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(spec))
	if err != nil {
		return nil, nil
	}
	return DetachedCommit{Hash: *hash}, nil
}
