// Package remotes lists configured remotes and the branches and tags
// each one advertises.
package remotes

import (
	"context"
	"fmt"
	"sort"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"golang.org/x/sync/errgroup"

	"github.com/NicabarNimble/go-gitconf/internal/credentials"
	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
)

// DefaultBranch is used when a remote does not advertise its HEAD
const DefaultBranch = "main"

// maxConcurrent bounds parallel connections in Enumerate
const maxConcurrent = 4

// Options controls how remotes are contacted
type Options struct {
	Credentials     credentials.Provider
	InsecureSkipTLS bool
}

// Refs is what one remote advertises
type Refs struct {
	Remote   string
	URL      string
	Head     string   // default branch, empty when HEAD is not a symref
	Branches []string // short names, sorted
	Tags     []string // short names, sorted
}

// HasBranch reports whether the remote advertises refs/heads/<name>
func (r Refs) HasBranch(name string) bool {
	i := sort.SearchStrings(r.Branches, name)
	return i < len(r.Branches) && r.Branches[i] == name
}

// HasTag reports whether the remote advertises refs/tags/<name>
func (r Refs) HasTag(name string) bool {
	i := sort.SearchStrings(r.Tags, name)
	return i < len(r.Tags) && r.Tags[i] == name
}

// Names returns the configured remotes sorted by name
func Names(repo *gogit.Repository) ([]string, error) {
	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListRefs opens a fetch session to remote and returns the advertised
// references, sorted by name. Peeled tag entries are not included.
func ListRefs(ctx context.Context, remote *gogit.Remote, opts Options) ([]*plumbing.Reference, error) {
	cfg := remote.Config()
	if len(cfg.URLs) == 0 {
		return nil, gcerrors.E("list remote", gcerrors.KindNotFound, cfg.Name, gogit.ErrEmptyUrls)
	}
	url := cfg.URLs[0]

	auth, err := credentials.Auth(ctx, opts.Credentials, url)
	if err != nil {
		return nil, gcerrors.E("list remote", gcerrors.KindTransport, cfg.Name, err)
	}

	clog.FromContext(ctx).Debugf("listing references of %s (%s)", cfg.Name, url)
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{
		Auth:            auth,
		InsecureSkipTLS: opts.InsecureSkipTLS,
		PeelingOption:   gogit.IgnorePeeled,
	})
	if err != nil {
		return nil, gcerrors.E("list remote", gcerrors.KindTransport, cfg.Name, err)
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Name() < refs[j].Name()
	})
	return refs, nil
}

// Summarize groups raw references into branches, tags and HEAD
func Summarize(name, url string, refs []*plumbing.Reference) Refs {
	out := Refs{Remote: name, URL: url}
	for _, ref := range refs {
		switch {
		case ref.Name() == plumbing.HEAD:
			if ref.Type() == plumbing.SymbolicReference && ref.Target().IsBranch() {
				out.Head = ref.Target().Short()
			}
		case ref.Name().IsBranch():
			out.Branches = append(out.Branches, ref.Name().Short())
		case ref.Name().IsTag():
			out.Tags = append(out.Tags, ref.Name().Short())
		}
	}
	sort.Strings(out.Branches)
	sort.Strings(out.Tags)
	return out
}

// List contacts one configured remote
func List(ctx context.Context, repo *gogit.Repository, name string, opts Options) (Refs, error) {
	remote, err := repo.Remote(name)
	if err != nil {
		return Refs{}, gcerrors.Wrap("list remote", name, err)
	}
	refs, err := ListRefs(ctx, remote, opts)
	if err != nil {
		return Refs{}, err
	}
	return Summarize(name, remote.Config().URLs[0], refs), nil
}

// Enumerate lists every configured remote concurrently. Results are
// ordered by remote name; the first failure cancels the rest.
func Enumerate(ctx context.Context, repo *gogit.Repository, opts Options) ([]Refs, error) {
	names, err := Names(repo)
	if err != nil {
		return nil, err
	}

	out := make([]Refs, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, name := range names {
		g.Go(func() error {
			refs, err := List(ctx, repo, name, opts)
			if err != nil {
				return err
			}
			out[i] = refs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListURL contacts url without a local repository or configured remote
func ListURL(ctx context.Context, url string, opts Options) (Refs, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: gogit.DefaultRemoteName,
		URLs: []string{url},
	})
	refs, err := ListRefs(ctx, remote, opts)
	if err != nil {
		return Refs{}, err
	}
	return Summarize(gogit.DefaultRemoteName, url, refs), nil
}

// DefaultBranch is Head, or DefaultBranch when the remote did not say
func (r Refs) DefaultBranch() string {
	if r.Head != "" {
		return r.Head
	}
	return DefaultBranch
}
