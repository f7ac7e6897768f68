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
	"github.com/NicabarNimble/go-gitconf/internal/remotes"
)

var (
	// ErrInvalidFlag is returned when a flag does not belong to the subcommand
	ErrInvalidFlag = errors.New("invalid flag")
	// ErrNoSubcommand is returned by Remote for a zero RemoteConfig
	ErrNoSubcommand = errors.New("no remote subcommand given")
	// ErrUnknownRemoteHead is returned when set-head cannot tell the
	// remote's default branch
	ErrUnknownRemoteHead = errors.New("cannot determine remote HEAD")
)

// RemoteSubcommand selects what Remote does
type RemoteSubcommand int

const (
	RemoteNone RemoteSubcommand = iota
	RemoteAdd
	RemoteRemove
	RemoteSetHead
)

func (s RemoteSubcommand) String() string {
	switch s {
	case RemoteAdd:
		return "add"
	case RemoteRemove:
		return "remove"
	case RemoteSetHead:
		return "set-head"
	default:
		return "none"
	}
}

// RemoteConfig describes a remote subcommand. Build it with
// NewRemoteAdd, NewRemoteRemove or NewRemoteSetHead; flags are checked
// against the subcommand as they are set.
type RemoteConfig struct {
	sub    RemoteSubcommand
	name   string
	url    string
	branch string

	track  []string
	delete bool
}

// NewRemoteAdd adds remote name at url
func NewRemoteAdd(name, url string) RemoteConfig {
	return RemoteConfig{sub: RemoteAdd, name: name, url: url}
}

// NewRemoteRemove removes remote name with its tracking refs and config
func NewRemoteRemove(name string) RemoteConfig {
	return RemoteConfig{sub: RemoteRemove, name: name}
}

// NewRemoteSetHead points refs/remotes/<remote>/HEAD at branch. An empty
// branch asks the remote for its default.
func NewRemoteSetHead(remote, branch string) RemoteConfig {
	return RemoteConfig{sub: RemoteSetHead, name: remote, branch: branch}
}

// Subcommand returns the configured subcommand
func (c RemoteConfig) Subcommand() RemoteSubcommand {
	return c.sub
}

// Track limits the fetch refspecs of an added remote to branches
func (c *RemoteConfig) Track(branches ...string) error {
	if c.sub != RemoteAdd {
		return c.flagError(fmt.Sprintf("--track %v", branches))
	}
	c.track = branches
	return nil
}

// Delete makes set-head remove the symbolic ref instead
func (c *RemoteConfig) Delete(del bool) error {
	if c.sub != RemoteSetHead {
		return c.flagError(fmt.Sprintf("--delete %t", del))
	}
	c.delete = del
	return nil
}

func (c *RemoteConfig) flagError(flag string) error {
	return gcerrors.E("remote", gcerrors.KindConflict, c.name,
		fmt.Errorf("%w: no flag '%s' for subcommand '%s'", ErrInvalidFlag, flag, c.sub))
}

// Remote runs a remote subcommand
func (r *Repository) Remote(ctx context.Context, cfg RemoteConfig) (err error) {
	op := "remote " + cfg.sub.String()
	defer func() { metrics.Operation("remote", err) }()

	repo, err := r.require(op)
	if err != nil {
		return err
	}

	switch cfg.sub {
	case RemoteAdd:
		err = addRemote(repo, cfg)
	case RemoteRemove:
		err = removeRemote(repo, cfg.name)
	case RemoteSetHead:
		err = r.setRemoteHead(ctx, repo, cfg)
	default:
		return gcerrors.E(op, gcerrors.KindConflict, "", ErrNoSubcommand)
	}
	if err != nil {
		return gcerrors.Wrap(op, cfg.name, err)
	}

	clog.FromContext(ctx).Infof("remote %s %s", cfg.sub, cfg.name)
	return nil
}

func addRemote(repo *gogit.Repository, cfg RemoteConfig) error {
	rc := &config.RemoteConfig{
		Name: cfg.name,
		URLs: []string{cfg.url},
	}
	for _, branch := range cfg.track {
		rc.Fetch = append(rc.Fetch, config.RefSpec(fmt.Sprintf(
			"+%s:%s", plumbing.NewBranchReferenceName(branch), plumbing.NewRemoteReferenceName(cfg.name, branch))))
	}
	_, err := repo.CreateRemote(rc)
	return err
}

// removeRemote deletes the remote's config, its remote-tracking refs and
// the upstream settings of branches tracking it
func removeRemote(repo *gogit.Repository, name string) error {
	if err := repo.DeleteRemote(name); err != nil {
		return err
	}

	iter, err := repo.References()
	if err != nil {
		return err
	}
	prefix := plumbing.NewRemoteReferenceName(name, "")
	var stale []plumbing.ReferenceName
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().String(), prefix.String()) {
			stale = append(stale, ref.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, ref := range stale {
		if err := repo.Storer.RemoveReference(ref); err != nil {
			return err
		}
	}

	cfg, err := repo.Config()
	if err != nil {
		return err
	}
	for _, b := range cfg.Branches {
		if b.Remote == name {
			b.Remote = ""
			b.Merge = ""
		}
	}
	return repo.SetConfig(cfg)
}

func (r *Repository) setRemoteHead(ctx context.Context, repo *gogit.Repository, cfg RemoteConfig) error {
	if _, err := repo.Remote(cfg.name); err != nil {
		return err
	}
	head := plumbing.NewRemoteHEADReferenceName(cfg.name)

	if cfg.delete {
		err := repo.Storer.RemoveReference(head)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return err
	}

	branch := cfg.branch
	if branch == "" {
		refs, err := remotes.List(ctx, repo, cfg.name, r.remoteOptions())
		if err != nil {
			return err
		}
		if refs.Head == "" {
			return gcerrors.E("remote set-head", gcerrors.KindNotFound, cfg.name, ErrUnknownRemoteHead)
		}
		branch = refs.Head
	}

	target := plumbing.NewRemoteReferenceName(cfg.name, branch)
	if _, err := repo.Storer.Reference(target); err != nil {
		return fmt.Errorf("not a valid ref %s: %w", target, err)
	}
	return repo.Storer.SetReference(plumbing.NewSymbolicReference(head, target))
}

// RemoteNames lists configured remotes by name
func (r *Repository) RemoteNames() ([]string, error) {
	repo, err := r.require("remote")
	if err != nil {
		return nil, err
	}
	return remotes.Names(repo)
}

// ShowRemotes contacts every remote and reports what each advertises
func (r *Repository) ShowRemotes(ctx context.Context) ([]remotes.Refs, error) {
	repo, err := r.require("remote show")
	if err != nil {
		return nil, err
	}
	return remotes.Enumerate(ctx, repo, r.remoteOptions())
}
