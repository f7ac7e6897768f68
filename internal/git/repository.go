package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/NicabarNimble/go-gitconf/internal/credentials"
	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/remotes"
	"github.com/NicabarNimble/go-gitconf/internal/resolver"
	"github.com/NicabarNimble/go-gitconf/internal/urlutils"
)

// ErrNoRepository is returned by operations on an empty handle
var ErrNoRepository = errors.New("repository not found or created, try opening a valid repository or cloning one")

// ErrAlreadyPopulated is returned by Clone and Init on a populated handle
var ErrAlreadyPopulated = errors.New("handle already holds a repository")

// Repository is a handle to at most one git repository
type Repository struct {
	repo *gogit.Repository
	path string

	creds                  credentials.Provider
	skipOwnerValidation    bool
	bypassCertificateCheck bool
}

// Option configures a Repository
type Option func(*Repository)

// WithCredentials sets the provider consulted for remote operations
func WithCredentials(p credentials.Provider) Option {
	return func(r *Repository) { r.creds = p }
}

// WithSkipOwnerValidation disables the ownership check in Open
func WithSkipOwnerValidation(skip bool) Option {
	return func(r *Repository) { r.skipOwnerValidation = skip }
}

// WithBypassCertificateCheck accepts any TLS certificate from remotes
func WithBypassCertificateCheck(bypass bool) Option {
	return func(r *Repository) { r.bypassCertificateCheck = bypass }
}

// New creates an empty handle. Use it for Clone or Init.
func New(opts ...Option) *Repository {
	r := &Repository{creds: credentials.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open wraps the repository at path. The directory must belong to the
// current user unless owner validation is skipped.
func Open(path string, opts ...Option) (*Repository, error) {
	r := New(opts...)

	if !r.skipOwnerValidation {
		if err := checkOwner(path); err != nil {
			return nil, gcerrors.E("open", gcerrors.KindConflict, path, err)
		}
	}

	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, gcerrors.Wrap("open", path, err)
	}

	r.repo = repo
	r.path = path
	return r, nil
}

// IsValid reports whether the handle holds a repository
func (r *Repository) IsValid() bool {
	return r.repo != nil
}

// Repo returns the underlying go-git repository, nil when empty
func (r *Repository) Repo() *gogit.Repository {
	return r.repo
}

// Path returns the directory the handle was opened, cloned or
// initialized at
func (r *Repository) Path() string {
	return r.path
}

// SkipOwnerValidation toggles the ownership check for this handle
func (r *Repository) SkipOwnerValidation(skip bool) {
	r.skipOwnerValidation = skip
}

// OwnerValidationSkipped reports the ownership check policy
func (r *Repository) OwnerValidationSkipped() bool {
	return r.skipOwnerValidation
}

// BypassCertificateCheck toggles TLS verification for this handle
func (r *Repository) BypassCertificateCheck(bypass bool) {
	r.bypassCertificateCheck = bypass
}

// CertificateCheckBypassed reports the TLS verification policy
func (r *Repository) CertificateCheckBypassed() bool {
	return r.bypassCertificateCheck
}

// SetCredentials replaces the credential provider
func (r *Repository) SetCredentials(p credentials.Provider) {
	r.creds = p
}

// SetUserPass uses a username and password for HTTPS remotes
func (r *Repository) SetUserPass(user, pass string) {
	r.creds = credentials.UserPass(user, pass)
}

// SetUser uses a bare username
func (r *Repository) SetUser(user string) {
	r.creds = credentials.Username(user)
}

// CredType reports the kind of credential the handle hands out
func (r *Repository) CredType(ctx context.Context) (credentials.CredType, error) {
	return credentials.TypeOf(ctx, r.creds)
}

// require returns the repository or a NotFound error for op
func (r *Repository) require(op string) (*gogit.Repository, error) {
	if r.repo == nil {
		return nil, gcerrors.E(op, gcerrors.KindNotFound, "", ErrNoRepository)
	}
	return r.repo, nil
}

// populate stores a repository created by Clone or Init
func (r *Repository) populate(op string) error {
	if r.repo != nil {
		return gcerrors.E(op, gcerrors.KindConflict, r.path, ErrAlreadyPopulated)
	}
	return nil
}

func (r *Repository) remoteOptions() remotes.Options {
	return remotes.Options{
		Credentials:     r.creds,
		InsecureSkipTLS: r.bypassCertificateCheck,
	}
}

func (r *Repository) resolverOptions() resolver.Options {
	return resolver.Options{
		Credentials:     r.creds,
		InsecureSkipTLS: r.bypassCertificateCheck,
	}
}

// authFor resolves credentials for the first URL of remote
func (r *Repository) authFor(ctx context.Context, remote string) (transport.AuthMethod, error) {
	rem, err := r.repo.Remote(remote)
	if err != nil {
		return nil, err
	}
	urls := rem.Config().URLs
	if len(urls) == 0 {
		return nil, gogit.ErrEmptyUrls
	}
	clog.FromContext(ctx).Debugf("using remote %s (%s)", remote, urlutils.Redact(urls[0]))
	return credentials.Auth(ctx, r.creds, urls[0])
}

func (r *Repository) String() string {
	if r.repo == nil {
		return "git.Repository(empty)"
	}
	return fmt.Sprintf("git.Repository(%s)", r.path)
}
