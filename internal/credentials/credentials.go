// Package credentials supplies authentication material for network
// operations.
//
// A Provider is asked for a Credential each time a remote is contacted.
// The Credential is then turned into a go-git transport.AuthMethod that
// matches the remote's protocol:
//
//   - Default: no authentication (anonymous HTTP, local paths)
//   - Username: HTTP basic auth with an empty password, or ssh-agent for ssh remotes
//   - UserPassPlainText: HTTP basic auth
//   - SSHKey: private key file for ssh remotes
//
// Providers:
//
//   - Static: a fixed credential, set through the repository handle
//   - EnvProvider: GIT_USERNAME / GIT_PASSWORD / GIT_SSH_KEY from the environment
//   - TokenSourceProvider: an oauth2.TokenSource used as the HTTP password
//   - MemoryStore: per-host providers, falling back to another provider
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// ErrCredentialInvalid is returned for credentials missing required fields
var ErrCredentialInvalid = errors.New("credential is invalid")

// CredType names the kind of credential a Provider hands out
type CredType int

const (
	CredTypeUnknown CredType = iota
	CredTypeUserPassPlainText
	CredTypeSSHKey
	CredTypeSSHCustom
	CredTypeDefault
	CredTypeSSHInteractive
	CredTypeUsername
	CredTypeSSHMemory
)

func (c CredType) String() string {
	switch c {
	case CredTypeUserPassPlainText:
		return "userpass-plaintext"
	case CredTypeSSHKey:
		return "ssh-key"
	case CredTypeSSHCustom:
		return "ssh-custom"
	case CredTypeDefault:
		return "default"
	case CredTypeSSHInteractive:
		return "ssh-interactive"
	case CredTypeUsername:
		return "username"
	case CredTypeSSHMemory:
		return "ssh-memory"
	default:
		return "unknown"
	}
}

// Credential is the authentication material for one remote operation
type Credential struct {
	Type     CredType
	Username string
	Password string

	// KeyPath and KeyPassphrase are used by CredTypeSSHKey
	KeyPath       string
	KeyPassphrase string
}

// Validate checks the fields required by the credential's type
func (c Credential) Validate() error {
	switch c.Type {
	case CredTypeDefault:
		return nil
	case CredTypeUsername:
		if c.Username == "" {
			return fmt.Errorf("%w: username is empty", ErrCredentialInvalid)
		}
	case CredTypeUserPassPlainText:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("%w: username and password are required", ErrCredentialInvalid)
		}
	case CredTypeSSHKey:
		if c.KeyPath == "" {
			return fmt.Errorf("%w: ssh key path is empty", ErrCredentialInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported type %s", ErrCredentialInvalid, c.Type)
	}
	return nil
}

// AuthMethod converts the credential into a go-git auth method for the
// given remote URL. A nil method means anonymous access.
func (c Credential) AuthMethod(rawURL string) (transport.AuthMethod, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	protocol := "https"
	if rawURL != "" {
		ep, err := transport.NewEndpoint(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		protocol = ep.Protocol
	}

	switch protocol {
	case "file":
		return nil, nil
	case "ssh":
		user := c.Username
		if user == "" {
			user = "git"
		}
		switch c.Type {
		case CredTypeSSHKey:
			return gitssh.NewPublicKeysFromFile(user, c.KeyPath, c.KeyPassphrase)
		case CredTypeDefault:
			return nil, nil
		case CredTypeUsername:
			return gitssh.NewSSHAgentAuth(user)
		case CredTypeUserPassPlainText:
			return &gitssh.Password{User: user, Password: c.Password}, nil
		}
	default:
		switch c.Type {
		case CredTypeDefault:
			return nil, nil
		case CredTypeUsername, CredTypeUserPassPlainText:
			return &githttp.BasicAuth{Username: c.Username, Password: c.Password}, nil
		case CredTypeSSHKey:
			return nil, fmt.Errorf("%w: ssh key cannot be used with %s", ErrCredentialInvalid, protocol)
		}
	}
	return nil, fmt.Errorf("%w: unsupported type %s", ErrCredentialInvalid, c.Type)
}

// Provider supplies credentials on demand during network operations
type Provider interface {
	// Credential returns the credential to use for url
	Credential(ctx context.Context, url string) (Credential, error)
}

// Static always returns the same credential
type Static Credential

// Credential implements Provider
func (s Static) Credential(_ context.Context, _ string) (Credential, error) {
	return Credential(s), nil
}

// Default returns a provider for anonymous access
func Default() Static {
	return Static{Type: CredTypeDefault}
}

// Username returns a provider for a username-only credential
func Username(user string) Static {
	return Static{Type: CredTypeUsername, Username: user}
}

// UserPass returns a provider for a username and password credential
func UserPass(user, pass string) Static {
	return Static{Type: CredTypeUserPassPlainText, Username: user, Password: pass}
}

// TypeOf reports the CredType a provider hands out without a specific URL
func TypeOf(ctx context.Context, p Provider) (CredType, error) {
	if p == nil {
		return CredTypeDefault, nil
	}
	cred, err := p.Credential(ctx, "")
	if err != nil {
		return CredTypeUnknown, err
	}
	return cred.Type, nil
}

// Auth asks p for a credential and converts it for url
func Auth(ctx context.Context, p Provider, url string) (transport.AuthMethod, error) {
	if p == nil {
		return nil, nil
	}
	cred, err := p.Credential(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return cred.AuthMethod(url)
}
