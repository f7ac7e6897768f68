package credentials

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sethvargo/go-envconfig"
)

// EnvConfig is the credential material read from the environment.
//
// Example Usage:
//
//	export GIT_USERNAME=ci-bot
//	export GIT_PASSWORD=...        // or GIT_TOKEN for access tokens
//	export GIT_SSH_KEY=$HOME/.ssh/id_ed25519
type EnvConfig struct {
	Username         string `env:"GIT_USERNAME"`
	Password         string `env:"GIT_PASSWORD"`
	Token            string `env:"GIT_TOKEN"`
	SSHKey           string `env:"GIT_SSH_KEY"`
	SSHKeyPassphrase string `env:"GIT_SSH_KEY_PASSPHRASE"`
}

// EnvProvider implements Provider using environment variables. The
// environment is read on every call so rotated secrets are picked up.
type EnvProvider struct {
	lookuper envconfig.Lookuper
}

// NewEnvProvider creates a provider backed by the process environment
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookuper: envconfig.OsLookuper()}
}

// NewEnvProviderWith creates a provider backed by l
func NewEnvProviderWith(l envconfig.Lookuper) *EnvProvider {
	return &EnvProvider{lookuper: l}
}

// Load reads the credential variables
func (e *EnvProvider) Load(ctx context.Context) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: e.lookuper,
	}); err != nil {
		return EnvConfig{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// Credential implements Provider
func (e *EnvProvider) Credential(ctx context.Context, url string) (Credential, error) {
	cfg, err := e.Load(ctx)
	if err != nil {
		return Credential{}, err
	}

	if cfg.SSHKey != "" && isSSH(url) {
		return Credential{
			Type:          CredTypeSSHKey,
			Username:      cfg.Username,
			KeyPath:       cfg.SSHKey,
			KeyPassphrase: cfg.SSHKeyPassphrase,
		}, nil
	}

	pass := cfg.Password
	if pass == "" {
		pass = cfg.Token
	}
	user := cfg.Username
	if user == "" && pass != "" {
		user = UsernameForToken(pass)
	}

	switch {
	case user != "" && pass != "":
		return Credential{Type: CredTypeUserPassPlainText, Username: user, Password: pass}, nil
	case user != "":
		return Credential{Type: CredTypeUsername, Username: user}, nil
	default:
		return Credential{Type: CredTypeDefault}, nil
	}
}

func isSSH(url string) bool {
	if url == "" {
		return false
	}
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return false
	}
	return ep.Protocol == "ssh"
}
