package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"

	"github.com/NicabarNimble/go-gitconf/internal/config"
	"github.com/NicabarNimble/go-gitconf/internal/credentials"
)

// newCredentialProvider answers for the hosts in the credentials section
// and falls back to the GIT_* environment variables for everything else
func newCredentialProvider(entries []config.HostCredential, getenv func(string) string) (*credentials.MemoryStore, error) {
	store := credentials.NewMemoryStore()
	store.Fallback = credentials.NewEnvProvider()

	for _, e := range entries {
		switch {
		case e.TokenEnv != "":
			p := credentials.NewTokenSourceProvider(envTokenSource{name: e.TokenEnv, getenv: getenv})
			if e.Username != "" {
				p = p.WithUsername(e.Username)
			} else if tok := getenv(e.TokenEnv); tok != "" {
				p = p.WithUsername(credentials.UsernameForToken(tok))
			}
			store.Register(e.Host, p)
		case e.SSHKey != "":
			cred := credentials.Credential{
				Type:     credentials.CredTypeSSHKey,
				Username: e.Username,
				KeyPath:  expandHome(e.SSHKey),
			}
			if err := store.Store(e.Host, cred); err != nil {
				return nil, fmt.Errorf("credentials for %s: %w", e.Host, err)
			}
		case e.Username != "":
			if err := store.Store(e.Host, credentials.Credential{Type: credentials.CredTypeUsername, Username: e.Username}); err != nil {
				return nil, fmt.Errorf("credentials for %s: %w", e.Host, err)
			}
		default:
			store.Register(e.Host, credentials.Default())
		}
	}
	return store, nil
}

// envTokenSource reads the token when a remote asks for it, so an unset
// variable only fails operations against its host
type envTokenSource struct {
	name   string
	getenv func(string) string
}

func (s envTokenSource) Token() (*oauth2.Token, error) {
	tok := s.getenv(s.name)
	if tok == "" {
		return nil, fmt.Errorf("environment variable %s is not set", s.name)
	}
	return &oauth2.Token{AccessToken: tok}, nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
