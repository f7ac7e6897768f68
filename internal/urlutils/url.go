// Package urlutils parses and validates repository URLs and derives the
// default clone directory from them. It accepts every form git accepts:
// https, http, ssh, git, scp-like user@host:path and local paths.
package urlutils

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

var (
	// ErrInvalidURL indicates that the provided URL is not valid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrUnsupportedScheme indicates a protocol go-git cannot talk
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrInvalidPath indicates that the URL has no repository path
	ErrInvalidPath = errors.New("invalid repository path")
)

var supportedSchemes = map[string]bool{
	"https": true,
	"http":  true,
	"ssh":   true,
	"git":   true,
	"file":  true,
}

// Parse validates rawURL and returns its transport endpoint. scp-like
// addresses come back with protocol "ssh", local paths with "file".
func Parse(rawURL string) (*transport.Endpoint, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	ep, err := transport.NewEndpoint(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if !supportedSchemes[ep.Protocol] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, ep.Protocol)
	}

	if strings.Trim(ep.Path, "/") == "" {
		return nil, fmt.Errorf("%w: URL must include a repository path", ErrInvalidPath)
	}

	return ep, nil
}

// ValidateURL checks that rawURL is something a clone could be started from
func ValidateURL(rawURL string) error {
	_, err := Parse(rawURL)
	return err
}

// IsLocal reports whether rawURL names a repository on the local filesystem
func IsLocal(rawURL string) bool {
	ep, err := transport.NewEndpoint(rawURL)
	return err == nil && ep.Protocol == "file"
}

// DirName returns the directory a clone of rawURL lands in by default:
// the last path segment with any ".git" suffix removed. It returns ""
// when no name can be derived.
func DirName(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	p := rawURL
	if ep, err := transport.NewEndpoint(rawURL); err == nil {
		p = ep.Path
	}

	p = strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/")
	name := strings.TrimSuffix(path.Base(p), ".git")
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Redact removes credentials from rawURL so it can be logged. Strings
// that are not URLs are returned unchanged.
func Redact(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	u.User = nil
	return u.String()
}
