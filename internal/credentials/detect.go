package credentials

import "strings"

// Host is the git hosting service a token was issued by
type Host string

const (
	HostGitHub Host = "GITHUB"
	HostGitLab Host = "GITLAB"
)

// DetectHost attempts to determine the issuing host from the token format
func DetectHost(token string) Host {
	switch {
	case strings.HasPrefix(token, "ghp_"),
		strings.HasPrefix(token, "gho_"),
		strings.HasPrefix(token, "ghs_"),
		strings.HasPrefix(token, "github_pat_"):
		return HostGitHub
	case strings.HasPrefix(token, "glpat-"):
		return HostGitLab
	default:
		return ""
	}
}

// UsernameForToken returns the username to pair with token in HTTP basic
// auth. GitLab requires oauth2; GitHub accepts anything.
func UsernameForToken(token string) string {
	switch DetectHost(token) {
	case HostGitHub:
		return "x-access-token"
	case HostGitLab:
		return "oauth2"
	default:
		return "git"
	}
}
