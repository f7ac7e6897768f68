// Package gittest builds throwaway repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Signature is the identity used for every test commit
func Signature() *object.Signature {
	return &object.Signature{
		Name:  "test",
		Email: "test@example.com",
		When:  time.Now(),
	}
}

// RequireGit skips the test when the git binary is missing. go-git's
// file transport runs git-upload-pack and git-receive-pack.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// Git runs the git binary in dir with an isolated configuration and
// returns trimmed stdout
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	RequireGit(t)

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_GLOBAL=/dev/null", // Ignore global config
		"GIT_CONFIG_SYSTEM=/dev/null", // Ignore system config
	)
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		t.Fatalf("git %v: %v\n%s", args, err, stderr)
	}
	return strings.TrimSpace(string(out))
}

// InitRepo creates a repository on branch main with one commit of
// README.md and returns it with its directory
func InitRepo(t *testing.T) (*gogit.Repository, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	Commit(t, repo, "README.md", "# test\n", "initial commit")
	return repo, dir
}

// WriteFile writes content to path inside the repository's worktree
func WriteFile(t *testing.T, repo *gogit.Repository, path, content string) {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	full := filepath.Join(wt.Filesystem.Root(), path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile reads path from the repository's worktree
func ReadFile(t *testing.T, repo *gogit.Repository, path string) string {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(wt.Filesystem.Root(), path))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Commit writes path, stages it and commits on the current branch
func Commit(t *testing.T, repo *gogit.Repository, path, content, msg string) plumbing.Hash {
	t.Helper()

	WriteFile(t, repo, path, content)
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add(path); err != nil {
		t.Fatalf("add %s: %v", path, err)
	}
	hash, err := wt.Commit(msg, &gogit.CommitOptions{Author: Signature()})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

// Branch points refs/heads/<name> at hash
func Branch(t *testing.T, repo *gogit.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("create branch %s: %v", name, err)
	}
}

// Tag creates a lightweight tag
func Tag(t *testing.T, repo *gogit.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	if _, err := repo.CreateTag(name, hash, nil); err != nil {
		t.Fatalf("create tag %s: %v", name, err)
	}
}

// AnnotatedTag creates an annotated tag
func AnnotatedTag(t *testing.T, repo *gogit.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	if _, err := repo.CreateTag(name, hash, &gogit.CreateTagOptions{
		Tagger:  Signature(),
		Message: "release " + name,
	}); err != nil {
		t.Fatalf("create tag %s: %v", name, err)
	}
}

// Head returns the HEAD reference without resolving it
func Head(t *testing.T, repo *gogit.Repository) *plumbing.Reference {
	t.Helper()
	ref, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	return ref
}

// Checkout switches the worktree to a branch
func Checkout(t *testing.T, repo *gogit.Repository, branch string) {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}); err != nil {
		t.Fatalf("checkout %s: %v", branch, err)
	}
}
