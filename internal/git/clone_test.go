package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/gittest"
	"github.com/NicabarNimble/go-gitconf/internal/progress"
)

// upstream returns a repository with three commits on main, a branch
// "curl" one commit ahead, and an annotated tag v1.0 on the second commit
func upstream(t *testing.T) (*gogit.Repository, string) {
	t.Helper()
	repo, dir := gittest.InitRepo(t)
	second := gittest.Commit(t, repo, "a.txt", "a\n", "second")
	gittest.AnnotatedTag(t, repo, "v1.0", second)
	third := gittest.Commit(t, repo, "b.txt", "b\n", "third")

	gittest.Branch(t, repo, "curl", third)
	gittest.Checkout(t, repo, "curl")
	gittest.Commit(t, repo, "curl.c", "int main;\n", "curl support")
	gittest.Checkout(t, repo, "main")
	return repo, dir
}

func TestCloneConfig_DirName(t *testing.T) {
	tests := []struct {
		name string
		cfg  CloneConfig
		want string
	}{
		{"derived", CloneConfig{URL: "https://github.com/org/repo.git"}, "repo"},
		{"derived bare", CloneConfig{URL: "https://github.com/org/repo.git", Bare: true}, "repo.git"},
		{"explicit", CloneConfig{URL: "https://github.com/org/repo.git", Dir: "work"}, "work"},
		{"explicit bare", CloneConfig{URL: "https://github.com/org/repo.git", Dir: "work", Bare: true}, "work"},
		{"local path", CloneConfig{URL: "/srv/git/project"}, "project"},
		{"no name", CloneConfig{URL: ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DirName())
		})
	}

	cfg := NewCloneConfig("https://github.com/org/repo.git", "/tmp/x")
	assert.Equal(t, filepath.Join("/tmp/x", "repo"), cfg.Path())
}

func TestClone(t *testing.T) {
	gittest.RequireGit(t)
	up, upDir := upstream(t)
	upHead, err := up.Head()
	require.NoError(t, err)

	r := New()
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.Dir = "work"
	require.NoError(t, r.Clone(context.Background(), cfg))

	assert.True(t, r.IsValid())
	assert.Equal(t, cfg.Path(), r.Path())

	head, err := r.Repo().Head()
	require.NoError(t, err)
	assert.Equal(t, plumbing.NewBranchReferenceName("main"), head.Name())
	assert.Equal(t, upHead.Hash(), head.Hash())

	_, err = r.Repo().Reference(plumbing.NewRemoteReferenceName("origin", "curl"), false)
	assert.NoError(t, err)
	_, err = r.Repo().Reference(plumbing.NewTagReferenceName("v1.0"), false)
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Path(), "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(data))
}

func TestClone_Branch(t *testing.T) {
	gittest.RequireGit(t)
	_, upDir := upstream(t)

	r := New()
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.Branch = "curl"
	require.NoError(t, r.Clone(context.Background(), cfg))

	head, err := r.Repo().Head()
	require.NoError(t, err)
	assert.Equal(t, "curl", head.Name().Short())
	assert.FileExists(t, filepath.Join(cfg.Path(), "curl.c"))
}

func TestClone_Tag(t *testing.T) {
	gittest.RequireGit(t)
	up, upDir := upstream(t)
	tagged, err := up.ResolveRevision("v1.0")
	require.NoError(t, err)

	r := New()
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.Branch = "v1.0"
	require.NoError(t, r.Clone(context.Background(), cfg))

	head := gittest.Head(t, r.Repo())
	assert.Equal(t, plumbing.HashReference, head.Type(), "HEAD is detached")
	assert.Equal(t, *tagged, head.Hash())
}

func TestClone_BranchNotFound(t *testing.T) {
	gittest.RequireGit(t)
	_, upDir := upstream(t)

	parent := t.TempDir()
	r := New()
	cfg := NewCloneConfig(upDir, parent)
	cfg.Branch = "nope"
	err := r.Clone(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, gcerrors.IsNotFound(err))
	assert.False(t, r.IsValid())
	assert.NoDirExists(t, cfg.Path())
}

func TestClone_Depth(t *testing.T) {
	gittest.RequireGit(t)
	_, upDir := upstream(t)

	r := New()
	cfg := NewCloneConfig("file://"+upDir, t.TempDir())
	cfg.Depth = 1
	require.NoError(t, r.Clone(context.Background(), cfg))

	assert.Equal(t, "1", gittest.Git(t, cfg.Path(), "rev-list", "--count", "HEAD"))

	// a shallow clone tracks only the cloned branch
	_, err := r.Repo().Reference(plumbing.NewRemoteReferenceName("origin", "curl"), false)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestClone_SingleBranch(t *testing.T) {
	gittest.RequireGit(t)
	_, upDir := upstream(t)

	r := New()
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.SingleBranch = true
	require.NoError(t, r.Clone(context.Background(), cfg))

	iter, err := r.Repo().References()
	require.NoError(t, err)
	var tracking []string
	require.NoError(t, iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsRemote() {
			tracking = append(tracking, ref.Name().Short())
		}
		return nil
	}))
	assert.Equal(t, []string{"origin/main"}, tracking)
}

func TestClone_Bare(t *testing.T) {
	gittest.RequireGit(t)
	_, upDir := upstream(t)

	r := New()
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.Bare = true
	require.NoError(t, r.Clone(context.Background(), cfg))

	assert.True(t, strings.HasSuffix(r.Path(), ".git"))
	assert.FileExists(t, filepath.Join(r.Path(), "HEAD"))

	_, err := r.Repo().Worktree()
	assert.ErrorIs(t, err, gogit.ErrIsBareRepository)
}

func TestClone_Progress(t *testing.T) {
	gittest.RequireGit(t)
	up, upDir := gittest.InitRepo(t)
	gittest.Commit(t, up, "big.txt", strings.Repeat("payload\n", 1000), "big")

	r := New()
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.Dir = "work"
	ch := cfg.UpdateChannel()
	require.NoError(t, r.Clone(context.Background(), cfg))

	// the channel is closed when Clone returns
	var msgs []progress.Message
	for m := range ch {
		msgs = append(msgs, m)
	}
	require.NotEmpty(t, msgs)
	assert.Equal(t, progress.Message{Index: 0, Text: "Cloning into 'work'..."}, msgs[0])

	var received bool
	for _, m := range msgs {
		if strings.HasPrefix(m.Text, "Receiving objects: 100%") && strings.HasSuffix(m.Text, ", done.") {
			received = true
		}
	}
	assert.True(t, received, "no receive completion in %v", msgs)
}

func TestClone_CallerChannelStaysOpen(t *testing.T) {
	gittest.RequireGit(t)
	_, upDir := gittest.InitRepo(t)

	ch := make(chan progress.Message, progress.DefaultBuffer)
	cfg := NewCloneConfig(upDir, t.TempDir())
	cfg.SetUpdateChannel(ch)
	require.NoError(t, New().Clone(context.Background(), cfg))

	require.NotEmpty(t, ch)
	ch <- progress.Message{Text: "still open"}
}

func TestClone_Errors(t *testing.T) {
	gittest.RequireGit(t)
	ctx := context.Background()
	_, upDir := gittest.InitRepo(t)

	t.Run("populated handle", func(t *testing.T) {
		r, err := Open(upDir)
		require.NoError(t, err)
		err = r.Clone(ctx, NewCloneConfig(upDir, t.TempDir()))
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
		assert.ErrorIs(t, err, ErrAlreadyPopulated)
	})

	t.Run("invalid url", func(t *testing.T) {
		r := New()
		err := r.Clone(ctx, NewCloneConfig("", t.TempDir()))
		require.Error(t, err)
		assert.False(t, r.IsValid())
	})

	t.Run("destination not empty", func(t *testing.T) {
		parent := t.TempDir()
		cfg := NewCloneConfig(upDir, parent)
		cfg.Dir = "taken"
		require.NoError(t, os.MkdirAll(filepath.Join(parent, "taken"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(parent, "taken", "keep"), []byte("x"), 0o644))

		err := New().Clone(ctx, cfg)
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
		assert.ErrorIs(t, err, ErrDirNotEmpty)
		assert.FileExists(t, filepath.Join(parent, "taken", "keep"))
	})

	t.Run("unreachable removes created dir", func(t *testing.T) {
		parent := t.TempDir()
		cfg := NewCloneConfig(filepath.Join(upDir, "missing"), parent)
		cfg.Branch = "main"

		r := New()
		err := r.Clone(ctx, cfg)
		require.Error(t, err)
		assert.True(t, gcerrors.IsTransport(err))
		assert.False(t, r.IsValid())
		assert.NoDirExists(t, cfg.Path())
	})

	t.Run("unreachable empties existing dir", func(t *testing.T) {
		parent := t.TempDir()
		cfg := NewCloneConfig(filepath.Join(upDir, "missing"), parent)
		cfg.Branch = "main"
		require.NoError(t, os.MkdirAll(cfg.Path(), 0o755))

		err := New().Clone(ctx, cfg)
		require.Error(t, err)
		assert.DirExists(t, cfg.Path())
		entries, err := os.ReadDir(cfg.Path())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
