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
)

func openRepo(t *testing.T) (*Repository, *gogit.Repository) {
	t.Helper()
	repo, dir := gittest.InitRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)
	return r, repo
}

// fileStatus returns the status of p; clean files are absent from
// go-git's Status
func fileStatus(t *testing.T, repo *gogit.Repository, p string) gogit.FileStatus {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	st, err := wt.Status()
	require.NoError(t, err)
	if fs, ok := st[p]; ok {
		return *fs
	}
	return gogit.FileStatus{Staging: gogit.Unmodified, Worktree: gogit.Unmodified}
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("initial branch", func(t *testing.T) {
		dir := t.TempDir()
		r := New()
		require.NoError(t, r.Init(ctx, InitConfig{Dir: dir, InitialBranch: "trunk"}))
		assert.True(t, r.IsValid())
		assert.Equal(t, dir, r.Path())

		head := gittest.Head(t, r.Repo())
		assert.Equal(t, plumbing.NewBranchReferenceName("trunk"), head.Target())
		assert.DirExists(t, filepath.Join(dir, ".git"))
	})

	t.Run("bare", func(t *testing.T) {
		dir := t.TempDir()
		r := New()
		require.NoError(t, r.Init(ctx, InitConfig{Dir: dir, Bare: true}))
		assert.FileExists(t, filepath.Join(dir, "HEAD"))

		cfg, err := r.Repo().Config()
		require.NoError(t, err)
		assert.True(t, cfg.Core.IsBare)
	})

	t.Run("separate git dir", func(t *testing.T) {
		base := t.TempDir()
		dir := filepath.Join(base, "work")
		gitDir := filepath.Join(base, "store")
		require.NoError(t, os.MkdirAll(dir, 0o755))

		r := New()
		require.NoError(t, r.Init(ctx, InitConfig{Dir: dir, SeparateGitDir: gitDir}))
		assert.FileExists(t, filepath.Join(gitDir, "HEAD"))

		data, err := os.ReadFile(filepath.Join(dir, ".git"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "gitdir: "), "got %q", data)
	})

	t.Run("bare with separate git dir", func(t *testing.T) {
		err := New().Init(ctx, InitConfig{Dir: t.TempDir(), Bare: true, SeparateGitDir: t.TempDir()})
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
		assert.ErrorIs(t, err, ErrBareSeparateGitDir)
	})

	t.Run("populated handle", func(t *testing.T) {
		r, _ := openRepo(t)
		err := r.Init(ctx, InitConfig{Dir: t.TempDir()})
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
	})

	t.Run("already a repository", func(t *testing.T) {
		_, dir := gittest.InitRepo(t)
		r := New()
		err := r.Init(ctx, InitConfig{Dir: dir})
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
		assert.False(t, r.IsValid())
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Repository, *gogit.Repository) {
		r, repo := openRepo(t)
		gittest.Commit(t, repo, "docs/old.md", "old\n", "docs")
		gittest.WriteFile(t, repo, "README.md", "changed\n")
		gittest.WriteFile(t, repo, "new.txt", "new\n")
		gittest.WriteFile(t, repo, "docs/guide.md", "guide\n")
		require.NoError(t, os.Remove(filepath.Join(r.Path(), "docs", "old.md")))
		return r, repo
	}

	tests := []struct {
		name string
		cfg  AddConfig
		want []string
	}{
		{"everything", AddConfig{Pathspecs: []string{"."}}, []string{"README.md", "docs/guide.md", "docs/old.md", "new.txt"}},
		{"directory", AddConfig{Pathspecs: []string{"docs"}}, []string{"docs/guide.md", "docs/old.md"}},
		{"glob", AddConfig{Pathspecs: []string{"*.txt"}}, []string{"new.txt"}},
		{"update", AddConfig{Update: true}, []string{"README.md", "docs/old.md"}},
		{"update with pathspec", AddConfig{Update: true, Pathspecs: []string{"docs"}}, []string{"docs/old.md"}},
		{"no match", AddConfig{Pathspecs: []string{"missing"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, repo := setup(t)
			got, err := r.Add(ctx, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			for _, p := range tt.want {
				fs := fileStatus(t, repo, p)
				assert.Equal(t, gogit.Unmodified, fs.Worktree, p)
				assert.NotEqual(t, gogit.Unmodified, fs.Staging, p)
			}
		})
	}
}

func TestAdd_DryRun(t *testing.T) {
	r, repo := openRepo(t)
	gittest.WriteFile(t, repo, "new.txt", "new\n")

	got, err := r.Add(context.Background(), AddConfig{Pathspecs: []string{"."}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"new.txt"}, got)
	assert.Equal(t, gogit.Untracked, fileStatus(t, repo, "new.txt").Staging)
}

func TestAdd_NothingSpecified(t *testing.T) {
	r, _ := openRepo(t)
	_, err := r.Add(context.Background(), AddConfig{})
	require.Error(t, err)
	assert.True(t, gcerrors.IsConflict(err))
	assert.ErrorIs(t, err, ErrNothingSpecified)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit identity", func(t *testing.T) {
		r, repo := openRepo(t)
		parent := gittest.Head(t, repo)
		gittest.WriteFile(t, repo, "a.txt", "a\n")
		_, err := r.Add(ctx, AddConfig{Pathspecs: []string{"a.txt"}})
		require.NoError(t, err)

		hash, err := r.Commit(ctx, CommitConfig{Name: "Ada", Email: "ada@example.com", Message: "add a"})
		require.NoError(t, err)
		require.False(t, hash.IsZero())

		commit, err := repo.CommitObject(hash)
		require.NoError(t, err)
		assert.Equal(t, "Ada", commit.Author.Name)
		assert.Equal(t, "ada@example.com", commit.Committer.Email)
		assert.Equal(t, "add a", commit.Message)

		head, err := repo.Head()
		require.NoError(t, err)
		assert.Equal(t, hash, head.Hash())
		assert.Equal(t, parent.Target(), head.Name())
	})

	t.Run("identity from config", func(t *testing.T) {
		r, repo := openRepo(t)
		cfg, err := repo.Config()
		require.NoError(t, err)
		cfg.User.Name = "Configured"
		cfg.User.Email = "configured@example.com"
		require.NoError(t, repo.SetConfig(cfg))

		gittest.WriteFile(t, repo, "a.txt", "a\n")
		_, err = r.Add(ctx, AddConfig{Pathspecs: []string{"a.txt"}})
		require.NoError(t, err)

		hash, err := r.Commit(ctx, CommitConfig{Message: "add a"})
		require.NoError(t, err)
		commit, err := repo.CommitObject(hash)
		require.NoError(t, err)
		assert.Equal(t, "Configured", commit.Author.Name)
	})

	t.Run("empty message", func(t *testing.T) {
		r, repo := openRepo(t)
		gittest.WriteFile(t, repo, "a.txt", "a\n")
		_, err := r.Add(ctx, AddConfig{Pathspecs: []string{"a.txt"}})
		require.NoError(t, err)

		_, err = r.Commit(ctx, CommitConfig{Name: "Ada", Email: "ada@example.com"})
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
		assert.ErrorIs(t, err, ErrEmptyMessage)

		hash, err := r.Commit(ctx, CommitConfig{Name: "Ada", Email: "ada@example.com", AllowEmptyMessage: true})
		require.NoError(t, err)
		assert.False(t, hash.IsZero())
	})

	t.Run("nothing staged", func(t *testing.T) {
		r, repo := openRepo(t)
		before, err := repo.Head()
		require.NoError(t, err)
		gittest.WriteFile(t, repo, "untracked.txt", "x\n")

		hash, err := r.Commit(ctx, CommitConfig{Name: "Ada", Email: "ada@example.com", Message: "noop"})
		require.NoError(t, err)
		assert.True(t, hash.IsZero())

		after, err := repo.Head()
		require.NoError(t, err)
		assert.Equal(t, before.Hash(), after.Hash())
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("worktree", func(t *testing.T) {
		r, repo := openRepo(t)
		gittest.Commit(t, repo, "keep.txt", "keep\n", "keep")
		gittest.WriteFile(t, repo, "README.md", "edited\n")
		require.NoError(t, os.Remove(filepath.Join(r.Path(), "keep.txt")))
		gittest.WriteFile(t, repo, "untracked.txt", "u\n")

		got, err := r.Restore(ctx, RestoreConfig{Pathspecs: []string{"."}})
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md", "keep.txt"}, got)

		assert.Equal(t, "# test\n", gittest.ReadFile(t, repo, "README.md"))
		assert.Equal(t, "keep\n", gittest.ReadFile(t, repo, "keep.txt"))
		assert.Equal(t, "u\n", gittest.ReadFile(t, repo, "untracked.txt"))
		assert.Equal(t, gogit.Unmodified, fileStatus(t, repo, "README.md").Worktree)
	})

	t.Run("worktree keeps staged content", func(t *testing.T) {
		r, repo := openRepo(t)
		gittest.WriteFile(t, repo, "README.md", "staged\n")
		_, err := r.Add(ctx, AddConfig{Pathspecs: []string{"README.md"}})
		require.NoError(t, err)
		gittest.WriteFile(t, repo, "README.md", "unstaged\n")

		_, err = r.Restore(ctx, RestoreConfig{Pathspecs: []string{"README.md"}})
		require.NoError(t, err)
		assert.Equal(t, "staged\n", gittest.ReadFile(t, repo, "README.md"))
	})

	t.Run("staged", func(t *testing.T) {
		r, repo := openRepo(t)
		gittest.WriteFile(t, repo, "README.md", "edited\n")
		_, err := r.Add(ctx, AddConfig{Pathspecs: []string{"README.md"}})
		require.NoError(t, err)

		got, err := r.Restore(ctx, RestoreConfig{Pathspecs: []string{"README.md"}, Staged: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md"}, got)

		st := fileStatus(t, repo, "README.md")
		assert.Equal(t, gogit.Unmodified, st.Staging)
		assert.Equal(t, gogit.Modified, st.Worktree)
		assert.Equal(t, "edited\n", gittest.ReadFile(t, repo, "README.md"))
	})

	t.Run("nothing to restore", func(t *testing.T) {
		r, _ := openRepo(t)
		got, err := r.Restore(ctx, RestoreConfig{Pathspecs: []string{"README.md"}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no pathspec", func(t *testing.T) {
		r, _ := openRepo(t)
		_, err := r.Restore(ctx, RestoreConfig{})
		require.Error(t, err)
		assert.True(t, gcerrors.IsConflict(err))
		assert.ErrorIs(t, err, gogit.ErrNoRestorePaths)
	})
}

func TestMatchPathspec(t *testing.T) {
	tests := []struct {
		specs []string
		path  string
		want  bool
	}{
		{nil, "a/b.txt", true},
		{[]string{"."}, "a/b.txt", true},
		{[]string{"a"}, "a/b.txt", true},
		{[]string{"a/"}, "a/b.txt", true},
		{[]string{"a"}, "ab/c.txt", false},
		{[]string{"a/b.txt"}, "a/b.txt", true},
		{[]string{"*.txt"}, "b.txt", true},
		{[]string{"*.txt"}, "a/b.txt", false},
		{[]string{"a/*.txt"}, "a/b.txt", true},
		{[]string{"x", "a"}, "a/b.txt", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchPathspec(tt.specs, tt.path), "%v %s", tt.specs, tt.path)
	}
}
