package resolver

import (
	"context"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
	"github.com/NicabarNimble/go-gitconf/internal/gittest"
	"github.com/NicabarNimble/go-gitconf/internal/progress"
)

func addRemote(t *testing.T, repo *gogit.Repository, name, url string) {
	t.Helper()
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name:  name,
		URLs:  []string{url},
		Fetch: []config.RefSpec{config.RefSpec("+refs/heads/*:refs/remotes/" + name + "/*")},
	})
	require.NoError(t, err)
}

func refNames(t *testing.T, repo *gogit.Repository) []string {
	t.Helper()
	iter, err := repo.References()
	require.NoError(t, err)
	var names []string
	require.NoError(t, iter.ForEach(func(r *plumbing.Reference) error {
		names = append(names, r.Name().String())
		return nil
	}))
	return names
}

func TestResolve_Local(t *testing.T) {
	repo, _ := gittest.InitRepo(t)
	first, err := repo.Head()
	require.NoError(t, err)
	second := gittest.Commit(t, repo, "b.txt", "b\n", "second")

	gittest.Branch(t, repo, "dev", first.Hash())
	gittest.Tag(t, repo, "v1", first.Hash())
	gittest.Tag(t, repo, "dev-tag", second)

	r := New(repo, Options{})
	ctx := context.Background()

	t.Run("branch", func(t *testing.T) {
		out, err := r.Resolve(ctx, "dev")
		require.NoError(t, err)
		lb, ok := out.(LocalBranch)
		require.True(t, ok, "got %T", out)
		assert.Equal(t, plumbing.NewBranchReferenceName("dev"), lb.Ref.Name())
		assert.Equal(t, first.Hash(), lb.Ref.Hash())
		assert.Equal(t, "local_branch", out.Kind())
	})

	t.Run("tag", func(t *testing.T) {
		out, err := r.Resolve(ctx, "v1")
		require.NoError(t, err)
		lt, ok := out.(LocalTag)
		require.True(t, ok, "got %T", out)
		assert.Equal(t, plumbing.NewTagReferenceName("v1"), lt.Ref.Name())
	})

	t.Run("full hash", func(t *testing.T) {
		out, err := r.Resolve(ctx, second.String())
		require.NoError(t, err)
		assert.Equal(t, DetachedCommit{Hash: second}, out)
	})

	t.Run("short hash", func(t *testing.T) {
		out, err := r.Resolve(ctx, second.String()[:7])
		require.NoError(t, err)
		assert.Equal(t, DetachedCommit{Hash: second}, out)
		assert.Equal(t, "detached_commit", out.Kind())
	})

	t.Run("relative revision", func(t *testing.T) {
		out, err := r.Resolve(ctx, "HEAD~1")
		require.NoError(t, err)
		assert.Equal(t, DetachedCommit{Hash: first.Hash()}, out)
	})
}

func TestResolve_BranchBeatsHash(t *testing.T) {
	repo, _ := gittest.InitRepo(t)
	first, err := repo.Head()
	require.NoError(t, err)
	second := gittest.Commit(t, repo, "b.txt", "b\n", "second")

	// a branch whose name is also a valid prefix of another commit
	short := second.String()[:8]
	gittest.Branch(t, repo, short, first.Hash())

	out, err := New(repo, Options{}).Resolve(context.Background(), short)
	require.NoError(t, err)
	lb, ok := out.(LocalBranch)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, first.Hash(), lb.Ref.Hash())
}

func TestResolve_NotFound(t *testing.T) {
	repo, _ := gittest.InitRepo(t)
	before := refNames(t, repo)
	head := gittest.Head(t, repo)

	for _, spec := range []string{"nonExistant", ""} {
		_, err := New(repo, Options{}).Resolve(context.Background(), spec)
		require.Error(t, err)
		assert.True(t, gcerrors.IsNotFound(err))

		var opErr *gcerrors.OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, spec, opErr.Subject)
	}

	assert.ElementsMatch(t, before, refNames(t, repo))
	assert.Equal(t, head, gittest.Head(t, repo))
}

func TestResolve_InvalidReferenceName(t *testing.T) {
	repo, _ := gittest.InitRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)

	for _, spec := range []string{"../../HEAD", "../../config", "refs/../HEAD", "main.lock", "a..b"} {
		t.Run(spec, func(t *testing.T) {
			out, err := New(repo, Options{}).Resolve(context.Background(), spec)
			require.Error(t, err, "resolved to %v", out)
			assert.True(t, gcerrors.IsNotFound(err))
		})
	}

	t.Run("revision syntax", func(t *testing.T) {
		out, err := New(repo, Options{}).Resolve(context.Background(), "HEAD~0")
		require.NoError(t, err)
		assert.Equal(t, DetachedCommit{Hash: head.Hash()}, out)
	})
}

func TestResolve_RemoteBranch(t *testing.T) {
	gittest.RequireGit(t)

	up, upDir := gittest.InitRepo(t)
	curl := gittest.Commit(t, up, "curl.c", "int main;\n", "curl support")
	gittest.Branch(t, up, "curl", curl)

	repo, _ := gittest.InitRepo(t)
	addRemote(t, repo, "origin", upDir)

	out, err := New(repo, Options{}).Resolve(context.Background(), "curl")
	require.NoError(t, err)
	rb, ok := out.(RemoteBranch)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "origin", rb.Remote)
	assert.Equal(t, curl, rb.Commit)
	assert.Equal(t, plumbing.NewBranchReferenceName("curl"), rb.Ref.Name())

	local, err := repo.Reference(plumbing.NewBranchReferenceName("curl"), false)
	require.NoError(t, err)
	assert.Equal(t, curl, local.Hash())

	tracking, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", "curl"), false)
	require.NoError(t, err)
	assert.Equal(t, curl, tracking.Hash())

	cfg, err := repo.Config()
	require.NoError(t, err)
	require.Contains(t, cfg.Branches, "curl")
	assert.Equal(t, "origin", cfg.Branches["curl"].Remote)
	assert.Equal(t, plumbing.NewBranchReferenceName("curl"), cfg.Branches["curl"].Merge)

	// a second resolve finds the branch locally
	out, err = New(repo, Options{}).Resolve(context.Background(), "curl")
	require.NoError(t, err)
	assert.IsType(t, LocalBranch{}, out)
}

func TestResolve_RemoteTag(t *testing.T) {
	gittest.RequireGit(t)

	up, upDir := gittest.InitRepo(t)
	rel := gittest.Commit(t, up, "rel.txt", "r\n", "release")
	gittest.AnnotatedTag(t, up, "v2.0", rel)

	repo, _ := gittest.InitRepo(t)
	addRemote(t, repo, "origin", upDir)

	out, err := New(repo, Options{}).Resolve(context.Background(), "v2.0")
	require.NoError(t, err)
	rt, ok := out.(RemoteTag)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "origin", rt.Remote)
	assert.Equal(t, plumbing.NewTagReferenceName("v2.0"), rt.Ref.Name())

	tag, err := repo.TagObject(rt.Ref.Hash())
	require.NoError(t, err)
	commit, err := tag.Commit()
	require.NoError(t, err)
	assert.Equal(t, rel, commit.Hash)
}

func TestResolve_BranchBeatsTagOnRemote(t *testing.T) {
	gittest.RequireGit(t)

	up, upDir := gittest.InitRepo(t)
	a := gittest.Commit(t, up, "a.txt", "a\n", "a")
	gittest.Branch(t, up, "rel", a)
	gittest.Tag(t, up, "rel", a)

	repo, _ := gittest.InitRepo(t)
	addRemote(t, repo, "origin", upDir)

	out, err := New(repo, Options{}).Resolve(context.Background(), "rel")
	require.NoError(t, err)
	assert.IsType(t, RemoteBranch{}, out)
}

func TestResolve_StopsAtFirstRemote(t *testing.T) {
	gittest.RequireGit(t)

	upA, dirA := gittest.InitRepo(t)
	fromA := gittest.Commit(t, upA, "a.txt", "from a\n", "a")
	gittest.Branch(t, upA, "feature", fromA)

	upB, dirB := gittest.InitRepo(t)
	fromB := gittest.Commit(t, upB, "b.txt", "from b\n", "b")
	gittest.Branch(t, upB, "feature", fromB)

	repo, _ := gittest.InitRepo(t)
	// added out of order; scanning is by name
	addRemote(t, repo, "beta", dirB)
	addRemote(t, repo, "alpha", dirA)

	out, err := New(repo, Options{}).Resolve(context.Background(), "feature")
	require.NoError(t, err)
	rb, ok := out.(RemoteBranch)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "alpha", rb.Remote)
	assert.Equal(t, fromA, rb.Commit)

	_, err = repo.Reference(plumbing.NewRemoteReferenceName("beta", "feature"), false)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestResolve_TransportFailure(t *testing.T) {
	gittest.RequireGit(t)

	repo, dir := gittest.InitRepo(t)
	addRemote(t, repo, "origin", dir+"/missing")

	_, err := New(repo, Options{}).Resolve(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, gcerrors.IsTransport(err))
}

func TestResolve_FetchProgress(t *testing.T) {
	gittest.RequireGit(t)

	up, upDir := gittest.InitRepo(t)
	h := gittest.Commit(t, up, "big.txt", strings.Repeat("payload\n", 1000), "big")
	gittest.Branch(t, up, "topic", h)

	repo, _ := gittest.InitRepo(t)
	addRemote(t, repo, "origin", upDir)

	sink, ch := progress.NewChannel()
	out, err := New(repo, Options{Progress: progress.NewReporter(sink)}).Resolve(context.Background(), "topic")
	require.NoError(t, err)
	assert.IsType(t, RemoteBranch{}, out)

	close(ch)
	var msgs []progress.Message
	for m := range ch {
		msgs = append(msgs, m)
	}
	require.NotEmpty(t, msgs)
	assert.Equal(t, progress.Message{Index: 0, Text: "Fetching refs/heads/topic from origin"}, msgs[0])

	var received bool
	for _, m := range msgs {
		assert.GreaterOrEqual(t, m.Index, 0)
		if strings.HasPrefix(m.Text, "Receiving objects: 100%") && strings.HasSuffix(m.Text, ", done.") {
			received = true
		}
	}
	assert.True(t, received, "no receive completion in %v", msgs)
}

func TestOutcomeStrings(t *testing.T) {
	h := plumbing.NewHash("0123456789abcdef0123456789abcdef01234567")
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), h)
	tag := plumbing.NewHashReference(plumbing.NewTagReferenceName("v1"), h)

	tests := []struct {
		out  Outcome
		kind string
		str  string
	}{
		{LocalBranch{Ref: ref}, "local_branch", "local branch main"},
		{LocalTag{Ref: tag}, "local_tag", "local tag v1"},
		{RemoteBranch{Remote: "origin", Ref: ref, Commit: h}, "remote_branch", "branch main from origin at " + h.String()},
		{RemoteTag{Remote: "origin", Ref: tag}, "remote_tag", "tag v1 from origin"},
		{DetachedCommit{Hash: h}, "detached_commit", "commit " + h.String()},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.out.Kind())
			assert.Equal(t, tt.str, tt.out.String())
		})
	}
}
