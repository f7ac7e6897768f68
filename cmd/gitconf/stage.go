package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/git"
)

type addOptions struct {
	update bool
	dryRun bool
}

func newAddCmd(g *globalOptions) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add [pathspec...]",
		Short: "Stage file contents",
		Long: `Stage new, modified and deleted files matching the pathspecs. A pathspec
is a path, a directory or a glob; "." selects everything. With --update
only tracked files are staged and pathspecs are optional.`,
		Example: `  gitconf add .
  gitconf add 'docs/*.md' main.go
  gitconf add --update`,
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runAdd(ctx, g, opts, args)
		}),
	}

	cmd.Flags().BoolVarP(&opts.update, "update", "u", false, "Stage modifications and deletions of tracked files only")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Show what would be staged")

	return cmd
}

func runAdd(ctx context.Context, g *globalOptions, opts *addOptions, args []string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	paths, err := repo.Add(ctx, git.AddConfig{
		Pathspecs: args,
		Update:    opts.update,
		DryRun:    opts.dryRun,
	})
	if err != nil {
		return err
	}

	for _, p := range paths {
		g.out.Println(fmt.Sprintf("add '%s'", p))
	}
	return nil
}

type commitOptions struct {
	message           string
	allowEmptyMessage bool
	authorName        string
	authorEmail       string
}

func newCommitCmd(g *globalOptions) *cobra.Command {
	opts := &commitOptions{}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record staged changes",
		Long: `Record the staged changes as a new commit on the current branch.
The author comes from the flags, then author in gitconf.yaml, then
user.name and user.email of the repository.`,
		Example: `  gitconf commit -m "Fix typo in README"
  gitconf commit -m "Release" --author-name "Release Bot" --author-email bot@example.com`,
		Args: cobra.NoArgs,
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runCommit(ctx, g, opts)
		}),
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Commit message")
	cmd.Flags().BoolVar(&opts.allowEmptyMessage, "allow-empty-message", false, "Allow an empty commit message")
	cmd.Flags().StringVar(&opts.authorName, "author-name", "", "Author name")
	cmd.Flags().StringVar(&opts.authorEmail, "author-email", "", "Author email")

	return cmd
}

func runCommit(ctx context.Context, g *globalOptions, opts *commitOptions) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	name, email := g.cfg.Author.Name, g.cfg.Author.Email
	if opts.authorName != "" {
		name, email = opts.authorName, opts.authorEmail
	}

	hash, err := repo.Commit(ctx, git.CommitConfig{
		Name:              name,
		Email:             email,
		Message:           opts.message,
		AllowEmptyMessage: opts.allowEmptyMessage,
	})
	if err != nil {
		return err
	}

	if hash.IsZero() {
		g.out.Warnln("nothing to commit")
		return nil
	}
	g.out.Successln(fmt.Sprintf("[%s] %s", hash.String()[:7], firstLine(opts.message)))
	return nil
}

type restoreOptions struct {
	staged bool
}

func newRestoreCmd(g *globalOptions) *cobra.Command {
	opts := &restoreOptions{}

	cmd := &cobra.Command{
		Use:   "restore <pathspec...>",
		Short: "Discard changes to files",
		Long: `Restore working tree files from the index, discarding unstaged changes.
With --staged the index entries are reset to HEAD instead and the
working tree is left alone.`,
		Example: `  gitconf restore main.go
  gitconf restore --staged .`,
		Args: cobra.MinimumNArgs(1),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runRestore(ctx, g, opts, args)
		}),
	}

	cmd.Flags().BoolVarP(&opts.staged, "staged", "S", false, "Unstage instead of restoring the working tree")

	return cmd
}

func runRestore(ctx context.Context, g *globalOptions, opts *restoreOptions, args []string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	paths, err := repo.Restore(ctx, git.RestoreConfig{
		Pathspecs: args,
		Staged:    opts.staged,
	})
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		g.out.Warnln("nothing to restore")
		return nil
	}
	g.out.Successln(fmt.Sprintf("Restored %s", plural(len(paths), "path")))
	for _, p := range paths {
		g.out.Itemln(p)
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
