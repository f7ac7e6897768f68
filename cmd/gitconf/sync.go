package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/git"
)

type fetchOptions struct {
	deepen int
	prune  bool
	tags   bool
}

func newFetchCmd(g *globalOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch [remote]",
		Short: "Download objects and refs from a remote",
		Long: `Update remote-tracking branches from a remote. Without a remote the
upstream of the current branch is used, then origin.`,
		Example: `  gitconf fetch
  gitconf fetch upstream --prune --tags`,
		Args: cobra.MaximumNArgs(1),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runFetch(ctx, g, opts, args)
		}),
	}

	cmd.Flags().IntVar(&opts.deepen, "deepen", 0, "Limit fetched history to this many commits")
	cmd.Flags().BoolVarP(&opts.prune, "prune", "p", false, "Remove remote-tracking refs that no longer exist on the remote")
	cmd.Flags().BoolVarP(&opts.tags, "tags", "t", false, "Fetch all tags")

	return cmd
}

func runFetch(ctx context.Context, g *globalOptions, opts *fetchOptions, args []string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	cfg := git.FetchConfig{
		Remote: remoteArg(args, 0, ""),
		Deepen: opts.deepen,
		Prune:  opts.prune,
		Tags:   opts.tags,
	}
	finish := g.track(ctx, "fetch", &cfg)
	err = repo.Fetch(ctx, cfg)
	finish()
	return err
}

type pullOptions struct {
	depth int
}

func newPullCmd(g *globalOptions) *cobra.Command {
	opts := &pullOptions{}

	cmd := &cobra.Command{
		Use:   "pull [remote [branch]]",
		Short: "Fetch and fast-forward the current branch",
		Long: `Fetch from a remote and fast-forward the current branch. Branches that
have diverged are not merged; the pull fails instead.`,
		Example: `  gitconf pull
  gitconf pull origin release`,
		Args: cobra.MaximumNArgs(2),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runPull(ctx, g, opts, args)
		}),
	}

	cmd.Flags().IntVar(&opts.depth, "depth", 0, "Limit fetched history to this many commits")

	return cmd
}

func runPull(ctx context.Context, g *globalOptions, opts *pullOptions, args []string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	cfg := git.PullConfig{
		Remote: remoteArg(args, 0, ""),
		Branch: remoteArg(args, 1, ""),
		Depth:  opts.depth,
	}
	finish := g.track(ctx, "pull", &cfg)
	err = repo.Pull(ctx, cfg)
	finish()
	return err
}

type pushOptions struct {
	setUpstream bool
	all         bool
}

func newPushCmd(g *globalOptions) *cobra.Command {
	opts := &pushOptions{}

	cmd := &cobra.Command{
		Use:   "push [remote [branch]]",
		Short: "Update a remote with local commits",
		Long: `Push the current branch to its upstream, or to the same name on the
remote. The remote defaults to remote.default in gitconf.yaml. Pushes that
are not fast-forwards are rejected.`,
		Example: `  gitconf push
  gitconf push -u origin feature/login
  gitconf push --all`,
		Args: cobra.MaximumNArgs(2),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runPush(ctx, g, opts, args)
		}),
	}

	cmd.Flags().BoolVarP(&opts.setUpstream, "set-upstream", "u", false, "Record the destination as the upstream of the current branch")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Push all branches")

	return cmd
}

func runPush(ctx context.Context, g *globalOptions, opts *pushOptions, args []string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	cfg := git.PushConfig{
		Remote:      remoteArg(args, 0, g.cfg.Remote.Default),
		Branch:      remoteArg(args, 1, ""),
		SetUpstream: opts.setUpstream,
		All:         opts.all,
	}
	if cfg.SetUpstream && cfg.Branch == "" {
		if head, err := repo.Repo().Head(); err == nil && head.Name().IsBranch() {
			cfg.Branch = head.Name().Short()
		}
	}

	finish := g.track(ctx, "push", &cfg)
	err = repo.Push(ctx, cfg)
	finish()
	if err != nil {
		return err
	}

	if cfg.SetUpstream {
		g.out.Successln(fmt.Sprintf("Branch '%s' set up to track '%s/%s'", cfg.Branch, cfg.Remote, cfg.Branch))
	}
	return nil
}
