package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/git"
)

func newRemoteCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage remotes",
		Long:  `List, add and remove remotes, and set their default branch.`,
		Example: `  gitconf remote
  gitconf remote add upstream https://github.com/org/repo.git
  gitconf remote set-head origin --auto`,
		Args: cobra.NoArgs,
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runRemoteList(g)
		}),
	}

	cmd.AddCommand(
		newRemoteAddCmd(g),
		newRemoteRemoveCmd(g),
		newRemoteSetHeadCmd(g),
		newRemoteShowCmd(g),
	)

	return cmd
}

func runRemoteList(g *globalOptions) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	names, err := repo.RemoteNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		g.out.Println(name)
	}
	return nil
}

func newRemoteAddCmd(g *globalOptions) *cobra.Command {
	var track []string

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a remote",
		Args:  cobra.ExactArgs(2),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			cfg := git.NewRemoteAdd(args[0], args[1])
			if len(track) > 0 {
				if err := cfg.Track(track...); err != nil {
					return err
				}
			}
			return runRemote(ctx, g, cfg)
		}),
	}

	cmd.Flags().StringSliceVarP(&track, "track", "t", nil, "Fetch only this branch (repeatable)")

	return cmd
}

func newRemoteRemoveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a remote and its remote-tracking branches",
		Args:    cobra.ExactArgs(1),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runRemote(ctx, g, git.NewRemoteRemove(args[0]))
		}),
	}
}

func newRemoteSetHeadCmd(g *globalOptions) *cobra.Command {
	var (
		del  bool
		auto bool
	)

	cmd := &cobra.Command{
		Use:   "set-head <name> [branch]",
		Short: "Set or delete the default branch of a remote",
		Long: `Point refs/remotes/<name>/HEAD at a remote-tracking branch. With --auto,
or without a branch, the remote is asked for its HEAD.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			branch := remoteArg(args, 1, "")
			if auto && branch != "" {
				return errors.New("--auto cannot be combined with a branch")
			}
			cfg := git.NewRemoteSetHead(args[0], branch)
			if err := cfg.Delete(del); err != nil {
				return err
			}
			return runRemote(ctx, g, cfg)
		}),
	}

	cmd.Flags().BoolVarP(&del, "delete", "d", false, "Delete the remote's HEAD")
	cmd.Flags().BoolVarP(&auto, "auto", "a", false, "Query the remote for its HEAD")
	cmd.MarkFlagsMutuallyExclusive("delete", "auto")

	return cmd
}

func newRemoteShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the branches and tags of every remote",
		Args:  cobra.NoArgs,
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runRemoteShow(ctx, g)
		}),
	}
}

func runRemote(ctx context.Context, g *globalOptions, cfg git.RemoteConfig) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	return repo.Remote(ctx, cfg)
}

func runRemoteShow(ctx context.Context, g *globalOptions) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	all, err := repo.ShowRemotes(ctx)
	if err != nil {
		return err
	}

	for _, refs := range all {
		g.out.Println(fmt.Sprintf("* remote %s", refs.Remote))
		g.out.Itemln(fmt.Sprintf("URL: %s", refs.URL))
		if refs.Head != "" {
			g.out.Itemln(fmt.Sprintf("HEAD branch: %s", refs.Head))
		}
		g.out.Itemln(fmt.Sprintf("Remote branches (%d):", len(refs.Branches)))
		for _, b := range refs.Branches {
			g.out.Itemln("  " + b)
		}
		if len(refs.Tags) > 0 {
			g.out.Itemln(plural(len(refs.Tags), "tag"))
		}
	}
	return nil
}
