package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/git"
)

type cloneOptions struct {
	branch       string
	depth        int
	singleBranch bool
	bare         bool
	recursive    bool
	submodules   []string
}

func newCloneCmd(g *globalOptions) *cobra.Command {
	opts := &cloneOptions{}

	cmd := &cobra.Command{
		Use:   "clone <url> [directory]",
		Short: "Clone a repository into a new directory",
		Long: `Clone a repository into a new directory and check out its default
branch, or --branch. The directory name is derived from the URL unless
given, and is created relative to --repo.`,
		Example: `  gitconf clone https://github.com/go-git/go-git.git
  gitconf clone --depth 1 --branch v5.16.0 https://github.com/go-git/go-git.git go-git
  gitconf clone --bare git@github.com:org/repo.git`,
		Args: cobra.RangeArgs(1, 2),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runClone(ctx, g, opts, args)
		}),
	}

	cmd.Flags().StringVarP(&opts.branch, "branch", "b", "", "Branch or tag to check out instead of the remote's HEAD")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "Create a shallow clone with this many commits")
	cmd.Flags().BoolVar(&opts.singleBranch, "single-branch", false, "Fetch only the checked out branch")
	cmd.Flags().BoolVar(&opts.bare, "bare", false, "Create a bare repository")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", false, "Initialize submodules after cloning")
	cmd.Flags().StringSliceVar(&opts.submodules, "submodule", nil, "With --recursive, only these submodules (repeatable)")

	return cmd
}

func runClone(ctx context.Context, g *globalOptions, opts *cloneOptions, args []string) error {
	cfg := git.NewCloneConfig(args[0], g.repoDir)
	if len(args) == 2 {
		target := args[1]
		if !filepath.IsAbs(target) {
			target = filepath.Join(g.repoDir, target)
		}
		cfg.Parent = filepath.Dir(target)
		cfg.Dir = filepath.Base(target)
	}
	cfg.Branch = opts.branch
	cfg.Depth = opts.depth
	cfg.SingleBranch = opts.singleBranch
	cfg.Bare = opts.bare
	cfg.Recursive = opts.recursive
	cfg.Submodules = opts.submodules

	finish := g.track(ctx, "clone", &cfg)
	err := git.New(g.repoOptions()...).Clone(ctx, cfg)
	finish()
	if err != nil {
		return err
	}

	g.out.Successln(fmt.Sprintf("Cloned %s into %s", args[0], cfg.Path()))
	return nil
}
