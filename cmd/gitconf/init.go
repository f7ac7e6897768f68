package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/git"
)

type initOptions struct {
	initialBranch  string
	bare           bool
	separateGitDir string
}

func newInitCmd(g *globalOptions) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create an empty repository",
		Long: `Create an empty repository in directory, or in --repo when omitted.
The directory is created if needed; initializing an existing repository
is an error.`,
		Example: `  gitconf init
  gitconf init --initial-branch trunk project
  gitconf init --bare /srv/git/project.git`,
		Args: cobra.MaximumNArgs(1),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runInit(ctx, g, opts, args)
		}),
	}

	cmd.Flags().StringVarP(&opts.initialBranch, "initial-branch", "b", "", "Name of the initial branch")
	cmd.Flags().BoolVar(&opts.bare, "bare", false, "Create a bare repository")
	cmd.Flags().StringVar(&opts.separateGitDir, "separate-git-dir", "", "Store the repository data in this directory")

	return cmd
}

func runInit(ctx context.Context, g *globalOptions, opts *initOptions, args []string) error {
	dir := g.repoDir
	if len(args) == 1 {
		dir = args[0]
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(g.repoDir, dir)
		}
	}

	repo := git.New(g.repoOptions()...)
	err := repo.Init(ctx, git.InitConfig{
		Dir:            dir,
		InitialBranch:  opts.initialBranch,
		Bare:           opts.bare,
		SeparateGitDir: opts.separateGitDir,
	})
	if err != nil {
		return err
	}

	kind := "empty"
	if opts.bare {
		kind = "empty bare"
	}
	g.out.Successln(fmt.Sprintf("Initialized %s repository in %s", kind, repo.Path()))
	return nil
}
