package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/git"
)

func newCheckoutCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <branch|tag|commit>",
		Short: "Switch to a branch, tag or commit",
		Long: `Switch the working tree to a branch, tag or commit. Local branches win,
then branches on any remote (a tracking branch is created), then tags
and commit hashes, which leave HEAD detached. Local modifications to
tracked files abort the checkout.`,
		Example: `  gitconf checkout main
  gitconf checkout feature/login
  gitconf checkout v1.2.0
  gitconf checkout 3f2a91c`,
		Args: cobra.ExactArgs(1),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runCheckout(ctx, g, args[0])
		}),
	}
}

func runCheckout(ctx context.Context, g *globalOptions, spec string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}

	cfg := git.CheckoutConfig{Spec: spec}
	finish := g.track(ctx, "checkout", &cfg)
	err = repo.Checkout(ctx, cfg)
	finish()
	if err != nil {
		return err
	}

	g.out.Successln(fmt.Sprintf("Switched to '%s'", spec))
	return nil
}
