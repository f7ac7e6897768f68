package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/config"
	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
)

type configInitOptions struct {
	remote      string
	authorName  string
	authorEmail string
	logFormat   string
	tokenEnv    map[string]string
	force       bool
}

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gitconf configuration",
	}
	cmd.AddCommand(newConfigInitCmd(g))
	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	opts := &configInitOptions{}

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file",
		Long: `Write a gitconf.yaml with the built-in defaults and the values given
by flags. Without a path the per-user file is written:
$XDG_CONFIG_HOME/gitconf/gitconf.yaml, or ~/.config/gitconf/gitconf.yaml.`,
		Example: `  gitconf config init --author-name "Ada" --author-email ada@example.com
  gitconf config init ./gitconf.yaml --remote upstream
  gitconf config init --token-env github.com=GH_TOKEN --token-env gitlab.com=GL_TOKEN`,
		Args: cobra.MaximumNArgs(1),
		RunE: g.runE(func(ctx context.Context, args []string) error {
			return runConfigInit(g, opts, args)
		}),
	}

	cmd.Flags().StringVar(&opts.remote, "remote", "", "Default remote name (default: origin)")
	cmd.Flags().StringVar(&opts.authorName, "author-name", "", "Commit author name")
	cmd.Flags().StringVar(&opts.authorEmail, "author-email", "", "Commit author email")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	cmd.Flags().StringToStringVar(&opts.tokenEnv, "token-env", nil, "Read the access token for a host from an environment variable (host=VAR)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func runConfigInit(g *globalOptions, opts *configInitOptions, args []string) error {
	const op = "config init"

	path := config.UserConfigPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !opts.force {
		return gcerrors.E(op, gcerrors.KindConflict, path, fmt.Errorf("%w, use --force to overwrite", fs.ErrExist))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return gcerrors.Wrap(op, path, err)
	}

	cfg := config.DefaultConfig()
	if opts.remote != "" {
		cfg.Remote.Default = opts.remote
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	cfg.Author = config.AuthorConfig{Name: opts.authorName, Email: opts.authorEmail}

	hosts := make([]string, 0, len(opts.tokenEnv))
	for host := range opts.tokenEnv {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	for _, host := range hosts {
		cfg.Credentials = append(cfg.Credentials, config.HostCredential{Host: host, TokenEnv: opts.tokenEnv[host]})
	}

	if err := cfg.Validate(); err != nil {
		return gcerrors.Wrap(op, path, err)
	}
	if err := config.Save(cfg, path); err != nil {
		return gcerrors.Wrap(op, path, err)
	}

	g.out.Successln(fmt.Sprintf("Wrote configuration to %s", path))
	return nil
}
