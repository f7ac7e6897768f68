package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/NicabarNimble/go-gitconf/internal/config"
	"github.com/NicabarNimble/go-gitconf/internal/credentials"
	"github.com/NicabarNimble/go-gitconf/internal/git"
	"github.com/NicabarNimble/go-gitconf/internal/progress"
)

// globalOptions holds the persistent flags and what setup derives from
// them. Every subcommand shares one instance.
type globalOptions struct {
	configPath          string
	repoDir             string
	logLevel            string
	noProgress          bool
	insecureSkipTLS     bool
	skipOwnerValidation bool

	cfg    *config.Config
	creds  credentials.Provider
	out    *printer
	errOut io.Writer
	cancel context.CancelFunc
}

func (o *globalOptions) addFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "Config file (default: ./gitconf.yaml, then ~/.config/gitconf/gitconf.yaml)")
	f.StringVarP(&o.repoDir, "repo", "C", ".", "Repository to operate on")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.BoolVar(&o.noProgress, "no-progress", false, "Do not report transfer progress")
	f.BoolVar(&o.insecureSkipTLS, "insecure-skip-tls", false, "Accept any TLS certificate from remotes")
	f.BoolVar(&o.skipOwnerValidation, "skip-owner-validation", false, "Open repositories owned by other users")
}

// setup loads configuration, applies flag overrides and puts a logger on
// the command's context
func (o *globalOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("no-progress") {
		cfg.Progress = !o.noProgress
	}
	if flags.Changed("insecure-skip-tls") {
		cfg.Security.BypassCertificateCheck = o.insecureSkipTLS
	}
	if flags.Changed("skip-owner-validation") {
		cfg.Security.SkipOwnerValidation = o.skipOwnerValidation
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	creds, err := newCredentialProvider(cfg.Credentials, os.Getenv)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.creds = creds
	o.out = newPrinter(cmd.OutOrStdout())
	o.errOut = cmd.ErrOrStderr()

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(o.errOut, hopts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(o.errOut, hopts)
	}

	ctx := clog.WithLogger(cmd.Context(), clog.New(handler))
	if cfg.Remote.Timeout > 0 {
		ctx, o.cancel = context.WithTimeout(ctx, cfg.Remote.Timeout)
	}
	cmd.SetContext(ctx)
	return nil
}

// runE adapts fn to cobra and writes metrics once it returns
func (o *globalOptions) runE(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		err := fn(ctx, args)
		if o.cancel != nil {
			o.cancel()
		}
		if path := o.cfg.Metrics.Textfile; path != "" {
			if werr := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); werr != nil {
				clog.FromContext(ctx).Warnf("write metrics to %s: %v", path, werr)
			}
		}
		return err
	}
}

func (o *globalOptions) repoOptions() []git.Option {
	return []git.Option{
		git.WithCredentials(o.creds),
		git.WithSkipOwnerValidation(o.cfg.Security.SkipOwnerValidation),
		git.WithBypassCertificateCheck(o.cfg.Security.BypassCertificateCheck),
	}
}

// open opens the repository named by --repo
func (o *globalOptions) open() (*git.Repository, error) {
	return git.Open(o.repoDir, o.repoOptions()...)
}

// updater is implemented by operation configs that report progress
type updater interface {
	UpdateChannel() <-chan progress.Message
}

// track prints u's progress to stderr while the operation runs. With
// progress disabled the final lines go to the debug log instead. The
// returned func waits for the operation to close the channel; errors are
// left to main.
func (o *globalOptions) track(ctx context.Context, name string, u updater) (finish func()) {
	log := clog.FromContext(ctx)

	var t progress.Tracker
	switch {
	case o.cfg.Progress:
		t = progress.NewConsoleTracker(o.errOut)
	case log.Enabled(ctx, slog.LevelDebug):
		t = &progress.DefaultTracker{}
	default:
		return func() {}
	}

	ch := u.UpdateChannel()
	t.Start(name)

	done := make(chan struct{})
	go func() {
		defer close(done)
		progress.Drain(t, ch)
	}()
	return func() {
		<-done
		t.Complete()
		if rec, ok := t.(*progress.DefaultTracker); ok {
			for _, line := range rec.Lines {
				log.Debugf("%s: %s", name, line)
			}
		}
	}
}

// remoteArg returns args[i], or def when it is absent
func remoteArg(args []string, i int, def string) string {
	if len(args) > i {
		return args[i]
	}
	return def
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
