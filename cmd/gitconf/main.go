// Command gitconf runs git operations described by flags and gitconf.yaml
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	gcerrors "github.com/NicabarNimble/go-gitconf/internal/errors"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "gitconf",
		Short: "Configuration-driven git operations",
		Long: `A git client built on go-git. Clone, check out, commit and sync
repositories without a git binary, with progress reported the way git does.
Defaults come from gitconf.yaml and GITCONF_* environment variables;
credentials from its credentials section, then from GIT_USERNAME,
GIT_PASSWORD, GIT_TOKEN and GIT_SSH_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	opts.addFlags(cmd)

	// Add subcommands
	cmd.AddCommand(
		newCloneCmd(opts),
		newCheckoutCmd(opts),
		newInitCmd(opts),
		newAddCmd(opts),
		newCommitCmd(opts),
		newRestoreCmd(opts),
		newFetchCmd(opts),
		newPullCmd(opts),
		newPushCmd(opts),
		newRemoteCmd(opts),
		newConfigCmd(opts),
	)

	return cmd
}

// exitCode is 2 when the operation was refused because of the current
// state (an existing destination, local changes) and 1 otherwise
func exitCode(err error) int {
	if errors.Is(err, gcerrors.ErrConflict) || errors.Is(err, gcerrors.ErrWorkingTreeConflict) {
		return 2
	}
	return 1
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		newPrinter(rootCmd.ErrOrStderr()).Errorln(err.Error())
		os.Exit(exitCode(err))
	}
}
