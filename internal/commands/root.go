package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/buildinfo"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	repo        string
	user        string
	debug       bool
	metricsFile string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "ucto",
		Short:   "Guided posting and validation for small company books",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.repo, "repo", ".", "project directory")
	pf.StringVar(&opts.user, "user", os.Getenv("USER"), "user recorded on locks and overrides")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		newInitCommand(),
		newValidateCommand(opts),
		newPostCommand(opts),
		newPairCommand(opts),
		newImportCommand(opts),
		newInboxCommand(opts),
		newOpenItemsCommand(opts),
		newScoreCommand(opts),
		newLockCommand(opts),
		newUnlockCommand(opts),
		newPayrollCommand(opts),
		newTaxCommand(opts),
		newReportCommand(opts),
		newExportCommand(opts),
	)

	return rootCmd
}
