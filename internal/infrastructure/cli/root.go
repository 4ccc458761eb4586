package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	logLevel    string
	// logOutput receives structured logs. Command output goes to stdout.
	logOutput io.Writer = os.Stderr
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "chronoplan",
	Version: Version,
	Short:   "Transactional editing of time-anchored activity plans",
	Long: `Chronoplan edits activity plans whose directives start at absolute times
or relative to other directives. Every change runs inside a transaction
that can be committed or rolled back, and simulation results are marked
stale as soon as the plan changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

// newLogger builds the text logger used by commands. The --log-level flag
// wins over the configured level.
func newLogger(configured slog.Level) *slog.Logger {
	level := configured
	if logLevel != "" {
		if parsed, err := parseLevel(logLevel); err == nil {
			level = parsed
		}
	}
	return slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level}))
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectPath, "project", "C", "", "Run as if started in this directory")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
}
