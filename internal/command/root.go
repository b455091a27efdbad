package command

import (
	"github.com/cirruslabs/mocha/internal/command/key"
	"github.com/cirruslabs/mocha/internal/command/run"
	"github.com/cirruslabs/mocha/internal/logginglevel"
	"github.com/cirruslabs/mocha/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var debug bool

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mocha",
		Short:         "On-demand image transformation cache",
		Version:       version.FullVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if debug {
				logginglevel.Level.SetLevel(zapcore.DebugLevel)
			}

			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		run.NewCommand(),
		key.NewCommand(),
	)

	return cmd
}
