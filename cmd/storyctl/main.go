// Command storyctl проверяет документы историй и позволяет пройти историю в терминале.
package main

import (
	"io"
	"os"
	"time"

	sharedLogger "story-engine/shared/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	storyPath string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storyctl",
		Short:         "Validate and play branching story documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil || opts.logLevel == "" {
				level = zerolog.InfoLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.storyPath, "story", "stories/three_goods.yaml", "path to the story document")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newValidateCmd(opts), newPlayCmd(opts))
	return cmd
}

// consoleLogger пишет сообщения CLI в stderr в читаемом виде.
func consoleLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}

// componentLogger - zap-логгер для внутренних пакетов. В терминале он не должен мешать
// тексту истории, поэтому ниже warn опускается только явно.
func componentLogger(level string) *zap.Logger {
	if level == "" || level == "info" {
		level = "warn"
	}
	log, err := sharedLogger.New(sharedLogger.Config{Level: level, Encoding: "console", OutputPath: "stderr"})
	if err != nil {
		return zap.NewNop()
	}
	return log
}
