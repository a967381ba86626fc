package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(newRootCommand().ExecuteContext(ctx))
}

func newRootCommand() *cobra.Command {
	var (
		logLevel  string
		logPretty bool
	)

	root := &cobra.Command{
		Use:           "chatclient",
		Short:         "Terminal client for therapy session chat rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			pkglog.Init(pkglog.Config{Level: logLevel, Pretty: logPretty, ServiceName: "chatclient"})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error, disabled)")
	root.PersistentFlags().BoolVar(&logPretty, "log-pretty", true, "human readable log output")

	root.AddCommand(newJoinCommand())
	return root
}
