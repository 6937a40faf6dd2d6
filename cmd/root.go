package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appctx "github.com/sellora/marketplace/libs/context"
	"github.com/sellora/marketplace/libs/logging"
)

var (
	// RootCmd is the base command (what the binary is called)
	RootCmd = &cobra.Command{
		Use:   "marketplace",
		Short: "marketplace provides the checkout and payment settlement services",
	}

	// VersionCmd prints the build information of the binary
	VersionCmd = &cobra.Command{
		Use:   "version",
		Short: "get the version of this binary",
		Run:   versionRun,
	}
)

// Execute - the main entrypoint for all subcommands
func Execute(version, commit, buildTime string) {
	ctx := context.Background()

	// only the env side of environment and debug is visible before flags are parsed
	var logger *zerolog.Logger
	ctx = context.WithValue(ctx, appctx.EnvironmentCTXKey, viper.GetString("environment"))
	ctx = context.WithValue(ctx, appctx.DebugLoggingCTXKey, viper.GetBool("debug"))
	ctx, logger = logging.SetupLogger(ctx)

	ctx = context.WithValue(ctx, appctx.VersionCTXKey, version)
	ctx = context.WithValue(ctx, appctx.CommitCTXKey, commit)
	ctx = context.WithValue(ctx, appctx.BuildTimeCTXKey, buildTime)

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command encountered an error")
		os.Exit(1)
	}
}

func init() {
	fb := NewPersistentFlagBuilder(RootCmd)

	fb.Flag().String("environment", "local",
		"the environment the process runs in").
		Bind().
		Env("ENV")

	fb.Flag().Bool("debug", false,
		"turn on debug logging").
		Bind().
		Env("DEBUG")

	fb.Flag().String("pprof-enabled", "",
		"serve pprof routes on :6061 when set").
		Bind().
		Env("PPROF_ENABLED")

	RootCmd.AddCommand(VersionCmd)
}

func versionRun(command *cobra.Command, args []string) {
	ctx := command.Context()
	fmt.Printf("version: %s\ncommit: %s\nbuild time: %s\n",
		ctx.Value(appctx.VersionCTXKey),
		ctx.Value(appctx.CommitCTXKey),
		ctx.Value(appctx.BuildTimeCTXKey),
	)
}

// Perform wraps a runner so failures are logged before the process exits
func Perform(action string, fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		err := fn(cmd, args)
		if err != nil {
			logging.FromContext(cmd.Context()).Error().Err(err).Str("action", action).Msg("failed")
		}

		// let the async log writer drain
		<-time.After(10 * time.Millisecond)
		if err != nil {
			os.Exit(1)
		}
	}
}
