package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crossfade/automix/internal/app"
)

var playNoBeatmatch bool

var playCmd = &cobra.Command{
	Use:   "play [flags] [library-dir]",
	Short: "Plan and play a mix over the music library",
	Long: `Plan a mix over the library and drive it in real time: beatmatched
crossfades, EQ automation and automatic skipping of tracks whose
streams fail. Interrupt with Ctrl-C to stop the mix.

Examples:
  # Play a mix over a library
  automix play ~/music

  # Play without tempo matching, analyzing every track from audio
  automix play --no-beatmatch --seed-metadata=false ~/music`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&playNoBeatmatch, "no-beatmatch", false,
		"disable automatic tempo matching in transitions")
	playCmd.Flags().Duration("tick", 0,
		"engine tick interval (overrides playback.tick_interval)")
	playCmd.Flags().Bool("seed-metadata", true,
		"seed features from declared catalog metadata instead of analyzing")

	viper.BindPFlag("playback.tick_interval", playCmd.Flags().Lookup("tick"))
	viper.BindPFlag("analysis.trust_declared_values", playCmd.Flags().Lookup("seed-metadata"))

	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	appCtx := appContext()
	appCtx.NoBeatmatch = playNoBeatmatch
	if len(args) == 1 {
		appCtx.LibraryDir = args[0]
	}

	mixApp, err := app.NewMixApp(appCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plan, tracks, _, err := mixApp.PlanMix(ctx)
	if err != nil {
		return err
	}

	if err := mixApp.PlayMix(ctx, plan, tracks); err != nil && !isInterrupt(err) {
		return err
	}
	return nil
}

func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled)
}
