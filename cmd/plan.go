package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/crossfade/automix/internal/app"
	"github.com/crossfade/automix/pkg/mix"
)

var planOutputFile string

var planCmd = &cobra.Command{
	Use:   "plan [flags] [library-dir]",
	Short: "Plan a mix over the music library",
	Long: `Analyze every track in the library and build a mix plan: the play
order plus a transition descriptor for each consecutive pair.

Tracks that fail to load degrade to default features and still get
planned; the plan only fails when fewer than two tracks exist.

Examples:
  # Plan over a library and print the plan as JSON
  automix plan ~/music

  # Write the plan to a file as YAML
  automix plan --output yaml --out-file mix.yaml ~/music`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planOutputFile, "out-file", "",
		"write the plan to a file instead of stdout")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := appContext()
	ctx.OutputFile = planOutputFile
	if len(args) == 1 {
		ctx.LibraryDir = args[0]
	}

	mixApp, err := app.NewMixApp(ctx)
	if err != nil {
		return err
	}

	plan, _, results, err := mixApp.PlanMix(cmd.Context())
	if err != nil {
		if errors.Is(err, mix.ErrTooFewTracks) {
			return errors.New("a mix needs at least two tracks in the library")
		}
		return err
	}

	for _, r := range results {
		if r.Error != nil {
			cmd.PrintErrf("warning: %s degraded: %v\n", r.TrackID, r.Error)
		}
	}

	return mixApp.WritePlan(plan)
}
