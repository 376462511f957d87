package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/crossfade/automix/internal/app"
	"github.com/crossfade/automix/pkg/audio/analysis"
)

// fileReport pairs one input file with its extracted features
type fileReport struct {
	File     string                  `json:"file" yaml:"file"`
	Features *analysis.TrackFeatures `json:"features" yaml:"features"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] files...",
	Short: "Extract mixing features from audio files",
	Long: `Extract the mixing features of local audio files: tempo and beat
grid, musical key, and a coarse three-band energy profile.

Examples:
  # Analyze a single track
  automix analyze track.mp3

  # Analyze several tracks and emit YAML
  automix analyze --output yaml *.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	mixApp, err := app.NewMixApp(appContext())
	if err != nil {
		return err
	}

	reports := make([]fileReport, 0, len(args))
	for _, path := range args {
		features, err := mixApp.AnalyzeFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		reports = append(reports, fileReport{File: filepath.Base(path), Features: features})
	}

	return writeReports(reports)
}

func writeReports(reports []fileReport) error {
	switch viper.GetString("output_format") {
	case "yaml":
		data, err := yaml.Marshal(reports)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err

	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tBPM\tKEY\tDURATION\tANALYZED")
		for _, r := range reports {
			f := r.Features
			fmt.Fprintf(w, "%s\t%.1f\t%s\t%.1fs\t%t\n",
				r.File, f.BPM, analysis.DisplayName(f.Key, f.Mode),
				float64(f.DurationMs)/1000, f.Analyzed)
		}
		return w.Flush()

	default:
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Println(string(data))
		return err
	}
}

// appContext builds the application context from the global flags
func appContext() *app.Context {
	return &app.Context{
		ConfigFile:   configFile,
		LibraryDir:   resolvedLibraryDir(),
		OutputFormat: viper.GetString("output_format"),
		Verbose:      viper.GetBool("verbose"),
		Quiet:        quiet,
	}
}

func resolvedLibraryDir() string {
	if libraryDir != "" {
		return libraryDir
	}
	return viper.GetString("library_dir")
}
