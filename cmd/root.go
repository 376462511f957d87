package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile   string
	libraryDir   string
	verbose      bool
	quiet        bool
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "automix",
	Short: "Automatic DJ mixing engine",
	Long: `Plans and plays continuous DJ-style mixes from a local music library.

automix extracts tempo, musical key and an energy profile from each
track, orders the set for tempo continuity and harmonic fit, plans a
transition for every consecutive pair, and can drive the whole mix in
real time with beatmatched crossfades and EQ automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, viper.GetViper())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/automix/automix.yaml)")
	rootCmd.PersistentFlags().StringVarP(&libraryDir, "library", "l", "",
		"music library directory")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"errors only")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json",
		"output format (json, yaml, table)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("library_dir", rootCmd.PersistentFlags().Lookup("library"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(filepath.Join(home, ".config", "automix"))
		viper.AddConfigPath("/etc/automix")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("automix")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AUTOMIX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}

		if err := v.BindEnv(f.Name, "AUTOMIX_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// setDefaults sets default configuration values
func setDefaults() {
	// Application defaults
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("output_format", "json")

	// Feature extraction defaults
	viper.SetDefault("analysis.sample_rate", 44100)
	viper.SetDefault("analysis.window_size", 2048)
	viper.SetDefault("analysis.hop_size", 512)
	viper.SetDefault("analysis.chroma_bins", 12)
	viper.SetDefault("analysis.min_bpm", 60.0)
	viper.SetDefault("analysis.max_bpm", 200.0)
	viper.SetDefault("analysis.enable_key_detection", true)
	viper.SetDefault("analysis.enable_beat_detection", true)
	viper.SetDefault("analysis.enable_energy_profile", true)
	viper.SetDefault("analysis.max_concurrent", 4)
	viper.SetDefault("analysis.per_track_timeout", "2m")
	viper.SetDefault("analysis.trust_declared_values", true)
	viper.SetDefault("analysis.key_confidence_floor", 0.05)
	viper.SetDefault("analysis.beat_confidence_floor", 0.1)
	viper.SetDefault("analysis.energy_frame_duration", "500ms")

	// Mix order heuristic defaults
	viper.SetDefault("planner.energy_arc_weight", 5.0)
	viper.SetDefault("planner.tempo_greedy_weight", 10.0)
	viper.SetDefault("planner.harmonic_weight", 8.0)
	viper.SetDefault("planner.energy_arc_rise_ratio", 0.7)
	viper.SetDefault("planner.min_keyed_track_ratio", 0.5)

	// Transition planning defaults
	viper.SetDefault("transition.phrase_beats", 16)
	viper.SetDefault("transition.short_duration_ms", 6000)
	viper.SetDefault("transition.default_duration_ms", 8000)
	viper.SetDefault("transition.long_duration_ms", 12000)
	viper.SetDefault("transition.short_delta_bpm", 5.0)
	viper.SetDefault("transition.long_delta_bpm", 15.0)
	viper.SetDefault("transition.fallback_point_ratio", 0.8)

	// Playback defaults
	viper.SetDefault("playback.tick_interval", "50ms")
	viper.SetDefault("playback.tempo_ramp_steps", 10)
	viper.SetDefault("playback.retry_attempts", 3)
	viper.SetDefault("playback.retry_base_delay", "250ms")
	viper.SetDefault("playback.retry_max_delay", "5s")

	// Output defaults
	viper.SetDefault("output.precision", 3)
	viper.SetDefault("output.include_metadata", true)
	viper.SetDefault("output.timestamps", true)
}
