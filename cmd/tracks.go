package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/crossfade/automix/internal/app"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks [flags] [library-dir]",
	Short: "List the tracks in the music library",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTracks,
}

func init() {
	rootCmd.AddCommand(tracksCmd)
}

func runTracks(cmd *cobra.Command, args []string) error {
	ctx := appContext()
	if len(args) == 1 {
		ctx.LibraryDir = args[0]
	}
	mixApp, err := app.NewMixApp(ctx)
	if err != nil {
		return err
	}

	infos, err := mixApp.ListTracks(cmd.Context())
	if err != nil {
		return err
	}

	switch viper.GetString("output_format") {
	case "yaml":
		data, err := yaml.Marshal(infos)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err

	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tARTIST\tTITLE\tSOURCE")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, info.Artist, info.Title, info.SourceRef)
		}
		return w.Flush()

	default:
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Println(string(data))
		return err
	}
}
