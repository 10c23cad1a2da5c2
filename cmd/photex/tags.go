package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leca/photex/internal/imageproc"
	"github.com/leca/photex/internal/metadata"
	"github.com/leca/photex/internal/model"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Lists the editable metadata tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tTAG\tDESCRIPTION")
		for _, t := range metadata.Tags() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.Code, t.Name, t.Value, t.Description)
		}
		return w.Flush()
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Prints the metadata embedded in a local JPEG file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := imageproc.Validate(data); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		md, err := metadata.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Metadata model.Metadata `json:"metadata"`
			Summary  *model.Summary `json:"summary,omitempty"`
		}{md, metadata.Summarize(data)})
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(inspectCmd)
}
