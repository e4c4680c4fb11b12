package cmd

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/excelinsight/internal/chart"
	"github.com/KaramelBytes/excelinsight/internal/deck"
	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/spf13/cobra"
)

var (
	dkOut     string
	dkKinds   []string
	dkProfile bool
	dkTitle   string
	dkSink    string
)

var deckCmd = &cobra.Command{
	Use:   "deck <file>",
	Short: "Export charts and a data profile as a PowerPoint deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := runPipeline(args[0], 0)
		if err != nil {
			return err
		}
		for _, w := range v.Warnings {
			warn(cmd.ErrOrStderr(), "%s", w)
		}
		var specs []chart.Spec
		if v.Roles != nil {
			if specs, err = v.DeckSpecs(dkKinds); err != nil {
				return err
			}
		} else if len(dkKinds) > 0 {
			return fmt.Errorf("no chart shape detected in sheet %q; cannot add charts", v.Overview.Sheet)
		}

		var buf bytes.Buffer
		res, err := deck.Build(&buf, v.Table(), specs, deck.Options{
			Title:          dkTitle,
			IncludeProfile: dkProfile,
			Log:            logger.L(),
		})
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			warn(cmd.ErrOrStderr(), "%s", w)
		}
		loc, err := putArtifact(cmd.Context(), dkSink, dkOut, deck.FileName(v.Overview.Sheet), buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %d slides to %s\n", res.Slides, loc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deckCmd)
	addInputFlags(deckCmd)
	addSelectionFlags(deckCmd)
	deckCmd.Flags().StringVarP(&dkOut, "out", "o", "", "output path (default: excelinsight_<sheet>.pptx in export_dir)")
	deckCmd.Flags().StringSliceVar(&dkKinds, "kinds", nil, "chart kinds, one slide each (default: the selected chart)")
	deckCmd.Flags().BoolVar(&dkProfile, "profile", true, "include the data profiling slide")
	deckCmd.Flags().StringVar(&dkTitle, "title", "", "title slide heading")
	deckCmd.Flags().StringVar(&dkSink, "sink", "", "export sink: local|minio (default from config)")
}
