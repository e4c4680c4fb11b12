package cmd

import (
	"fmt"

	"github.com/KaramelBytes/excelinsight/internal/export"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy <file>",
	Short: "Copy the chart description and insights to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := runPipeline(args[0], 0)
		if err != nil {
			return err
		}
		text, err := v.ClipboardText()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := export.Copy(clip, text); err != nil {
			// The text is still useful; print it so it can be copied by hand.
			warn(cmd.ErrOrStderr(), "%v", err)
			fmt.Fprintln(out, text)
			return nil
		}
		fmt.Fprintln(out, "✓ Copied chart description and insights to clipboard")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
	addInputFlags(copyCmd)
	addSelectionFlags(copyCmd)
}
