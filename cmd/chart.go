package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/excelinsight/internal/chart"
	"github.com/KaramelBytes/excelinsight/internal/export"
	"github.com/spf13/cobra"
)

var (
	chOut    string
	chWidth  int
	chHeight int
	chSink   string
)

// putArtifact hands data to the selected sink. An --out path picks both the
// directory and the file name; otherwise defaultName goes to the configured
// export directory.
func putArtifact(ctx context.Context, sinkKind, out, defaultName string, data []byte) (string, error) {
	dir, name := "", defaultName
	if out != "" {
		dir, name = filepath.Dir(out), filepath.Base(out)
	}
	sink, err := sinkFor(sinkKind, dir)
	if err != nil {
		return "", err
	}
	return sink.Put(ctx, name, export.ContentType(name), data)
}

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Render the selected chart as a PNG image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := runPipeline(args[0], 0)
		if err != nil {
			return err
		}
		for _, w := range v.Warnings {
			warn(cmd.ErrOrStderr(), "%s", w)
		}
		if v.Chart == nil {
			return fmt.Errorf("no chart to render for sheet %q", v.Overview.Sheet)
		}

		size := chart.Size{Width: conf().ChartWidth, Height: conf().ChartHeight}
		if chWidth > 0 {
			size.Width = chWidth
		}
		if chHeight > 0 {
			size.Height = chHeight
		}
		var buf bytes.Buffer
		if err := v.RenderChart(&buf, size); err != nil {
			return err
		}
		loc, err := putArtifact(cmd.Context(), chSink, chOut, v.Chart.FileName, buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s to %s\n", v.Chart.Title, loc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	addInputFlags(chartCmd)
	addSelectionFlags(chartCmd)
	chartCmd.Flags().StringVarP(&chOut, "out", "o", "", "output path (default: <kind>.png in export_dir)")
	chartCmd.Flags().IntVar(&chWidth, "width", 0, "image width in pixels (default from config)")
	chartCmd.Flags().IntVar(&chHeight, "height", 0, "image height in pixels (default from config)")
	chartCmd.Flags().StringVar(&chSink, "sink", "", "export sink: local|minio (default from config)")
}
