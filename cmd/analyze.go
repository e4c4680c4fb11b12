package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/KaramelBytes/excelinsight/internal/pipeline"
	"github.com/KaramelBytes/excelinsight/internal/utils"
	"github.com/spf13/cobra"
)

// Selection flags shared by analyze, chart, deck and copy.
var (
	selKind     string
	selCategory string
	selMetrics  []string
	selEdits    []string
)

var (
	anaPreviewRows int
	anaJSON        bool
	anaOutputPath  string
)

func addSelectionFlags(c *cobra.Command) {
	c.Flags().StringVar(&selKind, "kind", "", "chart kind: grouped-bar|stacked-bar|radar|pie|treemap (default: suggested)")
	c.Flags().StringVar(&selCategory, "category", "", "category column (default: detected)")
	c.Flags().StringSliceVar(&selMetrics, "metric", nil, "metric columns, comma-separated or repeated (default: every numeric column)")
	c.Flags().StringArrayVar(&selEdits, "edit", nil, "replace the generated insights with this text (repeatable)")
}

func selection(previewRows int) pipeline.Request {
	return pipeline.Request{
		Sheet:          inSheet,
		Kind:           selKind,
		Category:       selCategory,
		Metrics:        selMetrics,
		EditedInsights: selEdits,
		PreviewRows:    previewRows,
	}
}

// runPipeline opens path and runs one pass with the current flags.
func runPipeline(path string, previewRows int) (*pipeline.View, error) {
	wb, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	ctx := logger.L().WithContext(context.Background())
	return pipeline.Run(ctx, wb, selection(previewRows))
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a sheet, detect its chart shape and print insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := anaPreviewRows
		if rows <= 0 {
			rows = conf().PreviewRows
		}
		v, err := runPipeline(args[0], rows)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var body string
		if anaJSON {
			b, err := utils.PrettyJSON(v)
			if err != nil {
				return err
			}
			body = string(b)
		} else {
			body = renderView(v)
		}
		if anaOutputPath != "" {
			if err := saveFile(anaOutputPath, []byte(body)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote analysis to %s\n", anaOutputPath)
		} else {
			fmt.Fprintln(out, body)
		}
		for _, w := range v.Warnings {
			warn(cmd.ErrOrStderr(), "%s", w)
		}
		return nil
	},
}

// renderView formats a view as the analyze text report.
func renderView(v *pipeline.View) string {
	var b strings.Builder
	b.WriteString(v.Table().Profile().Markdown())

	fmt.Fprintf(&b, "\n[PREVIEW] first %d of %d rows\n", len(v.Overview.Preview), v.Overview.Rows)
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(v.Overview.Header, "\t"))
	for _, row := range v.Overview.Preview {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()

	if v.Roles != nil {
		b.WriteString("\n[CHART]\n")
		fmt.Fprintf(&b, "Category: %s\n", v.Roles.Category)
		fmt.Fprintf(&b, "Metrics: %s\n", strings.Join(v.Roles.Metrics, ", "))
		if v.Suggested != nil {
			fmt.Fprintf(&b, "Suggested: %s\n", v.Suggested.Title())
		}
		if v.Chart != nil {
			fmt.Fprintf(&b, "Selected: %s\n", v.Chart.Title)
		}
	}
	if len(v.Insights) > 0 {
		b.WriteString("\n[INSIGHTS]\n")
		for _, in := range v.Insights {
			fmt.Fprintf(&b, "- %s\n", in.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addInputFlags(analyzeCmd)
	addSelectionFlags(analyzeCmd)
	analyzeCmd.Flags().IntVar(&anaPreviewRows, "preview-rows", 0, "rows to preview (default from config, 10)")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the full view as JSON")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to a file instead of stdout")
}
