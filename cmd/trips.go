package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/excelinsight/internal/profit"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/KaramelBytes/excelinsight/internal/utils"
	"github.com/spf13/cobra"
)

var (
	trCount   int
	trSeed    int64
	trOutput  string
	trSummary bool
	trInput   string
	trJSON    bool
	trBy      string

	trZones   []string
	trTypes   []string
	trBuckets []string
	trGroups  []string
)

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Generate and analyze synthetic driver trip data",
}

var tripsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic trip dataset as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs := generateTrips(cmd)
		var buf bytes.Buffer
		if err := trips.WriteCSV(&buf, recs); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if trOutput == "" || trOutput == "-" {
			_, err := out.Write(buf.Bytes())
			return err
		}
		if err := saveFile(trOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write trips: %w", err)
		}
		fmt.Fprintf(out, "✓ Generated %d trips to %s\n", len(recs), trOutput)
		if trSummary {
			fmt.Fprintln(out)
			s, err := profit.Summarize(recs)
			if err != nil {
				return err
			}
			return s.Write(out)
		}
		return nil
	},
}

var tripsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the profitability dashboard for a trip dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := loadTrips(cmd)
		if err != nil {
			return err
		}
		d, err := profit.Analyze(recs, tripFilters())
		if err != nil {
			return err
		}
		return writeOut(cmd, d, d.Write)
	},
}

var tripsCompareCmd = &cobra.Command{
	Use:   "compare [left right]",
	Short: "Compare two zones or driver types side by side",
	Long:  "Compare two zones (--by zone) or driver types (--by driver_type). With no arguments the available choices are listed.",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, err := profit.ParseCompareBy(trBy)
		if err != nil {
			return err
		}
		recs, err := loadTrips(cmd)
		if err != nil {
			return err
		}
		f := tripFilters()
		if len(args) < 2 {
			opts, err := profit.Options(recs, f, by)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Choose two of (%s):\n", by)
			for _, o := range opts {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", o)
			}
			return nil
		}
		c, err := profit.Compare(recs, f, by, args[0], args[1])
		if err != nil {
			return err
		}
		return writeOut(cmd, c, c.Write)
	},
}

func generateTrips(cmd *cobra.Command) []trips.Record {
	n, seed := conf().TripsCount, conf().TripsSeed
	if cmd.Flags().Changed("trips") {
		n = trCount
	}
	if cmd.Flags().Changed("seed") {
		seed = trSeed
	}
	return trips.Generate(n, trips.NewRand(seed))
}

// loadTrips reads --input, or generates a fresh dataset when it is empty.
func loadTrips(cmd *cobra.Command) ([]trips.Record, error) {
	if trInput == "" {
		return generateTrips(cmd), nil
	}
	return readTrips(trInput)
}

func readTrips(path string) ([]trips.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trips: %w", err)
	}
	defer f.Close()
	return trips.ReadCSV(f)
}

func tripFilters() profit.Filters {
	return profit.Filters{Zones: trZones, DriverTypes: trTypes, Buckets: trBuckets, Groups: trGroups}
}

func writeOut(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	if trJSON {
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	return text(cmd.OutOrStdout())
}

func addTripSourceFlags(c *cobra.Command) {
	c.Flags().IntVar(&trCount, "trips", trips.DefaultTrips, "number of trips to generate")
	c.Flags().Int64Var(&trSeed, "seed", trips.DefaultSeed, "random seed")
}

func addTripFilterFlags(c *cobra.Command) {
	c.Flags().StringVar(&trInput, "input", "", "trip CSV to read (default: generate one)")
	c.Flags().StringSliceVar(&trZones, "zone", nil, "only these zones")
	c.Flags().StringSliceVar(&trTypes, "driver-type", nil, "only these driver types (Full-time, Part-time)")
	c.Flags().StringSliceVar(&trBuckets, "bucket", nil, "only these distance buckets (Short, Medium, Long)")
	c.Flags().StringSliceVar(&trGroups, "ab-group", nil, "only these A/B groups (Control, Treatment)")
	c.Flags().BoolVar(&trJSON, "json", false, "print JSON instead of text")
}

func init() {
	rootCmd.AddCommand(tripsCmd)
	tripsCmd.AddCommand(tripsGenerateCmd, tripsReportCmd, tripsCompareCmd)

	addTripSourceFlags(tripsGenerateCmd)
	tripsGenerateCmd.Flags().StringVarP(&trOutput, "output", "o", "", "CSV path (default: stdout)")
	tripsGenerateCmd.Flags().BoolVar(&trSummary, "summary", true, "print the data summary after writing a file")

	addTripSourceFlags(tripsReportCmd)
	addTripFilterFlags(tripsReportCmd)

	addTripSourceFlags(tripsCompareCmd)
	addTripFilterFlags(tripsCompareCmd)
	tripsCompareCmd.Flags().StringVar(&trBy, "by", "zone", "compare by: zone|driver_type")
}
