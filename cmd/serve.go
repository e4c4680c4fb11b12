package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/chart"
	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/KaramelBytes/excelinsight/internal/server"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/spf13/cobra"
)

var (
	svAddr    string
	svDev     bool
	svNoSink  bool
	svNoClip  bool
	svTripsIn string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := conf()
		addr := c.ServerAddr
		if svAddr != "" {
			addr = svAddr
		}

		recs := trips.Generate(c.TripsCount, trips.NewRand(c.TripsSeed))
		if svTripsIn != "" {
			var err error
			if recs, err = readTrips(svTripsIn); err != nil {
				return err
			}
		}

		scfg := server.Config{
			MaxUploadBytes: c.MaxUploadBytes(),
			PreviewRows:    c.PreviewRows,
			ChartSize:      chart.Size{Width: c.ChartWidth, Height: c.ChartHeight},
			WorkbookTTL:    time.Duration(c.WorkbookTTLMin) * time.Minute,
			DownloadTTL:    time.Duration(c.DownloadTTLMin) * time.Minute,
			Trips:          recs,
			Log:            logger.L(),
			DevMode:        svDev,
		}
		if !svNoSink {
			sink, err := sinkFor("", "")
			if err != nil {
				return err
			}
			scfg.Sink = sink
		}
		if !svNoClip {
			scfg.Clipboard = clip
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving ExcelInsight on %s (%d trips loaded)\n", addr, len(recs))
		return server.New(scfg).Run(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&svAddr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().BoolVar(&svDev, "dev", false, "gin debug mode")
	serveCmd.Flags().BoolVar(&svNoSink, "no-sink", false, "do not persist built decks to the export sink")
	serveCmd.Flags().BoolVar(&svNoClip, "no-clipboard", false, "do not write to the host clipboard")
	serveCmd.Flags().StringVar(&svTripsIn, "trips-input", "", "serve trips from this CSV instead of generating them")
}
