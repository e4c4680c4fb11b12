package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/analysis"
	cfgpkg "github.com/KaramelBytes/excelinsight/internal/config"
	"github.com/KaramelBytes/excelinsight/internal/export"
	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/KaramelBytes/excelinsight/internal/parser"
	"github.com/KaramelBytes/excelinsight/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logLevel  string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global

	// clip is swapped out in tests.
	clip export.Clipboard = export.SystemClipboard{}
)

var rootCmd = &cobra.Command{
	Use:           "excelinsight",
	Short:         "ExcelInsight: charts, insights and slide decks from spreadsheets",
	Long:          `ExcelInsight loads an XLSX or CSV sheet, detects one category column and several numeric metrics, renders charts, writes short insights and exports PNG images or PowerPoint decks. It also ships a synthetic driver-profitability dataset with a filterable report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.excelinsight/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") && logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if f.Changed("log-format") && logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	logger.SetGlobal(logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr}))
}

// conf returns the loaded config, loading it if a command runs without
// cobra's initializers (tests).
func conf() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "⚠ Warning: "+format+"\n", args...)
}

// Input flags shared by the workbook commands.
var (
	inSheet     string
	inDelimiter string
	inDecimal   string
	inThousands string
	inMaxRows   int
)

func addInputFlags(c *cobra.Command) {
	c.Flags().StringVar(&inSheet, "sheet", "", "sheet name (default: first sheet)")
	c.Flags().StringVar(&inDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (auto-detect if omitted)")
	c.Flags().StringVar(&inDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&inThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().IntVar(&inMaxRows, "max-rows", 0, "maximum rows to read (0 = default limit)")
}

func inputOptions() (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	if inMaxRows > 0 {
		opt.MaxRows = inMaxRows
	}
	switch inDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", inDelimiter)
	}
	switch strings.ToLower(strings.TrimSpace(inDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", inDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(inThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", inThousands)
	}
	return opt, nil
}

func openWorkbook(path string) (*parser.Workbook, error) {
	opt, err := inputOptions()
	if err != nil {
		return nil, err
	}
	return parser.OpenFileWithOptions(path, conf().MaxUploadBytes(), opt)
}

// sinkFor builds the export sink named by kind, or the configured one.
func sinkFor(kind, dir string) (export.Sink, error) {
	c := conf()
	if kind == "" {
		kind = c.ExportSink
	}
	if dir == "" {
		dir = c.ExportDir
	}
	return export.NewSink(export.SinkConfig{
		Kind: kind,
		Dir:  dir,
		Minio: export.MinioConfig{
			Endpoint:  c.MinioEndpoint,
			AccessKey: c.MinioAccessKey,
			SecretKey: c.MinioSecretKey,
			UseSSL:    c.MinioUseSSL,
			Region:    c.MinioRegion,
			Bucket:    c.MinioBucket,
			Prefix:    c.MinioPrefix,
		},
	})
}

// saveFile writes data to path, creating parent directories.
func saveFile(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}
