package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/macocr/internal/config"
	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string

	// newEngine builds the recognizer; tests replace it with a static one.
	newEngine = func(opts engine.VisionOptions) (engine.Engine, error) {
		return engine.NewVision(opts)
	}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "macocr",
	Short: "Text recognition on macOS using the native Vision framework",
	Long: `macocr recognizes text in images with the operating system's own OCR
engine and rebuilds the recognized fragments into lines, top line first.

It runs one-shot on files and PDFs, or as an HTTP and WebSocket service.

Examples:
  macocr file receipt.png
  macocr file scan.jpg --format json
  macocr pdf report.pdf --pages 1-3
  macocr server --port 8000 --token secret`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), cfg)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.SetVersionTemplate("macocr {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"config file (default is macocr.yaml in ., $HOME, $XDG_CONFIG_HOME/macocr, /etc/macocr)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.StringArray("language", nil, "recognition language preference, repeatable (default zh-Hans)")
	flags.Float64("threshold", 0, "line band height as a fraction of image height (default 0.05)")
	flags.Float64("min-confidence", 0, "drop fragments below this confidence before building lines")

	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("ocr.languages", flags.Lookup("language"))
	_ = viper.BindPFlag("ocr.threshold", flags.Lookup("threshold"))
	_ = viper.BindPFlag("ocr.min_confidence", flags.Lookup("min-confidence"))
}

// GetConfig loads configuration from file, environment and bound flags.
func GetConfig() (*config.Config, error) {
	loader := GetConfigLoader()
	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// newService wires the recognizer and request core from cfg.
func newService(cfg *config.Config) (*ocr.Service, error) {
	eng, err := newEngine(cfg.ToVisionOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR engine: %w", err)
	}
	svc, err := ocr.NewService(eng, cfg.ToOCROptions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR service: %w", err)
	}
	return svc, nil
}
