package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/macocr/internal/config"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/render"
	"github.com/spf13/cobra"
)

// fileCmd represents the file command.
var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Recognize text in an image file",
	Long: `Run OCR once on an image file and print the reconstructed lines.

Supported formats: PNG, JPEG, GIF, BMP, TIFF, WebP

Examples:
  macocr file screenshot.png
  macocr file scan.jpg --format json --output scan.json
  macocr file photo.jpg --language en-US --language zh-Hans`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		format, output, err := outputOptions(cmd, cfg)
		if err != nil {
			return err
		}

		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		data, err := svc.Process(cmd.Context(), ocr.Request{ImagePath: args[0]})
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out, err := render.Format(data, format, time.Now())
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), output, out)
	},
}

func init() {
	rootCmd.AddCommand(fileCmd)
	addOutputFlags(fileCmd)
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().StringP("format", "f", render.FormatText,
		"output format ("+strings.Join(render.Formats, ", ")+")")
	c.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
}

// outputOptions resolves --format and --output against the configuration.
func outputOptions(cmd *cobra.Command, cfg *config.Config) (string, string, error) {
	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format == "" {
		format = render.FormatText
	}
	if !render.ValidFormat(format) {
		return "", "", fmt.Errorf("invalid output format: %s (must be one of: %s)",
			format, strings.Join(render.Formats, ", "))
	}

	output := cfg.Output.File
	if cmd.Flags().Changed("output") {
		output, _ = cmd.Flags().GetString("output")
	}
	return format, output, nil
}

func writeOutput(stdout io.Writer, path, content string) error {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if path == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // user-chosen output file
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
