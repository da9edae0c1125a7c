package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/macocr/internal/imageio"
	"github.com/MeKo-Tech/macocr/internal/pdf"
	"github.com/MeKo-Tech/macocr/internal/render"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf <path>",
	Short: "Recognize text in the images embedded in a PDF",
	Long: `Extract the raster images of a PDF and run OCR on each of them.

Only embedded images are recognized; vector text is not read.

Examples:
  macocr pdf scan.pdf
  macocr pdf scan.pdf --pages 1-3,5 --format yaml
  macocr pdf locked.pdf --password secret`,
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
		pages, _ := cmd.Flags().GetString("pages")
		userPW, _ := cmd.Flags().GetString("password")
		ownerPW, _ := cmd.Flags().GetString("owner-password")

		if !imageio.FileExists(args[0]) {
			return fmt.Errorf("%s: %w", args[0], imageio.ErrFileNotFound)
		}

		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		var creds *pdf.Credentials
		if userPW != "" || ownerPW != "" {
			creds = &pdf.Credentials{UserPassword: userPW, OwnerPassword: ownerPW}
		}
		extracted, err := pdf.ExtractImages(cmd.Context(), args[0], pages, creds)
		if err != nil {
			if pdf.IsPasswordError(err) {
				return errors.Join(err, errors.New("the PDF is encrypted; pass --password"))
			}
			return err
		}

		var results []render.PageResult
		for _, page := range extracted {
			for i, img := range page.Images {
				data, err := svc.ProcessImage(cmd.Context(), img)
				if err != nil {
					return fmt.Errorf("page %d image %d: %w", page.Number, i, err)
				}
				results = append(results, render.PageResult{Page: page.Number, Image: i, Data: data})
			}
		}
		slog.Debug("PDF processed", "file", args[0], "pages", len(extracted), "images", len(results))

		out, err := render.FormatPages(results, format, time.Now())
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), output, out)
	},
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addOutputFlags(pdfCmd)
	pdfCmd.Flags().String("pages", "", "page range to process, e.g. 1-3,5 (default all pages)")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}
