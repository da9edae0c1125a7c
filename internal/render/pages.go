package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/macocr/internal/ocr"
)

// PageResult is the recognition result for one image embedded in a PDF page.
type PageResult struct {
	Page  int       `json:"page"`
	Image int       `json:"image"`
	Data  *ocr.Data `json:"data"`
}

// FormatPages renders PDF results in the named format.
func FormatPages(results []PageResult, format string, now time.Time) (string, error) {
	for _, r := range results {
		if r.Data == nil {
			return "", fmt.Errorf("nil result for page %d image %d", r.Page, r.Image)
		}
	}

	switch format {
	case FormatText, "":
		return pagesText(results, now), nil
	case FormatJSON:
		if results == nil {
			results = []PageResult{}
		}
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case FormatYAML:
		type yamlPage struct {
			Page  int      `yaml:"page"`
			Image int      `yaml:"image"`
			Data  yamlData `yaml:"data"`
		}
		doc := make([]yamlPage, len(results))
		for i, r := range results {
			doc[i] = yamlPage{Page: r.Page, Image: r.Image, Data: toYAMLData(r.Data)}
		}
		return encodeYAML(doc)
	case FormatCSV:
		header := append([]string{"page", "image"}, csvHeader...)
		var rows [][]string
		for _, r := range results {
			prefix := []string{strconv.Itoa(r.Page), strconv.Itoa(r.Image)}
			for _, row := range csvRows(r.Data) {
				rows = append(rows, append(append([]string(nil), prefix...), row...))
			}
		}
		return writeCSV(header, rows)
	default:
		return "", errInvalidFormat(format)
	}
}

func pagesText(results []PageResult, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nOCR result (%s):\n", now.Format(time.DateTime))
	if len(results) == 0 {
		b.WriteString("no images found\n")
		return b.String()
	}
	for _, r := range results {
		fmt.Fprintf(&b, "\n[page %d, image %d]\n", r.Page, r.Image)
		for _, line := range r.Data.FullText {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
