// Package render formats recognition results for the console.
package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatCSV}

// ValidFormat reports whether f is a supported output format.
func ValidFormat(f string) bool {
	for _, s := range Formats {
		if s == f {
			return true
		}
	}
	return false
}

// ToPlainText renders a timestamped header followed by one line per text row.
func ToPlainText(data *ocr.Data, now time.Time) (string, error) {
	if data == nil {
		return "", errors.New("nil result")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nOCR result (%s):\n", now.Format(time.DateTime))
	for _, line := range data.FullText {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ToJSON serializes data to indented JSON.
func ToJSON(data *ocr.Data) (string, error) {
	if data == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// yamlFragment is the YAML shape of a fragment; the array form used on the
// wire reads poorly as YAML.
type yamlFragment struct {
	Text       string     `yaml:"text"`
	Confidence float64    `yaml:"confidence"`
	BBox       [4]float64 `yaml:"bbox,flow"`
}

type yamlData struct {
	Annotations []yamlFragment `yaml:"annotations"`
	FullText    []string       `yaml:"fullText"`
}

func toYAMLData(data *ocr.Data) yamlData {
	doc := yamlData{
		Annotations: make([]yamlFragment, len(data.Annotations)),
		FullText:    data.FullText,
	}
	for i, f := range data.Annotations {
		doc.Annotations[i] = yamlFragment{Text: f.Text, Confidence: f.Confidence, BBox: f.BBox}
	}
	return doc
}

func encodeYAML(doc any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToYAML serializes data to YAML.
func ToYAML(data *ocr.Data) (string, error) {
	if data == nil {
		return "", errors.New("nil result")
	}
	return encodeYAML(toYAMLData(data))
}

var csvHeader = []string{"index", "text", "confidence", "x", "y", "width", "height"}

func csvRows(data *ocr.Data) [][]string {
	rows := make([][]string, 0, len(data.Annotations))
	for i, f := range data.Annotations {
		rows = append(rows, []string{
			strconv.Itoa(i),
			f.Text,
			strconv.FormatFloat(f.Confidence, 'f', 3, 64),
			strconv.FormatFloat(f.BBox[0], 'f', 4, 64),
			strconv.FormatFloat(f.BBox[1], 'f', 4, 64),
			strconv.FormatFloat(f.BBox[2], 'f', 4, 64),
			strconv.FormatFloat(f.BBox[3], 'f', 4, 64),
		})
	}
	return rows
}

func writeCSV(header []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToCSV exports the raw annotations with a header row.
func ToCSV(data *ocr.Data) (string, error) {
	if data == nil {
		return "", errors.New("nil result")
	}
	return writeCSV(csvHeader, csvRows(data))
}

// Format renders data in the named format.
func Format(data *ocr.Data, format string, now time.Time) (string, error) {
	switch format {
	case FormatText, "":
		return ToPlainText(data, now)
	case FormatJSON:
		return ToJSON(data)
	case FormatYAML:
		return ToYAML(data)
	case FormatCSV:
		return ToCSV(data)
	default:
		return "", errInvalidFormat(format)
	}
}

func errInvalidFormat(format string) error {
	return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(Formats, ", "))
}

// Panel writes body inside a box with title embedded in the top border.
// Widths are measured in terminal cells so CJK text lines up.
func Panel(w io.Writer, title, body string) error {
	rows := strings.Split(body, "\n")
	inner := runewidth.StringWidth(title) + 2
	for _, r := range rows {
		if rw := runewidth.StringWidth(r); rw > inner {
			inner = rw
		}
	}

	var b strings.Builder
	top := " " + title + " "
	b.WriteString("╭─")
	b.WriteString(top)
	b.WriteString(strings.Repeat("─", inner-runewidth.StringWidth(top)+1))
	b.WriteString("╮\n")
	for _, r := range rows {
		b.WriteString("│ ")
		b.WriteString(runewidth.FillRight(r, inner))
		b.WriteString(" │\n")
	}
	b.WriteString("╰")
	b.WriteString(strings.Repeat("─", inner+2))
	b.WriteString("╯\n")

	_, err := io.WriteString(w, b.String())
	return err
}
