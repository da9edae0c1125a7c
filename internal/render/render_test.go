package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/macocr/internal/lines"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleData() *ocr.Data {
	return &ocr.Data{
		Annotations: []lines.Fragment{
			{Text: "识别结果", Confidence: 1, BBox: lines.BBox{0.1, 0.8, 0.4, 0.05}},
			{Text: "a,b", Confidence: 0.5, BBox: lines.BBox{0.1, 0.2, 0.1, 0.05}},
		},
		FullText: []string{"识别结果", "a,b"},
	}
}

func TestToPlainText(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	out, err := ToPlainText(sampleData(), now)
	require.NoError(t, err)

	assert.Contains(t, out, "OCR result (2024-05-06 07:08:09):")
	assert.True(t, strings.HasSuffix(out, "识别结果\na,b\n"))
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleData())
	require.NoError(t, err)

	var back ocr.Data
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, *sampleData(), back)
}

func TestToYAML(t *testing.T) {
	out, err := ToYAML(sampleData())
	require.NoError(t, err)

	var doc struct {
		Annotations []struct {
			Text       string    `yaml:"text"`
			Confidence float64   `yaml:"confidence"`
			BBox       []float64 `yaml:"bbox"`
		} `yaml:"annotations"`
		FullText []string `yaml:"fullText"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Annotations, 2)
	assert.Equal(t, "识别结果", doc.Annotations[0].Text)
	assert.Equal(t, []float64{0.1, 0.8, 0.4, 0.05}, doc.Annotations[0].BBox)
	assert.Equal(t, []string{"识别结果", "a,b"}, doc.FullText)
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(sampleData())
	require.NoError(t, err)

	rows := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, rows, 3)
	assert.Equal(t, "index,text,confidence,x,y,width,height", rows[0])
	assert.Equal(t, `1,"a,b",0.500,0.1000,0.2000,0.1000,0.0500`, rows[2])
}

func TestFormat(t *testing.T) {
	now := time.Now()
	for _, f := range Formats {
		t.Run(f, func(t *testing.T) {
			assert.True(t, ValidFormat(f))
			out, err := Format(sampleData(), f, now)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}

	_, err := Format(sampleData(), "xml", now)
	assert.Error(t, err)
	assert.False(t, ValidFormat("xml"))
}

func TestNilData(t *testing.T) {
	_, err := ToPlainText(nil, time.Now())
	assert.Error(t, err)
	_, err = ToJSON(nil)
	assert.Error(t, err)
	_, err = ToYAML(nil)
	assert.Error(t, err)
	_, err = ToCSV(nil)
	assert.Error(t, err)
}

func TestPanel_AlignsWideRunes(t *testing.T) {
	// Box drawing runes are ambiguous width; pin them to one cell.
	prev := runewidth.DefaultCondition.EastAsianWidth
	runewidth.DefaultCondition.EastAsianWidth = false
	t.Cleanup(func() { runewidth.DefaultCondition.EastAsianWidth = prev })

	var buf bytes.Buffer
	require.NoError(t, Panel(&buf, "macocr v1", "正在启动 OCR 服务器\nhost 0.0.0.0 port 8000"))

	rows := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "macocr v1")

	width := runewidth.StringWidth(rows[0])
	for _, r := range rows[1:] {
		assert.Equal(t, width, runewidth.StringWidth(r), "row %q", r)
	}
}
