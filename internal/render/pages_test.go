package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePages() []PageResult {
	return []PageResult{
		{Page: 1, Image: 0, Data: sampleData()},
		{Page: 3, Image: 1, Data: sampleData()},
	}
}

func TestFormatPages_Text(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	out, err := FormatPages(samplePages(), FormatText, now)
	require.NoError(t, err)

	assert.Contains(t, out, "OCR result (2024-05-06 07:08:09):")
	assert.Contains(t, out, "[page 1, image 0]\n识别结果\na,b\n")
	assert.Contains(t, out, "[page 3, image 1]\n")

	out, err = FormatPages(nil, FormatText, now)
	require.NoError(t, err)
	assert.Contains(t, out, "no images found")
}

func TestFormatPages_JSON(t *testing.T) {
	out, err := FormatPages(samplePages(), FormatJSON, time.Now())
	require.NoError(t, err)

	var back []PageResult
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	require.Len(t, back, 2)
	assert.Equal(t, 3, back[1].Page)
	assert.Equal(t, sampleData().FullText, back[1].Data.FullText)

	out, err = FormatPages(nil, FormatJSON, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestFormatPages_YAML(t *testing.T) {
	out, err := FormatPages(samplePages(), FormatYAML, time.Now())
	require.NoError(t, err)

	var doc []struct {
		Page int `yaml:"page"`
		Data struct {
			FullText []string `yaml:"fullText"`
		} `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc, 2)
	assert.Equal(t, 1, doc[0].Page)
	assert.Equal(t, []string{"识别结果", "a,b"}, doc[0].Data.FullText)
}

func TestFormatPages_CSV(t *testing.T) {
	out, err := FormatPages(samplePages(), FormatCSV, time.Now())
	require.NoError(t, err)

	rows := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, rows, 5)
	assert.Equal(t, "page,image,index,text,confidence,x,y,width,height", rows[0])
	assert.True(t, strings.HasPrefix(rows[3], "3,1,0,识别结果,"))
}

func TestFormatPages_Errors(t *testing.T) {
	_, err := FormatPages(samplePages(), "xml", time.Now())
	assert.Error(t, err)

	_, err = FormatPages([]PageResult{{Page: 2}}, FormatJSON, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
}
