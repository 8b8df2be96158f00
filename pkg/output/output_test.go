package output

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/macchain/backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string   `json:"title"`
	Likes int      `json:"like_count"`
	Tags  []string `json:"tags"`
}

func capture(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
	config.Set("output.format", format)
	color.NoColor = true
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() { SetWriter(nil) })
	return &buf
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"text", "table", "json", "yaml"} {
		assert.True(t, ValidateOutputFormat(f), f)
	}
	assert.False(t, ValidateOutputFormat("xml"))
}

func TestUnknownFormatFallsBackToText(t *testing.T) {
	capture(t, "xml")
	assert.Equal(t, FormatText, GetOutputFormat())
}

func TestPrintJSONUsesTags(t *testing.T) {
	buf := capture(t, "json")
	require.NoError(t, Print("", sample{Title: "은혜", Likes: 3}))
	assert.Contains(t, buf.String(), `"like_count": 3`)
	assert.Contains(t, buf.String(), "은혜")
}

func TestPrintYAMLUsesJSONNames(t *testing.T) {
	buf := capture(t, "yaml")
	require.NoError(t, Print("", sample{Title: "t", Likes: 2, Tags: []string{"a"}}))
	assert.Contains(t, buf.String(), "like_count: 2")
	assert.Contains(t, buf.String(), "tags:\n    - a")
}

func TestPrintText(t *testing.T) {
	buf := capture(t, "text")
	require.NoError(t, Print("Discussion", sample{Title: "t", Likes: 2}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Discussion\n"))
	assert.Contains(t, out, "like_count: 2")
	assert.Contains(t, out, "tags: -")
}

func TestPrintListTable(t *testing.T) {
	buf := capture(t, "table")
	rows := [][]string{{"1", "Genesis 1"}, {"2", "Matthew 1"}}
	require.NoError(t, PrintList("", nil, []string{"ID", "PASSAGE"}, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  PASSAGE", lines[0])
	assert.Equal(t, "2   Matthew 1", lines[2])
}

func TestPrintListEmpty(t *testing.T) {
	buf := capture(t, "text")
	require.NoError(t, PrintList("Bookmarks", []int{}, []string{"ID"}, nil))
	assert.Equal(t, "Bookmarks\n(none)\n", buf.String())
}
