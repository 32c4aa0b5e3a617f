package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/franz/sparkify/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sessionFrame() *Frame {
	return FromMaps(
		"Session ID 338, item in session 4",
		[]string{"Session Id", "Item in Session", "Artist", "Song", "Length"},
		[]string{"session_id", "item_in_session", "artist", "song", "length"},
		[]map[string]interface{}{
			{"session_id": 338, "item_in_session": 4, "artist": "Faithless", "song": "Music Matters (Mark Knight Dub)", "length": float32(495.3073)},
		},
	)
}

func TestFromMaps(t *testing.T) {
	f := sessionFrame()
	require.Equal(t, 1, f.Len())
	assert.Equal(t, []string{"338", "4", "Faithless", "Music Matters (Mark Knight Dub)", "495.3073"}, f.Rows[0])
	assert.Equal(t, []string{"Faithless"}, f.Column("Artist"))
	assert.Nil(t, f.Column("Nope"))
}

func TestFromMapsEmpty(t *testing.T) {
	f := FromMaps("none", []string{"A"}, []string{"a"}, nil)
	assert.Equal(t, 0, f.Len())
	assert.NotNil(t, f.Rows)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "230.5", FormatValue(float32(230.5)))
	assert.Equal(t, "0.1", FormatValue(0.1))
	assert.Equal(t, "182", FormatValue(182))
	assert.Equal(t, "Sia", FormatValue("Sia"))
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatTable, []*Frame{sessionFrame()}))

	out := buf.String()
	for _, want := range []string{"Session ID 338", "Item in Session", "Faithless", "495.3073", "(1 row)"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, []*Frame{sessionFrame(), sessionFrame()}))

	dec := json.NewDecoder(&buf)
	var decoded []Frame
	for dec.More() {
		var f Frame
		require.NoError(t, dec.Decode(&f))
		decoded = append(decoded, f)
	}
	require.Len(t, decoded, 2)
	assert.Equal(t, "Faithless", decoded[0].Rows[0][2])
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "YAML", []*Frame{sessionFrame(), sessionFrame()}))

	dec := yaml.NewDecoder(&buf)
	var decoded []Frame
	for {
		var f Frame
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		decoded = append(decoded, f)
	}
	require.Len(t, decoded, 2)
	assert.Equal(t, []string{"Session Id", "Item in Session", "Artist", "Song", "Length"}, decoded[0].Headers)
}

func TestRendererWritesEachFrameImmediately(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf, FormatTable)
	require.NoError(t, err)

	require.NoError(t, r.Render(sessionFrame()))
	assert.Contains(t, buf.String(), "Faithless")

	before := buf.Len()
	require.NoError(t, r.Render(FromMaps("User 10, session 182", []string{"Artist"}, []string{"artist"}, nil)))
	assert.Contains(t, buf.String()[before:], "(0 rows)")
	require.NoError(t, r.Close())
}

func TestRendererCapsTableWidth(t *testing.T) {
	wide := FromMaps("Song", []string{"First Name", "Last Name"}, []string{"first", "last"},
		[]map[string]interface{}{{"first": strings.Repeat("Jacqueline ", 12), "last": "Lynch"}},
	)

	var natural bytes.Buffer
	require.NoError(t, renderTable(&natural, wide, 0))

	var capped bytes.Buffer
	r, err := NewRenderer(&capped, FormatTable)
	require.NoError(t, err)
	r.maxWidth = 60
	require.NoError(t, r.Render(wide))

	assert.Greater(t, lipgloss.Width(natural.String()), 60)
	assert.LessOrEqual(t, lipgloss.Width(capped.String()), 60)
	assert.Contains(t, capped.String(), "Lynch")
}

func TestNewRendererUnknownFormat(t *testing.T) {
	_, err := NewRenderer(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "csv", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "csv"))
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"", "table", "JSON", "yaml"} {
		assert.NoError(t, CheckFormat(f), f)
	}
	assert.ErrorIs(t, CheckFormat("xml"), util.ErrInvalidConfig)
}
