package transcript

import (
	"strings"
	"testing"

	"content-pilot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaptionsJSON3(t *testing.T) {
	body := `{"wireMagic":"pb3","events":[
		{"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"hello "},{"utf8":"there"}]},
		{"tStartMs":1500,"dDurationMs":10,"segs":[{"utf8":"\n"}]},
		{"tStartMs":2000,"dDurationMs":500},
		{"tStartMs":"3000","dDurationMs":"1000","segs":[{"utf8":"it&#39;s me"}]}
	]}`

	segs, err := ParseCaptions([]byte(body))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, "hello there", segs[0].Text)
	require.NotNil(t, segs[0].Start)
	assert.InDelta(t, 0.0, *segs[0].Start, 1e-9)
	assert.InDelta(t, 1.5, segs[0].Duration, 1e-9)

	assert.Equal(t, "it's me", segs[1].Text)
	assert.InDelta(t, 3.0, *segs[1].Start, 1e-9)
}

func TestParseCaptionsTimedtextXML(t *testing.T) {
	legacy := `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="1.2">it&amp;#39;s fine</text>
<text start="2" dur="1">   </text>
<text start="3.25" dur="2">second &amp;amp; last</text>
</transcript>`

	segs, err := ParseCaptions([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "it's fine", segs[0].Text)
	assert.InDelta(t, 0.5, *segs[0].Start, 1e-9)
	assert.InDelta(t, 1.2, segs[0].Duration, 1e-9)
	assert.Equal(t, "second & last", segs[1].Text)

	format3 := `<timedtext format="3"><body><p t="1000" d="2000">Hello <s>big</s><s> world</s></p></body></timedtext>`
	segs, err = ParseCaptions([]byte(format3))
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "Hello big world", segs[0].Text)
	assert.InDelta(t, 1.0, *segs[0].Start, 1e-9)
	assert.InDelta(t, 2.0, segs[0].Duration, 1e-9)
}

func TestParseCaptionsSRT(t *testing.T) {
	body := "1\r\n00:00:01,000 --> 00:00:03,500\r\n<i>First line</i>\r\ncontinues\r\n\r\n" +
		"2\r\n00:00:04,000 --> 00:00:05,000\r\nSecond\r\n"

	segs, err := ParseCaptions([]byte(body))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, "First line continues", segs[0].Text)
	assert.InDelta(t, 1.0, *segs[0].Start, 1e-9)
	assert.InDelta(t, 2.5, segs[0].Duration, 1e-9)
	assert.Equal(t, "Second", segs[1].Text)
	assert.InDelta(t, 4.0, *segs[1].Start, 1e-9)
}

func TestParseCaptionsWebVTTRollingCues(t *testing.T) {
	body := `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.000 align:start position:0%
hello<00:00:00.500><c> world</c>

00:00:02.000 --> 00:00:04.000 align:start position:0%
hello world
this is new

01:00:00.000 --> 01:00:01.000
late cue
`

	segs, err := ParseCaptions([]byte(body))
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "hello world", segs[0].Text)
	assert.Equal(t, "this is new", segs[1].Text)
	assert.InDelta(t, 2.0, *segs[1].Start, 1e-9)
	assert.InDelta(t, 2.0, segs[1].Duration, 1e-9)
	assert.InDelta(t, 3600.0, *segs[2].Start, 1e-9)
}

func TestParseCaptionsEmptyAndUnknown(t *testing.T) {
	segs, err := ParseCaptions([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, segs)

	_, err = ParseCaptions([]byte("just some words"))
	assert.ErrorIs(t, err, ErrUnknownCaptionFormat)

	_, err = ParseCaptions([]byte("{not json"))
	assert.Error(t, err)
}

func TestParseCaptionsOversizedCueLine(t *testing.T) {
	body := "1\n00:00:01,000 --> 00:00:02,000\n" + strings.Repeat("a", maxCueLine+1) + "\n"

	segs, err := ParseCaptions([]byte(body))
	assert.ErrorIs(t, err, ErrGarbledPayload)
	assert.Nil(t, segs)
}

func TestNewRawTranscriptDuration(t *testing.T) {
	start := 10.0
	raw := newRawTranscript("id", "en", "timedtext", []models.TranscriptSegment{
		{Text: "a", Start: &start, Duration: 2.5},
		{Text: "b"},
	})
	assert.Equal(t, 12, raw.DurationSeconds)
	assert.Equal(t, "a b", raw.Text())
}
