package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"content-pilot/internal/models"
)

// ErrUnknownCaptionFormat is returned when a body is none of json3, timedtext
// XML, SRT or WebVTT.
var ErrUnknownCaptionFormat = errors.New("unknown caption format")

const maxCueLine = 1 << 20

// ParseCaptions detects the caption document format and returns its cues in
// order. Cues that are blank after unescaping are dropped.
func ParseCaptions(data []byte) ([]models.TranscriptSegment, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	switch {
	case len(trimmed) == 0:
		return nil, nil
	case trimmed[0] == '{':
		return parseJSON3(trimmed)
	case trimmed[0] == '<':
		return parseTimedtextXML(trimmed)
	case bytes.HasPrefix(trimmed, []byte("WEBVTT")), bytes.Contains(trimmed, []byte("-->")):
		return parseCues(trimmed)
	}
	return nil, ErrUnknownCaptionFormat
}

type json3Doc struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	TStartMs    json.Number `json:"tStartMs"`
	DDurationMs json.Number `json:"dDurationMs"`
	Segs        []struct {
		UTF8 string `json:"utf8"`
	} `json:"segs"`
}

func parseJSON3(data []byte) ([]models.TranscriptSegment, error) {
	var doc json3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json3 captions: %w", err)
	}

	var segments []models.TranscriptSegment
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		text := normalizeCueText(sb.String())
		if text == "" {
			continue
		}
		seg := models.TranscriptSegment{Text: text}
		if ms, err := ev.TStartMs.Float64(); err == nil {
			start := ms / 1000
			seg.Start = &start
		}
		if ms, err := ev.DDurationMs.Float64(); err == nil {
			seg.Duration = ms / 1000
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// timedtextXML covers both the legacy <transcript><text start dur> layout and
// the format 3 <timedtext><body><p t d> layout.
type timedtextXML struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     string   `xml:"t,attr"`
		D     string   `xml:"d,attr"`
		Body  string   `xml:",chardata"`
		Words []string `xml:"s"`
	} `xml:"body>p"`
}

func parseTimedtextXML(data []byte) ([]models.TranscriptSegment, error) {
	var doc timedtextXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var segments []models.TranscriptSegment
	add := func(text string, start *float64, dur float64) {
		if text = normalizeCueText(text); text != "" {
			segments = append(segments, models.TranscriptSegment{Text: text, Start: start, Duration: dur})
		}
	}

	for _, t := range doc.Texts {
		add(t.Body, parseSeconds(t.Start, 1), derefOr(parseSeconds(t.Dur, 1), 0))
	}
	for _, p := range doc.Paragraphs {
		add(p.Body+strings.Join(p.Words, ""), parseSeconds(p.T, 1000), derefOr(parseSeconds(p.D, 1000), 0))
	}
	return segments, nil
}

var (
	cueTimeRE = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})[.,](\d{1,3})$`)
	cueTagRE  = regexp.MustCompile(`<[^>]+>`)
)

// parseCues reads SRT and WebVTT bodies, dropping inline styling tags. Cue
// numbers, headers, NOTE and STYLE blocks carry no "-->" line and are skipped.
// Rolling auto-captions repeat the previous line, so a line equal to the last
// kept one is dropped. A line longer than maxCueLine fails the whole body.
func parseCues(data []byte) ([]models.TranscriptSegment, error) {
	var (
		segments []models.TranscriptSegment
		lastLine string
		block    []string
	)

	flush := func() {
		defer func() { block = block[:0] }()
		timing := -1
		for i, line := range block {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			return
		}

		parts := strings.SplitN(block[timing], "-->", 2)
		start := parseCueTime(strings.TrimSpace(parts[0]))
		var dur float64
		if endFields := strings.Fields(parts[1]); len(endFields) > 0 && start != nil {
			if end := parseCueTime(endFields[0]); end != nil && *end > *start {
				dur = *end - *start
			}
		}

		var lines []string
		for _, line := range block[timing+1:] {
			line = normalizeCueText(cueTagRE.ReplaceAllString(line, ""))
			if line == "" || line == lastLine {
				continue
			}
			lines = append(lines, line)
			lastLine = line
		}
		if len(lines) > 0 {
			segments = append(segments, models.TranscriptSegment{Text: strings.Join(lines, " "), Start: start, Duration: dur})
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxCueLine)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbledPayload, err)
	}
	flush()

	return segments, nil
}

func parseCueTime(s string) *float64 {
	m := cueTimeRE.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])
	frac, _ := strconv.ParseFloat("0."+m[4], 64)
	v := float64(h*3600+mins*60+secs) + frac
	return &v
}

func parseSeconds(s string, divisor float64) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := f / divisor
	return &v
}

func derefOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// normalizeCueText unescapes entities (timedtext bodies are often escaped
// twice) and collapses whitespace.
func normalizeCueText(s string) string {
	s = html.UnescapeString(html.UnescapeString(s))
	return strings.Join(strings.Fields(s), " ")
}
