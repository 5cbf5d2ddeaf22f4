package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"content-pilot/internal/models"
)

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// YtDlpStrategy asks yt-dlp for video metadata only and fetches the caption
// URL it reports. Nothing is written to disk.
type YtDlpStrategy struct {
	path      string
	languages []string
	runner    CommandRunner
	fetch     *fetcher
}

func NewYtDlpStrategy(path string, languages []string, runner CommandRunner, fetch *fetcher) *YtDlpStrategy {
	return &YtDlpStrategy{path: path, languages: languages, runner: runner, fetch: fetch}
}

func (s *YtDlpStrategy) Name() string { return "ytdlp" }

// ytdlpArgs dumps metadata JSON without touching media.
func ytdlpArgs(videoURL string) []string {
	return []string{
		"--no-config",
		"-j",
		"--skip-download",
		"--no-warnings",
		"--no-progress",
		"--no-update",
		videoURL,
	}
}

type ytdlpSubtitle struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

type ytdlpInfo struct {
	Duration          float64                    `json:"duration"`
	Subtitles         map[string][]ytdlpSubtitle `json:"subtitles"`
	AutomaticCaptions map[string][]ytdlpSubtitle `json:"automatic_captions"`
}

func (s *YtDlpStrategy) Fetch(ctx context.Context, videoID string) (*models.RawTranscript, error) {
	out, err := s.runner.Run(ctx, s.path, ytdlpArgs(models.WatchURL(videoID))...)
	if err != nil {
		return nil, err
	}

	jsonLine := lastJSONLine(out)
	if jsonLine == nil {
		return nil, errors.New("no JSON in yt-dlp output")
	}
	var info ytdlpInfo
	if err := json.Unmarshal(jsonLine, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp metadata: %w", err)
	}

	lang, sub, ok := pickSubtitle(&info, s.languages)
	if !ok {
		return nil, errors.New("yt-dlp reported no json3 or vtt captions")
	}

	body, err := s.fetch.get(ctx, sub.URL)
	if err != nil {
		return nil, fmt.Errorf("caption track: %w", err)
	}
	segments, err := ParseCaptions(body)
	if err != nil {
		return nil, err
	}

	raw := newRawTranscript(videoID, lang, s.Name(), segments)
	if info.Duration > 0 {
		raw.DurationSeconds = int(info.Duration)
	}
	return raw, nil
}

func lastJSONLine(out []byte) []byte {
	var found []byte
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] == '{' {
			found = line
		}
	}
	return found
}

var subtitleExtPreference = []string{"json3", "vtt"}

// pickSubtitle prefers uploaded subtitles over automatic captions, preferred
// languages over other English variants, and json3 over vtt.
func pickSubtitle(info *ytdlpInfo, langs []string) (string, ytdlpSubtitle, bool) {
	for _, tracks := range []map[string][]ytdlpSubtitle{info.Subtitles, info.AutomaticCaptions} {
		for _, lang := range langs {
			if sub, ok := bestExt(tracks[lang]); ok {
				return lang, sub, true
			}
		}

		keys := make([]string, 0, len(tracks))
		for k := range tracks {
			if strings.HasPrefix(k, "en") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if sub, ok := bestExt(tracks[k]); ok {
				return k, sub, true
			}
		}
	}
	return "", ytdlpSubtitle{}, false
}

func bestExt(subs []ytdlpSubtitle) (ytdlpSubtitle, bool) {
	for _, ext := range subtitleExtPreference {
		for _, sub := range subs {
			if sub.Ext == ext && sub.URL != "" {
				return sub, true
			}
		}
	}
	return ytdlpSubtitle{}, false
}
