package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"content-pilot/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const playerResponseMarker = "ytInitialPlayerResponse = "

// TimedtextStrategy reads the caption track list embedded in the watch page
// and downloads the chosen track as json3. Only HTML and caption documents
// are requested.
type TimedtextStrategy struct {
	watchURL  string
	languages []string
	fetch     *fetcher
}

func NewTimedtextStrategy(watchURL string, languages []string, fetch *fetcher) *TimedtextStrategy {
	return &TimedtextStrategy{watchURL: watchURL, languages: languages, fetch: fetch}
}

func (s *TimedtextStrategy) Name() string { return "timedtext" }

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

func (s *TimedtextStrategy) Fetch(ctx context.Context, videoID string) (*models.RawTranscript, error) {
	pageURL, err := url.Parse(s.watchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid watch URL: %w", err)
	}
	q := pageURL.Query()
	q.Set("v", videoID)
	pageURL.RawQuery = q.Encode()

	page, err := s.fetch.get(ctx, pageURL.String())
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	player, err := playerResponseFromPage(page)
	if err != nil {
		return nil, err
	}
	if player.Captions == nil {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", player.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no captions in player response")
	}

	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, errors.New("no caption tracks in watch page")
	}
	track, ok := pickBestTrack(tracks, s.languages)
	if !ok {
		return nil, errors.New("all caption tracks require a PoToken")
	}

	trackURL, err := pageURL.Parse(track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid caption track URL: %w", err)
	}
	tq := trackURL.Query()
	tq.Set("fmt", "json3")
	trackURL.RawQuery = tq.Encode()

	body, err := s.fetch.get(ctx, trackURL.String())
	if err != nil {
		return nil, fmt.Errorf("caption track: %w", err)
	}
	segments, err := ParseCaptions(body)
	if err != nil {
		return nil, err
	}

	return newRawTranscript(videoID, track.LanguageCode, s.Name(), segments), nil
}

// playerResponseFromPage finds the inline script assigning the player
// response and decodes the object literal that follows the marker.
func playerResponseFromPage(page []byte) (*playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var raw []byte
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		script := sel.Text()
		idx := strings.Index(script, playerResponseMarker)
		if idx < 0 {
			return true
		}
		raw = extractJSONObject([]byte(script[idx+len(playerResponseMarker):]))
		return raw == nil
	})
	if raw == nil {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

// extractJSONObject returns the balanced object at the start of b, or nil.
func extractJSONObject(b []byte) []byte {
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// needsPoToken reports whether a track URL only works in a browser session.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first usable track.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}
