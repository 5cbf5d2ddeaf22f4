package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"content-pilot/internal/models"

	"google.golang.org/api/youtube/v3"
)

// ErrStrategyUnavailable means the strategy lacks the credentials it needs.
var ErrStrategyUnavailable = errors.New("strategy not configured")

// DataAPIStrategy lists caption tracks through the YouTube Data API and
// downloads the chosen one as SRT. Download requires an OAuth client.
type DataAPIStrategy struct {
	service    *youtube.Service
	authorized bool
	languages  []string
}

func NewDataAPIStrategy(service *youtube.Service, authorized bool, languages []string) *DataAPIStrategy {
	return &DataAPIStrategy{service: service, authorized: authorized, languages: languages}
}

func (s *DataAPIStrategy) Name() string { return "data_api" }

func (s *DataAPIStrategy) Fetch(ctx context.Context, videoID string) (*models.RawTranscript, error) {
	if s.service == nil {
		return nil, fmt.Errorf("%w: YouTube Data API client missing", ErrStrategyUnavailable)
	}
	if !s.authorized {
		return nil, fmt.Errorf("%w: captions.download needs OAuth (run --authorize)", ErrStrategyUnavailable)
	}

	list, err := s.service.Captions.List([]string{"snippet"}, videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("captions.list: %w", err)
	}
	track := pickCaption(list.Items, s.languages)
	if track == nil {
		return nil, errors.New("no caption tracks listed")
	}

	resp, err := s.service.Captions.Download(track.Id).Tfmt("srt").Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("captions.download: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read caption track: %w", err)
	}
	segments, err := ParseCaptions(body)
	if err != nil {
		return nil, err
	}

	return newRawTranscript(videoID, track.Snippet.Language, s.Name(), segments), nil
}

// pickCaption applies the same preference as pickBestTrack to Data API
// caption resources.
func pickCaption(items []*youtube.Caption, langs []string) *youtube.Caption {
	var usable []*youtube.Caption
	for _, c := range items {
		if c != nil && c.Snippet != nil {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	isASR := func(c *youtube.Caption) bool { return strings.EqualFold(c.Snippet.TrackKind, "asr") }

	for _, lang := range langs {
		for _, c := range usable {
			if c.Snippet.Language == lang && !isASR(c) {
				return c
			}
		}
	}
	for _, lang := range langs {
		for _, c := range usable {
			if c.Snippet.Language == lang {
				return c
			}
		}
	}
	for _, c := range usable {
		if strings.HasPrefix(c.Snippet.Language, "en") {
			return c
		}
	}
	return usable[0]
}
