package transcript

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var pathPrefixes = []string{"/embed/", "/v/", "/e/", "/shorts/", "/live/"}

// ParseVideoID extracts the 11 character video id from a bare id, a watch
// URL, a short link or an embed/shorts/live path. Scheme is optional.
func ParseVideoID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}
	if videoIDRE.MatchString(ref) {
		return ref, nil
	}

	raw := ref
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	var candidate string
	switch {
	case host == "youtu.be":
		candidate = firstPathSegment(strings.TrimPrefix(u.Path, "/"))
	case isYouTubeHost(host):
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				candidate = firstPathSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	}

	if !videoIDRE.MatchString(candidate) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return candidate, nil
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		return true
	}
	return false
}

func firstPathSegment(p string) string {
	if i := strings.IndexAny(p, "/?&#"); i >= 0 {
		return p[:i]
	}
	return p
}
