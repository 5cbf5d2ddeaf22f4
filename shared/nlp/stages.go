package nlp

import (
	"regexp"
	"strings"
	"unicode"
)

const ts = `\d{1,2}(?::\d{2}){1,2}(?:[.,]\d{1,3})?`

var (
	cueArrowRE       = regexp.MustCompile(ts + `\s*-->\s*` + ts + `(?:[^\S\n]+\S+:\S+)*`)
	bracketedTimeRE  = regexp.MustCompile(`[\[(]\s*` + ts + `\s*[\])]`)
	bareTimeRE       = regexp.MustCompile(`\b` + ts + `\b`)
	nonSpeechTagRE   = regexp.MustCompile(`\[[^\[\]\n]{1,40}\]`)
	soundCueRE       = regexp.MustCompile(`(?i)\((?:music|applause|laughter|laughs|laughing|inaudible|crosstalk|silence|cheering|cheers|sighs|coughs|upbeat music|background noise)[^()]{0,20}\)`)
	musicGlyphRE     = regexp.MustCompile(`[♪♫♬]+`)
	speakerChangeRE  = regexp.MustCompile(`>{2,}`)
	speakerLabelRE   = regexp.MustCompile(`(?m)^\s*(?:[A-Z][A-Z0-9 .'-]{1,30}|(?i:speaker)\s*\d+|SPEAKER_\d+)\s*:\s*`)
	spaceRE          = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
	repeatedCommaRE  = regexp.MustCompile(`,(?:\s*,)+`)
	pauseBeforeEndRE = regexp.MustCompile(`[,;:]+([.!?])`)
	emptySentenceRE  = regexp.MustCompile(`([.!?])(?:\s*[.!?,;:])+`)
	leadingPunctRE   = regexp.MustCompile(`^[\s.,!?;:]+`)
	pauseAfterEndRE  = regexp.MustCompile(`([.!?]\s+)[,;:]\s*`)
)

// stripMarkers removes timing and non-speech annotations from one segment.
func stripMarkers(s string) string {
	s = cueArrowRE.ReplaceAllString(s, " ")
	s = bracketedTimeRE.ReplaceAllString(s, " ")
	s = bareTimeRE.ReplaceAllString(s, " ")
	s = nonSpeechTagRE.ReplaceAllString(s, " ")
	s = soundCueRE.ReplaceAllString(s, " ")
	s = musicGlyphRE.ReplaceAllString(s, " ")
	s = speakerChangeRE.ReplaceAllString(s, " ")
	s = speakerLabelRE.ReplaceAllString(s, "")
	return s
}

// tidy collapses whitespace and the punctuation orphaned by removals.
func tidy(s string) string {
	s = strings.TrimSpace(s)
	s = spaceRE.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = repeatedCommaRE.ReplaceAllString(s, ",")
	s = pauseBeforeEndRE.ReplaceAllString(s, "$1")
	s = emptySentenceRE.ReplaceAllString(s, "$1")
	s = leadingPunctRE.ReplaceAllString(s, "")
	s = pauseAfterEndRE.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// wordAlternation builds a case-insensitive whole-word pattern. Multi-word
// phrases match across any run of whitespace.
func wordAlternation(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(strings.ToLower(w))
		if w == "" {
			continue
		}
		parts = append(parts, strings.Join(strings.Fields(regexp.QuoteMeta(w)), `\s+`))
	}
	if len(parts) == 0 {
		return ""
	}
	return `(?:` + strings.Join(parts, "|") + `)`
}

type fillerRemover struct {
	hesitations *regexp.Regexp
	phrases     *regexp.Regexp
	leading     *regexp.Regexp
}

func newFillerRemover(hesitations, phrases, leading []string) *fillerRemover {
	f := &fillerRemover{}
	if alt := wordAlternation(hesitations); alt != "" {
		f.hesitations = regexp.MustCompile(`(?i)\b` + alt + `\b,?`)
	}
	if alt := wordAlternation(phrases); alt != "" {
		f.phrases = regexp.MustCompile(`(?i)\b` + alt + `\b,?`)
	}
	if alt := wordAlternation(leading); alt != "" {
		f.leading = regexp.MustCompile(`(?i)(^|[.!?]\s+)` + alt + `(?:\s*,\s*|\s+)`)
	}
	return f
}

func (f *fillerRemover) apply(s string) string {
	if f.hesitations != nil {
		s = f.hesitations.ReplaceAllString(s, " ")
	}
	if f.phrases != nil {
		s = f.phrases.ReplaceAllString(s, " ")
	}
	s = tidy(s)
	if f.leading != nil {
		for {
			next := tidy(f.leading.ReplaceAllString(s, "$1"))
			if next == s {
				break
			}
			s = next
		}
	}
	return s
}

// splitSentences cuts after a run of terminal punctuation that is followed
// by whitespace or the end of text, so decimals like 3.5 stay intact.
func splitSentences(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminal(runes[j+1]) {
			j++
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) {
			if sentence := strings.TrimSpace(string(runes[start : j+1])); sentence != "" {
				out = append(out, sentence)
			}
			start = j + 1
		}
		i = j
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// normalizeSentence lowercases and keeps only letters and digits, one space
// between words.
func normalizeSentence(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

type deduper struct {
	threshold float64
	minWords  int
	window    int
}

type keptSentence struct {
	words map[string]struct{}
	size  int
}

func (d *deduper) apply(s string) string {
	sentences := splitSentences(s)
	kept := make([]string, 0, len(sentences))
	seen := make(map[string]bool, len(sentences))
	var recent []keptSentence

	for _, sentence := range sentences {
		words := normalizeSentence(sentence)
		if len(words) == 0 {
			kept = append(kept, sentence)
			continue
		}
		key := strings.Join(words, " ")
		if seen[key] {
			continue
		}

		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		if len(words) >= d.minWords && d.nearDuplicate(set, recent) {
			continue
		}

		seen[key] = true
		kept = append(kept, sentence)
		if len(words) >= d.minWords {
			recent = append(recent, keptSentence{words: set, size: len(words)})
			if d.window > 0 && len(recent) > d.window {
				recent = recent[1:]
			}
		}
	}
	return strings.Join(kept, " ")
}

func (d *deduper) nearDuplicate(set map[string]struct{}, recent []keptSentence) bool {
	for _, prev := range recent {
		if jaccard(set, prev.words) >= d.threshold {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

type stopWordFilter struct {
	words map[string]bool
}

func newStopWordFilter(words []string) *stopWordFilter {
	if len(words) == 0 {
		return nil
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return &stopWordFilter{words: set}
}

// apply drops bare stop words. A word is kept when it carries punctuation,
// sits inside quotes, or is capitalized after the first kept word of its
// sentence. Sentences that would be emptied are left alone.
func (f *stopWordFilter) apply(s string) string {
	if f == nil {
		return s
	}
	inQuote := false
	sentences := splitSentences(s)
	out := make([]string, 0, len(sentences))

	for _, sentence := range sentences {
		fields := strings.Fields(sentence)
		kept := make([]string, 0, len(fields))
		for _, field := range fields {
			opens := strings.HasPrefix(field, `"`) || strings.HasPrefix(field, "“")
			closes := len(field) > 1 && (strings.HasSuffix(field, `"`) || strings.HasSuffix(field, "”")) ||
				field == "”"
			if opens {
				inQuote = true
			}
			if !inQuote && f.removable(field, len(kept) == 0) {
				if closes {
					inQuote = false
				}
				continue
			}
			kept = append(kept, field)
			if closes {
				inQuote = false
			}
		}
		if len(kept) == 0 {
			kept = fields
		}
		out = append(out, strings.Join(kept, " "))
	}
	return strings.Join(out, " ")
}

func (f *stopWordFilter) removable(field string, sentenceStart bool) bool {
	for _, r := range field {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	first := []rune(field)[0]
	if unicode.IsUpper(first) && !sentenceStart {
		return false
	}
	return f.words[strings.ToLower(field)]
}
