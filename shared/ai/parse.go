package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"content-pilot/internal/models"
)

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// wireReport is the exact shape the model is asked to produce.
type wireReport struct {
	HookScore        *float64  `json:"hook_score"`
	RetentionScore   *float64  `json:"retention_score"`
	SEOScore         *float64  `json:"seo_score"`
	CraftScore       *float64  `json:"craft_score"`
	Strengths        *[]string `json:"strengths"`
	Improvements     *[]string `json:"improvements"`
	SEOKeywords      *[]string `json:"seo_keywords"`
	TitleSuggestions *[]string `json:"title_suggestions"`
	Summary          *string   `json:"summary"`
}

// parseReport validates a model response against the report schema. When
// the strict parse fails it makes one repair attempt; repaired reports
// whether that was needed.
func parseReport(raw string) (report *models.AnalysisReport, repaired bool, err error) {
	text := stripCodeFence(raw)

	report, strictErr := parseStrict(text)
	if strictErr == nil {
		return report, false, nil
	}

	report, err = repairReport(text)
	if err != nil {
		return nil, false, &MalformedOutputError{
			Raw: raw,
			Err: fmt.Errorf("%v (repair failed: %w)", strictErr, err),
		}
	}
	return report, true, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func parseStrict(text string) (*models.AnalysisReport, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var w wireReport
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("not a schema document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing content after JSON document")
	}

	switch {
	case w.HookScore == nil, w.RetentionScore == nil, w.SEOScore == nil, w.CraftScore == nil:
		return nil, errors.New("missing score field")
	case w.Strengths == nil, w.Improvements == nil, w.SEOKeywords == nil, w.TitleSuggestions == nil:
		return nil, errors.New("missing list field")
	case w.Summary == nil || strings.TrimSpace(*w.Summary) == "":
		return nil, errors.New("missing summary")
	}

	for _, s := range []float64{*w.HookScore, *w.RetentionScore, *w.SEOScore, *w.CraftScore} {
		if s < models.MinScore || s > models.MaxScore {
			return nil, fmt.Errorf("score %v out of range", s)
		}
	}

	return &models.AnalysisReport{
		HookScore:        *w.HookScore,
		RetentionScore:   *w.RetentionScore,
		SEOScore:         *w.SEOScore,
		CraftScore:       *w.CraftScore,
		Strengths:        cleanList(*w.Strengths),
		Improvements:     cleanList(*w.Improvements),
		SEOKeywords:      cleanList(*w.SEOKeywords),
		TitleSuggestions: cleanList(*w.TitleSuggestions),
		Summary:          strings.TrimSpace(*w.Summary),
		Success:          true,
	}, nil
}

// Canonical field names keyed by normalizeKey of every accepted spelling.
var fieldAliases = map[string]string{
	"hookscore":           "hook_score",
	"hook":                "hook_score",
	"hookrating":          "hook_score",
	"retentionscore":      "retention_score",
	"retention":           "retention_score",
	"retentionrating":     "retention_score",
	"seoscore":            "seo_score",
	"seo":                 "seo_score",
	"seorating":           "seo_score",
	"craftscore":          "craft_score",
	"craft":               "craft_score",
	"craftsmanship":       "craft_score",
	"craftrating":         "craft_score",
	"strengths":           "strengths",
	"strength":            "strengths",
	"pros":                "strengths",
	"improvements":        "improvements",
	"improvement":         "improvements",
	"weaknesses":          "improvements",
	"areasforimprovement": "improvements",
	"seokeywords":         "seo_keywords",
	"keywords":            "seo_keywords",
	"tags":                "seo_keywords",
	"titlesuggestions":    "title_suggestions",
	"suggestedtitles":     "title_suggestions",
	"titles":              "title_suggestions",
	"titleideas":          "title_suggestions",
	"summary":             "summary",
	"overview":            "summary",
}

func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// repairReport is the single bounded repair pass: locate the first
// parseable object, map near-miss field names, coerce and clamp scores, and
// default missing lists.
func repairReport(text string) (*models.AnalysisReport, error) {
	obj, err := extractObject(text)
	if err != nil {
		return nil, err
	}

	fields := canonicalFields(obj)
	if _, ok := fields["hook_score"]; !ok {
		// {"analysis": {...}} style wrappers
		for _, v := range obj {
			if inner, ok := v.(map[string]any); ok {
				if f := canonicalFields(inner); len(f) > len(fields) {
					fields = f
				}
			}
		}
	}

	report := &models.AnalysisReport{Success: true}
	scores := []struct {
		name string
		dst  *float64
	}{
		{"hook_score", &report.HookScore},
		{"retention_score", &report.RetentionScore},
		{"seo_score", &report.SEOScore},
		{"craft_score", &report.CraftScore},
	}
	for _, s := range scores {
		v, ok := fields[s.name]
		if !ok {
			return nil, fmt.Errorf("missing %s", s.name)
		}
		f, err := coerceScore(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		*s.dst = models.ClampScore(f)
	}

	report.Strengths = coerceList(fields["strengths"])
	report.Improvements = coerceList(fields["improvements"])
	report.SEOKeywords = coerceList(fields["seo_keywords"])
	report.TitleSuggestions = coerceList(fields["title_suggestions"])

	summary, _ := fields["summary"].(string)
	report.Summary = strings.TrimSpace(summary)
	if report.Summary == "" {
		return nil, errors.New("missing summary")
	}
	return report, nil
}

// canonicalFields maps obj onto schema names. A nested "scores" object is
// flattened.
func canonicalFields(obj map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range obj {
		nk := normalizeKey(k)
		if nk == "scores" || nk == "ratings" {
			if inner, ok := v.(map[string]any); ok {
				for ik, iv := range inner {
					if name, ok := fieldAliases[normalizeKey(ik)]; ok {
						if _, seen := out[name]; !seen {
							out[name] = iv
						}
					}
				}
			}
			continue
		}
		if name, ok := fieldAliases[nk]; ok {
			// exact schema spelling wins over an alias
			if _, seen := out[name]; !seen || k == name {
				out[name] = v
			}
		}
	}
	return out
}

// extractObject returns the first balanced {...} substring that decodes.
// When none does, the first candidate is retried after quote sanitizing.
func extractObject(text string) (map[string]any, error) {
	var first string
	for start := strings.IndexByte(text, '{'); start >= 0; {
		candidate, ok := balancedObject(text[start:])
		if ok {
			if first == "" {
				first = candidate
			}
			if obj, err := decodeObject(candidate); err == nil {
				return obj, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	if first == "" {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return nil, errors.New("no JSON object found")
		}
		first = text[start : end+1]
	}

	obj, err := decodeObject(sanitizeJSON(first))
	if err != nil {
		return nil, fmt.Errorf("no parseable JSON object: %w", err)
	}
	return obj, nil
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("null document")
	}
	return obj, nil
}

// balancedObject returns the prefix of s (which starts with '{') up to the
// matching close brace, honouring string literals.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// sanitizeJSON escapes stray double quotes inside single-line string values,
// the most common defect in model-written JSON.
func sanitizeJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	sanitized := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx != -1 && strings.Contains(line, "\"") {
			beforeColon := line[:colonIdx+1]
			afterColon := strings.TrimSpace(line[colonIdx+1:])

			if strings.HasPrefix(afterColon, "\"") {
				lastQuoteIdx := strings.LastIndex(afterColon, "\"")
				if lastQuoteIdx > 0 {
					content := escapeBareQuotes(afterColon[1:lastQuoteIdx])
					line = beforeColon + " \"" + content + "\"" + afterColon[lastQuoteIdx+1:]
				}
			}
		}

		sanitized = append(sanitized, line)
	}

	return strings.Join(sanitized, "\n")
}

func escapeBareQuotes(s string) string {
	var b bytes.Buffer
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

var scoreFraction = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*(?:/\s*(\d+(?:\.\d+)?))?\s*$`)

// coerceScore accepts JSON numbers and numeric strings such as "8.5",
// "8/10" or "4/5" (rescaled to 0-10).
func coerceScore(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return parseScoreFloat(t.String())
	case float64:
		return t, nil
	case string:
		m := scoreFraction.FindStringSubmatch(t)
		if m == nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		f, err := parseScoreFloat(m[1])
		if err != nil {
			return 0, err
		}
		if m[2] != "" {
			den, err := parseScoreFloat(m[2])
			if err != nil || den == 0 {
				return 0, fmt.Errorf("bad denominator in %q", t)
			}
			f = f / den * models.MaxScore
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// parseScoreFloat keeps the ±Inf that ParseFloat returns on overflow so the
// caller clamps it like any other out-of-range score.
func parseScoreFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) {
		return f, nil
	}
	return f, err
}

// coerceList turns whatever the model produced into a non-nil string list.
func coerceList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			case json.Number:
				out = append(out, s.String())
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return []string{}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
