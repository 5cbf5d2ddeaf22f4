package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const systemInstruction = `You are a senior content strategist who reviews YouTube videos for creators.
You read a cleaned transcript (filler words and some function words have been removed) and judge how well the video is made and how well it will perform.

Score each dimension from 0 to 10, decimals allowed:
- hook_score: how strongly the opening earns the viewer's attention
- retention_score: pacing, structure and payoff that keep viewers watching
- seo_score: how discoverable the topic and wording are in search
- craft_score: clarity, delivery and overall production of the spoken content

Respond with ONE JSON object and nothing else, using exactly these fields:
{
  "hook_score": <number 0-10>,
  "retention_score": <number 0-10>,
  "seo_score": <number 0-10>,
  "craft_score": <number 0-10>,
  "strengths": ["<specific strength>", ...],
  "improvements": ["<specific, actionable improvement>", ...],
  "seo_keywords": ["<keyword or phrase>", ...],
  "title_suggestions": ["<title>", ...],
  "summary": "<short overview of the video and its value to viewers>"
}

Be concrete. Refer to what is actually said in the transcript. Do not invent facts about the video that the transcript does not support.`

// buildPrompt renders the user message for one transcript.
func buildPrompt(text string, durationSeconds, maxChars int) string {
	var b strings.Builder
	b.WriteString("Analyze the following video transcript.\n\n")
	if durationSeconds > 0 {
		minutes := (durationSeconds + 30) / 60
		if minutes < 1 {
			minutes = 1
		}
		fmt.Fprintf(&b, "VIDEO DURATION: %d minutes\n\n", minutes)
	}
	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(truncateRunes(text, maxChars))
	b.WriteString("\n\nReturn the JSON object now.")
	return b.String()
}

// truncateRunes cuts s to at most max runes. max <= 0 disables the limit.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return truncateRunes(s, maxLen) + "..."
}
