package nlp

import "regexp"

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}']+|[^\s\p{L}\p{N}']`)

// EstimateTokens counts word runs and individual punctuation marks. It is an
// accounting estimate, not a model tokenizer.
func EstimateTokens(text string) int {
	return len(tokenRE.FindAllStringIndex(text, -1))
}
