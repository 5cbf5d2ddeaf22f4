package nlp

// Default vocabularies. All of them can be replaced from the nlp config
// section.
var (
	defaultHesitations = []string{
		"um", "umm", "uh", "uhh", "uhm", "er", "erm", "ah", "hmm", "mhm",
	}

	defaultFillerPhrases = []string{
		"you know", "i mean", "basically", "actually", "literally", "sort of", "kind of",
	}

	// Removed only when they open a sentence.
	defaultLeadingFillers = []string{
		"so", "well", "okay", "ok", "right", "anyway", "alright",
	}

	conservativeStopWords = []string{
		"a", "an", "the", "very", "just", "really", "quite", "rather",
	}

	// The NLTK English list without negations and contraction fragments, so
	// "not", "no" and "nor" survive.
	standardStopWords = []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
		"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she", "her",
		"hers", "herself", "it", "its", "itself", "they", "them", "their", "theirs",
		"themselves", "what", "which", "who", "whom", "this", "that", "these", "those",
		"am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
		"having", "do", "does", "did", "doing", "a", "an", "the", "and", "but", "if",
		"or", "because", "as", "until", "while", "of", "at", "by", "for", "with",
		"about", "against", "between", "into", "through", "during", "before", "after",
		"above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over",
		"under", "again", "further", "then", "once", "here", "there", "when", "where",
		"why", "how", "all", "any", "both", "each", "few", "more", "most", "other",
		"some", "such", "only", "own", "same", "so", "than", "too", "very", "can",
		"will", "just", "should", "now",
	}
)
