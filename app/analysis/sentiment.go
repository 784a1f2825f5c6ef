package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/lysyi3m/media-monitor/app/config"
)

const sentimentThreshold = 0.1

// SentimentScorer scores text against a keyword lexicon. Lexicon entries
// match at the start of a word, so "risico" also counts "risico's".
type SentimentScorer struct {
	positive *regexp.Regexp
	negative *regexp.Regexp
}

func NewSentimentScorer(lexicon config.Sentiment) *SentimentScorer {
	return &SentimentScorer{
		positive: prefixPattern(lexicon.Positive),
		negative: prefixPattern(lexicon.Negative),
	}
}

// Score returns (pos-neg)/(pos+neg), or 0 when no lexicon word occurs
func (s *SentimentScorer) Score(text string) float64 {
	lower := strings.ToLower(text)

	pos := countMatches(lower, s.positive)
	neg := countMatches(lower, s.negative)
	if pos+neg == 0 {
		return 0
	}

	return float64(pos-neg) / float64(pos+neg)
}

func SentimentLabel(score float64) string {
	switch {
	case score > sentimentThreshold:
		return "positive"
	case score < -sentimentThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// prefixPattern matches any of words at a word start. Longer entries come
// first so "success" is counted once and not again as "succes".
func prefixPattern(words []string) *regexp.Regexp {
	words = lowerAll(words)
	if len(words) == 0 {
		return nil
	}
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	return regexp.MustCompile(`\b(?:` + alternation(words) + `)`)
}

func countMatches(text string, re *regexp.Regexp) int {
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

func lowerAll(words []string) []string {
	result := make([]string, 0, len(words))
	for _, word := range words {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			result = append(result, word)
		}
	}
	return result
}
