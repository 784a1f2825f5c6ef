package feed

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lysyi3m/media-monitor/app/config"
)

type topicMatcher struct {
	label    string
	keywords []string
}

// Classifier decides AI relevance and assigns topic buckets. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	patterns []*regexp.Regexp
	sources  []string
	topics   []topicMatcher
}

func NewClassifier(aiPatterns []string, topics []config.Topic) (*Classifier, error) {
	c := &Classifier{}

	for _, pattern := range aiPatterns {
		re, err := regexp.Compile(`(?i)\b(?:` + pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("failed to compile AI pattern %q: %w", pattern, err)
		}
		c.patterns = append(c.patterns, re)
		c.sources = append(c.sources, pattern)
	}

	for _, topic := range topics {
		matcher := topicMatcher{label: topic.Label}
		for _, keyword := range topic.Keywords {
			if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
				matcher.keywords = append(matcher.keywords, keyword)
			}
		}
		c.topics = append(c.topics, matcher)
	}

	return c, nil
}

func (c *Classifier) Run(text string) Classification {
	var result Classification

	for i, re := range c.patterns {
		if re.MatchString(text) {
			result.MatchedPatterns = append(result.MatchedPatterns, c.sources[i])
		}
	}

	if len(result.MatchedPatterns) == 0 {
		return result
	}

	result.Relevant = true
	result.Topics = c.Topics(text)

	return result
}

// Topics returns the sorted labels of every bucket with a keyword in text
func (c *Classifier) Topics(text string) []string {
	lower := strings.ToLower(text)

	var labels []string
	for _, topic := range c.topics {
		for _, keyword := range topic.keywords {
			if strings.Contains(lower, keyword) {
				labels = append(labels, topic.label)
				break
			}
		}
	}

	sort.Strings(labels)
	return labels
}
