package feed

import (
	"strings"
	"time"
)

// Entry is a raw candidate article taken from a feed. Nothing about it is
// final until the classifier has evaluated it.
type Entry struct {
	Source      string
	Title       string
	Link        string
	Summary     string
	Content     string
	PublishedAt time.Time
	Categories  []string
}

// Text returns the text used for classification, feed categories included
func (e Entry) Text() string {
	text := e.Title + "\n" + e.Summary
	if e.Content != "" {
		text += "\n" + e.Content
	}
	if len(e.Categories) > 0 {
		text += "\n" + strings.Join(e.Categories, ", ")
	}
	return text
}

type FetchResult struct {
	Entries []Entry
	Errors  []*SourceFetchError
}

type Classification struct {
	Relevant        bool
	Topics          []string
	MatchedPatterns []string
}
