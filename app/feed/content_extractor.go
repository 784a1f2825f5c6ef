package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

type ExtractedContent struct {
	Title string
	Text  string
}

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the readable article text from an HTML page. pageURL may be nil.
func (e *ContentExtractor) Run(data []byte, pageURL *url.URL) (ExtractedContent, error) {
	if len(data) == 0 {
		return ExtractedContent{}, fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return ExtractedContent{}, fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return ExtractedContent{}, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(text))

	return ExtractedContent{
		Title: article.Title,
		Text:  text,
	}, nil
}
