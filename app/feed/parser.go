package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	policy       *bluemonday.Policy
}

func NewParser() *Parser {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)

	return &Parser{
		gofeedParser: gofeed.NewParser(),
		policy:       policy,
	}
}

// Run parses an RSS, Atom or JSON feed. Entries without a usable publish
// time are stamped with fetchedAt.
func (p *Parser) Run(data []byte, source string, fetchedAt time.Time) ([]Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := p.normalizeItem(item, fetchedAt)
		entry.Source = source
		entries = append(entries, entry)
	}

	return entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, fetchedAt time.Time) Entry {
	entry := Entry{
		Title:       p.StripTags(item.Title),
		Link:        strings.TrimSpace(cmp.Or(item.Link, item.GUID)),
		Summary:     p.StripTags(item.Description),
		Content:     p.StripTags(item.Content),
		PublishedAt: p.publishedAt(item, fetchedAt),
		Categories:  item.Categories,
	}

	if entry.Content == entry.Summary {
		entry.Content = ""
	}

	return entry
}

func (p *Parser) publishedAt(item *gofeed.Item, fetchedAt time.Time) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if parsed, err := dateparse.ParseAny(strings.TrimSpace(raw)); err == nil {
			return parsed.UTC()
		}
	}

	return fetchedAt.UTC()
}

// StripTags removes markup and collapses whitespace
func (p *Parser) StripTags(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(p.policy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}
