package database

import (
	"time"
)

// Article is a stored AI-relevant article. URL is the canonical identity key.
type Article struct {
	ID          int64     `json:"id"` // ingestion order, kept across updates
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"` // filled lazily by full-text fetches
	Topics      []string  `json:"topics"`
	AIRelevant  bool      `json:"ai_relevant"`
	Quotes      []Quote   `json:"quotes,omitempty"`
	IngestedAt  time.Time `json:"ingested_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Quote is an attributed quotation found in an article
type Quote struct {
	Name         string `json:"name"`
	Text         string `json:"text"`
	Context      string `json:"context,omitempty"`
	Organization string `json:"organization,omitempty"`
}

type UpsertResult struct {
	ID      int64
	Created bool
}

type SourceStat struct {
	Source            string    `json:"source"`
	Articles          int       `json:"articles"`
	LatestPublishedAt time.Time `json:"latest_published_at"`
}

type Info struct {
	Articles      int
	Oldest        *time.Time
	Newest        *time.Time
	SchemaVersion uint
}
