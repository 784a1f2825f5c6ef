package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ ArticleRepository = (*SQLArticleRepository)(nil)

// SQLArticleRepository stores articles in SQLite. Upserts are serialized by a
// single lock so concurrent writers for the same URL cannot race.
type SQLArticleRepository struct {
	db  *DB
	mu  sync.Mutex
	now func() time.Time
}

type RepositoryOption func(*SQLArticleRepository)

// WithClock overrides the time source used for windows and timestamps
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *SQLArticleRepository) {
		r.now = now
	}
}

func NewArticleRepository(db *DB, opts ...RepositoryOption) *SQLArticleRepository {
	r := &SQLArticleRepository{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const articleColumns = `id, url, title, source, published_at, summary, content,
	topics, quotes, ai_relevant, ingested_at, updated_at`

func (r *SQLArticleRepository) Upsert(ctx context.Context, article Article) (UpsertResult, error) {
	if err := validateURL(article.URL); err != nil {
		return UpsertResult{}, err
	}
	if !article.AIRelevant {
		return UpsertResult{}, ErrNotRelevant
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanArticle(tx.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE url = ?`, article.URL))
	if err != nil && err != sql.ErrNoRows {
		return UpsertResult{}, fmt.Errorf("failed to load existing article: %w", err)
	}

	created := existing == nil
	now := r.now().UTC()

	publishedAt := article.PublishedAt
	if existing != nil {
		// First-seen publish time wins; later batches may only carry a fetch time
		publishedAt = existing.PublishedAt
		article.Topics = mergeStrings(existing.Topics, article.Topics)
		article.Quotes = mergeQuotes(existing.Quotes, article.Quotes)
	} else {
		article.Topics = mergeStrings(nil, article.Topics)
		article.Quotes = mergeQuotes(nil, article.Quotes)
	}
	if publishedAt.IsZero() {
		publishedAt = now
	}

	topics, err := json.Marshal(article.Topics)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to encode topics: %w", err)
	}
	quotes, err := json.Marshal(article.Quotes)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to encode quotes: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO articles (
			url, title, source, published_at, summary, content,
			topics, quotes, ai_relevant, ingested_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			title = CASE WHEN excluded.title <> '' THEN excluded.title ELSE articles.title END,
			source = CASE WHEN excluded.source <> '' THEN excluded.source ELSE articles.source END,
			summary = CASE WHEN excluded.summary <> '' THEN excluded.summary ELSE articles.summary END,
			content = CASE WHEN excluded.content <> '' THEN excluded.content ELSE articles.content END,
			topics = excluded.topics,
			quotes = excluded.quotes,
			updated_at = excluded.updated_at
		RETURNING id
	`, article.URL, article.Title, article.Source, publishedAt.Unix(), article.Summary, article.Content,
		string(topics), string(quotes), now.Unix(), now.Unix()).Scan(&id)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to upsert article: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to commit article: %w", err)
	}

	return UpsertResult{ID: id, Created: created}, nil
}

// UpdateContent stores fetched full text for an existing article and merges
// any quotes found in it. Unknown URLs are ignored.
func (r *SQLArticleRepository) UpdateContent(ctx context.Context, articleURL, content string, quotes []Quote) error {
	if content == "" && len(quotes) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.get(ctx, articleURL)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	merged, err := json.Marshal(mergeQuotes(existing.Quotes, quotes))
	if err != nil {
		return fmt.Errorf("failed to encode quotes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE articles
		SET content = CASE WHEN ? <> '' THEN ? ELSE content END,
		    quotes = ?,
		    updated_at = ?
		WHERE url = ?
	`, content, content, string(merged), r.now().UTC().Unix(), articleURL)
	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}

	return nil
}

func (r *SQLArticleRepository) Get(ctx context.Context, articleURL string) (*Article, error) {
	return r.get(ctx, articleURL)
}

func (r *SQLArticleRepository) get(ctx context.Context, articleURL string) (*Article, error) {
	article, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE url = ?`, articleURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return article, nil
}

// Between returns articles published in [from, to), newest first.
// Articles sharing a publish time keep their ingestion order.
func (r *SQLArticleRepository) Between(ctx context.Context, from, to time.Time) ([]Article, error) {
	return r.query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE ai_relevant = 1
		  AND published_at >= ?
		  AND published_at < ?
		ORDER BY published_at DESC, id ASC
	`, from.Unix(), to.Unix())
}

func (r *SQLArticleRepository) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := r.now().UTC().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE published_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune articles: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned articles: %w", err)
	}

	return removed, nil
}

func (r *SQLArticleRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (r *SQLArticleRepository) SourceStats(ctx context.Context) ([]SourceStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COUNT(*), MAX(published_at)
		FROM articles
		GROUP BY source
		ORDER BY COUNT(*) DESC, source ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get source stats: %w", err)
	}
	defer rows.Close()

	var stats []SourceStat
	for rows.Next() {
		var stat SourceStat
		var latest int64
		if err := rows.Scan(&stat.Source, &stat.Articles, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan source stats: %w", err)
		}
		stat.LatestPublishedAt = time.Unix(latest, 0).UTC()
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source stats: %w", err)
	}

	return stats, nil
}

func (r *SQLArticleRepository) Info(ctx context.Context) (Info, error) {
	var info Info
	var oldest, newest sql.NullInt64

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(published_at), MAX(published_at) FROM articles`,
	).Scan(&info.Articles, &oldest, &newest)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get database info: %w", err)
	}

	if oldest.Valid {
		t := time.Unix(oldest.Int64, 0).UTC()
		info.Oldest = &t
	}
	if newest.Valid {
		t := time.Unix(newest.Int64, 0).UTC()
		info.Newest = &t
	}

	var version sql.NullInt64
	err = r.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations LIMIT 1`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return Info{}, fmt.Errorf("failed to get schema version: %w", err)
	}
	if version.Valid {
		info.SchemaVersion = uint(version.Int64)
	}

	return info, nil
}

func (r *SQLArticleRepository) query(ctx context.Context, query string, args ...any) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var publishedAt, ingestedAt, updatedAt int64
	var topics, quotes string

	err := row.Scan(
		&article.ID, &article.URL, &article.Title, &article.Source, &publishedAt,
		&article.Summary, &article.Content, &topics, &quotes, &article.AIRelevant,
		&ingestedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.PublishedAt = time.Unix(publishedAt, 0).UTC()
	article.IngestedAt = time.Unix(ingestedAt, 0).UTC()
	article.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(topics), &article.Topics); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	if err := json.Unmarshal([]byte(quotes), &article.Quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}

	return &article, nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &StorageConflictError{URL: raw, Reason: "empty URL"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &StorageConflictError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &StorageConflictError{URL: raw, Reason: "unsupported scheme"}
	}
	if u.Host == "" {
		return &StorageConflictError{URL: raw, Reason: "missing host"}
	}

	return nil
}

func mergeStrings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, value := range list {
			if value == "" || seen[value] {
				continue
			}
			seen[value] = true
			merged = append(merged, value)
		}
	}
	sort.Strings(merged)
	return merged
}

func mergeQuotes(existing, incoming []Quote) []Quote {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]Quote, 0, len(existing)+len(incoming))
	for _, list := range [][]Quote{existing, incoming} {
		for _, quote := range list {
			key := strings.ToLower(quote.Name) + "|" + quote.Text
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, quote)
		}
	}
	return merged
}
