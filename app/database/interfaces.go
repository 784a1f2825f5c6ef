package database

import (
	"context"
	"time"
)

type ArticleRepository interface {
	Upsert(ctx context.Context, article Article) (UpsertResult, error)
	UpdateContent(ctx context.Context, url, content string, quotes []Quote) error

	Get(ctx context.Context, url string) (*Article, error)
	Between(ctx context.Context, from, to time.Time) ([]Article, error)

	Prune(ctx context.Context, maxAge time.Duration) (int64, error)

	Count(ctx context.Context) (int, error)
	SourceStats(ctx context.Context) ([]SourceStat, error)
	Info(ctx context.Context) (Info, error)
}
