package httpapi

import (
	"context"

	"scrapegate/internal/model"
	"scrapegate/internal/upstream"
)

// Backend performs the actual scraping calls against an authenticated
// client. The wire protocol of the upstream site is deliberately opaque to
// this package (and to the dispatcher); a concrete Backend implementation
// supplies it.
type Backend interface {
	Tweets(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error)
	LatestTweet(ctx context.Context, client upstream.Client, account model.Account, username string) (any, error)
	Replies(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error)
	Search(ctx context.Context, client upstream.Client, account model.Account, query, mode string, count int) (any, error)
	Profile(ctx context.Context, client upstream.Client, account model.Account, username string) (any, error)
	Followers(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error)
	Following(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error)
	Tweet(ctx context.Context, client upstream.Client, account model.Account, id string) (any, error)
}
