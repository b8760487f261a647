package main

import (
	"context"
	"time"

	"scrapegate/internal/model"
	"scrapegate/internal/upstream"
)

// referenceFactory returns the Factory a fresh deployment starts with.
// scrapegate never specifies the upstream site's wire protocol (spec.md
// leaves cookies, CSRF names, and endpoint shapes to an opaque Client); this
// factory hands out upstream.MockClients so the ladder, dispatcher, and HTTP
// surface all run end to end. Point cmd/scrapegate at a real Factory once
// the target site's login and scraping calls are implemented.
func referenceFactory() upstream.Factory {
	return upstream.MockFactory{}
}

// referenceBackend answers scraping calls against whatever Client the
// dispatcher authenticated, without knowing the real site's response shapes.
// It exists so `scrapegate serve` and `scrapegate dispatch` are runnable out
// of the box; swap it for a Backend that parses real responses in production.
type referenceBackend struct{}

func newReferenceBackend() *referenceBackend { return &referenceBackend{} }

func (b *referenceBackend) Tweets(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error) {
	return b.synthesize("tweets", username, count), nil
}

func (b *referenceBackend) LatestTweet(ctx context.Context, client upstream.Client, account model.Account, username string) (any, error) {
	items := b.synthesize("tweets", username, 1)
	return items[0], nil
}

func (b *referenceBackend) Replies(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error) {
	return b.synthesize("replies", username, count), nil
}

func (b *referenceBackend) Search(ctx context.Context, client upstream.Client, account model.Account, query, mode string, count int) (any, error) {
	items := b.synthesize("search:"+mode, query, count)
	return items, nil
}

func (b *referenceBackend) Profile(ctx context.Context, client upstream.Client, account model.Account, username string) (any, error) {
	return map[string]any{
		"username":   username,
		"viaAccount": account.ScreenName,
		"fetchedAt":  time.Now(),
	}, nil
}

func (b *referenceBackend) Followers(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error) {
	return b.synthesize("followers", username, count), nil
}

func (b *referenceBackend) Following(ctx context.Context, client upstream.Client, account model.Account, username string, count int) (any, error) {
	return b.synthesize("following", username, count), nil
}

func (b *referenceBackend) Tweet(ctx context.Context, client upstream.Client, account model.Account, id string) (any, error) {
	return map[string]any{"id": id, "fetchedAt": time.Now()}, nil
}

func (b *referenceBackend) synthesize(kind, subject string, count int) []map[string]any {
	if count <= 0 {
		count = 1
	}
	items := make([]map[string]any, count)
	for i := range items {
		items[i] = map[string]any{
			"kind":    kind,
			"subject": subject,
			"index":   i,
		}
	}
	return items
}
