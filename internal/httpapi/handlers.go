package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scrapegate/internal/model"
	"scrapegate/internal/upstream"
)

func (s *Server) handleTweets(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	count := clampCount(r, 5, 1, 100)

	s.run(w, r, "getTweets("+username+")", "default", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Tweets(ctx, client, account, username, count)
	})
}

func (s *Server) handleLatestTweet(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	s.run(w, r, "getLatestTweet("+username+")", "default", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.LatestTweet(ctx, client, account, username)
	})
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	count := clampCount(r, 5, 1, 100)

	s.run(w, r, "getReplies("+username+")", "default", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Replies(ctx, client, account, username, count)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	mode := r.URL.Query().Get("mode")
	if mode != "top" {
		mode = "latest"
	}
	count := clampCount(r, 20, 1, 100)

	s.run(w, r, "search("+query+")", "search", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Search(ctx, client, account, query, mode, count)
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	s.run(w, r, "getProfile("+username+")", "profile", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Profile(ctx, client, account, username)
	})
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	count := clampCount(r, 50, 1, 200)

	s.run(w, r, "getFollowers("+username+")", "default", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Followers(ctx, client, account, username, count)
	})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	count := clampCount(r, 50, 1, 200)

	s.run(w, r, "getFollowing("+username+")", "default", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Following(ctx, client, account, username, count)
	})
}

func (s *Server) handleTweet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.run(w, r, "getTweet("+id+")", "tweet", func(ctx context.Context, client upstream.Client, account model.Account) (any, error) {
		return s.backend.Tweet(ctx, client, account, id)
	})
}
