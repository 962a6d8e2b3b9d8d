package toggle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-social/tern-cli/internal/api"
)

type fakeLikeAPI struct {
	likes []api.Like

	listCalls   int
	createCalls int
	deleteCalls int

	createErr error
	deleteErr error

	onCreate func()
}

func (f *fakeLikeAPI) Likes(_ context.Context, _ api.ListParams) ([]api.Like, error) {
	f.listCalls++
	return f.likes, nil
}

func (f *fakeLikeAPI) CreateLike(_ context.Context, postID int64) (*api.Like, error) {
	f.createCalls++
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	like := api.Like{ID: int64(100 + f.createCalls), Post: postID, User: 1}
	f.likes = append(f.likes, like)
	return &like, nil
}

func (f *fakeLikeAPI) DeleteLike(_ context.Context, id int64) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, like := range f.likes {
		if like.ID == id {
			f.likes = append(f.likes[:i], f.likes[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

type fakeRetweetAPI struct {
	retweetCalls   int
	unretweetCalls int
	retweetErr     error
	unretweetErr   error
}

func (f *fakeRetweetAPI) Retweet(_ context.Context, _ int64) error {
	f.retweetCalls++
	return f.retweetErr
}

func (f *fakeRetweetAPI) Unretweet(_ context.Context, _ int64) error {
	f.unretweetCalls++
	return f.unretweetErr
}

func TestLikeToggle(t *testing.T) {
	t.Run("activating applies the optimistic flip before the response", func(t *testing.T) {
		server := &fakeLikeAPI{}
		toggler := NewLikes(server, 1)

		var observed []Flag
		toggler.Apply = func(f Flag) { observed = append(observed, f) }
		server.onCreate = func() {
			// The optimistic state must already be visible while the request
			// is in flight.
			require.Len(t, observed, 1)
			assert.True(t, observed[0].Active)
			assert.Equal(t, 6, observed[0].Count)
		}

		updated, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: false, Count: 5})
		require.NoError(t, err)
		assert.True(t, updated.Active)
		assert.Equal(t, 6, updated.Count)
		assert.Equal(t, 1, server.createCalls)
	})

	t.Run("deactivating resolves the record id from the list", func(t *testing.T) {
		server := &fakeLikeAPI{likes: []api.Like{
			{ID: 50, Post: 8, User: 2},
			{ID: 51, Post: 9, User: 1},
		}}
		toggler := NewLikes(server, 1)

		updated, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: true, Count: 5})
		require.NoError(t, err)
		assert.False(t, updated.Active)
		assert.Equal(t, 4, updated.Count)
		assert.Equal(t, 1, server.listCalls)
		assert.Equal(t, 1, server.deleteCalls)
		assert.Empty(t, filterLikes(server.likes, 9, 1))
	})

	t.Run("round trip restores the original count", func(t *testing.T) {
		server := &fakeLikeAPI{likes: []api.Like{{ID: 51, Post: 9, User: 1}}}
		toggler := NewLikes(server, 1)

		flag := Flag{TargetID: 9, Active: true, Count: 5}
		flag, err := toggler.Toggle(context.Background(), flag)
		require.NoError(t, err)
		flag, err = toggler.Toggle(context.Background(), flag)
		require.NoError(t, err)

		assert.True(t, flag.Active)
		assert.Equal(t, 5, flag.Count)
	})

	t.Run("count never goes below zero", func(t *testing.T) {
		server := &fakeLikeAPI{likes: []api.Like{{ID: 51, Post: 9, User: 1}}}
		toggler := NewLikes(server, 1)

		updated, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: true, Count: 0})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Count)
	})

	t.Run("failure rolls back the optimistic flip", func(t *testing.T) {
		server := &fakeLikeAPI{createErr: errors.New("boom")}
		toggler := NewLikes(server, 1)

		var observed []Flag
		toggler.Apply = func(f Flag) { observed = append(observed, f) }

		original := Flag{TargetID: 9, Active: false, Count: 5}
		updated, err := toggler.Toggle(context.Background(), original)

		var re *ReconciliationError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, original, updated)

		// Optimistic value first, then the reverted original.
		require.Len(t, observed, 2)
		assert.Equal(t, 6, observed[0].Count)
		assert.Equal(t, original, observed[1])
	})

	t.Run("delete failure rolls back", func(t *testing.T) {
		server := &fakeLikeAPI{
			likes:     []api.Like{{ID: 51, Post: 9, User: 1}},
			deleteErr: errors.New("boom"),
		}
		toggler := NewLikes(server, 1)

		original := Flag{TargetID: 9, Active: true, Count: 5}
		updated, err := toggler.Toggle(context.Background(), original)

		var re *ReconciliationError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, original, updated)
	})

	t.Run("stale active flag with no record corrects without decrementing", func(t *testing.T) {
		server := &fakeLikeAPI{}
		toggler := NewLikes(server, 1)

		updated, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: true, Count: 5})
		require.NoError(t, err)
		assert.False(t, updated.Active)
		assert.Equal(t, 5, updated.Count)
		assert.Zero(t, server.deleteCalls)
	})

	t.Run("duplicate invocation while in flight is ignored", func(t *testing.T) {
		server := &fakeLikeAPI{}
		toggler := NewLikes(server, 1)

		var nested Flag
		server.onCreate = func() {
			// Re-entrant toggle for the same target while the first request
			// is outstanding.
			nested, _ = toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: true, Count: 6})
		}

		_, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: false, Count: 5})
		require.NoError(t, err)

		// The nested call was ignored: flag returned unchanged, one create
		// only, no list or delete issued.
		assert.True(t, nested.Active)
		assert.Equal(t, 6, nested.Count)
		assert.Equal(t, 1, server.createCalls)
		assert.Zero(t, server.listCalls)
	})

	t.Run("refresh hook runs after success", func(t *testing.T) {
		server := &fakeLikeAPI{}
		toggler := NewLikes(server, 1)

		var refreshed []int64
		toggler.Refresh = func(_ context.Context, target int64) { refreshed = append(refreshed, target) }

		_, err := toggler.Toggle(context.Background(), Flag{TargetID: 9})
		require.NoError(t, err)
		assert.Equal(t, []int64{9}, refreshed)
	})
}

func TestRetweetToggle(t *testing.T) {
	t.Run("rejects own posts before any request", func(t *testing.T) {
		server := &fakeRetweetAPI{}
		toggler := NewRetweets(server, 1)

		original := Flag{TargetID: 9, Active: false, Count: 3}
		updated, err := toggler.Toggle(context.Background(), original, 1)

		require.ErrorIs(t, err, ErrOwnPost)
		assert.Equal(t, original, updated)
		assert.Zero(t, server.retweetCalls)
		assert.Zero(t, server.unretweetCalls)
	})

	t.Run("uses the direct endpoints", func(t *testing.T) {
		server := &fakeRetweetAPI{}
		toggler := NewRetweets(server, 1)

		flag, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: false, Count: 3}, 2)
		require.NoError(t, err)
		assert.True(t, flag.Active)
		assert.Equal(t, 4, flag.Count)

		flag, err = toggler.Toggle(context.Background(), flag, 2)
		require.NoError(t, err)
		assert.False(t, flag.Active)
		assert.Equal(t, 3, flag.Count)

		assert.Equal(t, 1, server.retweetCalls)
		assert.Equal(t, 1, server.unretweetCalls)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		server := &fakeRetweetAPI{retweetErr: errors.New("boom")}
		toggler := NewRetweets(server, 1)

		original := Flag{TargetID: 9, Active: false, Count: 3}
		updated, err := toggler.Toggle(context.Background(), original, 2)

		var re *ReconciliationError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, original, updated)
	})
}

type fakeBookmarkAPI struct {
	bookmarks []api.Bookmark

	listCalls   int
	createCalls int
	deleteCalls int
}

func (f *fakeBookmarkAPI) Bookmarks(_ context.Context, _ api.ListParams) ([]api.Bookmark, error) {
	f.listCalls++
	return f.bookmarks, nil
}

func (f *fakeBookmarkAPI) CreateBookmark(_ context.Context, postID int64) (*api.Bookmark, error) {
	f.createCalls++
	bookmark := api.Bookmark{ID: int64(200 + f.createCalls), Post: api.PostRef{ID: postID}, User: 1}
	f.bookmarks = append(f.bookmarks, bookmark)
	return &bookmark, nil
}

func (f *fakeBookmarkAPI) DeleteBookmark(_ context.Context, id int64) error {
	f.deleteCalls++
	for i, bookmark := range f.bookmarks {
		if bookmark.ID == id {
			f.bookmarks = append(f.bookmarks[:i], f.bookmarks[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func TestBookmarkToggle(t *testing.T) {
	t.Run("matches records on the nested post reference", func(t *testing.T) {
		server := &fakeBookmarkAPI{bookmarks: []api.Bookmark{
			{ID: 70, Post: api.PostRef{ID: 8}, User: 1},
			{ID: 71, Post: api.PostRef{ID: 9}, User: 1},
		}}
		toggler := NewBookmarks(server, 1)

		updated, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: true, Count: 2})
		require.NoError(t, err)
		assert.False(t, updated.Active)
		assert.Equal(t, 1, updated.Count)
		assert.Equal(t, 1, server.listCalls)
		assert.Len(t, server.bookmarks, 1)
		assert.Equal(t, int64(70), server.bookmarks[0].ID)
	})

	t.Run("activating issues a create", func(t *testing.T) {
		server := &fakeBookmarkAPI{}
		toggler := NewBookmarks(server, 1)

		updated, err := toggler.Toggle(context.Background(), Flag{TargetID: 9, Active: false, Count: 0})
		require.NoError(t, err)
		assert.True(t, updated.Active)
		assert.Equal(t, 1, updated.Count)
		assert.Equal(t, 1, server.createCalls)
	})
}

func filterLikes(likes []api.Like, post, user int64) []api.Like {
	var out []api.Like
	for _, like := range likes {
		if like.Post == post && like.User == user {
			out = append(out, like)
		}
	}
	return out
}
