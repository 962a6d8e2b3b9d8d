// Package toggle makes reversible social actions (like, bookmark, retweet)
// feel instantaneous: the local flag and counter are flipped before the
// network round trip completes, and reverted if the request fails.
package toggle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tern-social/tern-cli/internal/api"
)

// ErrOwnPost is returned when attempting to retweet one's own post. The
// check runs locally; no request is issued.
var ErrOwnPost = errors.New("cannot retweet your own post")

// Flag is the local view of one reversible action on one content item.
// Count is the aggregate shown to all users and never goes below zero.
type Flag struct {
	TargetID int64
	Active   bool
	Count    int
}

// ReconciliationError means the create or delete behind a toggle failed
// after the optimistic flip. The local state has been reverted by the time
// the caller sees it.
type ReconciliationError struct {
	Op  string
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s failed, local state reverted: %v", e.Op, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// guard is the re-entrancy guard: at most one toggle in flight per target.
// Duplicate invocations while one is pending are ignored. It does not
// serialize toggles issued by separate toggler instances.
type guard struct {
	mu       sync.Mutex
	inflight map[int64]struct{}
}

func (g *guard) begin(target int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight == nil {
		g.inflight = make(map[int64]struct{})
	}
	if _, busy := g.inflight[target]; busy {
		return false
	}
	g.inflight[target] = struct{}{}
	return true
}

func (g *guard) end(target int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, target)
}

// LikeAPI is the slice of the API client the like toggler needs.
type LikeAPI interface {
	Likes(ctx context.Context, params api.ListParams) ([]api.Like, error)
	CreateLike(ctx context.Context, postID int64) (*api.Like, error)
	DeleteLike(ctx context.Context, id int64) error
}

// BookmarkAPI is the slice of the API client the bookmark toggler needs.
type BookmarkAPI interface {
	Bookmarks(ctx context.Context, params api.ListParams) ([]api.Bookmark, error)
	CreateBookmark(ctx context.Context, postID int64) (*api.Bookmark, error)
	DeleteBookmark(ctx context.Context, id int64) error
}

// RetweetAPI is the slice of the API client the retweet toggler needs.
// Retweets address the target directly, so no list-then-match is involved.
type RetweetAPI interface {
	Retweet(ctx context.Context, id int64) error
	Unretweet(ctx context.Context, id int64) error
}

// Likes toggles like flags for one identity.
type Likes struct {
	api    LikeAPI
	userID int64
	guard  guard

	// Apply pushes each local state change to the owning view: once with
	// the optimistic value before the request is issued, and again with the
	// reverted value if the request fails. Optional.
	Apply func(Flag)

	// Refresh re-fetches the item's canonical state after a successful
	// toggle to reconcile drift from other users. Optional.
	Refresh func(context.Context, int64)
}

// NewLikes creates a like toggler for the given identity.
func NewLikes(client LikeAPI, userID int64) *Likes {
	return &Likes{api: client, userID: userID}
}

// Toggle flips the like flag. Inactive flags get a create request; active
// flags require resolving the record id first by listing the identity's
// likes, because the list endpoint has no lookup by (identity, target).
func (l *Likes) Toggle(ctx context.Context, flag Flag) (Flag, error) {
	if !l.guard.begin(flag.TargetID) {
		log.Debug().Int64("target", flag.TargetID).Msg("like toggle already in flight, ignoring")
		return flag, nil
	}
	defer l.guard.end(flag.TargetID)

	if !flag.Active {
		updated := flag
		updated.Active = true
		updated.Count++
		apply(l.Apply, updated)

		if _, err := l.api.CreateLike(ctx, flag.TargetID); err != nil {
			apply(l.Apply, flag)
			return flag, &ReconciliationError{Op: "like", Err: err}
		}

		refresh(ctx, l.Refresh, flag.TargetID)
		return updated, nil
	}

	likes, err := l.api.Likes(ctx, api.ListParams{})
	if err != nil {
		return flag, fmt.Errorf("failed to resolve like record: %w", err)
	}

	var recordID int64
	found := false
	for _, rec := range likes {
		if rec.Post == flag.TargetID && rec.User == l.userID {
			recordID = rec.ID
			found = true
			break
		}
	}
	if !found {
		// The server has no record, so the local flag was stale. Correct the
		// flag without touching the count the server reported.
		log.Warn().Int64("target", flag.TargetID).Msg("no like record found for active flag")
		updated := flag
		updated.Active = false
		apply(l.Apply, updated)
		return updated, nil
	}

	updated := flag
	updated.Active = false
	updated.Count = decrement(flag.Count)
	apply(l.Apply, updated)

	if err := l.api.DeleteLike(ctx, recordID); err != nil {
		apply(l.Apply, flag)
		return flag, &ReconciliationError{Op: "unlike", Err: err}
	}

	refresh(ctx, l.Refresh, flag.TargetID)
	return updated, nil
}

// Bookmarks toggles bookmark flags for one identity. Identical shape to
// Likes, with the record match on the nested post reference.
type Bookmarks struct {
	api    BookmarkAPI
	userID int64
	guard  guard

	Apply   func(Flag)
	Refresh func(context.Context, int64)
}

// NewBookmarks creates a bookmark toggler for the given identity.
func NewBookmarks(client BookmarkAPI, userID int64) *Bookmarks {
	return &Bookmarks{api: client, userID: userID}
}

// Toggle flips the bookmark flag.
func (b *Bookmarks) Toggle(ctx context.Context, flag Flag) (Flag, error) {
	if !b.guard.begin(flag.TargetID) {
		log.Debug().Int64("target", flag.TargetID).Msg("bookmark toggle already in flight, ignoring")
		return flag, nil
	}
	defer b.guard.end(flag.TargetID)

	if !flag.Active {
		updated := flag
		updated.Active = true
		updated.Count++
		apply(b.Apply, updated)

		if _, err := b.api.CreateBookmark(ctx, flag.TargetID); err != nil {
			apply(b.Apply, flag)
			return flag, &ReconciliationError{Op: "bookmark", Err: err}
		}

		refresh(ctx, b.Refresh, flag.TargetID)
		return updated, nil
	}

	bookmarks, err := b.api.Bookmarks(ctx, api.ListParams{})
	if err != nil {
		return flag, fmt.Errorf("failed to resolve bookmark record: %w", err)
	}

	var recordID int64
	found := false
	for _, rec := range bookmarks {
		if rec.Post.ID == flag.TargetID && rec.User == b.userID {
			recordID = rec.ID
			found = true
			break
		}
	}
	if !found {
		log.Warn().Int64("target", flag.TargetID).Msg("no bookmark record found for active flag")
		updated := flag
		updated.Active = false
		apply(b.Apply, updated)
		return updated, nil
	}

	updated := flag
	updated.Active = false
	updated.Count = decrement(flag.Count)
	apply(b.Apply, updated)

	if err := b.api.DeleteBookmark(ctx, recordID); err != nil {
		apply(b.Apply, flag)
		return flag, &ReconciliationError{Op: "remove bookmark", Err: err}
	}

	refresh(ctx, b.Refresh, flag.TargetID)
	return updated, nil
}

// Retweets toggles retweet flags for one identity via the direct
// retweet/unretweet endpoints.
type Retweets struct {
	api    RetweetAPI
	userID int64
	guard  guard

	Apply   func(Flag)
	Refresh func(context.Context, int64)
}

// NewRetweets creates a retweet toggler for the given identity.
func NewRetweets(client RetweetAPI, userID int64) *Retweets {
	return &Retweets{api: client, userID: userID}
}

// Toggle flips the retweet flag. Retweeting one's own post is rejected
// locally before any request is issued.
func (r *Retweets) Toggle(ctx context.Context, flag Flag, ownerID int64) (Flag, error) {
	if ownerID == r.userID {
		return flag, ErrOwnPost
	}

	if !r.guard.begin(flag.TargetID) {
		log.Debug().Int64("target", flag.TargetID).Msg("retweet toggle already in flight, ignoring")
		return flag, nil
	}
	defer r.guard.end(flag.TargetID)

	if !flag.Active {
		updated := flag
		updated.Active = true
		updated.Count++
		apply(r.Apply, updated)

		if err := r.api.Retweet(ctx, flag.TargetID); err != nil {
			apply(r.Apply, flag)
			return flag, &ReconciliationError{Op: "retweet", Err: err}
		}

		refresh(ctx, r.Refresh, flag.TargetID)
		return updated, nil
	}

	updated := flag
	updated.Active = false
	updated.Count = decrement(flag.Count)
	apply(r.Apply, updated)

	if err := r.api.Unretweet(ctx, flag.TargetID); err != nil {
		apply(r.Apply, flag)
		return flag, &ReconciliationError{Op: "unretweet", Err: err}
	}

	refresh(ctx, r.Refresh, flag.TargetID)
	return updated, nil
}

func apply(fn func(Flag), flag Flag) {
	if fn != nil {
		fn(flag)
	}
}

func refresh(ctx context.Context, fn func(context.Context, int64), target int64) {
	if fn != nil {
		fn(ctx, target)
	}
}

// decrement floors the counter at zero.
func decrement(count int) int {
	if count <= 0 {
		return 0
	}
	return count - 1
}
