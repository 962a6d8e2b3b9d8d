package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// User is the full account record returned by the auth and account endpoints.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// UserMini is the embedded ownership reference on posts.
type UserMini struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// TokenPair is the payload returned by login and the Google code exchange.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
	User    User   `json:"user"`
}

// Post is a content item with its aggregate counters and the per-viewer
// interaction flags embedded by the server.
type Post struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	User       *UserMini `json:"user,omitempty"`
	ParentPost *int64    `json:"parent_post,omitempty"`

	IsRetweet     bool  `json:"is_retweet,omitempty"`
	RetweetCount  int   `json:"retweet_count"`
	LikeCount     int   `json:"like_count"`
	ReplyCount    int   `json:"reply_count,omitempty"`
	BookmarkCount int   `json:"bookmark_count,omitempty"`

	IsLikedByUser      bool `json:"is_liked_by_user"`
	IsBookmarkedByUser bool `json:"is_bookmarked_by_user"`
	IsRetweetedByUser  bool `json:"is_retweeted_by_user"`
}

// OwnerID returns the post owner's user id, or 0 when the server omitted it.
func (p *Post) OwnerID() int64 {
	if p.User != nil {
		return p.User.ID
	}
	return 0
}

// Like is one like record. The list endpoint is the only way to map a
// (user, post) pair back to a record id.
type Like struct {
	ID        int64     `json:"id"`
	Post      int64     `json:"post"`
	User      int64     `json:"user"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Bookmark is one bookmark record. Unlike likes, the post reference is a
// nested object.
type Bookmark struct {
	ID        int64     `json:"id"`
	Post      PostRef   `json:"post"`
	User      int64     `json:"user"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// PostRef is the minimal nested post reference on bookmark records.
type PostRef struct {
	ID int64 `json:"id"`
}

// Follow is one follow edge.
type Follow struct {
	ID                int64  `json:"id"`
	Follower          int64  `json:"follower"`
	Following         int64  `json:"following"`
	FollowerUsername  string `json:"follower_username,omitempty"`
	FollowingUsername string `json:"following_username,omitempty"`
}

// Notification is a single inbox entry.
type Notification struct {
	ID            int64     `json:"id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	Verb          string    `json:"verb"`
	TargetID      *int64    `json:"target_id,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
}

// RegisterRequest is the registration payload. AcceptedLegalPolicies must be
// true; the server rejects the request otherwise.
type RegisterRequest struct {
	Username              string `json:"username"`
	Email                 string `json:"email"`
	Password              string `json:"password"`
	AcceptedLegalPolicies bool   `json:"accepted_legal_policies"`
}

// ListParams are the common pagination and search parameters on list
// endpoints.
type ListParams struct {
	Search string
	Limit  int
	Offset int
}

// page is the paginated envelope list endpoints usually return. Some
// endpoints return a bare array instead, so decoding tries both.
type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// decodeList accepts either a paginated envelope or a bare JSON array.
func decodeList[T any](data []byte) ([]T, error) {
	var bare []T
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var p page[T]
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode list payload: %w", err)
	}
	if p.Results == nil {
		return []T{}, nil
	}
	return p.Results, nil
}
