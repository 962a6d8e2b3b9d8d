package commands

import (
	"context"
	"fmt"

	"github.com/tern-social/tern-cli/internal/api"
)

type BookmarksCmd struct {
	Limit int `help:"Maximum number of bookmarks" default:"20"`
}

func (b *BookmarksCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	bookmarks, err := app.client.Bookmarks(ctx, api.ListParams{Limit: b.Limit})
	if err != nil {
		return renderCallError(err)
	}

	if len(bookmarks) == 0 {
		fmt.Println("No bookmarks yet")
		return nil
	}
	for _, bm := range bookmarks {
		post, err := app.client.Post(ctx, bm.Post.ID)
		if err != nil {
			fmt.Printf("[%d] post %d (unavailable)\n", bm.ID, bm.Post.ID)
			continue
		}
		fmt.Printf("[%d]\n%s\n", post.ID, app.render.Post(*post))
	}
	return nil
}

type FollowCmd struct {
	UserID int64 `arg:"" help:"User id to follow"`
}

func (f *FollowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	follow, err := app.client.CreateFollow(ctx, f.UserID)
	if err != nil {
		return renderCallError(err)
	}

	name := follow.FollowingUsername
	if name == "" {
		name = fmt.Sprintf("user %d", f.UserID)
	}
	fmt.Printf("Following %s\n", name)
	return nil
}

type UnfollowCmd struct {
	UserID int64 `arg:"" help:"User id to unfollow"`
}

func (u *UnfollowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	// Follows have no lookup by (follower, following); resolve the edge id
	// from the list, the same way like and bookmark records are resolved.
	follows, err := app.client.Follows(ctx, api.ListParams{})
	if err != nil {
		return renderCallError(err)
	}

	for _, edge := range follows {
		if edge.Follower == identity.ID && edge.Following == u.UserID {
			if err := app.client.DeleteFollow(ctx, edge.ID); err != nil {
				return renderCallError(err)
			}
			fmt.Printf("Unfollowed user %d\n", u.UserID)
			return nil
		}
	}

	fmt.Printf("You are not following user %d\n", u.UserID)
	return nil
}

type FollowsCmd struct{}

func (f *FollowsCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	follows, err := app.client.Follows(ctx, api.ListParams{})
	if err != nil {
		return renderCallError(err)
	}

	for _, edge := range follows {
		if edge.Follower == identity.ID {
			name := edge.FollowingUsername
			if name == "" {
				name = fmt.Sprintf("user %d", edge.Following)
			}
			fmt.Printf("following %s\n", name)
		}
	}
	return nil
}

type NotificationsCmd struct {
	Limit    int   `help:"Maximum number of notifications" default:"20"`
	MarkRead int64 `help:"Mark one notification as read by id"`
}

func (n *NotificationsCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	if n.MarkRead != 0 {
		if err := app.client.MarkNotificationRead(ctx, n.MarkRead); err != nil {
			return renderCallError(err)
		}
		fmt.Printf("Marked notification %d as read\n", n.MarkRead)
		return nil
	}

	notifications, err := app.client.Notifications(ctx, api.ListParams{Limit: n.Limit})
	if err != nil {
		return renderCallError(err)
	}

	if len(notifications) == 0 {
		fmt.Println("No notifications")
		return nil
	}
	for _, entry := range notifications {
		fmt.Printf("[%d] %s\n", entry.ID, app.render.Notification(entry))
	}
	return nil
}
