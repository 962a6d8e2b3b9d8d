package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/tern-social/tern-cli/internal/toggle"
)

type LikeCmd struct {
	ID int64 `arg:"" help:"Post id to like or unlike"`
}

func (l *LikeCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	post, err := app.client.Post(ctx, l.ID)
	if err != nil {
		return renderCallError(err)
	}

	toggler := toggle.NewLikes(app.client, identity.ID)
	toggler.Apply = func(f toggle.Flag) {
		fmt.Printf("likes:%d liked:%v\n", f.Count, f.Active)
	}

	flag := toggle.Flag{TargetID: l.ID, Active: post.IsLikedByUser, Count: post.LikeCount}
	updated, err := toggler.Toggle(ctx, flag)
	if err != nil {
		var re *toggle.ReconciliationError
		if errors.As(err, &re) {
			return fmt.Errorf("%s, nothing changed", re.Op)
		}
		return renderCallError(err)
	}

	if updated.Active {
		fmt.Printf("Liked post %d\n", l.ID)
	} else {
		fmt.Printf("Unliked post %d\n", l.ID)
	}
	return nil
}

type BookmarkCmd struct {
	ID int64 `arg:"" help:"Post id to bookmark or unbookmark"`
}

func (b *BookmarkCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	post, err := app.client.Post(ctx, b.ID)
	if err != nil {
		return renderCallError(err)
	}

	toggler := toggle.NewBookmarks(app.client, identity.ID)

	flag := toggle.Flag{TargetID: b.ID, Active: post.IsBookmarkedByUser, Count: post.BookmarkCount}
	updated, err := toggler.Toggle(ctx, flag)
	if err != nil {
		var re *toggle.ReconciliationError
		if errors.As(err, &re) {
			return fmt.Errorf("%s, nothing changed", re.Op)
		}
		return renderCallError(err)
	}

	if updated.Active {
		fmt.Printf("Bookmarked post %d\n", b.ID)
	} else {
		fmt.Printf("Removed bookmark on post %d\n", b.ID)
	}
	return nil
}

type RetweetCmd struct {
	ID int64 `arg:"" help:"Post id to retweet or unretweet"`
}

func (r *RetweetCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	identity, err := app.guard.Require()
	if err != nil {
		fmt.Println(loginHint())
		return nil
	}

	post, err := app.client.Post(ctx, r.ID)
	if err != nil {
		return renderCallError(err)
	}

	toggler := toggle.NewRetweets(app.client, identity.ID)
	toggler.Apply = func(f toggle.Flag) {
		fmt.Printf("retweets:%d retweeted:%v\n", f.Count, f.Active)
	}

	flag := toggle.Flag{TargetID: r.ID, Active: post.IsRetweetedByUser, Count: post.RetweetCount}
	updated, err := toggler.Toggle(ctx, flag, post.OwnerID())
	if err != nil {
		if errors.Is(err, toggle.ErrOwnPost) {
			return fmt.Errorf("you cannot retweet your own post")
		}
		var re *toggle.ReconciliationError
		if errors.As(err, &re) {
			return fmt.Errorf("%s, nothing changed", re.Op)
		}
		return renderCallError(err)
	}

	if updated.Active {
		fmt.Printf("Retweeted post %d\n", r.ID)
	} else {
		fmt.Printf("Unretweeted post %d\n", r.ID)
	}
	return nil
}
