package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/tern-social/tern-cli/internal/api"
	"github.com/tern-social/tern-cli/internal/content"
)

type FeedCmd struct{}

func (f *FeedCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	posts, err := app.client.HomeFeed(ctx)
	if err != nil {
		return renderCallError(err)
	}

	if len(posts) == 0 {
		fmt.Println("Your feed is empty. Follow someone to get started.")
		return nil
	}
	for _, p := range posts {
		fmt.Printf("[%d]\n%s\n", p.ID, app.render.Post(p))
	}
	return nil
}

type PostsCmd struct {
	Search string `help:"Search term"`
	Limit  int    `help:"Maximum number of posts" default:"20"`
	Offset int    `help:"Pagination offset"`
}

func (p *PostsCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	posts, err := app.client.Posts(ctx, api.ListParams{Search: p.Search, Limit: p.Limit, Offset: p.Offset})
	if err != nil {
		return renderCallError(err)
	}

	for _, post := range posts {
		fmt.Printf("[%d]\n%s\n", post.ID, app.render.Post(post))
	}
	return nil
}

type ShowCmd struct {
	ID int64 `arg:"" help:"Post id"`
}

func (s *ShowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	post, err := app.client.Post(ctx, s.ID)
	if err != nil {
		return renderCallError(err)
	}

	fmt.Print(app.render.Post(*post))

	if tags := content.Hashtags(post.Content); len(tags) > 0 {
		fmt.Printf("hashtags: %s\n", strings.Join(tags, ", "))
	}
	if mentions := content.Mentions(post.Content); len(mentions) > 0 {
		fmt.Printf("mentions: %s\n", strings.Join(mentions, ", "))
	}
	return nil
}

type ComposeCmd struct {
	Content string `arg:"" help:"Post content"`
	ReplyTo int64  `help:"Post id to reply to"`
}

func (c *ComposeCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	var parent *int64
	if c.ReplyTo != 0 {
		parent = &c.ReplyTo
	}

	post, err := app.client.CreatePost(ctx, c.Content, parent)
	if err != nil {
		return renderCallError(err)
	}

	fmt.Printf("Posted [%d]\n", post.ID)
	if tags := content.Hashtags(c.Content); len(tags) > 0 {
		fmt.Printf("hashtags: %s\n", strings.Join(tags, ", "))
	}
	return nil
}

type SearchCmd struct {
	Query string `arg:"" help:"Search term"`
}

func (s *SearchCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	posts, err := app.client.Search(ctx, s.Query)
	if err != nil {
		return renderCallError(err)
	}

	if len(posts) == 0 {
		fmt.Printf("No results for %q\n", s.Query)
		return nil
	}
	for _, post := range posts {
		fmt.Printf("[%d]\n%s\n", post.ID, app.render.Post(post))
	}
	return nil
}

type DeleteCmd struct {
	ID int64 `arg:"" help:"Post id to delete"`
}

func (d *DeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if _, err := app.guard.Require(); err != nil {
		fmt.Println(loginHint())
		return nil
	}

	if err := app.client.DeletePost(ctx, d.ID); err != nil {
		return renderCallError(err)
	}

	fmt.Printf("Deleted post %d\n", d.ID)
	return nil
}
