package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/tern-social/tern-cli/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login         commands.LoginCmd         `cmd:"" help:"Log in with a password or Google"`
		Logout        commands.LogoutCmd        `cmd:"" help:"Log out and clear the local session"`
		Register      commands.RegisterCmd      `cmd:"" help:"Create an account"`
		Whoami        commands.WhoamiCmd        `cmd:"" help:"Show the current identity"`
		VerifyEmail   commands.VerifyEmailCmd   `cmd:"" help:"Wait for email verification"`
		Feed          commands.FeedCmd          `cmd:"" help:"Show the home feed"`
		Posts         commands.PostsCmd         `cmd:"" help:"List or search posts"`
		Show          commands.ShowCmd          `cmd:"" help:"Show a post"`
		Search        commands.SearchCmd        `cmd:"" help:"Search posts"`
		Compose       commands.ComposeCmd       `cmd:"" help:"Compose a post or reply"`
		Delete        commands.DeleteCmd        `cmd:"" help:"Delete a post"`
		Like          commands.LikeCmd          `cmd:"" help:"Toggle a like"`
		Bookmark      commands.BookmarkCmd      `cmd:"" help:"Toggle a bookmark"`
		Retweet       commands.RetweetCmd       `cmd:"" help:"Toggle a retweet"`
		Bookmarks     commands.BookmarksCmd     `cmd:"" help:"List bookmarks"`
		Follow        commands.FollowCmd        `cmd:"" help:"Follow a user"`
		Unfollow      commands.UnfollowCmd      `cmd:"" help:"Unfollow a user"`
		Follows       commands.FollowsCmd       `cmd:"" help:"List who you follow"`
		Notifications commands.NotificationsCmd `cmd:"" help:"List notifications"`
		Profile       commands.ProfileCmd       `cmd:"" help:"Show or update your profile"`
		Password      commands.PasswordCmd      `cmd:"" help:"Change your password"`
		Server        string                    `help:"Server URL" env:"TERN_SERVER"`
		Config        string                    `help:"Config file path" env:"TERN_CONFIG"`
		Debug         bool                      `help:"Enable debug mode."`
		Version       kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Server:  cli.Server,
		Config:  cli.Config,
		Debug:   cli.Debug,
		Version: version,
	})
	cmd.FatalIfErrorf(err)
}
