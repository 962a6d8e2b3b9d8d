package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tern-social/tern-cli/internal/api"
)

// Renderer formats posts and notifications for terminal output. Styles
// degrade to plain text on non-colour terminals.
type Renderer struct {
	username lipgloss.Style
	token    lipgloss.Style
	meta     lipgloss.Style
	active   lipgloss.Style
}

// NewRenderer creates a renderer with the default styles.
func NewRenderer() *Renderer {
	return &Renderer{
		username: lipgloss.NewStyle().Bold(true),
		token:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		active:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Post renders one post card: author line, content with highlighted hashtags
// and mentions, and a counter line marking the viewer's own flags.
func (r *Renderer) Post(p api.Post) string {
	var b strings.Builder

	author := "unknown"
	if p.User != nil {
		author = "@" + p.User.Username
	}
	b.WriteString(r.username.Render(author))
	if !p.CreatedAt.IsZero() {
		b.WriteString("  ")
		b.WriteString(r.meta.Render(relativeTime(p.CreatedAt)))
	}
	b.WriteString("\n")

	b.WriteString(r.Highlight(p.Content))
	b.WriteString("\n")

	b.WriteString(r.counter("likes", p.LikeCount, p.IsLikedByUser))
	b.WriteString("  ")
	b.WriteString(r.counter("retweets", p.RetweetCount, p.IsRetweetedByUser))
	b.WriteString("  ")
	b.WriteString(r.counter("replies", p.ReplyCount, false))
	if p.IsBookmarkedByUser {
		b.WriteString("  ")
		b.WriteString(r.active.Render("bookmarked"))
	}
	b.WriteString("\n")

	return b.String()
}

// Notification renders one inbox entry.
func (r *Renderer) Notification(n api.Notification) string {
	var b strings.Builder

	if !n.IsRead {
		b.WriteString(r.active.Render("* "))
	} else {
		b.WriteString("  ")
	}
	if n.ActorUsername != "" {
		b.WriteString(r.username.Render("@" + n.ActorUsername))
		b.WriteString(" ")
	}
	b.WriteString(n.Verb)
	if n.TargetID != nil {
		b.WriteString(r.meta.Render(fmt.Sprintf(" (post %d)", *n.TargetID)))
	}

	return b.String()
}

// Highlight styles hashtags and mentions within content, leaving the rest
// untouched.
func (r *Renderer) Highlight(content string) string {
	return tokenRe.ReplaceAllStringFunc(content, func(tok string) string {
		return r.token.Render(tok)
	})
}

func (r *Renderer) counter(label string, count int, active bool) string {
	s := fmt.Sprintf("%s:%d", label, count)
	if active {
		return r.active.Render(s)
	}
	return r.meta.Render(s)
}

// relativeTime formats an absolute time as "3h ago" style text.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
