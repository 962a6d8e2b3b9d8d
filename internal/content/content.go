// Package content extracts hashtags and mentions from post text and renders
// posts for the terminal.
package content

import (
	"regexp"
	"strings"
)

var (
	tokenRe   = regexp.MustCompile(`#\w+|@\w+`)
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	mentionRe = regexp.MustCompile(`@(\w+)`)
)

// Hashtags returns the distinct hashtags in content, without the leading
// '#', in order of first appearance.
func Hashtags(content string) []string {
	return extract(hashtagRe, content)
}

// Mentions returns the distinct mentioned usernames in content, without the
// leading '@', in order of first appearance.
func Mentions(content string) []string {
	return extract(mentionRe, content)
}

func extract(re *regexp.Regexp, content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, match := range re.FindAllStringSubmatch(content, -1) {
		tag := match[1]
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
