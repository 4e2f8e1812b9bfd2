package parser

import (
	"regexp"
	"strings"
)

var (
	matchFrom     = regexp.MustCompile(`from:<@(\d*)>`)
	matchMentions = regexp.MustCompile(`mentions:<@(\d*)>`)
	matchHas      = regexp.MustCompile(`has:(link|embed|file|video|image|sound|sticker)`)
	matchBefore   = regexp.MustCompile(`before:(\d{4}-\d{2}-\d{2})`)
	matchAfter    = regexp.MustCompile(`after:(\d{4}-\d{2}-\d{2})`)
	matchIn       = regexp.MustCompile(`in:<#(\d*)>`)
	matchPinned   = regexp.MustCompile(`pinned:(true|false)`)
)

// SearchQuery is a parsed search-string: free text plus every recognized
// operator, each of which is stripped out of the returned text.
type SearchQuery struct {
	Text      string
	ChannelID []string
	AuthorID  []string
	Has       []string
	MaxID     []string // before: converted to a day-start snowflake upper bound
	MinID     []string // after: converted to a day-end snowflake lower bound
	Pinned    []string
}

// ParseSearchString extracts from:/mentions:/has:/before:/after:/in:/
// pinned: operators out of free-form search text, converting date
// operators to snowflake bounds via DateToSnowflake.
func ParseSearchString(text string) SearchQuery {
	var q SearchQuery

	text = extractAll(text, matchFrom, func(id string) { q.AuthorID = append(q.AuthorID, id) })
	text = extractAll(text, matchMentions, func(id string) { q.AuthorID = append(q.AuthorID, id) })
	text = extractAll(text, matchHas, func(kind string) { q.Has = append(q.Has, kind) })
	text = extractAll(text, matchBefore, func(date string) { q.MaxID = append(q.MaxID, DateToSnowflake(date, false)) })
	text = extractAll(text, matchAfter, func(date string) { q.MinID = append(q.MinID, DateToSnowflake(date, true)) })
	text = extractAll(text, matchIn, func(id string) { q.ChannelID = append(q.ChannelID, id) })
	text = extractAll(text, matchPinned, func(v string) { q.Pinned = append(q.Pinned, v) })

	q.Text = strings.TrimSpace(text)
	return q
}

// extractAll removes every match of re from text, invoking fn with each
// match's first capture group, and returns the remaining text.
func extractAll(text string, re *regexp.Regexp, fn func(string)) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		fn(m[1])
	}
	return re.ReplaceAllString(text, "")
}
