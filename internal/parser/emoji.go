package parser

import "regexp"

var matchShortcode = regexp.MustCompile(`:([a-z0-9_+-]+):`)

// standardShortcodes is a small, representative subset of the standard
// emoji shortcode table -- the common ones a chat client's compose box
// needs inline, not a full Unicode CLDR mapping.
var standardShortcodes = map[string]string{
	"smile":      "\U0001F604",
	"grin":       "\U0001F601",
	"joy":        "\U0001F602",
	"heart":      "❤️",
	"thumbsup":   "\U0001F44D",
	"thumbsdown": "\U0001F44E",
	"fire":       "\U0001F525",
	"eyes":       "\U0001F440",
	"wave":       "\U0001F44B",
	"tada":       "\U0001F389",
	"thinking":   "\U0001F914",
	"cry":        "\U0001F622",
	"100":        "\U0001F4AF",
	"rocket":     "\U0001F680",
}

// DemojizeShortcodes replaces :shortcode: occurrences with their standard
// emoji glyph, leaving custom-guild-emoji shortcodes (<a:name:id> form is
// produced by the assist autocomplete step, not this function) and unknown
// shortcodes untouched.
func DemojizeShortcodes(text string) string {
	return matchShortcode.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if glyph, ok := standardShortcodes[name]; ok {
			return glyph
		}
		return match
	})
}
