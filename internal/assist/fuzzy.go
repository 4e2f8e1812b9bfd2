// Package assist implements fuzzy-match scoring and the per-kind
// search/autocomplete passes the command line drives as the user types:
// channels, guilds, DMs, members, emoji, and client/app command names.
package assist

import "strings"

// ScoreSingle scores a fuzzy match of one query word against a candidate
// string: consecutive character matches score higher, and matches
// closer to the start of the candidate score higher still. Returns 0 if
// the query's characters do not all appear in order in the candidate.
func ScoreSingle(query, candidate string) int {
	queryLower := []rune(strings.ToLower(query))
	candidateLower := []rune(strings.ToLower(candidate))
	qlen, clen := len(queryLower), len(candidateLower)

	qpos, cpos := 0, 0
	score := 0
	lastMatchPos := -1
	firstMatchPos := -1

	for qpos < qlen && cpos < clen {
		if queryLower[qpos] == candidateLower[cpos] {
			if lastMatchPos == cpos-1 {
				score += 10 // consecutive match
			} else {
				score++ // match after a gap
			}
			if firstMatchPos < 0 {
				firstMatchPos = cpos
			}
			lastMatchPos = cpos
			qpos++
		}
		cpos++
	}
	if qpos != qlen {
		return 0
	}
	bonus := 10 - firstMatchPos
	if bonus < 0 {
		bonus = 0
	}
	return score + bonus
}

// Score scores a (possibly multi-word) query against a candidate: every
// word must match somewhere in the candidate or the whole query scores 0.
// Per-word scores are multiplied together.
func Score(query, candidate string) int {
	total := 1
	for _, word := range strings.Fields(query) {
		s := ScoreSingle(word, candidate)
		if s == 0 {
			return 0
		}
		total *= s
	}
	return total
}
