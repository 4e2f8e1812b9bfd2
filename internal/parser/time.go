// Package parser turns raw command-line text into typed commands and
// search queries: snowflake/date conversion, a relative time-string
// grammar (1w2d3h), a search-operator query grammar, and the client
// command grammar the controller dispatches on.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const discordEpochMS = 1420070400000

var matchTimeWithUnit = regexp.MustCompile(`(\d+)([wdhms])`)

var timeUnits = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 604800,
}

// DateToSnowflake converts a "YYYY-MM-DD" date string to a snowflake-
// shaped id rounded to day start (or day end, if end is true), clamped
// to not exceed the current time. An unparseable date falls back to
// today at midnight, matching the reference client's fallback.
func DateToSnowflake(date string, end bool) string {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		now := time.Now()
		t = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	}
	if t.Unix() > time.Now().Unix() {
		now := time.Now().UTC()
		t = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if end {
		t = t.Add(24 * time.Hour)
	}
	snowflake := (t.UnixMilli() - discordEpochMS) << 22
	return strconv.FormatInt(snowflake, 10)
}

// TimeStringSeconds parses a relative duration string like "1w2d3h4m5s"
// (any subset, any order) into total seconds. A bare integer is taken as
// already-seconds. An unparseable string yields 0.
func TimeStringSeconds(s string) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	var total int64
	for _, m := range matchTimeWithUnit.FindAllStringSubmatch(strings.ToLower(s), -1) {
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		total += value * timeUnits[m[2]]
	}
	return total
}
