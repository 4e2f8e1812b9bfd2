package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// CommandType enumerates the client command grammar's recognized verbs.
// Numbering follows the reference client's own command_type ordering so
// any ported default keybindings stay meaningful.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandSet
	CommandBottom
	CommandGoReply
	CommandDownload
	CommandOpenLink
	CommandPlay
	CommandCancel
	CommandCopyMessage
	CommandUpload
	CommandSpoil
	CommandToggleThreadTree
	CommandProfile
	CommandChannel
	CommandHide
	CommandSearch
	CommandGoto
	CommandViewProfilePicture
	CommandToggleMute
	CommandReact
	CommandShowReactions
	CommandStatus
	CommandMemberList
)

var matchSetting = regexp.MustCompile(`(\w+)\s*=\s*(.+)`)
var matchChannelRef = regexp.MustCompile(`<#(\d*)>`)
var matchProfileRef = regexp.MustCompile(`<@(\d*)>`)

var statusStrings = []string{"online", "idle", "dnd", "invisible"}

// Command is a parsed command: its type plus loosely-typed arguments,
// since each command type has its own argument shape.
type Command struct {
	Type CommandType
	Args map[string]string
}

// ParseCommand parses one line of command-line input into a Command.
// An unrecognized verb, a set without key = value, or a goto without a
// channel reference yields CommandUnknown; other verbs whose argument fails
// to parse keep their type and carry no argument.
func ParseCommand(text string) Command {
	lower := strings.ToLower(text)

	switch {
	case strings.HasPrefix(lower, "set "):
		m := matchSetting.FindStringSubmatch(text)
		if m == nil {
			return Command{Type: CommandUnknown}
		}
		return Command{Type: CommandSet, Args: map[string]string{"key": m[1], "value": m[2]}}

	case strings.HasPrefix(lower, "bottom"):
		return Command{Type: CommandBottom}

	case strings.HasPrefix(lower, "go_reply"):
		return Command{Type: CommandGoReply}

	case strings.HasPrefix(lower, "download"):
		return withNumArg(text, CommandDownload)

	case strings.HasPrefix(lower, "open_link"):
		return withNumArg(text, CommandOpenLink)

	case strings.HasPrefix(lower, "play"):
		return withNumArg(text, CommandPlay)

	case strings.HasPrefix(lower, "cancel"):
		return Command{Type: CommandCancel}

	case strings.HasPrefix(lower, "copy_message"):
		return Command{Type: CommandCopyMessage}

	case strings.HasPrefix(lower, "upload"):
		path := strings.TrimSpace(safeSlice(text, 7))
		return Command{Type: CommandUpload, Args: map[string]string{"path": path}}

	case strings.HasPrefix(lower, "spoil"):
		return withNumArg(text, CommandSpoil)

	case strings.HasPrefix(lower, "toggle_thread_tree"):
		return Command{Type: CommandToggleThreadTree}

	case strings.HasPrefix(lower, "profile"):
		return withChannelOrProfileRef(text, CommandProfile, "user_id", matchProfileRef)

	case strings.HasPrefix(lower, "channel"):
		return withChannelOrProfileRef(text, CommandChannel, "channel_id", matchChannelRef)

	case strings.HasPrefix(lower, "hide"):
		return withChannelOrProfileRef(text, CommandHide, "channel_id", matchChannelRef)

	case strings.HasPrefix(lower, "search"):
		return Command{Type: CommandSearch, Args: map[string]string{"search_text": strings.TrimSpace(safeSlice(text, 7))}}

	case strings.HasPrefix(lower, "goto") || strings.HasPrefix(lower, "xyzzy"):
		if m := matchChannelRef.FindStringSubmatch(text); m != nil {
			return Command{Type: CommandGoto, Args: map[string]string{"channel_id": m[1]}}
		}
		if strings.HasPrefix(lower, "xyzzy") {
			return Command{Type: CommandGoto, Args: map[string]string{"channel_id": "special"}}
		}
		return Command{Type: CommandUnknown}

	case strings.HasPrefix(lower, "view_pfp"):
		return withChannelOrProfileRef(text, CommandViewProfilePicture, "user_id", matchProfileRef)

	case strings.HasPrefix(lower, "toggle_mute"):
		return withChannelOrProfileRef(text, CommandToggleMute, "channel_id", matchChannelRef)

	case strings.HasPrefix(lower, "react"):
		return Command{Type: CommandReact, Args: map[string]string{"react_text": strings.TrimSpace(safeSlice(text, 6))}}

	case strings.HasPrefix(lower, "show_reactions"):
		return Command{Type: CommandShowReactions}

	case strings.HasPrefix(lower, "status"):
		return parseStatusCommand(text)

	case strings.HasPrefix(lower, "member_list"):
		return Command{Type: CommandMemberList}
	}

	return Command{Type: CommandUnknown}
}

func withNumArg(text string, t CommandType) Command {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Command{Type: t}
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return Command{Type: t}
	}
	return Command{Type: t, Args: map[string]string{"num": fields[1]}}
}

func withChannelOrProfileRef(text string, t CommandType, key string, re *regexp.Regexp) Command {
	if m := re.FindStringSubmatch(text); m != nil {
		return Command{Type: t, Args: map[string]string{key: m[1]}}
	}
	return Command{Type: t}
}

func parseStatusCommand(text string) Command {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Command{Type: CommandStatus}
	}
	arg := strings.ToLower(fields[1])
	for _, s := range statusStrings {
		if arg == s {
			return Command{Type: CommandStatus, Args: map[string]string{"status": s}}
		}
	}
	if n, err := strconv.Atoi(arg); err == nil {
		idx := n - 1
		if idx >= 0 && idx < len(statusStrings) {
			return Command{Type: CommandStatus, Args: map[string]string{"status": statusStrings[idx]}}
		}
	}
	return Command{Type: CommandStatus}
}

func safeSlice(s string, from int) string {
	if from > len(s) {
		return ""
	}
	return s[from:]
}
