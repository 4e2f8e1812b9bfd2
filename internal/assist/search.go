package assist

import (
	"fmt"

	"github.com/discord-terminal/engine/internal/perms"
	"github.com/discord-terminal/engine/internal/state"
)

const (
	defaultLimit       = 50
	defaultScoreCutoff = 15
)

func channelLabel(ch state.Channel, guildName string) string {
	switch ch.Type {
	case 2:
		if guildName != "" {
			return fmt.Sprintf("%s - voice (%s)", ch.Name, guildName)
		}
		return fmt.Sprintf("%s - voice", ch.Name)
	case 11, 12:
		return fmt.Sprintf("%s - thread", ch.Name)
	case 15:
		return fmt.Sprintf("%s - forum", ch.Name)
	default:
		return ch.Name
	}
}

// SearchChannelsInGuild searches one guild's permitted, non-category
// channels by name, formatting voice/thread/forum channels with a
// type suffix.
func SearchChannelsInGuild(channels []state.Channel, permitted map[string]perms.Channel, query string) []Result {
	c := NewTopKCollector(defaultLimit, defaultScoreCutoff)
	for _, ch := range channels {
		if ch.Type == 4 {
			continue
		}
		if p, ok := permitted[ch.ID]; !ok || !p.Permitted {
			continue
		}
		label := channelLabel(ch, "")
		c.Offer(label, ch.ID, Score(query, label))
	}
	return c.Results()
}

// SearchEverywhere searches guilds, categories, channels, and DMs in one
// pass, the autocomplete used by goto/mute/mark-as-read style commands
// that can target any of the above. includeGuildsAndCategories widens
// the scope beyond plain channel/DM targets (commands that also accept a
// whole guild or category as their target).
func SearchEverywhere(guilds []state.Guild, dms []state.DM, permittedByGuild map[string]map[string]perms.Channel, query string, includeGuildsAndCategories bool) []Result {
	c := NewTopKCollector(defaultLimit, defaultScoreCutoff)

	for _, dm := range dms {
		label := dm.Name + " (DM)"
		c.Offer(label, dm.ID, Score(query, label)*4) // DMs ranked above guild content
	}

	for _, g := range guilds {
		permitted := permittedByGuild[g.ID]
		if includeGuildsAndCategories {
			label := g.Name + " - server"
			c.Offer(label, g.ID, Score(query, label)*2)
		}
		for _, ch := range g.Channels {
			p, ok := permitted[ch.ID]
			if !ok || !p.Permitted {
				continue
			}
			if ch.Type == 4 && !includeGuildsAndCategories {
				continue
			}
			label := channelLabel(ch, g.Name)
			if ch.Type == 4 {
				label = ch.Name + " - category (" + g.Name + ")"
			}
			c.Offer(label, ch.ID, Score(query, label))
		}
	}
	return c.Results()
}

// Member is the subset of a guild member activity entry search ranks.
type Member struct {
	ID         string
	Username   string
	GlobalName string
	Nick       string
}

func memberLabel(m Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.GlobalName != "":
		return m.GlobalName
	default:
		return m.Username
	}
}

// SearchMembers ranks known members (and, since roles mention-complete
// the same way, is also used with role-shaped candidates via the same
// label/id contract) by display-name fuzzy score.
func SearchMembers(members []Member, query string) []Result {
	c := NewTopKCollector(defaultLimit, defaultScoreCutoff)
	for _, m := range members {
		label := memberLabel(m)
		c.Offer(label, m.ID, Score(query, label))
	}
	return c.Results()
}

// Role is a guild role as a mention-autocomplete candidate.
type Role struct {
	ID   string
	Name string
}

// SearchRoles ranks roles by name for @role mention completion.
func SearchRoles(roles []Role, query string) []Result {
	c := NewTopKCollector(defaultLimit, defaultScoreCutoff)
	for _, r := range roles {
		c.Offer(r.Name, r.ID, Score(query, r.Name))
	}
	return c.Results()
}

// Emoji is a custom emoji as a :shortcode: completion candidate.
type Emoji struct {
	ID      string
	Name    string
	GuildID string
}

// SearchEmoji ranks a guild's custom emoji by name.
func SearchEmoji(emoji []Emoji, query string) []Result {
	c := NewTopKCollector(defaultLimit, defaultScoreCutoff)
	for _, e := range emoji {
		c.Offer(e.Name, e.ID, Score(query, e.Name))
	}
	return c.Results()
}

// ClientCommand is a locally-defined (non-app) slash-style command.
type ClientCommand struct {
	Name string
}

// SearchClientCommands ranks the engine's own command set for the
// command-palette autocomplete.
func SearchClientCommands(commands []ClientCommand, query string) []Result {
	c := NewTopKCollector(defaultLimit, defaultScoreCutoff)
	for _, cmd := range commands {
		c.Offer(cmd.Name, cmd.Name, Score(query, cmd.Name))
	}
	return c.Results()
}
