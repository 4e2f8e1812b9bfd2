package state

import (
	"sort"
	"strconv"
	"sync"
)

// memberRoleCacheCap bounds the per-guild member-role cache at roughly the
// size of one screen's worth of visible authors; FIFO-evicted past that.
const memberRoleCacheCap = 50

// channelCacheCap bounds the number of channel tabs snapshotted in memory
// at once; pinned tabs are exempt (invariant ii).
const channelCacheCap = 10

// memberListCap mirrors GUILD_MEMBER_LIST_UPDATE's own "first 99" SYNC
// convention, rounded up to a clean 100.
const memberListCap = 100

// deletedCacheCap bounds the per-channel deleted-message cache restored
// into a page when keep-deleted is enabled.
const deletedCacheCap = 100

// Store is the engine's authoritative local mirror of everything the
// gateway reports. All mutators assume single-owner (controller-tick)
// access; the mutex exists only to make concurrent reads from a renderer
// goroutine safe, not to serialize writers against each other.
type Store struct {
	mu sync.RWMutex

	myID       string
	myUserData MyUser

	guilds []Guild
	dms    []DM

	memberRoles map[string][]MemberRoles // guild_id -> FIFO cache
	activities  map[string]*GuildActivities

	messages    map[string][]Message // channel_id -> buffer, newest first
	deleted     map[string][]Message // channel_id -> bounded deleted cache
	channelTabs []ChannelTab

	readStates map[string]*ReadState
	calls      map[string]Call

	voice        *VoiceSession
	keepDeleted  bool
	chatBufferCap int
}

// MyUser is the local account's own user object, as latched from READY.
type MyUser struct {
	ID         string
	Username   string
	GlobalName string
	Bot        bool
}

// ChannelTab is one snapshotted channel in the tab cache.
type ChannelTab struct {
	ChannelID string
	Messages  []Message
	Pinned    bool
}

// New constructs an empty store. chatBufferCap bounds each channel's
// live message buffer and is clamped here to [50,1000]; keepDeleted
// controls whether MESSAGE_DELETE flags or drops.
func New(chatBufferCap int, keepDeleted bool) *Store {
	if chatBufferCap < 50 {
		chatBufferCap = 50
	}
	if chatBufferCap > 1000 {
		chatBufferCap = 1000
	}
	return &Store{
		memberRoles:   make(map[string][]MemberRoles),
		activities:    make(map[string]*GuildActivities),
		messages:      make(map[string][]Message),
		deleted:       make(map[string][]Message),
		readStates:    make(map[string]*ReadState),
		keepDeleted:   keepDeleted,
		chatBufferCap: chatBufferCap,
	}
}

// snowflakeLess compares two snowflake-shaped ids numerically, treating
// an empty id as the smallest possible value.
func snowflakeLess(a, b string) bool {
	if a == b {
		return false
	}
	if a == "" {
		return b != ""
	}
	if b == "" {
		return false
	}
	an, aerr := strconv.ParseUint(a, 10, 64)
	bn, berr := strconv.ParseUint(b, 10, 64)
	if aerr != nil || berr != nil {
		return a < b
	}
	return an < bn
}

// SnowflakeLess exposes the store's snowflake ordering for callers outside
// the package (the controller's scroll-anchor computation, notably) that
// need the same empty-is-smallest comparison.
func SnowflakeLess(a, b string) bool {
	return snowflakeLess(a, b)
}

// SetMyUserData latches the local account's identity, as reported on
// READY or USER_UPDATE.
func (s *Store) SetMyUserData(u MyUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myID = u.ID
	s.myUserData = u
}

// MyID returns the local account's id.
func (s *Store) MyID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.myID
}

func sortRoles(roles []Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Position > roles[j].Position
	})
	sort.SliceStable(roles, func(i, j int) bool {
		iColored := roles[i].Color != 0
		jColored := roles[j].Color != 0
		return iColored && !jColored
	})
}

func sortThreads(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return snowflakeLess(threads[j].ID, threads[i].ID) // desc
	})
}

func sortDMs(dms []DM) {
	sort.SliceStable(dms, func(i, j int) bool {
		return snowflakeLess(dms[j].LastMessageID, dms[i].LastMessageID) // desc
	})
}

func sortChannels(channels []Channel) {
	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].Position < channels[j].Position
	})
}
