package config

// Profile is one saved login entry in the profiles file, §6 "Persisted
// state". Token may be left empty when the caller instead resolves it from
// the OS keyring (an external collaborator, §1 out-of-scope) at load time.
type Profile struct {
	Name  string `json:"name" validate:"required"`
	Token string `json:"token,omitempty"`
	Time  int64  `json:"time"`
}

// ProfilesFile is the top-level shape of the profiles file: which profile
// is currently selected, and the full saved list.
type ProfilesFile struct {
	Selected string    `json:"selected"`
	Profiles []Profile `json:"profiles"`
}

// Validate checks that every saved profile is named and that Selected, if
// set, resolves to one of them.
func (p *ProfilesFile) Validate() error {
	for i := range p.Profiles {
		if p.Profiles[i].Name == "" {
			return ErrEmptyProfile
		}
	}
	if p.Selected == "" {
		return nil
	}
	if _, ok := p.Find(p.Selected); !ok {
		return ErrNoSuchProfile
	}
	return nil
}

// Find returns the named profile, if present.
func (p *ProfilesFile) Find(name string) (Profile, bool) {
	for _, pr := range p.Profiles {
		if pr.Name == name {
			return pr, true
		}
	}
	return Profile{}, false
}

// ProfileStore persists the profiles file with the atomic
// temp-file-then-rename pattern of WriteJSONAtomic.
type ProfileStore struct {
	path string
}

// NewProfileStore creates a store over the given profiles.json path.
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// Load reads the profiles file, returning an empty one if it doesn't exist.
func (s *ProfileStore) Load() (*ProfilesFile, error) {
	pf := &ProfilesFile{Profiles: []Profile{}}
	if err := ReadJSONOrDefault(s.path, pf); err != nil {
		return nil, err
	}
	if pf.Profiles == nil {
		pf.Profiles = []Profile{}
	}
	return pf, nil
}

// Save validates and atomically writes the profiles file.
func (s *ProfileStore) Save(pf *ProfilesFile) error {
	if err := pf.Validate(); err != nil {
		return err
	}
	return WriteJSONAtomic(s.path, pf)
}

// ProfileState is the per-profile last-session/UI state file named in §6:
// which guild and channel were active, mute state, and sidebar
// folder/collapse layout.
type ProfileState struct {
	LastGuildID   string   `json:"last_guild_id"`
	LastChannelID string   `json:"last_channel_id"`
	Muted         bool     `json:"muted"`
	Collapsed     []string `json:"collapsed"`
	FolderNames   []string `json:"folder_names"`
}

// ProfileStateStore persists one profile's last-session/UI state file.
type ProfileStateStore struct {
	path string
}

// NewProfileStateStore creates a store over a single profile's state file.
func NewProfileStateStore(path string) *ProfileStateStore {
	return &ProfileStateStore{path: path}
}

// Load reads the profile state, returning an empty one if it doesn't exist.
func (s *ProfileStateStore) Load() (*ProfileState, error) {
	ps := &ProfileState{Collapsed: []string{}, FolderNames: []string{}}
	if err := ReadJSONOrDefault(s.path, ps); err != nil {
		return nil, err
	}
	if ps.Collapsed == nil {
		ps.Collapsed = []string{}
	}
	if ps.FolderNames == nil {
		ps.FolderNames = []string{}
	}
	return ps, nil
}

// Save atomically writes the profile state.
func (s *ProfileStateStore) Save(ps *ProfileState) error {
	return WriteJSONAtomic(s.path, ps)
}

// HiddenChannelsFile is hidden_channels.json: per-guild sets of
// explicitly-hidden channel IDs, keyed by guild ID. This is the engine's own
// hide/show toggle, layered on top of the opt-in-category default that
// state.Channel.ResolvedHidden computes from guild/category settings.
type HiddenChannelsFile map[string][]string

// LoadHiddenChannels reads hidden_channels.json, returning an empty map if
// it doesn't exist.
func LoadHiddenChannels(path string) (HiddenChannelsFile, error) {
	hc := HiddenChannelsFile{}
	if err := ReadJSONOrDefault(path, &hc); err != nil {
		return nil, err
	}
	return hc, nil
}

// SaveHiddenChannels atomically writes hidden_channels.json.
func SaveHiddenChannels(path string, hc HiddenChannelsFile) error {
	return WriteJSONAtomic(path, hc)
}

// CommandHistoryFile is command_history.json: the client-command input
// history, oldest first, capped by the caller before saving.
type CommandHistoryFile []string

// LoadCommandHistory reads command_history.json, returning nil if it
// doesn't exist.
func LoadCommandHistory(path string) (CommandHistoryFile, error) {
	var h CommandHistoryFile
	if err := ReadJSONOrDefault(path, &h); err != nil {
		return nil, err
	}
	return h, nil
}

// SaveCommandHistory atomically writes command_history.json.
func SaveCommandHistory(path string, h CommandHistoryFile) error {
	return WriteJSONAtomic(path, h)
}

// SummariesFile is summaries.json: cached channel summaries keyed by
// channel ID, so a previously generated summary survives a restart.
type SummariesFile map[string]string

// LoadSummaries reads summaries.json, returning an empty map if it doesn't
// exist.
func LoadSummaries(path string) (SummariesFile, error) {
	sm := SummariesFile{}
	if err := ReadJSONOrDefault(path, &sm); err != nil {
		return nil, err
	}
	return sm, nil
}

// SaveSummaries atomically writes summaries.json.
func SaveSummaries(path string, sm SummariesFile) error {
	return WriteJSONAtomic(path, sm)
}
