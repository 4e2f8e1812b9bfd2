package state

// LatchVoiceState records the session_id from a VOICE_STATE_UPDATE for
// the local user, starting a new session if none is active for this
// channel.
func (s *Store) LatchVoiceState(guildID, channelID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil || s.voice.ChannelID != channelID {
		s.voice = &VoiceSession{GuildID: guildID, ChannelID: channelID}
	}
	s.voice.SessionID = sessionID
}

// LatchVoiceServer records the token+endpoint from a VOICE_SERVER_UPDATE.
// Returns true once both session and server data are present, signalling
// the controller may open the voice gateway.
func (s *Store) LatchVoiceServer(guildID, token, endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil || s.voice.GuildID != guildID {
		return false
	}
	s.voice.Token = token
	s.voice.Endpoint = endpoint
	return s.voice.SessionID != "" && s.voice.Token != "" && s.voice.Endpoint != ""
}

// SetVoiceMedia latches the negotiated SSRC/secret key/mode/UDP endpoint
// once SESSION_DESCRIPTION arrives on the voice gateway.
func (s *Store) SetVoiceMedia(ssrc uint32, secretKey []byte, mode, udpEndpoint, mediaSession string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil {
		return
	}
	s.voice.SSRC = ssrc
	s.voice.SecretKey = secretKey
	s.voice.Mode = mode
	s.voice.UDPEndpoint = udpEndpoint
	s.voice.MediaSession = mediaSession
}

// VoiceSession returns the single active voice session, if any.
func (s *Store) VoiceSession() (VoiceSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.voice == nil {
		return VoiceSession{}, false
	}
	return *s.voice, true
}

// LeaveVoice destroys the active voice session, on CALL_DELETE, an
// explicit leave, or the voice gateway closing.
func (s *Store) LeaveVoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = nil
}
