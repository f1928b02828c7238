package usecase

import (
	"voicefront/internal/domain"
	"voicefront/internal/profile"
)

// SessionContext is the state shared with the detector and renderer. It is
// only touched on the scheduler's loop.
type SessionContext struct {
	profile      profile.Profile
	state        domain.SessionState
	connection   domain.ConnectionState
	agentTalking bool
	message      string
}

func newSessionContext(p profile.Profile) *SessionContext {
	return &SessionContext{
		profile:    p,
		state:      domain.SessionStateIdle,
		connection: domain.ConnectionDisconnected,
	}
}

func (s *SessionContext) Profile() profile.Profile { return s.profile }

func (s *SessionContext) State() domain.SessionState { return s.state }

func (s *SessionContext) Connected() bool { return s.connection == domain.ConnectionConnected }

func (s *SessionContext) AgentTalking() bool { return s.agentTalking }

// busy reports whether a session is being established or is live.
func (s *SessionContext) busy() bool {
	return s.state == domain.SessionStateConnecting || s.state == domain.SessionStateConnected
}
