package render

import (
	"time"

	"voicefront/internal/domain"
	"voicefront/internal/sched"
)

const UserBadgeHold = 1200 * time.Millisecond

// BadgeFor returns the color and label for a badge state.
func BadgeFor(state domain.BadgeState) domain.Badge {
	switch state {
	case domain.BadgeLoading:
		return domain.Badge{State: state, Color: "#555555", Label: "Loading"}
	case domain.BadgeIdle:
		return domain.Badge{State: state, Color: "#2a6f97", Label: "Idle"}
	case domain.BadgeUser:
		return domain.Badge{State: state, Color: "#1b5b01", Label: "You"}
	case domain.BadgeAgent:
		return domain.Badge{State: state, Color: "#c02112", Label: "Agent"}
	default:
		return domain.Badge{State: state, Color: "#555555", Label: string(state)}
	}
}

// BadgeSink receives badge updates.
type BadgeSink interface {
	Badge(domain.Badge)
}

// Badge is the discrete indicator shown instead of the visual on the lowest
// profile. A disabled badge ignores every update.
type Badge struct {
	sched   sched.Scheduler
	sink    BadgeSink
	state   StateReader
	enabled bool

	current domain.BadgeState
	revert  sched.Timer
}

func NewBadge(s sched.Scheduler, sink BadgeSink, state StateReader, enabled bool) *Badge {
	return &Badge{sched: s, sink: sink, state: state, enabled: enabled}
}

func (b *Badge) Enabled() bool { return b.enabled }

func (b *Badge) Current() domain.BadgeState { return b.current }

// Set shows state and cancels a pending revert.
func (b *Badge) Set(state domain.BadgeState) {
	if !b.enabled {
		return
	}
	b.revert = sched.Stop(b.revert)
	b.show(state)
}

// User shows the user state briefly, then returns to idle unless the agent
// has started talking.
func (b *Badge) User() {
	if !b.enabled {
		return
	}
	b.Set(domain.BadgeUser)
	b.revert = b.sched.AfterFunc(UserBadgeHold, func() {
		b.revert = nil
		if !b.state.AgentTalking() {
			b.show(domain.BadgeIdle)
		}
	})
}

func (b *Badge) show(state domain.BadgeState) {
	b.current = state
	b.sink.Badge(BadgeFor(state))
}
