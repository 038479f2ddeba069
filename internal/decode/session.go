// internal/decode/session.go
package decode

// session holds the per-connection decode state machine: whether the worker is
// currently emitting frames and whether it is still discarding packets while it
// waits for the next keyframe. It is owned by exactly one worker goroutine and
// kept free of ffmpeg types so the gating rules stay testable.
type session struct {
	active bool

	// gateOnKeyframe mirrors the wait_for_keyframe option. When false the
	// session never discards packets waiting for a keyframe.
	gateOnKeyframe bool

	waitingKeyframe bool
}

func newSession(active, gateOnKeyframe bool) session {
	return session{
		active:          active,
		gateOnKeyframe:  gateOnKeyframe,
		waitingKeyframe: gateOnKeyframe,
	}
}

// rearm resets the keyframe gate. Called on every fresh connection: the first
// packets of a new stream are mid-GOP until a keyframe shows up.
func (s *session) rearm() {
	s.waitingKeyframe = s.gateOnKeyframe
}

// apply consumes one control value. Resuming from pause re-arms the keyframe
// gate so the first decoded frame after reactivation is keyframe-originated.
func (s *session) apply(active bool) {
	if active && !s.active {
		s.rearm()
	}
	s.active = active
}

// poll drains every pending control value, applying each in order. Multiple
// unread sends are legal; only the last one matters for the resulting state.
func (s *session) poll(ctrl <-chan bool) {
	for {
		select {
		case v, ok := <-ctrl:
			if !ok {
				return
			}
			s.apply(v)
		default:
			return
		}
	}
}

// admit decides whether a video packet reaches the decoder. A paused session
// admits nothing: the packet was already pulled off the socket, which is all
// that is needed to keep the stream live instead of buffering. While waiting
// for a keyframe, non-key packets are discarded.
func (s *session) admit(keyframe bool) bool {
	if !s.active {
		return false
	}
	if s.waitingKeyframe {
		if !keyframe {
			return false
		}
		s.waitingKeyframe = false
	}
	return true
}
