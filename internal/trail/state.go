package trail

import "github.com/OCAP2/trail/pkg/scene"

// tokenState is everything the tracker knows about one token.
// buffer is non-nil exactly while the token is dragging.
type tokenState struct {
	last    scene.Vector2
	buffer  []scene.Vector2
	trailID scene.ItemID

	timer    Timer
	timerSeq uint64

	// gen identifies the current gesture; completions from older ones are stale.
	gen uint64
}

func (s *tokenState) dragging() bool {
	return s.buffer != nil
}

// idle reports whether nothing is pending for the token.
func (s *tokenState) idle() bool {
	return s.buffer == nil && s.timer == nil
}

// start opens a gesture seeded with the position the token moved from.
func (s *tokenState) start(gen uint64) {
	s.gen = gen
	s.buffer = []scene.Vector2{s.last}
}

// push appends p unless it repeats the last buffered point.
func (s *tokenState) push(p scene.Vector2) bool {
	if n := len(s.buffer); n > 0 && s.buffer[n-1] == p {
		return false
	}
	s.buffer = append(s.buffer, p)
	return true
}

// takeTrail clears and returns the active trail reference.
func (s *tokenState) takeTrail() scene.ItemID {
	id := s.trailID
	s.trailID = ""
	return id
}

func (s *tokenState) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
