package cas

import "time"

// SetClock replaces the time source of s.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// ExtractWheel exposes extractWheel to tests.
var ExtractWheel = extractWheel
