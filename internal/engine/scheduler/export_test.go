package scheduler

import (
	"maps"

	"go.trai.ch/sa/internal/core/domain"
)

// StatusMap returns a copy of the internal status map.
func (s *Scheduler) StatusMap() map[domain.PackageName]FetchStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.status)
}
