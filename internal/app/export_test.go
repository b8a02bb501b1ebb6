package app

// LockEntries reports how many session ids currently have a lock entry.
func (s *PlannerService) LockEntries() int { return s.locks.len() }
