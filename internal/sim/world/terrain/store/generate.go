package store

// Unlock generates a locked region. It reports false for unknown or already
// unlocked regions; costs are the caller's concern.
func (s *Store) Unlock(id int) bool {
	r := s.Region(id)
	if r == nil || r.Unlocked {
		return false
	}
	s.generate(r)
	return true
}

func (s *Store) generate(r *Region) {
	r.Cells = s.Gen.Region(r.ID, r.Bounds, r.RX, r.RY)
	r.Unlocked = true
	r.dirty = true
	_ = r.Digest()
}
