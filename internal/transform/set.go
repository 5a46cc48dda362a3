package transform

// EffectSet is an insertion-ordered set of effect ids. The zero value is ready to use.
type EffectSet struct {
	ids []string
}

// Has reports whether id is in the set.
func (s *EffectSet) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if absent and reports whether it was added.
func (s *EffectSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id, preserving the order of the rest, and reports whether it was present.
func (s *EffectSet) Remove(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle adds id when absent and removes it when present. It returns true
// when id is active afterwards.
func (s *EffectSet) Toggle(id string) bool {
	if s.Remove(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// IDs returns a copy of the ids in insertion order.
func (s *EffectSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of active ids.
func (s *EffectSet) Len() int { return len(s.ids) }

// Clear empties the set.
func (s *EffectSet) Clear() { s.ids = nil }
