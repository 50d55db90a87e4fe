package params

import "slices"

// Set is an ordered collection of params that falls through to a parent set.
// Children shadow parent entries with the same name.
type Set struct {
	parent *Set
	keys   []string
	params map[string]*Param
}

// NewSet creates an empty root set.
func NewSet() *Set {
	return &Set{params: make(map[string]*Param)}
}

// New creates an empty child of s.
func (s *Set) New() *Set {
	child := NewSet()
	child.parent = s
	return child
}

// Parent returns the parent set, or nil for a root.
func (s *Set) Parent() *Set {
	return s.parent
}

// Add stores p as an own entry, replacing an own entry with the same ID.
func (s *Set) Add(p *Param) {
	if _, ok := s.params[p.ID]; !ok {
		s.keys = append(s.keys, p.ID)
	}
	s.params[p.ID] = p
}

// Own returns an entry of s itself, ignoring the parent chain.
func (s *Set) Own(id string) (*Param, bool) {
	p, ok := s.params[id]
	return p, ok
}

// Get looks id up in s, then in its ancestors.
func (s *Set) Get(id string) (*Param, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if p, ok := cur.params[id]; ok {
			return p, true
		}
	}
	return nil, false
}

// OwnKeys lists the own entries in insertion order.
func (s *Set) OwnKeys() []string {
	return slices.Clone(s.keys)
}

// Keys lists every name in the chain, root first, without duplicates.
func (s *Set) Keys() []string {
	var chain []*Set
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	seen := make(map[string]bool)
	var keys []string
	for i := len(chain) - 1; i >= 0; i-- {
		for _, k := range chain[i].keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Len returns the number of distinct names in the chain.
func (s *Set) Len() int {
	return len(s.Keys())
}

// Values computes the value of every param in the chain from raw.
func (s *Set) Values(raw Values) (Values, error) {
	out := make(Values)
	for _, k := range s.Keys() {
		p, _ := s.Get(k)
		v, err := p.Value(raw[k])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Equals compares a and b with each param's type equality.
func (s *Set) Equals(a, b Values) bool {
	for _, k := range s.Keys() {
		p, _ := s.Get(k)
		if !p.Type.Equals(a[k], b[k]) {
			return false
		}
	}
	return true
}

// Validates reports whether every value is acceptable for its param. Absent
// optional values are skipped; present values must normalize to an instance of
// the type whose string encoding matches the type pattern.
func (s *Set) Validates(values Values) bool {
	for _, k := range s.Keys() {
		p, _ := s.Get(k)
		raw := values[k]
		if raw == nil && p.IsOptional {
			continue
		}
		normalized := p.Type.Normalize(raw)
		if !p.Type.Is(normalized) {
			return false
		}
		if encoded, ok := p.Type.Encode(normalized).(string); ok && !p.Type.Pattern.MatchString(encoded) {
			return false
		}
	}
	return true
}

// Filter returns the subset of s whose keys satisfy keep, as a new root set.
func (s *Set) Filter(keep func(*Param) bool) *Set {
	out := NewSet()
	for _, k := range s.Keys() {
		p, _ := s.Get(k)
		if keep(p) {
			out.Add(p)
		}
	}
	return out
}
