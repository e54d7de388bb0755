package cache

// registry holds concat groups in registration order
type registry struct {
	groups map[string]Declaration
	order  []string
}

func newRegistry() *registry {
	return &registry{
		groups: make(map[string]Declaration),
	}
}

// registerOrVerify records a concat group. Registering the same member list
// again is a no-op; a different list fails with a ConcatMismatchError.
func (r *registry) registerOrVerify(name string, d Declaration) error {
	existing, ok := r.groups[name]
	if !ok {
		r.groups[name] = Declaration{
			Source:  d.Source,
			Members: append([]string{}, d.Members...),
		}
		r.order = append(r.order, name)
		return nil
	}
	if !sameMembers(existing.Members, d.Members) {
		return &ConcatMismatchError{
			Name:   name,
			First:  existing,
			Second: d,
		}
	}
	return nil
}

func (r *registry) members(name string) ([]string, bool) {
	d, ok := r.groups[name]
	if !ok {
		return nil, false
	}
	return d.Members, true
}

func (r *registry) names() []string {
	return append([]string{}, r.order...)
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
