package agent

import (
	"fmt"
)

// Roster is the ordered set of agents a manager can delegate to.
// Registration order is preserved; the catalog shown to the model and
// the tool schemas both follow it.
//
// Roster is not safe for concurrent mutation. Build it during setup and
// treat it as read-only afterwards.
type Roster struct {
	ordered    []*Specialist
	byFunction map[string]*Specialist
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{
		byFunction: make(map[string]*Specialist),
	}
}

// Register adds a specialist. It rejects nil agents and any name that
// collides with an existing registration under the function-name
// transform, which also catches names differing only in case or
// whitespace.
func (r *Roster) Register(s *Specialist) error {
	if s == nil {
		return fmt.Errorf("cannot register a nil specialist")
	}
	fn := s.FunctionName()
	if existing, ok := r.byFunction[fn]; ok {
		return fmt.Errorf("specialist %q collides with %q (both map to %q)", s.Name(), existing.Name(), fn)
	}
	r.byFunction[fn] = s
	r.ordered = append(r.ordered, s)
	return nil
}

// RegisterAll registers each specialist in order, stopping at the first
// failure.
func (r *Roster) RegisterAll(specialists ...*Specialist) error {
	for _, s := range specialists {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Specialists returns the delegatable agents in registration order.
// Manager-flagged agents are filtered out.
func (r *Roster) Specialists() []*Specialist {
	out := make([]*Specialist, 0, len(r.ordered))
	for _, s := range r.ordered {
		if s.IsManager() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Resolve looks up a specialist by the function name the model used.
// Lookup is case-insensitive because it goes through the same transform
// as registration. It returns nil when no specialist matches; callers
// turn that into a tool result, not an error.
func (r *Roster) Resolve(functionName string) *Specialist {
	return r.byFunction[FunctionName(functionName)]
}

// Len returns the number of registered agents, managers included.
func (r *Roster) Len() int {
	return len(r.ordered)
}
