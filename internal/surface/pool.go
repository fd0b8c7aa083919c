package surface

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the number of slots a pool allocates at construction.
const DefaultCapacity = 32

// ErrPoolExhausted is returned by Allocate when no slot can be handed out.
// Callers recover by drawing the tile without caching it.
var ErrPoolExhausted = errors.New("not enough surfaces in the pool")

// Policy selects how Allocate treats slots that are marked in use.
type Policy int

const (
	// PolicyRoundRobin hands out the slot under the cursor without looking
	// at in-use flags. Exhaustion is only reported for an empty pool.
	PolicyRoundRobin Policy = iota
	// PolicySkipInUse skips slots marked in use, marks the returned slot
	// allocated, and reports exhaustion when every slot is busy.
	PolicySkipInUse
)

func (p Policy) String() string {
	switch p {
	case PolicyRoundRobin:
		return "roundrobin"
	case PolicySkipInUse:
		return "skipinuse"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "roundrobin", "":
		return PolicyRoundRobin, nil
	case "skipinuse":
		return PolicySkipInUse, nil
	default:
		return 0, fmt.Errorf("unknown pool policy %q", s)
	}
}

// Slot is a pooled surface plus its in-use flag.
type Slot struct {
	index   int
	inUse   bool
	surface Surface
}

func (s *Slot) Index() int       { return s.index }
func (s *Slot) Surface() Surface { return s.surface }
func (s *Slot) InUse() bool      { return s.inUse }

// Allocated marks the slot as in use.
func (s *Slot) Allocated() { s.inUse = true }

// Deallocated marks the slot as free.
func (s *Slot) Deallocated() { s.inUse = false }

// Pool is a fixed ring of reusable surfaces. It is not safe for concurrent
// use; the render loop that owns it serialises access.
type Pool struct {
	slots  []*Slot
	cursor int
	policy Policy
}

// Option configures a Pool.
type Option func(*poolOptions)

type poolOptions struct {
	capacity int
	policy   Policy
}

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(o *poolOptions) { o.capacity = n }
}

// WithPolicy selects the allocation policy.
func WithPolicy(p Policy) Option {
	return func(o *poolOptions) { o.policy = p }
}

// NewPool allocates every slot up front from factory.
func NewPool(factory Factory, width, height int, opts ...Option) (*Pool, error) {
	o := poolOptions{capacity: DefaultCapacity, policy: PolicyRoundRobin}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 0 {
		return nil, fmt.Errorf("invalid pool capacity %d", o.capacity)
	}

	slots := make([]*Slot, o.capacity)
	for i := range slots {
		s, err := factory.NewSurface(width, height)
		if err != nil {
			return nil, fmt.Errorf("create pool surface %d: %w", i, err)
		}
		slots[i] = &Slot{index: i, surface: s}
	}

	return &Pool{slots: slots, policy: o.policy}, nil
}

// Allocate returns the next slot in round-robin order, starting at the
// cursor and advancing it past the returned slot.
func (p *Pool) Allocate() (*Slot, error) {
	n := len(p.slots)
	if n == 0 {
		return nil, ErrPoolExhausted
	}

	for scanned := 0; scanned < n; scanned++ {
		s := p.slots[p.cursor]
		p.cursor = (p.cursor + 1) % n

		if p.policy == PolicySkipInUse {
			if s.inUse {
				continue
			}
			s.Allocated()
		}
		return s, nil
	}
	return nil, ErrPoolExhausted
}

// Release marks s free again. Releasing nil is a no-op.
func (p *Pool) Release(s *Slot) {
	if s == nil {
		return
	}
	s.Deallocated()
}

// ReleaseAll marks every slot free.
func (p *Pool) ReleaseAll() {
	for _, s := range p.slots {
		s.Deallocated()
	}
}

// Len returns the pool capacity.
func (p *Pool) Len() int { return len(p.slots) }

// InUse counts slots currently marked in use.
func (p *Pool) InUse() int {
	n := 0
	for _, s := range p.slots {
		if s.inUse {
			n++
		}
	}
	return n
}

// Policy returns the allocation policy.
func (p *Pool) Policy() Policy { return p.policy }

// Slot returns the slot at index i.
func (p *Pool) Slot(i int) *Slot { return p.slots[i] }
