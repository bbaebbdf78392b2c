package operator

import "github.com/mef-lab/coagula/internal/coord"

// Chain applies a fixed ordered sequence of operators. The order comes
// from route selection and never changes after construction.
type Chain struct {
	ops []Operator
}

// NewChain builds a chain over the given operators in order.
func NewChain(ops ...Operator) *Chain {
	copied := make([]Operator, len(ops))
	copy(copied, ops)
	return &Chain{ops: copied}
}

// Apply runs every operator in sequence.
func (c *Chain) Apply(v coord.Vector) coord.Vector {
	for _, op := range c.ops {
		v = op.Apply(v)
	}
	return v
}

// Len returns the number of operators in the chain.
func (c *Chain) Len() int { return len(c.ops) }

// Kinds returns the variant tags in application order.
func (c *Chain) Kinds() []Kind {
	kinds := make([]Kind, len(c.ops))
	for i, op := range c.ops {
		kinds[i] = op.Kind()
	}
	return kinds
}

// Lipschitz returns the product of the per-operator bounds, the documented
// bound for the composition.
func (c *Chain) Lipschitz() float64 {
	l := 1.0
	for _, op := range c.ops {
		l *= op.Lipschitz()
	}
	return l
}
