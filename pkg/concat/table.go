package concat

import "github.com/JSingmin/CSharpAnalyser/pkg/resolve"

// SafeTable maps a left operand type to the right operand types that make a
// concatenation safe. It is immutable after construction.
type SafeTable struct {
	pairs map[resolve.Type]map[resolve.Type]struct{}
}

// NewSafeTable builds a table from left type to allowed right types.
func NewSafeTable(pairs map[resolve.Type][]resolve.Type) SafeTable {
	t := SafeTable{pairs: make(map[resolve.Type]map[resolve.Type]struct{}, len(pairs))}
	for left, rights := range pairs {
		set := make(map[resolve.Type]struct{}, len(rights))
		for _, r := range rights {
			set[r] = struct{}{}
		}
		t.pairs[left] = set
	}
	return t
}

// DefaultSafeTable allows a string followed by a numeric value.
func DefaultSafeTable() SafeTable {
	return NewSafeTable(map[resolve.Type][]resolve.Type{
		resolve.TypeString: {resolve.TypeInt, resolve.TypeDouble, resolve.TypeDecimal},
	})
}

// Allows reports whether left + right is a safe pairing. Unknown types are
// never allowed.
func (t SafeTable) Allows(left, right resolve.Type) bool {
	if left == resolve.TypeUnknown || right == resolve.TypeUnknown {
		return false
	}
	rights, ok := t.pairs[left]
	if !ok {
		return false
	}
	_, ok = rights[right]
	return ok
}
