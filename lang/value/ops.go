package value

import "fmt"

// Equal reports whether x and y are structurally equal using each type's
// own rules (Ordered.Cmp == 0, HasEqual.Equals, or identity for the
// remaining reference types). This is the *default* operator the VM falls
// back to once it has checked both operands for an `@==` meta-table
// override — composed meta-equality inside a Tuple (spec.md's "a Tuple of
// meta-overloaded values uses element-wise overloaded equality") is the
// VM's responsibility, not this function's, since invoking a meta method
// requires executing bytecode that this package cannot do on its own.
func Equal(x, y Value) (bool, error) {
	if x.Type() != y.Type() {
		return false, nil
	}
	switch x := x.(type) {
	case Null:
		return true, nil
	case HasEqual:
		return x.Equals(y)
	case Ordered:
		c, err := x.Cmp(y)
		return c == 0, err
	default:
		return x == y, nil
	}
}

// Compare orders x and y, for types implementing Ordered. Non-ordered
// types (List, Map, Function...) compare only for identity equality;
// relational comparison between them is a type error.
func Compare(x, y Value) (int, error) {
	if xo, ok := x.(Ordered); ok {
		return xo.Cmp(y)
	}
	eq, err := Equal(x, y)
	if err != nil {
		return 0, err
	}
	if eq {
		return 0, nil
	}
	return 0, fmt.Errorf("%s is not ordered", x.Type())
}
