package types

import "fmt"

// Unify makes two types equal by binding inference variables,
// recording bindings in the context's substitution. Structural
// equality extended with: Var binds to any type; Error and Never
// unify with everything; reference mutability must match exactly.
// TypeParam unifies only with itself — generic calls introduce fresh
// inference variables per parameter instead.
func (c *Context) Unify(a, b Type) error {
	a = c.Apply(a)
	b = c.Apply(b)

	if a.Equal(b) {
		return nil
	}

	// Error absorbs everything so diagnostics don't cascade.
	if isError(a) || isError(b) {
		return nil
	}
	// A diverging expression unifies with any expected type.
	if isNever(a) || isNever(b) {
		return nil
	}

	if av, ok := a.(*Var); ok {
		return c.bindVar(av, b)
	}
	if bv, ok := b.(*Var); ok {
		return c.bindVar(bv, a)
	}

	switch at := a.(type) {
	case *Prim:
		if bt, ok := b.(*Prim); ok && at.Kind == bt.Kind {
			return nil
		}
	case *Struct:
		if bt, ok := b.(*Struct); ok && at.Def == bt.Def && len(at.Args) == len(bt.Args) {
			for i := range at.Args {
				if err := c.Unify(at.Args[i], bt.Args[i]); err != nil {
					return err
				}
			}
			return nil
		}
	case *Enum:
		if bt, ok := b.(*Enum); ok && at.Def == bt.Def && len(at.Args) == len(bt.Args) {
			for i := range at.Args {
				if err := c.Unify(at.Args[i], bt.Args[i]); err != nil {
					return err
				}
			}
			return nil
		}
	case *Ref:
		if bt, ok := b.(*Ref); ok && at.Mut == bt.Mut {
			return c.Unify(at.Inner, bt.Inner)
		}
	case *Slice:
		if bt, ok := b.(*Slice); ok {
			return c.Unify(at.Elem, bt.Elem)
		}
	case *Array:
		if bt, ok := b.(*Array); ok && at.Size == bt.Size {
			return c.Unify(at.Elem, bt.Elem)
		}
	case *Tuple:
		if bt, ok := b.(*Tuple); ok && len(at.Elems) == len(bt.Elems) {
			for i := range at.Elems {
				if err := c.Unify(at.Elems[i], bt.Elems[i]); err != nil {
					return err
				}
			}
			return nil
		}
	case *Function:
		if bt, ok := b.(*Function); ok && len(at.Params) == len(bt.Params) {
			for i := range at.Params {
				if err := c.Unify(at.Params[i], bt.Params[i]); err != nil {
					return err
				}
			}
			return c.Unify(at.Ret, bt.Ret)
		}
	}

	return fmt.Errorf("type mismatch: expected %s, found %s", c.TypeString(a), c.TypeString(b))
}

func (c *Context) bindVar(v *Var, t Type) error {
	if c.occurs(v, t) {
		return fmt.Errorf("cannot construct infinite type %s = %s", v, c.TypeString(t))
	}
	c.Bind(v, t)
	return nil
}

// occurs reports whether v appears inside t (after substitution).
func (c *Context) occurs(v *Var, t Type) bool {
	switch tt := c.Apply(t).(type) {
	case *Var:
		return tt.Id == v.Id
	case *Ref:
		return c.occurs(v, tt.Inner)
	case *Slice:
		return c.occurs(v, tt.Elem)
	case *Array:
		return c.occurs(v, tt.Elem)
	case *Tuple:
		for _, e := range tt.Elems {
			if c.occurs(v, e) {
				return true
			}
		}
	case *Function:
		for _, p := range tt.Params {
			if c.occurs(v, p) {
				return true
			}
		}
		return c.occurs(v, tt.Ret)
	case *Struct:
		for _, a := range tt.Args {
			if c.occurs(v, a) {
				return true
			}
		}
	case *Enum:
		for _, a := range tt.Args {
			if c.occurs(v, a) {
				return true
			}
		}
	}
	return false
}

func isError(t Type) bool {
	_, ok := t.(*Error)
	return ok
}

func isNever(t Type) bool {
	p, ok := t.(*Prim)
	return ok && p.Kind == Never
}
