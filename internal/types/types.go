// Package types holds the shared type representation, the type
// context side tables, unification and name mangling.
package types

import (
	"strconv"
	"strings"
)

// DefId is the globally unique identifier the resolver assigns to
// every declaration. All later passes refer to declarations by DefId,
// never by name.
type DefId uint32

func (d DefId) String() string { return "def" + strconv.FormatUint(uint64(d), 10) }

// ModuleId groups DefIds originating from the same source file. The
// root file is module 0; imported modules get fresh ids in import
// order.
type ModuleId uint32

// Type is the closed set of wisp types.
type Type interface {
	String() string
	Equal(Type) bool
	typeNode()
}

// PrimKind enumerates the scalar primitive types.
type PrimKind int

const (
	I8 PrimKind = iota
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F32
	F64
	Bool
	Char
	Str
	Unit
	Never
)

var primNames = map[PrimKind]string{
	I8: "i8", I16: "i16", I32: "i32", I64: "i64", I128: "i128",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64", U128: "u128",
	F32: "f32", F64: "f64",
	Bool: "bool", Char: "char", Str: "str", Unit: "unit", Never: "never",
}

// PrimByName maps a source-level primitive type name to its kind.
// `unit` and `never` are not writable in source; `()` maps to Unit in
// the resolver directly.
var PrimByName = func() map[string]PrimKind {
	m := make(map[string]PrimKind, len(primNames))
	for k, v := range primNames {
		if k == Unit || k == Never {
			continue
		}
		m[v] = k
	}
	return m
}()

func (k PrimKind) String() string { return primNames[k] }

// IsInteger reports whether the kind is a fixed-width integer.
func (k PrimKind) IsInteger() bool { return k >= I8 && k <= U128 }

// IsFloat reports whether the kind is a floating-point type.
func (k PrimKind) IsFloat() bool { return k == F32 || k == F64 }

// IsNumeric reports whether the kind is integer or float.
func (k PrimKind) IsNumeric() bool { return k.IsInteger() || k.IsFloat() }

// IsSigned reports whether the kind is a signed integer.
func (k PrimKind) IsSigned() bool { return k >= I8 && k <= I128 }

// Prim is a scalar primitive type.
type Prim struct {
	Kind PrimKind
}

func (p *Prim) String() string { return p.Kind.String() }
func (p *Prim) Equal(o Type) bool {
	op, ok := o.(*Prim)
	return ok && op.Kind == p.Kind
}
func (p *Prim) typeNode() {}

// Interned primitives; all code shares these.
var (
	TI8    = &Prim{I8}
	TI16   = &Prim{I16}
	TI32   = &Prim{I32}
	TI64   = &Prim{I64}
	TI128  = &Prim{I128}
	TU8    = &Prim{U8}
	TU16   = &Prim{U16}
	TU32   = &Prim{U32}
	TU64   = &Prim{U64}
	TU128  = &Prim{U128}
	TF32   = &Prim{F32}
	TF64   = &Prim{F64}
	TBool  = &Prim{Bool}
	TChar  = &Prim{Char}
	TStr   = &Prim{Str}
	TUnit  = &Prim{Unit}
	TNever = &Prim{Never}
)

var primSingletons = map[PrimKind]*Prim{
	I8: TI8, I16: TI16, I32: TI32, I64: TI64, I128: TI128,
	U8: TU8, U16: TU16, U32: TU32, U64: TU64, U128: TU128,
	F32: TF32, F64: TF64, Bool: TBool, Char: TChar, Str: TStr,
	Unit: TUnit, Never: TNever,
}

// PrimOf returns the interned primitive for a kind.
func PrimOf(k PrimKind) *Prim { return primSingletons[k] }

// Struct is a nominal product type with concrete type arguments.
type Struct struct {
	Def  DefId
	Args []Type
}

func (s *Struct) String() string {
	if len(s.Args) == 0 {
		return "struct " + s.Def.String()
	}
	return "struct " + s.Def.String() + "<" + joinTypes(s.Args) + ">"
}
func (s *Struct) Equal(o Type) bool {
	os, ok := o.(*Struct)
	return ok && os.Def == s.Def && typesEqual(s.Args, os.Args)
}
func (s *Struct) typeNode() {}

// Enum is a nominal sum type with concrete type arguments.
type Enum struct {
	Def  DefId
	Args []Type
}

func (e *Enum) String() string {
	if len(e.Args) == 0 {
		return "enum " + e.Def.String()
	}
	return "enum " + e.Def.String() + "<" + joinTypes(e.Args) + ">"
}
func (e *Enum) Equal(o Type) bool {
	oe, ok := o.(*Enum)
	return ok && oe.Def == e.Def && typesEqual(e.Args, oe.Args)
}
func (e *Enum) typeNode() {}

// Ref is a borrow.
type Ref struct {
	Mut   bool
	Inner Type
}

func (r *Ref) String() string {
	if r.Mut {
		return "&mut " + r.Inner.String()
	}
	return "&" + r.Inner.String()
}
func (r *Ref) Equal(o Type) bool {
	or, ok := o.(*Ref)
	return ok && or.Mut == r.Mut && r.Inner.Equal(or.Inner)
}
func (r *Ref) typeNode() {}

// Slice is a dynamically sized view over elements.
type Slice struct {
	Elem Type
}

func (s *Slice) String() string { return "[" + s.Elem.String() + "]" }
func (s *Slice) Equal(o Type) bool {
	os, ok := o.(*Slice)
	return ok && s.Elem.Equal(os.Elem)
}
func (s *Slice) typeNode() {}

// Array is a fixed-size aggregate.
type Array struct {
	Elem Type
	Size int
}

func (a *Array) String() string {
	return "[" + a.Elem.String() + "; " + strconv.Itoa(a.Size) + "]"
}
func (a *Array) Equal(o Type) bool {
	oa, ok := o.(*Array)
	return ok && oa.Size == a.Size && a.Elem.Equal(oa.Elem)
}
func (a *Array) typeNode() {}

// Tuple is an anonymous product.
type Tuple struct {
	Elems []Type
}

func (t *Tuple) String() string { return "(" + joinTypes(t.Elems) + ")" }
func (t *Tuple) Equal(o Type) bool {
	ot, ok := o.(*Tuple)
	return ok && typesEqual(t.Elems, ot.Elems)
}
func (t *Tuple) typeNode() {}

// Function is a first-class function type.
type Function struct {
	Params []Type
	Ret    Type
}

func (f *Function) String() string {
	return "fn(" + joinTypes(f.Params) + ") -> " + f.Ret.String()
}
func (f *Function) Equal(o Type) bool {
	of, ok := o.(*Function)
	return ok && typesEqual(f.Params, of.Params) && f.Ret.Equal(of.Ret)
}
func (f *Function) typeNode() {}

// Var is an inference variable. It exists only during type checking
// and is eliminated by substitution before later passes run.
type Var struct {
	Id uint32
}

func (v *Var) String() string { return "?" + strconv.FormatUint(uint64(v.Id), 10) }
func (v *Var) Equal(o Type) bool {
	ov, ok := o.(*Var)
	return ok && ov.Id == v.Id
}
func (v *Var) typeNode() {}

// TypeParam is a bound generic parameter. It appears only inside
// generic signatures and bodies before monomorphization.
type TypeParam struct {
	Def  DefId
	Name string
}

func (t *TypeParam) String() string { return t.Name }
func (t *TypeParam) Equal(o Type) bool {
	ot, ok := o.(*TypeParam)
	return ok && ot.Def == t.Def
}
func (t *TypeParam) typeNode() {}

// Error is the diagnostic recovery sentinel; it unifies with
// everything so one failure doesn't cascade.
type Error struct{}

func (e *Error) String() string { return "<error>" }
func (e *Error) Equal(o Type) bool {
	_, ok := o.(*Error)
	return ok
}
func (e *Error) typeNode() {}

// TErr is the shared error sentinel.
var TErr = &Error{}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func typesEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// IsCopy reports whether values of the type are copied rather than
// moved: numerics, bool, char and references.
func IsCopy(t Type) bool {
	switch tt := t.(type) {
	case *Prim:
		switch tt.Kind {
		case Str:
			return false
		default:
			return true
		}
	case *Ref:
		return true
	case *Error:
		return true
	}
	return false
}

// HasTypeParam reports whether a type mentions any TypeParam.
func HasTypeParam(t Type) bool {
	switch tt := t.(type) {
	case *TypeParam:
		return true
	case *Ref:
		return HasTypeParam(tt.Inner)
	case *Slice:
		return HasTypeParam(tt.Elem)
	case *Array:
		return HasTypeParam(tt.Elem)
	case *Tuple:
		for _, e := range tt.Elems {
			if HasTypeParam(e) {
				return true
			}
		}
	case *Function:
		for _, p := range tt.Params {
			if HasTypeParam(p) {
				return true
			}
		}
		return HasTypeParam(tt.Ret)
	case *Struct:
		for _, a := range tt.Args {
			if HasTypeParam(a) {
				return true
			}
		}
	case *Enum:
		for _, a := range tt.Args {
			if HasTypeParam(a) {
				return true
			}
		}
	}
	return false
}

// Substitute replaces TypeParams per the substitution map,
// rebuilding containers as needed.
func Substitute(t Type, sub map[DefId]Type) Type {
	if len(sub) == 0 {
		return t
	}
	switch tt := t.(type) {
	case *TypeParam:
		if r, ok := sub[tt.Def]; ok {
			return r
		}
		return tt
	case *Ref:
		return &Ref{Mut: tt.Mut, Inner: Substitute(tt.Inner, sub)}
	case *Slice:
		return &Slice{Elem: Substitute(tt.Elem, sub)}
	case *Array:
		return &Array{Elem: Substitute(tt.Elem, sub), Size: tt.Size}
	case *Tuple:
		return &Tuple{Elems: substituteAll(tt.Elems, sub)}
	case *Function:
		return &Function{Params: substituteAll(tt.Params, sub), Ret: Substitute(tt.Ret, sub)}
	case *Struct:
		if len(tt.Args) == 0 {
			return tt
		}
		return &Struct{Def: tt.Def, Args: substituteAll(tt.Args, sub)}
	case *Enum:
		if len(tt.Args) == 0 {
			return tt
		}
		return &Enum{Def: tt.Def, Args: substituteAll(tt.Args, sub)}
	}
	return t
}

func substituteAll(ts []Type, sub map[DefId]Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = Substitute(t, sub)
	}
	return out
}

// HasVar reports whether a type mentions any inference variable.
func HasVar(t Type) bool {
	switch tt := t.(type) {
	case *Var:
		return true
	case *Ref:
		return HasVar(tt.Inner)
	case *Slice:
		return HasVar(tt.Elem)
	case *Array:
		return HasVar(tt.Elem)
	case *Tuple:
		for _, e := range tt.Elems {
			if HasVar(e) {
				return true
			}
		}
	case *Function:
		for _, p := range tt.Params {
			if HasVar(p) {
				return true
			}
		}
		return HasVar(tt.Ret)
	case *Struct:
		for _, a := range tt.Args {
			if HasVar(a) {
				return true
			}
		}
	case *Enum:
		for _, a := range tt.Args {
			if HasVar(a) {
				return true
			}
		}
	}
	return false
}
