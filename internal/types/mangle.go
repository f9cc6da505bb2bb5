package types

import (
	"strconv"
	"strings"
)

// MangleType produces the stable mangled spelling of a type used in
// monomorphized function names and the backend hand-off.
//
//	primitives  i8 … u128, f32, f64, bool, char, str, unit, never
//	struct      S<def_id>        (S3<i32> when generic)
//	enum        E<def_id>
//	reference   R<inner> / Rm<inner>
//	slice       Sl<elem>
//	array       A<size>_<elem>
//	tuple       T<e1>_<e2>
//	function    F<p1>_<p2>_<ret>
func MangleType(t Type) string {
	switch tt := t.(type) {
	case *Prim:
		return tt.Kind.String()
	case *Struct:
		if len(tt.Args) == 0 {
			return "S" + strconv.FormatUint(uint64(tt.Def), 10)
		}
		return "S" + strconv.FormatUint(uint64(tt.Def), 10) + "<" + MangleTypeArgs(tt.Args) + ">"
	case *Enum:
		if len(tt.Args) == 0 {
			return "E" + strconv.FormatUint(uint64(tt.Def), 10)
		}
		return "E" + strconv.FormatUint(uint64(tt.Def), 10) + "<" + MangleTypeArgs(tt.Args) + ">"
	case *Ref:
		if tt.Mut {
			return "Rm" + MangleType(tt.Inner)
		}
		return "R" + MangleType(tt.Inner)
	case *Slice:
		return "Sl" + MangleType(tt.Elem)
	case *Array:
		return "A" + strconv.Itoa(tt.Size) + "_" + MangleType(tt.Elem)
	case *Tuple:
		parts := make([]string, len(tt.Elems))
		for i, e := range tt.Elems {
			parts[i] = MangleType(e)
		}
		return "T" + strings.Join(parts, "_")
	case *Function:
		parts := make([]string, 0, len(tt.Params)+1)
		for _, p := range tt.Params {
			parts = append(parts, MangleType(p))
		}
		return "F" + strings.Join(parts, "_") + "_" + MangleType(tt.Ret)
	case *Var:
		return "V" + strconv.FormatUint(uint64(tt.Id), 10)
	case *TypeParam:
		return "P" + strconv.FormatUint(uint64(tt.Def), 10)
	case *Error:
		return "error"
	}
	return "unknown"
}

// MangleTypeArgs joins mangled type arguments with commas.
func MangleTypeArgs(args []Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = MangleType(a)
	}
	return strings.Join(parts, ",")
}

// MangleGeneric names a monomorphized instance: `base<i32,S3>`.
func MangleGeneric(base string, args []Type) string {
	return base + "<" + MangleTypeArgs(args) + ">"
}

// MangleMethod names a method on a nominal or primitive type:
// `Point::add`.
func MangleMethod(typeName, method string) string {
	return typeName + "::" + method
}

// InstantiationKey is the dedup key for a monomorphization request.
func InstantiationKey(fn DefId, args []Type) string {
	return fn.String() + "<" + MangleTypeArgs(args) + ">"
}
