package types

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wisplang/wisp/internal/source"
)

// Field is one struct field; its slice index is the field index.
type Field struct {
	Name string
	Ty   Type
}

// Variant is one enum variant; its slice index is the discriminant.
type Variant struct {
	Name   string
	Def    DefId
	Fields []Type
}

// MethodKey addresses a method on a nominal type.
type MethodKey struct {
	Type DefId
	Name string
}

// PrimMethodKey addresses a method on a primitive type.
type PrimMethodKey struct {
	Prim string
	Name string
}

// ImplKey addresses a trait implementation on a nominal type.
type ImplKey struct {
	Type  DefId
	Trait DefId
}

// PrimImplKey addresses a trait implementation on a primitive.
type PrimImplKey struct {
	Prim  string
	Trait DefId
}

// MethodInfo is a registered method or associated function.
type MethodInfo struct {
	Def DefId
	Ty  *Function
	// Self receiver shape, used for auto-ref at call sites.
	SelfRef    bool
	SelfRefMut bool
	HasSelf    bool
}

// TraitMethodSig is a trait method with Self left abstract.
type TraitMethodSig struct {
	Name string
	Ty   *Function
}

// ImplMethod is one method of a registered trait impl.
type ImplMethod struct {
	Name string
	Def  DefId
	Ty   *Function
}

// ParamInfo is a function parameter's name and declared type.
type ParamInfo struct {
	Name string
	Ty   Type
}

// TypeParamInfo describes one declared generic parameter.
type TypeParamInfo struct {
	Def    DefId
	Name   string
	Bounds []DefId
}

// GenericInstantiation is one (generic function, concrete type args)
// pair discovered by the checker; the lowerer consumes these.
type GenericInstantiation struct {
	Func DefId
	Args []Type
}

// Context owns the side tables shared between the type checker, the
// borrow checker and the MIR lowerer, plus the inference substitution.
type Context struct {
	subst   map[uint32]Type
	nextVar uint32

	DefTypes     map[DefId]Type
	TypeNames    map[DefId]string
	StructFields map[DefId][]Field
	EnumVariants map[DefId][]Variant

	// Tool-facing tables: hover text and go-to-definition.
	SpanTypes map[source.Span]string
	SpanDefs  map[source.Span]DefId

	Methods             map[MethodKey]MethodInfo
	AssociatedFunctions map[MethodKey]MethodInfo
	PrimitiveMethods    map[PrimMethodKey]MethodInfo
	TraitMethods        map[DefId][]TraitMethodSig
	TraitImpls          map[ImplKey][]ImplMethod
	PrimitiveTraitImpls map[PrimImplKey]bool
	GenericFunctions    map[DefId][]TypeParamInfo
	FunctionParams      map[DefId][]ParamInfo
	FunctionParamNames  map[DefId][]string

	instantiations map[string]GenericInstantiation
}

// NewContext creates an empty type context.
func NewContext() *Context {
	return &Context{
		subst:               make(map[uint32]Type),
		DefTypes:            make(map[DefId]Type),
		TypeNames:           make(map[DefId]string),
		StructFields:        make(map[DefId][]Field),
		EnumVariants:        make(map[DefId][]Variant),
		SpanTypes:           make(map[source.Span]string),
		SpanDefs:            make(map[source.Span]DefId),
		Methods:             make(map[MethodKey]MethodInfo),
		AssociatedFunctions: make(map[MethodKey]MethodInfo),
		PrimitiveMethods:    make(map[PrimMethodKey]MethodInfo),
		TraitMethods:        make(map[DefId][]TraitMethodSig),
		TraitImpls:          make(map[ImplKey][]ImplMethod),
		PrimitiveTraitImpls: make(map[PrimImplKey]bool),
		GenericFunctions:    make(map[DefId][]TypeParamInfo),
		FunctionParams:      make(map[DefId][]ParamInfo),
		FunctionParamNames:  make(map[DefId][]string),
		instantiations:      make(map[string]GenericInstantiation),
	}
}

// NewVar allocates a fresh inference variable.
func (c *Context) NewVar() *Var {
	c.nextVar++
	return &Var{Id: c.nextVar}
}

// Bind records a substitution for an inference variable.
func (c *Context) Bind(v *Var, t Type) {
	c.subst[v.Id] = t
}

// Apply resolves inference variables in a type through the current
// substitution. Apply(Apply(t)) == Apply(t).
func (c *Context) Apply(t Type) Type {
	switch tt := t.(type) {
	case *Var:
		if bound, ok := c.subst[tt.Id]; ok {
			return c.Apply(bound)
		}
		return tt
	case *Ref:
		return &Ref{Mut: tt.Mut, Inner: c.Apply(tt.Inner)}
	case *Slice:
		return &Slice{Elem: c.Apply(tt.Elem)}
	case *Array:
		return &Array{Elem: c.Apply(tt.Elem), Size: tt.Size}
	case *Tuple:
		return &Tuple{Elems: c.applyAll(tt.Elems)}
	case *Function:
		return &Function{Params: c.applyAll(tt.Params), Ret: c.Apply(tt.Ret)}
	case *Struct:
		if len(tt.Args) == 0 {
			return tt
		}
		return &Struct{Def: tt.Def, Args: c.applyAll(tt.Args)}
	case *Enum:
		if len(tt.Args) == 0 {
			return tt
		}
		return &Enum{Def: tt.Def, Args: c.applyAll(tt.Args)}
	}
	return t
}

func (c *Context) applyAll(ts []Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = c.Apply(t)
	}
	return out
}

// TypeString renders a type with user-facing names for diagnostics
// and hover text.
func (c *Context) TypeString(t Type) string {
	switch tt := c.Apply(t).(type) {
	case *Prim:
		return tt.String()
	case *Var:
		return "_"
	case *TypeParam:
		return tt.Name
	case *Error:
		return "<error>"
	case *Struct:
		return c.nominalString(tt.Def, tt.Args)
	case *Enum:
		return c.nominalString(tt.Def, tt.Args)
	case *Ref:
		if tt.Mut {
			return "&mut " + c.TypeString(tt.Inner)
		}
		return "&" + c.TypeString(tt.Inner)
	case *Slice:
		return "[" + c.TypeString(tt.Elem) + "]"
	case *Array:
		return "[" + c.TypeString(tt.Elem) + "; " + strconv.Itoa(tt.Size) + "]"
	case *Tuple:
		parts := make([]string, len(tt.Elems))
		for i, e := range tt.Elems {
			parts[i] = c.TypeString(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Function:
		parts := make([]string, len(tt.Params))
		for i, p := range tt.Params {
			parts[i] = c.TypeString(p)
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + c.TypeString(tt.Ret)
	}
	return t.String()
}

func (c *Context) nominalString(def DefId, args []Type) string {
	name, ok := c.TypeNames[def]
	if !ok {
		name = def.String()
	}
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = c.TypeString(a)
	}
	return name + "<" + strings.Join(parts, ", ") + ">"
}

// RecordInstantiation adds a monomorphization request, deduplicated
// by mangled key. Returns true when the instantiation is new.
func (c *Context) RecordInstantiation(fn DefId, args []Type) bool {
	key := InstantiationKey(fn, args)
	if _, ok := c.instantiations[key]; ok {
		return false
	}
	c.instantiations[key] = GenericInstantiation{Func: fn, Args: args}
	return true
}

// Instantiations returns the monomorphization work-list sorted by
// (function DefId, mangled type args) so lowering is deterministic.
func (c *Context) Instantiations() []GenericInstantiation {
	out := make([]GenericInstantiation, 0, len(c.instantiations))
	for _, inst := range c.instantiations {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Func != out[j].Func {
			return out[i].Func < out[j].Func
		}
		return MangleTypeArgs(out[i].Args) < MangleTypeArgs(out[j].Args)
	})
	return out
}

// HasInstantiation reports whether the exact instantiation was
// recorded.
func (c *Context) HasInstantiation(fn DefId, args []Type) bool {
	_, ok := c.instantiations[InstantiationKey(fn, args)]
	return ok
}
