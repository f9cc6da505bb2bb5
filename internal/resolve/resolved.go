// Package resolve assigns DefIds, builds namespaces and enforces
// visibility, producing the resolved program later passes consume.
package resolve

import (
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// DefKind classifies a declaration.
type DefKind int

const (
	DefFunc DefKind = iota
	DefMethod
	DefParam
	DefLocal
	DefStruct
	DefField
	DefEnum
	DefVariant
	DefTrait
	DefTypeParam
	DefConst
	DefExternFunc
	DefExternStatic
	DefLambda
)

func (k DefKind) String() string {
	switch k {
	case DefFunc:
		return "function"
	case DefMethod:
		return "method"
	case DefParam:
		return "parameter"
	case DefLocal:
		return "local"
	case DefStruct:
		return "struct"
	case DefField:
		return "field"
	case DefEnum:
		return "enum"
	case DefVariant:
		return "variant"
	case DefTrait:
		return "trait"
	case DefTypeParam:
		return "type parameter"
	case DefConst:
		return "constant"
	case DefExternFunc:
		return "extern function"
	case DefExternStatic:
		return "extern static"
	case DefLambda:
		return "lambda"
	}
	return "definition"
}

// DefInfo is the record kept for every declaration. The resolved
// program owns these; later stages borrow them read-only.
type DefInfo struct {
	Id     types.DefId
	Name   string
	Kind   DefKind
	Module types.ModuleId
	Public bool
	Sp     source.Span
}

// Program is the resolver's output.
type Program struct {
	Defs map[types.DefId]*DefInfo

	Functions     []*Func // free functions, in declaration order
	Impls         []*Impl
	Structs       []*StructDef
	Enums         []*EnumDef
	Traits        []*TraitDef
	Consts        []*ConstDef
	ExternFuncs   []*ExternFuncDef
	ExternStatics []*ExternStaticDef

	// Root namespace: the importing file's accessible prefixes.
	Namespaces map[string]*Namespace
}

// Def returns the DefInfo for an id.
func (p *Program) Def(id types.DefId) *DefInfo { return p.Defs[id] }

// TypeParamDef is a declared generic parameter with resolved bounds.
type TypeParamDef struct {
	Def    types.DefId
	Name   string
	Bounds []types.DefId // trait DefIds
}

// ParamDef is a resolved function parameter.
type ParamDef struct {
	Def  types.DefId
	Name string
	Mut  bool
	Ty   types.Type
	Sp   source.Span
}

// SelfMode says how a method takes its receiver.
type SelfMode int

const (
	NoSelf SelfMode = iota
	SelfValue
	SelfByRef
	SelfRefMut
)

// Func is a resolved function or method.
type Func struct {
	Def        types.DefId
	Name       string
	Public     bool
	TypeParams []TypeParamDef
	Self       SelfMode
	SelfTy     types.Type  // receiver type for methods; nil otherwise
	SelfDef    types.DefId // the synthetic self parameter, methods only
	Params     []ParamDef
	Ret        types.Type
	Body       *Block
	Sp         source.Span
}

// Impl is a resolved impl block.
type Impl struct {
	Trait     types.DefId // 0 when inherent
	HasTrait  bool
	TraitArgs []types.Type
	Target    types.Type // Struct, Enum or Prim
	Methods   []*Func
	Sp        source.Span
}

// StructDef is a resolved struct declaration.
type StructDef struct {
	Def        types.DefId
	Name       string
	TypeParams []TypeParamDef
	Fields     []FieldDef
	Sp         source.Span
}

// FieldDef is one resolved struct field.
type FieldDef struct {
	Def    types.DefId
	Name   string
	Public bool
	Ty     types.Type
	Sp     source.Span
}

// EnumDef is a resolved enum declaration.
type EnumDef struct {
	Def        types.DefId
	Name       string
	TypeParams []TypeParamDef
	Variants   []VariantDef
	Sp         source.Span
}

// VariantDef is one resolved enum variant.
type VariantDef struct {
	Def    types.DefId
	Name   string
	Fields []types.Type
	Sp     source.Span
}

// TraitDef is a resolved trait declaration.
type TraitDef struct {
	Def        types.DefId
	Name       string
	SelfParam  types.DefId // synthetic `Self` type parameter
	TypeParams []TraitTypeParam
	Methods    []TraitMethodDef
	Sp         source.Span
}

// TraitTypeParam is a trait's type parameter with optional default.
type TraitTypeParam struct {
	Def        types.DefId
	Name       string
	HasDefault bool
	// Default is resolved per impl (Self depends on the target), so
	// the syntactic marker is all the trait records.
}

// TraitMethodDef is a trait method signature; Self stays abstract as
// a TypeParam carrying the trait's own DefId.
type TraitMethodDef struct {
	Name   string
	Self   SelfMode
	Params []types.Type
	Ret    types.Type
	Sp     source.Span
}

// ConstDef is a resolved constant.
type ConstDef struct {
	Def   types.DefId
	Name  string
	Ty    types.Type
	Value Expr
	Sp    source.Span
}

// ExternFuncDef is a resolved foreign function.
type ExternFuncDef struct {
	Def    types.DefId
	Name   string
	Params []ParamDef
	Ret    types.Type
	Sp     source.Span
}

// ExternStaticDef is a resolved foreign global.
type ExternStaticDef struct {
	Def  types.DefId
	Name string
	Ty   types.Type
	Sp   source.Span
}
