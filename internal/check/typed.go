// Package check performs type inference and checking over the
// resolved program, producing the typed program the borrow checker
// and MIR lowerer consume.
package check

import (
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// Expr is a typed expression. Types returned by Type() may contain
// inference variables during checking; finalize applies the
// substitution so the finished program carries none.
type Expr interface {
	Type() types.Type
	Span() source.Span
}

// Stmt is a typed statement.
type Stmt interface {
	Span() source.Span
	typedStmt()
}

// Pattern is a typed pattern.
type Pattern interface {
	Span() source.Span
	typedPattern()
}

// Program is the checker's output: the type context plus every typed
// function body.
type Program struct {
	Ctx       *types.Context
	Resolved  *resolve.Program
	Functions []*Func
	Consts    []*Const
}

// Func is a typed function or method.
type Func struct {
	Def      types.DefId
	Name     string
	QualName string // `Type::method` for methods, Name otherwise
	Self     *Param // nil for free functions
	SelfMode resolve.SelfMode
	Params   []Param
	Ret      types.Type
	Body     *Block
	// Type parameters; non-empty means the function is generic and
	// only monomorphized copies reach the backend.
	TypeParams []types.TypeParamInfo
	Sp         source.Span
}

// IsGeneric reports whether the function needs monomorphization.
func (f *Func) IsGeneric() bool { return len(f.TypeParams) > 0 }

// Param is a typed parameter.
type Param struct {
	Def  types.DefId
	Name string
	Mut  bool
	Ty   types.Type
}

// Const is a typed constant.
type Const struct {
	Def   types.DefId
	Name  string
	Ty    types.Type
	Value Expr
	Sp    source.Span
}

// ---------------------------------------------------------------------------
// Expressions

// VarRef references a local, parameter, constant or extern static.
type VarRef struct {
	Def  types.DefId
	Name string
	Kind resolve.DefKind
	Ty   types.Type
	Sp   source.Span
}

// FuncRef references a function as a value or call target.
type FuncRef struct {
	Def      types.DefId
	Name     string
	QualName string
	// TypeArgs are the concrete types of a generic call; empty for
	// plain functions.
	TypeArgs []types.Type
	Extern   bool
	Ty       types.Type
	Sp       source.Span
}

// VariantCtor names an enum variant used as a constructor or value.
type VariantCtor struct {
	Enum    types.DefId
	Variant types.DefId
	Index   int
	Ty      types.Type // the enum type (unit variants) or ctor fn type
	Sp      source.Span
}

// IntLit is a typed integer literal.
type IntLit struct {
	Value int64
	Ty    types.Type
	Sp    source.Span
}

// FloatLit is a typed float literal.
type FloatLit struct {
	Value float64
	Ty    types.Type
	Sp    source.Span
}

// BoolLit is a typed bool literal.
type BoolLit struct {
	Value bool
	Sp    source.Span
}

// CharLit is a typed char literal.
type CharLit struct {
	Value rune
	Sp    source.Span
}

// StrLit is a plain string literal; interpolation is desugared away
// before typed expressions are built.
type StrLit struct {
	Value string
	Sp    source.Span
}

// Unary is `-e`, `!e` or `*e`.
type Unary struct {
	Op      string
	Operand Expr
	Ty      types.Type
	Sp      source.Span
}

// RefTake is `&e` or `&mut e`.
type RefTake struct {
	Mut     bool
	Operand Expr
	Ty      types.Type
	Sp      source.Span
}

// Binary is a primitive binary operation; overloaded operators are
// desugared to method calls and never reach this node. Operators on a
// type-parameter operand become TraitMethod calls instead.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
	Ty    types.Type
	Sp    source.Span
}

// Assign writes a value into a place. Compound operators are
// desugared, so Op is always plain `=` here.
type Assign struct {
	Target Expr
	Value  Expr
	Sp     source.Span
}

// Call applies a callee to arguments. Named arguments are already
// reordered to positional.
type Call struct {
	Callee Expr
	Args   []Expr
	Ty     types.Type
	Sp     source.Span
}

// MethodKind says how a method call dispatches.
type MethodKind int

const (
	// StructMethod is a resolved method on a nominal type.
	StructMethod MethodKind = iota
	// PrimitiveMethod is a method on a primitive type.
	PrimitiveMethod
	// TraitMethod is a call on a type-parameter receiver, resolved at
	// monomorphization.
	TraitMethod
)

// MethodCall is a resolved `recv.m(args)`.
type MethodCall struct {
	Kind MethodKind
	// Recv is the receiver, already dereferenced when the method takes
	// self by value; a by-reference self mode is recorded in SelfMode
	// and the reference is taken during lowering.
	Recv     Expr
	Method   types.DefId // unset for TraitMethod
	Name     string
	RecvName string // receiver type name for mangling
	SelfMode resolve.SelfMode
	// Bounds carries the trait bound candidates of a TraitMethod.
	Bounds []types.DefId
	// TypeArgs are the solved impl type parameters of a generic
	// method call.
	TypeArgs []types.Type
	Args     []Expr
	Ty       types.Type
	Sp       source.Span
}

// FieldAccess reads a struct field by index.
type FieldAccess struct {
	Recv  Expr
	Index int
	Name  string
	Ty    types.Type
	Sp    source.Span
}

// Index is `recv[i]`.
type Index struct {
	Recv  Expr
	Idx   Expr
	Ty    types.Type
	Sp    source.Span
}

// StructLit constructs a struct; Fields are ordered by declaration
// index.
type StructLit struct {
	Def    types.DefId
	Fields []Expr
	Ty     types.Type
	Sp     source.Span
}

// ArrayLit is `[a, b]`.
type ArrayLit struct {
	Elems []Expr
	Ty    types.Type
	Sp    source.Span
}

// TupleLit is `(a, b)`.
type TupleLit struct {
	Elems []Expr
	Ty    types.Type
	Sp    source.Span
}

// UnitLit is `()`.
type UnitLit struct {
	Sp source.Span
}

// Block is a typed block; its type is the tail expression's or unit.
type Block struct {
	Stmts []Stmt
	Ty    types.Type
	Sp    source.Span
}

// If is a typed conditional.
type If struct {
	Cond Expr
	Then *Block
	Else Expr // nil when absent
	Ty   types.Type
	Sp   source.Span
}

// MatchArm is one typed match arm.
type MatchArm struct {
	Pat  Pattern
	Body Expr
	Sp   source.Span
}

// Match is a typed match expression.
type Match struct {
	Scrutinee Expr
	Arms      []MatchArm
	Ty        types.Type
	Sp        source.Span
}

// Lambda is a typed lambda; it lifts to a top-level function during
// lowering.
type Lambda struct {
	Def    types.DefId
	Params []Param
	Body   Expr
	Ty     types.Type
	Sp     source.Span
}

// Cast is a typed `e as T`.
type Cast struct {
	E      Expr
	Target types.Type
	Sp     source.Span
}

// ErrorExpr carries on after a type error.
type ErrorExpr struct {
	Sp source.Span
}

func (e *VarRef) Type() types.Type      { return e.Ty }
func (e *FuncRef) Type() types.Type     { return e.Ty }
func (e *VariantCtor) Type() types.Type { return e.Ty }
func (e *IntLit) Type() types.Type      { return e.Ty }
func (e *FloatLit) Type() types.Type    { return e.Ty }
func (e *BoolLit) Type() types.Type     { return types.TBool }
func (e *CharLit) Type() types.Type     { return types.TChar }
func (e *StrLit) Type() types.Type      { return types.TStr }
func (e *Unary) Type() types.Type       { return e.Ty }
func (e *RefTake) Type() types.Type     { return e.Ty }
func (e *Binary) Type() types.Type      { return e.Ty }
func (e *Assign) Type() types.Type      { return types.TUnit }
func (e *Call) Type() types.Type        { return e.Ty }
func (e *MethodCall) Type() types.Type  { return e.Ty }
func (e *FieldAccess) Type() types.Type { return e.Ty }
func (e *Index) Type() types.Type       { return e.Ty }
func (e *StructLit) Type() types.Type   { return e.Ty }
func (e *ArrayLit) Type() types.Type    { return e.Ty }
func (e *TupleLit) Type() types.Type    { return e.Ty }
func (e *UnitLit) Type() types.Type     { return types.TUnit }
func (e *Block) Type() types.Type       { return e.Ty }
func (e *If) Type() types.Type          { return e.Ty }
func (e *Match) Type() types.Type       { return e.Ty }
func (e *Lambda) Type() types.Type      { return e.Ty }
func (e *Cast) Type() types.Type        { return e.Target }
func (e *ErrorExpr) Type() types.Type   { return types.TErr }

func (e *VarRef) Span() source.Span      { return e.Sp }
func (e *FuncRef) Span() source.Span     { return e.Sp }
func (e *VariantCtor) Span() source.Span { return e.Sp }
func (e *IntLit) Span() source.Span      { return e.Sp }
func (e *FloatLit) Span() source.Span    { return e.Sp }
func (e *BoolLit) Span() source.Span     { return e.Sp }
func (e *CharLit) Span() source.Span     { return e.Sp }
func (e *StrLit) Span() source.Span      { return e.Sp }
func (e *Unary) Span() source.Span       { return e.Sp }
func (e *RefTake) Span() source.Span     { return e.Sp }
func (e *Binary) Span() source.Span      { return e.Sp }
func (e *Assign) Span() source.Span      { return e.Sp }
func (e *Call) Span() source.Span        { return e.Sp }
func (e *MethodCall) Span() source.Span  { return e.Sp }
func (e *FieldAccess) Span() source.Span { return e.Sp }
func (e *Index) Span() source.Span       { return e.Sp }
func (e *StructLit) Span() source.Span   { return e.Sp }
func (e *ArrayLit) Span() source.Span    { return e.Sp }
func (e *TupleLit) Span() source.Span    { return e.Sp }
func (e *UnitLit) Span() source.Span     { return e.Sp }
func (e *Block) Span() source.Span       { return e.Sp }
func (e *If) Span() source.Span          { return e.Sp }
func (e *Match) Span() source.Span       { return e.Sp }
func (e *Lambda) Span() source.Span      { return e.Sp }
func (e *Cast) Span() source.Span        { return e.Sp }
func (e *ErrorExpr) Span() source.Span   { return e.Sp }

// ---------------------------------------------------------------------------
// Statements

// Let is a typed binding.
type Let struct {
	Def   types.DefId
	Name  string
	Mut   bool
	Ty    types.Type
	Value Expr
	Sp    source.Span
}

// ExprStmt is an expression statement.
type ExprStmt struct {
	E    Expr
	Semi bool
	Sp   source.Span
}

// Return exits the function.
type Return struct {
	Value Expr // nil for bare return
	Sp    source.Span
}

// While is a typed loop.
type While struct {
	Cond Expr
	Body *Block
	Sp   source.Span
}

// For is a typed range loop.
type For struct {
	Def  types.DefId
	Name string
	Ty   types.Type
	Lo   Expr
	Hi   Expr
	Body *Block
	Sp   source.Span
}

// Defer schedules a call for function exit.
type Defer struct {
	Call Expr
	Sp   source.Span
}

func (s *Let) Span() source.Span      { return s.Sp }
func (s *ExprStmt) Span() source.Span { return s.Sp }
func (s *Return) Span() source.Span   { return s.Sp }
func (s *While) Span() source.Span    { return s.Sp }
func (s *For) Span() source.Span      { return s.Sp }
func (s *Defer) Span() source.Span    { return s.Sp }

func (s *Let) typedStmt()      {}
func (s *ExprStmt) typedStmt() {}
func (s *Return) typedStmt()   {}
func (s *While) typedStmt()    {}
func (s *For) typedStmt()      {}
func (s *Defer) typedStmt()    {}

// ---------------------------------------------------------------------------
// Patterns

// WildcardPat matches anything.
type WildcardPat struct {
	Sp source.Span
}

// BindPat binds the scrutinee (or a variant payload field).
type BindPat struct {
	Def  types.DefId
	Name string
	Ty   types.Type
	Sp   source.Span
}

// LitPat matches a literal value.
type LitPat struct {
	Lit Expr
	Sp  source.Span
}

// TuplePat destructures a tuple.
type TuplePat struct {
	Elems []Pattern
	Sp    source.Span
}

// VariantPat matches one enum variant and binds its payload.
type VariantPat struct {
	Enum    types.DefId
	Variant types.DefId
	Index   int
	Elems   []Pattern
	Sp      source.Span
}

func (p *WildcardPat) Span() source.Span { return p.Sp }
func (p *BindPat) Span() source.Span     { return p.Sp }
func (p *LitPat) Span() source.Span      { return p.Sp }
func (p *TuplePat) Span() source.Span    { return p.Sp }
func (p *VariantPat) Span() source.Span  { return p.Sp }

func (p *WildcardPat) typedPattern() {}
func (p *BindPat) typedPattern()     {}
func (p *LitPat) typedPattern()      {}
func (p *TuplePat) typedPattern()    {}
func (p *VariantPat) typedPattern()  {}
