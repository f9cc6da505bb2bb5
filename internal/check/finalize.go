package check

import (
	"github.com/wisplang/wisp/internal/types"
)

// finalize applies the substitution to every stored type so the
// program handed to the borrow checker carries no inference
// variables. Unsolved variables are replaced with the error sentinel;
// no diagnostic is reported for them here.
func (c *Checker) finalize() {
	for _, fn := range c.out.Functions {
		if fn.Self != nil {
			fn.Self.Ty = c.applyChecked(fn.Self.Ty)
		}
		for i := range fn.Params {
			fn.Params[i].Ty = c.applyChecked(fn.Params[i].Ty)
		}
		fn.Ret = c.applyChecked(fn.Ret)
		if fn.Body != nil {
			c.finalizeBlock(fn.Body)
		}
	}
	for _, cd := range c.out.Consts {
		cd.Ty = c.applyChecked(cd.Ty)
		c.finalizeExpr(cd.Value)
	}
	// Local variable types feed the borrow checker and the lowerer.
	for def, ty := range c.varTypes {
		c.ctx.DefTypes[def] = c.ctx.Apply(ty)
	}
}

func (c *Checker) applyChecked(t types.Type) types.Type {
	out := c.ctx.Apply(t)
	if types.HasVar(out) {
		return types.TErr
	}
	return out
}

func (c *Checker) finalizeBlock(b *Block) {
	b.Ty = c.applyChecked(b.Ty)
	for _, s := range b.Stmts {
		c.finalizeStmt(s)
	}
}

func (c *Checker) finalizeStmt(s Stmt) {
	switch st := s.(type) {
	case *Let:
		st.Ty = c.applyChecked(st.Ty)
		c.finalizeExpr(st.Value)
		c.ctx.SpanTypes[st.Sp] = c.ctx.TypeString(st.Ty)
	case *ExprStmt:
		c.finalizeExpr(st.E)
	case *Return:
		if st.Value != nil {
			c.finalizeExpr(st.Value)
		}
	case *While:
		c.finalizeExpr(st.Cond)
		c.finalizeBlock(st.Body)
	case *For:
		st.Ty = c.applyChecked(st.Ty)
		c.finalizeExpr(st.Lo)
		c.finalizeExpr(st.Hi)
		c.finalizeBlock(st.Body)
	case *Defer:
		c.finalizeExpr(st.Call)
	}
}

func (c *Checker) finalizeExpr(e Expr) {
	switch ex := e.(type) {
	case *VarRef:
		ex.Ty = c.applyChecked(ex.Ty)
	case *FuncRef:
		if f, ok := c.applyChecked(ex.Ty).(*types.Function); ok {
			ex.Ty = f
		}
		for i, a := range ex.TypeArgs {
			ex.TypeArgs[i] = c.applyChecked(a)
		}
	case *VariantCtor:
		ex.Ty = c.applyChecked(ex.Ty)
	case *IntLit:
		ex.Ty = c.applyChecked(ex.Ty)
	case *FloatLit:
		ex.Ty = c.applyChecked(ex.Ty)
	case *Unary:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Operand)
	case *RefTake:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Operand)
	case *Binary:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Left)
		c.finalizeExpr(ex.Right)
	case *Assign:
		c.finalizeExpr(ex.Target)
		c.finalizeExpr(ex.Value)
	case *Call:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Callee)
		for _, a := range ex.Args {
			c.finalizeExpr(a)
		}
	case *MethodCall:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Recv)
		for i, a := range ex.TypeArgs {
			ex.TypeArgs[i] = c.applyChecked(a)
		}
		for _, a := range ex.Args {
			c.finalizeExpr(a)
		}
	case *FieldAccess:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Recv)
	case *Index:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Recv)
		c.finalizeExpr(ex.Idx)
	case *StructLit:
		ex.Ty = c.applyChecked(ex.Ty)
		for _, f := range ex.Fields {
			c.finalizeExpr(f)
		}
	case *ArrayLit:
		ex.Ty = c.applyChecked(ex.Ty)
		for _, el := range ex.Elems {
			c.finalizeExpr(el)
		}
	case *TupleLit:
		ex.Ty = c.applyChecked(ex.Ty)
		for _, el := range ex.Elems {
			c.finalizeExpr(el)
		}
	case *Block:
		c.finalizeBlock(ex)
	case *If:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Cond)
		c.finalizeBlock(ex.Then)
		if ex.Else != nil {
			c.finalizeExpr(ex.Else)
		}
	case *Match:
		ex.Ty = c.applyChecked(ex.Ty)
		c.finalizeExpr(ex.Scrutinee)
		for _, arm := range ex.Arms {
			c.finalizePattern(arm.Pat)
			c.finalizeExpr(arm.Body)
		}
	case *Lambda:
		ex.Ty = c.applyChecked(ex.Ty)
		for i := range ex.Params {
			ex.Params[i].Ty = c.applyChecked(ex.Params[i].Ty)
		}
		c.finalizeExpr(ex.Body)
	case *Cast:
		ex.Target = c.applyChecked(ex.Target)
		c.finalizeExpr(ex.E)
	}
}

func (c *Checker) finalizePattern(p Pattern) {
	switch pt := p.(type) {
	case *BindPat:
		pt.Ty = c.applyChecked(pt.Ty)
	case *LitPat:
		c.finalizeExpr(pt.Lit)
	case *TuplePat:
		for _, el := range pt.Elems {
			c.finalizePattern(el)
		}
	case *VariantPat:
		for _, el := range pt.Elems {
			c.finalizePattern(el)
		}
	}
}
