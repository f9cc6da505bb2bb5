package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyPrimitives(t *testing.T) {
	c := NewContext()
	assert.NoError(t, c.Unify(TI32, TI32))
	assert.Error(t, c.Unify(TI32, TI64))
	assert.Error(t, c.Unify(TBool, TF64))
}

func TestUnifyVarBinds(t *testing.T) {
	c := NewContext()
	v := c.NewVar()
	require.NoError(t, c.Unify(v, TI32))
	assert.True(t, c.Apply(v).Equal(TI32))

	// Unifying again with the bound type is fine; with another is not.
	assert.NoError(t, c.Unify(v, TI32))
	assert.Error(t, c.Unify(v, TBool))
}

func TestUnifySuccessImpliesApplyEqual(t *testing.T) {
	c := NewContext()
	v1, v2 := c.NewVar(), c.NewVar()
	a := &Function{Params: []Type{v1, TBool}, Ret: v2}
	b := &Function{Params: []Type{TI32, TBool}, Ret: &Ref{Inner: TStr}}
	require.NoError(t, c.Unify(a, b))
	assert.True(t, c.Apply(a).Equal(c.Apply(b)))
}

func TestApplyIdempotent(t *testing.T) {
	c := NewContext()
	v := c.NewVar()
	inner := c.NewVar()
	require.NoError(t, c.Unify(inner, TI64))
	require.NoError(t, c.Unify(v, &Slice{Elem: inner}))

	once := c.Apply(v)
	twice := c.Apply(once)
	assert.True(t, once.Equal(twice))
	assert.False(t, HasVar(once))
}

func TestUnifyRefMutability(t *testing.T) {
	c := NewContext()
	assert.NoError(t, c.Unify(&Ref{Inner: TI32}, &Ref{Inner: TI32}))
	assert.Error(t, c.Unify(&Ref{Inner: TI32}, &Ref{Mut: true, Inner: TI32}))
}

func TestUnifyErrorAndNeverAbsorb(t *testing.T) {
	c := NewContext()
	assert.NoError(t, c.Unify(TErr, TI32))
	assert.NoError(t, c.Unify(&Struct{Def: 7}, TErr))
	assert.NoError(t, c.Unify(TNever, TBool))
	assert.NoError(t, c.Unify(&Tuple{Elems: []Type{TI32}}, TNever))
}

func TestUnifyNominal(t *testing.T) {
	c := NewContext()
	v := c.NewVar()
	a := &Struct{Def: 3, Args: []Type{v}}
	b := &Struct{Def: 3, Args: []Type{TI32}}
	require.NoError(t, c.Unify(a, b))
	assert.True(t, c.Apply(v).Equal(TI32))

	assert.Error(t, c.Unify(&Struct{Def: 3}, &Struct{Def: 4}))
	assert.Error(t, c.Unify(&Struct{Def: 3}, &Enum{Def: 3}))
}

func TestUnifyTypeParam(t *testing.T) {
	c := NewContext()
	p := &TypeParam{Def: 9, Name: "T"}
	assert.NoError(t, c.Unify(p, &TypeParam{Def: 9, Name: "T"}))
	assert.Error(t, c.Unify(p, &TypeParam{Def: 10, Name: "U"}))
	assert.Error(t, c.Unify(p, TI32))
}

func TestOccursCheck(t *testing.T) {
	c := NewContext()
	v := c.NewVar()
	assert.Error(t, c.Unify(v, &Slice{Elem: v}))
}

func TestMangle(t *testing.T) {
	tests := []struct {
		ty   Type
		want string
	}{
		{TI8, "i8"},
		{TU128, "u128"},
		{TStr, "str"},
		{TUnit, "unit"},
		{&Struct{Def: 5}, "S5"},
		{&Enum{Def: 2}, "E2"},
		{&Struct{Def: 5, Args: []Type{TI32}}, "S5<i32>"},
		{&Ref{Inner: TI32}, "Ri32"},
		{&Ref{Mut: true, Inner: &Struct{Def: 1}}, "RmS1"},
		{&Slice{Elem: TU8}, "Slu8"},
		{&Array{Elem: TF32, Size: 4}, "A4_f32"},
		{&Tuple{Elems: []Type{TI32, TBool}}, "Ti32_bool"},
		{&Function{Params: []Type{TI32}, Ret: TBool}, "Fi32_bool"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MangleType(tt.ty))
	}
	assert.Equal(t, "sum<S5>", MangleGeneric("sum", []Type{&Struct{Def: 5}}))
	assert.Equal(t, "Point::add", MangleMethod("Point", "add"))
}

func TestInstantiationDedup(t *testing.T) {
	c := NewContext()
	assert.True(t, c.RecordInstantiation(1, []Type{TI32}))
	assert.False(t, c.RecordInstantiation(1, []Type{TI32}))
	assert.True(t, c.RecordInstantiation(1, []Type{TI64}))
	assert.True(t, c.RecordInstantiation(2, []Type{TI32}))

	insts := c.Instantiations()
	assert.Len(t, insts, 3)
	// Sorted by (DefId, mangled args).
	assert.Equal(t, DefId(1), insts[0].Func)
	assert.Equal(t, DefId(1), insts[1].Func)
	assert.Equal(t, DefId(2), insts[2].Func)
}
