// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package translate

import (
	"strconv"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/ir"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/syntax"
)

type loopTargets struct {
	merge, cont *ir.Block
}

// funcState translates the body of one function.
type funcState struct {
	t    *translator
	info *TypeInfo
	fn   *ir.Function
	b    *ir.Builder
	ctx  *resolve.Context
	self ir.Value

	scopes []map[string]ir.Value
	loops  []loopTargets
}

func (s *funcState) errorf(kind diag.Kind, format string, args ...any) {
	s.ctx.Errorf(kind, format, args...)
}

func (s *funcState) declare(name string, ptr ir.Value) {
	s.scopes[len(s.scopes)-1][name] = ptr
}

func (s *funcState) lookup(name string) ir.Value {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

func (s *funcState) block(stmts []syntax.Stmt) {
	s.scopes = append(s.scopes, map[string]ir.Value{})
	for _, st := range stmts {
		s.stmt(st)
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *funcState) stmt(st syntax.Stmt) {
	if loc := st.Loc(); loc.Line != 0 {
		s.ctx.Location = loc
	}
	switch st := st.(type) {
	case *syntax.LocalStmt:
		t := s.t.resolveType(st.Type, st.Location)
		ptr := s.b.Local(st.Name, t)
		if st.Init != nil {
			if v := s.rvalue(st.Init); v != nil {
				s.b.Store(ptr, v)
			}
		} else {
			s.b.Store(ptr, s.t.unit.Library.ConstantNull(t))
		}
		s.declare(st.Name, ptr)

	case *syntax.AssignStmt:
		s.assign(st)

	case *syntax.ExprStmt:
		s.expr(st.X)

	case *syntax.ReturnStmt:
		if st.Value == nil {
			s.b.Return()
			return
		}
		v := s.rvalue(st.Value)
		if v == nil {
			v = s.ctx.Placeholder(s.fn.ReturnType)
		}
		s.b.ReturnValue(v)

	case *syntax.IfStmt:
		cond := s.rvalue(st.Cond)
		merge := s.b.NewBlock("merge")
		then := s.b.NewBlock("then")
		otherwise := merge
		if len(st.Else) > 0 {
			otherwise = s.b.NewBlock("else")
		}
		s.b.SelectionMerge(merge)
		s.b.BranchConditional(cond, then, otherwise)

		s.b.SetBlock(then)
		s.block(st.Then)
		if !s.b.Block.Terminated() {
			s.b.Branch(merge)
		}
		if otherwise != merge {
			s.b.SetBlock(otherwise)
			s.block(st.Else)
			if !s.b.Block.Terminated() {
				s.b.Branch(merge)
			}
		}
		s.b.SetBlock(merge)

	case *syntax.WhileStmt:
		header := s.b.NewBlock("loop")
		body := s.b.NewBlock("body")
		cont := s.b.NewBlock("continue")
		merge := s.b.NewBlock("merge")
		s.b.Branch(header)

		s.b.SetBlock(header)
		cond := s.rvalue(st.Cond)
		s.b.LoopMerge(merge, cont)
		s.b.BranchConditional(cond, body, merge)

		s.b.SetBlock(body)
		s.loops = append(s.loops, loopTargets{merge: merge, cont: cont})
		s.block(st.Body)
		s.loops = s.loops[:len(s.loops)-1]
		if !s.b.Block.Terminated() {
			s.b.Branch(cont)
		}
		s.b.SetBlock(cont)
		s.b.Branch(header)
		s.b.SetBlock(merge)

	case *syntax.BreakStmt:
		if len(s.loops) == 0 {
			s.errorf(diag.KindResolution, "break outside of a loop")
			return
		}
		s.b.Branch(s.loops[len(s.loops)-1].merge)

	case *syntax.ContinueStmt:
		if len(s.loops) == 0 {
			s.errorf(diag.KindResolution, "continue outside of a loop")
			return
		}
		s.b.Branch(s.loops[len(s.loops)-1].cont)

	default:
		s.errorf(diag.KindResolution, "unsupported statement %T", st)
	}
}

func (s *funcState) assign(st *syntax.AssignStmt) {
	target := s.expr(st.Target)
	var value ir.Value
	if st.Op == "" || st.Op == "=" {
		value = s.rvalue(st.Value)
	} else {
		value = s.binary(st.Op, st.Target, st.Value, s.ctx.Value(target), s.rvalue(st.Value))
	}
	if target == nil || value == nil {
		return
	}
	t := ir.TypeOf(target)
	if t == nil || t.Kind != ir.KindPointer {
		if op, ok := target.(*ir.Op); ok && op.Opcode == ir.OpUndef {
			return
		}
		s.errorf(diag.KindResolution, "cannot assign to %s", st.Target.Type())
		return
	}
	s.b.Store(target, value)
}

// rvalue translates e and loads the result when it is a reference.
func (s *funcState) rvalue(e syntax.Expr) ir.Value {
	v := s.expr(e)
	if v == nil {
		return nil
	}
	return s.ctx.Value(v)
}

func (s *funcState) rvalues(es []syntax.Expr) ([]ir.Value, string) {
	args := make([]ir.Value, 0, len(es))
	names := make([]string, 0, len(es))
	for _, e := range es {
		v := s.rvalue(e)
		if v == nil {
			v = s.placeholder(e.Type())
		}
		args = append(args, v)
		names = append(names, e.Type().String())
	}
	return args, resolve.Signature(names...)
}

func (s *funcState) placeholder(ref syntax.TypeRef) ir.Value {
	t, err := s.t.unit.Registry.ResolveType(ref)
	if err != nil || t.Kind == ir.KindVoid {
		t = nil
	}
	return s.ctx.Placeholder(t)
}

// typeName instantiates ref when it is a template and returns the name its
// resolvers are registered under.
func (s *funcState) typeName(ref syntax.TypeRef) string {
	if !ref.IsTemplate() {
		return ref.Name
	}
	tr, err := s.t.unit.Registry.Resolvers(ref)
	if err != nil {
		s.errorf(diag.KindResolution, "%v", err)
		return ref.String()
	}
	return tr.Name
}

// expr translates e. The result is a pointer for addressable expressions.
func (s *funcState) expr(e syntax.Expr) ir.Value {
	if loc := e.Loc(); loc.Line != 0 {
		s.ctx.Location = loc
	}
	lib := s.t.unit.Library
	switch e := e.(type) {
	case *syntax.LiteralExpr:
		return s.literal(e)

	case *syntax.NameExpr:
		if v := s.lookup(e.Name); v != nil {
			return v
		}
		s.errorf(diag.KindResolution, "undefined name %s", e.Name)
		return s.placeholder(e.Result)

	case *syntax.ThisExpr:
		if s.self == nil {
			s.errorf(diag.KindResolution, "this used in a static function")
			return s.placeholder(e.Result)
		}
		return s.self

	case *syntax.MemberExpr:
		base := s.expr(e.X)
		owner := s.typeName(e.X.Type())
		if v, ok := s.t.unit.Registry.Field(s.ctx, owner, e.Member, base); ok {
			return v
		}
		s.errorf(diag.KindResolution, "no field %s on %s", e.Member, owner)
		return s.placeholder(e.Result)

	case *syntax.CallExpr:
		return s.call(e)

	case *syntax.ConstructExpr:
		name := s.typeName(e.Result)
		args, sig := s.rvalues(e.Args)
		if v, ok := s.t.unit.Registry.Construct(s.ctx, name, sig, args); ok {
			return v
		}
		s.errorf(diag.KindResolution, "no constructor %s(%s)", name, sig)
		return s.placeholder(e.Result)

	case *syntax.BinaryExpr:
		return s.binary(e.Op, e.X, e.Y, s.rvalue(e.X), s.rvalue(e.Y))

	case *syntax.UnaryExpr:
		x := s.rvalue(e.X)
		operand := s.typeName(e.X.Type())
		if fn := s.t.unit.Registry.Unary(e.Op, operand); fn != nil && x != nil {
			return fn(s.ctx, x)
		}
		s.errorf(diag.KindResolution, "no operator %s%s", e.Op, operand)
		return s.placeholder(e.Result)

	case *syntax.CastExpr:
		x := s.rvalue(e.X)
		from, to := s.typeName(e.X.Type()), s.typeName(e.Result)
		if from == to {
			return x
		}
		if fn := s.t.unit.Registry.Cast(from, to); fn != nil && x != nil {
			return fn(s.ctx, x, s.t.resolveType(e.Result, e.Location))
		}
		s.errorf(diag.KindResolution, "no conversion from %s to %s", from, to)
		return s.placeholder(e.Result)

	case *syntax.IndexExpr:
		base := s.expr(e.X)
		owner := s.typeName(e.X.Type())
		idx := resolve.Index{Value: s.rvalue(e.Index)}
		if n, ok := syntax.LiteralInt(e.Index); ok {
			idx.Literal, idx.IsLiteral = n, true
		}
		if idx.Value == nil {
			idx.Value = lib.ConstantInt(0)
		}
		if v, ok := s.t.unit.Registry.Index(s.ctx, owner, base, idx); ok {
			return v
		}
		s.errorf(diag.KindResolution, "%s cannot be indexed", owner)
		return s.placeholder(e.Result)
	}
	s.errorf(diag.KindResolution, "unsupported expression %T", e)
	return s.ctx.Placeholder(nil)
}

func (s *funcState) binary(op string, xe, ye syntax.Expr, x, y ir.Value) ir.Value {
	left, right := s.typeName(xe.Type()), s.typeName(ye.Type())
	if fn := s.t.unit.Registry.Operator(op, left, right); fn != nil && x != nil && y != nil {
		return fn(s.ctx, x, y)
	}
	s.errorf(diag.KindResolution, "no operator %s %s %s", left, op, right)
	return s.placeholder(xe.Type())
}

func (s *funcState) call(e *syntax.CallExpr) ir.Value {
	var self ir.Value
	var owner string
	switch {
	case e.Receiver != nil:
		self = s.expr(e.Receiver)
		owner = s.typeName(e.Receiver.Type())
	case e.Owner != "":
		owner = e.Owner
	default:
		owner = s.info.Decl.Name
		self = s.self
	}
	args, sig := s.rvalues(e.Args)
	if v, ok := s.t.unit.Registry.Call(s.ctx, owner, e.Name, sig, self, args); ok {
		return v
	}
	s.errorf(diag.KindResolution, "no function %s.%s(%s)", owner, e.Name, sig)
	if e.Result.IsVoid() {
		return nil
	}
	return s.placeholder(e.Result)
}

func (s *funcState) literal(e *syntax.LiteralExpr) ir.Value {
	lib := s.t.unit.Library
	switch e.Result.Name {
	case resolve.Integer:
		if n, ok := syntax.LiteralInt(e); ok {
			return lib.ConstantInt(int32(n))
		}
	case resolve.Real:
		if f, err := strconv.ParseFloat(e.Value, 32); err == nil {
			return lib.ConstantFloat(float32(f))
		}
	case resolve.Boolean:
		if v, err := strconv.ParseBool(e.Value); err == nil {
			return lib.ConstantBool(v)
		}
	}
	s.errorf(diag.KindResolution, "invalid %s literal %q", e.Result, e.Value)
	return s.placeholder(e.Result)
}
