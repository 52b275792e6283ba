// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/resolve"
	"github.com/gogpu/fragc/syntax"
	"github.com/gogpu/fragc/translate"
)

// expr renders e.
func (f *funcWriter) expr(e syntax.Expr) string {
	if loc := e.Loc(); loc.Line != 0 {
		f.loc = loc
	}
	switch e := e.(type) {
	case *syntax.LiteralExpr:
		switch e.Result.Name {
		case resolve.Real:
			return realLiteral(e.Value)
		case resolve.Boolean:
			return strings.ToLower(e.Value)
		}
		return e.Value

	case *syntax.NameExpr:
		if name, ok := f.lookup(e.Name); ok {
			return name
		}
		f.errorf(diag.KindResolution, "undefined name %s", e.Name)
		return f.g.zero(e.Result, f.loc)

	case *syntax.ThisExpr:
		if f.static {
			f.errorf(diag.KindResolution, "this used in a static function")
		}
		return "self"

	case *syntax.MemberExpr:
		return f.member(e)

	case *syntax.IndexExpr:
		return f.index(e)

	case *syntax.CallExpr:
		return f.call(e)

	case *syntax.ConstructExpr:
		return f.construct(e)

	case *syntax.BinaryExpr:
		return f.binary(e.Op, e.X.Type(), f.expr(e.X), f.expr(e.Y))

	case *syntax.UnaryExpr:
		return "(" + e.Op + f.expr(e.X) + ")"

	case *syntax.CastExpr:
		x := f.expr(e.X)
		if e.X.Type().String() == e.Result.String() {
			return x
		}
		return f.g.typeName(e.Result, f.loc) + "(" + x + ")"
	}
	f.errorf(diag.KindResolution, "unsupported expression %T", e)
	return "0"
}

func (f *funcWriter) exprs(es []syntax.Expr) ([]string, []string) {
	args := make([]string, len(es))
	types := make([]string, len(es))
	for i, e := range es {
		args[i] = f.expr(e)
		types[i] = e.Type().String()
	}
	return args, types
}

// binary renders x op y. Real remainders use mod, which GLSL defines with
// the sign of y like the binary backend's OpFMod.
func (f *funcWriter) binary(op string, xt syntax.TypeRef, x, y string) string {
	if op == "%" && family(xt) == resolve.Real {
		return "mod(" + x + ", " + y + ")"
	}
	return "(" + x + " " + op + " " + y + ")"
}

// family returns the scalar family of a value type reference, or "".
func family(ref syntax.TypeRef) string {
	if vt, ok := valueTypes[ref.Name]; ok && !ref.IsTemplate() {
		return vt.family
	}
	return ""
}

var swizzleComponents = map[rune]byte{
	'x': 'x', 'X': 'x', 'r': 'x', 'R': 'x',
	'y': 'y', 'Y': 'y', 'g': 'y', 'G': 'y',
	'z': 'z', 'Z': 'z', 'b': 'z', 'B': 'z',
	'w': 'w', 'W': 'w', 'a': 'w', 'A': 'w',
}

var componentIndex = map[byte]uint32{'x': 0, 'y': 1, 'z': 2, 'w': 3}

// swizzle normalizes a component selection to xyzw spelling.
func swizzle(name string, n uint32) (string, bool, bool) {
	if len(name) == 0 || len(name) > 4 {
		return "", false, false
	}
	out := make([]byte, 0, len(name))
	inRange := true
	for _, c := range name {
		comp, ok := swizzleComponents[c]
		if !ok {
			return "", false, false
		}
		if componentIndex[comp] >= n {
			inRange = false
		}
		out = append(out, comp)
	}
	return string(out), inRange, true
}

func (f *funcWriter) member(e *syntax.MemberExpr) string {
	xt := e.X.Type()
	if info := f.g.fragment(xt); info != nil {
		slot := info.Fields[e.Member]
		if slot == nil {
			f.errorf(diag.KindResolution, "no field %s on %s", e.Member, xt)
			return f.g.zero(e.Result, f.loc)
		}
		if slot.IsResource() {
			f.expr(e.X)
			return f.g.resource(slot)
		}
		return f.expr(e.X) + "." + escapeKeyword(slot.Field.Name)
	}

	x := f.expr(e.X)
	if vt, ok := valueTypes[xt.Name]; ok && !xt.IsTemplate() && !vt.matrix {
		sw, inRange, ok := swizzle(e.Member, vt.n)
		switch {
		case !ok:
		case !inRange:
			f.errorf(diag.KindInterface, "swizzle %s is out of range for %s", e.Member, xt)
			return f.g.zero(e.Result, f.loc)
		case vt.n == 1:
			// Scalars have no components in GLSL.
			if len(sw) == 1 {
				return x
			}
			return f.g.typeName(e.Result, f.loc) + "(" + x + ")"
		default:
			return x + "." + sw
		}
	}
	if e.Member == "Count" {
		if count, ok := f.count(xt, x); ok {
			return count
		}
	}
	f.errorf(diag.KindResolution, "no field %s on %s", e.Member, xt)
	return f.g.zero(e.Result, f.loc)
}

// count renders the element count of an array or input stream.
func (f *funcWriter) count(ref syntax.TypeRef, x string) (string, bool) {
	if n, ok := arrayLength(ref); ok {
		return fmt.Sprint(n), true
	}
	if ref.Name == resolve.TemplateRuntimeArray {
		return x + ".length()", true
	}
	return "", false
}

func isIndexable(ref syntax.TypeRef) bool {
	_, fixed := arrayLength(ref)
	return fixed || ref.Name == resolve.TemplateRuntimeArray
}

func (f *funcWriter) index(e *syntax.IndexExpr) string {
	xt := e.X.Type()
	x := f.expr(e.X)
	if n, ok := arrayLength(xt); ok {
		if i, lit := syntax.LiteralInt(e.Index); lit && (i < 0 || uint32(i) >= n) {
			f.errorf(diag.KindInterface, "index %d is out of range for %s (valid range is 0 to %d)", i, xt, n-1)
			return f.g.zero(e.Result, f.loc)
		}
	}
	if vt, ok := valueTypes[xt.Name]; ok && !xt.IsTemplate() && (vt.n > 1 || vt.matrix) {
		return x + "[" + f.expr(e.Index) + "]"
	}
	if !isIndexable(xt) {
		f.errorf(diag.KindResolution, "%s cannot be indexed", xt)
		return f.g.zero(e.Result, f.loc)
	}
	return x + "[" + f.expr(e.Index) + "]"
}

func (f *funcWriter) construct(e *syntax.ConstructExpr) string {
	ref := e.Result
	args, types := f.exprs(e.Args)
	if vt, ok := valueTypes[ref.Name]; ok && !ref.IsTemplate() {
		if len(args) == 0 {
			return vt.zero()
		}
		return vt.glsl + "(" + strings.Join(args, ", ") + ")"
	}
	if n, ok := arrayLength(ref); ok && ref.Name == resolve.TemplateFixedArray {
		if len(args) == 0 {
			return f.g.zero(ref, f.loc)
		}
		if uint32(len(args)) != n {
			f.errorf(diag.KindInterface, "initializer list for %s has %d values, expected %d", ref, len(args), n)
			return f.g.zero(ref, f.loc)
		}
		return f.g.typeName(ref, f.loc) + "(" + strings.Join(args, ", ") + ")"
	}
	if info := f.g.fragment(ref); info != nil {
		return f.g.factory(info, types, f.loc) + "(" + strings.Join(args, ", ") + ")"
	}
	f.errorf(diag.KindResolution, "no constructor %s(%s)", ref, resolve.Signature(types...))
	return f.g.zero(ref, f.loc)
}

func (f *funcWriter) call(e *syntax.CallExpr) string {
	switch {
	case e.Receiver != nil:
		rt := e.Receiver.Type()
		if info := f.g.fragment(rt); info != nil {
			if !assignable(e.Receiver) {
				f.expr(e.Receiver)
				f.errorf(diag.KindResolution, "%s.%s needs an assignable receiver", rt, e.Name)
				return f.failed(e)
			}
			recv := f.expr(e.Receiver)
			args, types := f.exprs(e.Args)
			return f.userCall(info, e, recv, args, types)
		}
		recv := f.expr(e.Receiver)
		args, _ := f.exprs(e.Args)
		if _, ok := streamOutputs[rt.Name]; ok {
			switch e.Name {
			case "Append":
				vertex, _ := elementRef(rt)
				return f.g.appendCall(vertex, args, f.loc)
			case "Restart":
				return "EndPrimitive()"
			}
		}
		if isIndexable(rt) {
			switch {
			case e.Name == "Count" && len(args) == 0:
				count, _ := f.count(rt, recv)
				return count
			case e.Name == "Get" && len(args) == 1:
				return recv + "[" + args[0] + "]"
			case e.Name == "Set" && len(args) == 2:
				if !assignable(e.Receiver) {
					f.errorf(diag.KindResolution, "%s.Set needs an assignable receiver", rt)
					return f.failed(e)
				}
				return recv + "[" + args[0] + "] = " + args[1]
			}
		}
		if fn, ok := f.g.reg.lookup(rt.Name, e.Name); ok {
			return fn(f, recv, args)
		}
		f.errorf(diag.KindResolution, "no function %s.%s", rt, e.Name)
		return f.failed(e)

	case e.Owner != "":
		args, types := f.exprs(e.Args)
		if info := f.g.unit.LookupType(e.Owner); info != nil {
			return f.userCall(info, e, "", args, types)
		}
		if fn, ok := f.g.reg.lookup(e.Owner, e.Name); ok {
			return fn(f, "", args)
		}
		f.errorf(diag.KindResolution, "no function %s.%s", e.Owner, e.Name)
		return f.failed(e)
	}

	args, types := f.exprs(e.Args)
	self := "self"
	if f.static {
		self = ""
	}
	return f.userCall(f.owner, e, self, args, types)
}

// userCall renders a call to a member function of a fragment type. self
// is empty when no receiver is available.
func (f *funcWriter) userCall(info *translate.TypeInfo, e *syntax.CallExpr, self string, args, types []string) string {
	fn := f.g.method(info, e.Name, resolve.Signature(types...), len(args))
	if fn == nil {
		f.errorf(diag.KindResolution, "no function %s.%s(%s)", info.Decl.Name, e.Name, resolve.Signature(types...))
		return f.failed(e)
	}
	if !fn.static {
		if self == "" {
			f.errorf(diag.KindResolution, "%s.%s is not static and needs a receiver", info.Decl.Name, e.Name)
			return f.failed(e)
		}
		args = append([]string{self}, args...)
	}
	return fn.name + "(" + strings.Join(args, ", ") + ")"
}

// failed returns the stand-in text of a call that could not be rendered.
func (f *funcWriter) failed(e *syntax.CallExpr) string {
	if e.Result.IsVoid() {
		return ""
	}
	return f.g.zero(e.Result, f.loc)
}
