// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package syntax

import (
	"strconv"

	"github.com/gogpu/fragc/diag"
)

// Node carries the source location of a statement or expression.
type Node struct {
	Location diag.Location
}

// Loc returns the node's location.
func (n Node) Loc() diag.Location {
	return n.Location
}

// Stmt is a statement.
type Stmt interface {
	Loc() diag.Location
	stmt()
}

// Expr is a type-checked expression.
type Expr interface {
	Loc() diag.Location
	// Type returns the checked result type.
	Type() TypeRef
	expr()
}

// Typed carries an expression's checked result type.
type Typed struct {
	Node
	Result TypeRef
}

// Type returns the checked result type.
func (t Typed) Type() TypeRef {
	return t.Result
}

// LocalStmt declares a local variable.
type LocalStmt struct {
	Node
	Name string
	Type TypeRef
	Init Expr
}

// AssignStmt assigns Value to Target. Op is empty for plain assignment or
// the binary operator of a compound assignment ("+" for "+=").
type AssignStmt struct {
	Node
	Target Expr
	Op     string
	Value  Expr
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	Node
	X Expr
}

// ReturnStmt returns from the enclosing function. Value is nil for void.
type ReturnStmt struct {
	Node
	Value Expr
}

// IfStmt is a conditional. Else may be empty.
type IfStmt struct {
	Node
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	Node
	Cond Expr
	Body []Stmt
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct{ Node }

// ContinueStmt jumps to the next iteration of the innermost loop.
type ContinueStmt struct{ Node }

func (*LocalStmt) stmt()    {}
func (*AssignStmt) stmt()   {}
func (*ExprStmt) stmt()     {}
func (*ReturnStmt) stmt()   {}
func (*IfStmt) stmt()       {}
func (*WhileStmt) stmt()    {}
func (*BreakStmt) stmt()    {}
func (*ContinueStmt) stmt() {}

// LiteralExpr is a literal in source spelling ("1.5", "3", "true").
type LiteralExpr struct {
	Typed
	Value string
}

// NameExpr references a local variable or parameter.
type NameExpr struct {
	Typed
	Name string
}

// ThisExpr references the receiver of the enclosing function.
type ThisExpr struct{ Typed }

// MemberExpr accesses a field, property or swizzle of X.
type MemberExpr struct {
	Typed
	X      Expr
	Member string
}

// CallExpr calls a function. Receiver is set for member calls, Owner for
// static calls; when both are empty the call targets the enclosing type.
type CallExpr struct {
	Typed
	Receiver Expr
	Owner    string
	Name     string
	Args     []Expr
}

// ConstructExpr constructs a value of its result type.
type ConstructExpr struct {
	Typed
	Args []Expr
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Typed
	Op   string
	X, Y Expr
}

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Typed
	Op string
	X  Expr
}

// CastExpr converts X to its result type.
type CastExpr struct {
	Typed
	X Expr
}

// IndexExpr indexes X.
type IndexExpr struct {
	Typed
	X     Expr
	Index Expr
}

func (*LiteralExpr) expr()   {}
func (*NameExpr) expr()      {}
func (*ThisExpr) expr()      {}
func (*MemberExpr) expr()    {}
func (*CallExpr) expr()      {}
func (*ConstructExpr) expr() {}
func (*BinaryExpr) expr()    {}
func (*UnaryExpr) expr()     {}
func (*CastExpr) expr()      {}
func (*IndexExpr) expr()     {}

// LiteralInt returns the value of a 32-bit integer literal expression.
// Values use Go integer syntax, so 0x9 and 0b101 are literals too.
func LiteralInt(e Expr) (int, bool) {
	lit, ok := e.(*LiteralExpr)
	if !ok || lit.Result.Name != "Integer" {
		return 0, false
	}
	n, err := strconv.ParseInt(lit.Value, 0, 32)
	return int(n), err == nil
}
