package java

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/imyousuf/CallEagle/internal/index"
)

// lowerer converts a method body into the index IR.
type lowerer struct {
	e      *extractor
	method *index.Method
}

func line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

func (l *lowerer) text(n *sitter.Node) string { return l.e.nodeText(n) }

// block lowers every statement child of a block-like node.
func (l *lowerer) block(n *sitter.Node) []*index.Stmt {
	if n == nil {
		return nil
	}
	var out []*index.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, l.stmt(n.NamedChild(i))...)
	}
	return out
}

func (l *lowerer) stmt(n *sitter.Node) []*index.Stmt {
	if n == nil {
		return nil
	}
	at := line(n)
	switch n.Type() {
	case "line_comment", "block_comment", ";", "switch_label":
		return nil

	case "block", "constructor_body", "switch_block_statement_group", "labeled_statement":
		return []*index.Stmt{{Kind: index.StmtBlock, Body: l.block(n), Line: at}}

	case "expression_statement":
		if n.NamedChildCount() == 0 {
			return nil
		}
		return []*index.Stmt{{Kind: index.StmtExpr, Expr: l.expr(n.NamedChild(0)), Line: at}}

	case "explicit_constructor_invocation":
		return []*index.Stmt{{Kind: index.StmtExpr, Expr: l.constructorInvocation(n), Line: at}}

	case "local_variable_declaration":
		return l.locals(n)

	case "return_statement", "yield_statement":
		var x *index.Expr
		if n.NamedChildCount() > 0 {
			x = l.expr(n.NamedChild(0))
		}
		return []*index.Stmt{{Kind: index.StmtReturn, Expr: x, Line: at}}

	case "throw_statement":
		return []*index.Stmt{{Kind: index.StmtThrow, Expr: l.expr(n.NamedChild(0)), Line: at}}

	case "if_statement":
		s := &index.Stmt{Kind: index.StmtIf, Expr: l.expr(n.ChildByFieldName("condition")), Line: at}
		s.Body = l.stmt(n.ChildByFieldName("consequence"))
		s.Else = l.stmt(n.ChildByFieldName("alternative"))
		return []*index.Stmt{s}

	case "while_statement", "do_statement":
		return []*index.Stmt{{
			Kind: index.StmtLoop,
			Expr: l.expr(n.ChildByFieldName("condition")),
			Body: l.stmt(n.ChildByFieldName("body")),
			Line: at,
		}}

	case "for_statement":
		var out []*index.Stmt
		if init := n.ChildByFieldName("init"); init != nil {
			if init.Type() == "local_variable_declaration" {
				out = append(out, l.locals(init)...)
			} else {
				out = append(out, index.ExprStmt(l.expr(init)))
			}
		}
		loop := &index.Stmt{
			Kind: index.StmtLoop,
			Expr: l.expr(n.ChildByFieldName("condition")),
			Body: l.stmt(n.ChildByFieldName("body")),
			Line: at,
		}
		if update := n.ChildByFieldName("update"); update != nil {
			loop.Body = append(loop.Body, index.ExprStmt(l.expr(update)))
		}
		return append(out, loop)

	case "enhanced_for_statement":
		s := &index.Stmt{Kind: index.StmtForEach, Line: at}
		if t := n.ChildByFieldName("type"); t != nil {
			s.Type = l.e.typeRef(t)
		}
		if name := n.ChildByFieldName("name"); name != nil {
			s.Name = l.text(name)
		}
		s.Expr = l.expr(n.ChildByFieldName("value"))
		s.Body = l.stmt(n.ChildByFieldName("body"))
		return []*index.Stmt{s}

	case "try_statement", "try_with_resources_statement":
		s := &index.Stmt{Kind: index.StmtTry, Line: at}
		if res := n.ChildByFieldName("resources"); res != nil {
			s.Body = append(s.Body, l.resources(res)...)
		}
		s.Body = append(s.Body, l.block(n.ChildByFieldName("body"))...)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "catch_clause":
				s.Else = append(s.Else, l.block(child.ChildByFieldName("body"))...)
			case "finally_clause":
				for j := 0; j < int(child.NamedChildCount()); j++ {
					s.Else = append(s.Else, l.stmt(child.NamedChild(j))...)
				}
			}
		}
		return []*index.Stmt{s}

	case "switch_expression", "switch_statement":
		return []*index.Stmt{{
			Kind: index.StmtSwitch,
			Expr: l.expr(n.ChildByFieldName("condition")),
			Body: l.switchBody(n.ChildByFieldName("body")),
			Line: at,
		}}

	case "synchronized_statement":
		s := &index.Stmt{Kind: index.StmtBlock, Line: at}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "block" {
				s.Body = l.block(child)
			} else {
				s.Expr = l.expr(child)
			}
		}
		return []*index.Stmt{s}

	case "switch_rule":
		return []*index.Stmt{{Kind: index.StmtBlock, Body: l.block(n), Line: at}}

	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		l.e.extractType(n, true)
		return nil

	case "break_statement", "continue_statement", "empty_statement", "assert_statement":
		return nil
	}

	// Bare expressions used in statement position (switch rule bodies).
	if x := l.expr(n); x != nil {
		return []*index.Stmt{{Kind: index.StmtExpr, Expr: x, Line: at}}
	}
	return nil
}

func (l *lowerer) switchBody(n *sitter.Node) []*index.Stmt {
	if n == nil {
		return nil
	}
	var out []*index.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, l.stmt(n.NamedChild(i))...)
	}
	return out
}

func (l *lowerer) locals(n *sitter.Node) []*index.Stmt {
	var typ index.TypeRef
	if t := n.ChildByFieldName("type"); t != nil {
		typ = l.e.typeRef(t)
	}
	var out []*index.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		s := &index.Stmt{Kind: index.StmtLocal, Type: typ, Line: line(d)}
		if name := d.ChildByFieldName("name"); name != nil {
			s.Name = l.text(name)
		}
		if v := d.ChildByFieldName("value"); v != nil {
			s.Expr = l.expr(v)
		}
		out = append(out, s)
	}
	return out
}

func (l *lowerer) resources(n *sitter.Node) []*index.Stmt {
	var out []*index.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		r := n.NamedChild(i)
		if r.Type() != "resource" {
			continue
		}
		name, value := r.ChildByFieldName("name"), r.ChildByFieldName("value")
		if name == nil || value == nil {
			if r.NamedChildCount() > 0 {
				out = append(out, index.ExprStmt(l.expr(r.NamedChild(0))))
			}
			continue
		}
		s := &index.Stmt{Kind: index.StmtLocal, Name: l.text(name), Expr: l.expr(value), Line: line(r)}
		if t := r.ChildByFieldName("type"); t != nil {
			s.Type = l.e.typeRef(t)
		}
		out = append(out, s)
	}
	return out
}

// constructorInvocation lowers this(...) and super(...) into a constructor
// call on the owner or its superclass.
func (l *lowerer) constructorInvocation(n *sitter.Node) *index.Expr {
	x := &index.Expr{Kind: index.ExprNew, Line: line(n)}
	owner := l.method.Owner
	if c := n.ChildByFieldName("constructor"); c != nil && c.Type() == "super" {
		x.Type = owner.SuperClass
	} else {
		x.Type = index.TypeRef{Name: owner.Key()}
	}
	x.Args = l.args(n.ChildByFieldName("arguments"))
	return x
}

func (l *lowerer) args(n *sitter.Node) []*index.Expr {
	if n == nil {
		return nil
	}
	out := make([]*index.Expr, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if a := l.expr(n.NamedChild(i)); a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (l *lowerer) expr(n *sitter.Node) *index.Expr {
	if n == nil {
		return nil
	}
	at := line(n)
	switch n.Type() {
	case "line_comment", "block_comment":
		return nil

	case "identifier":
		return &index.Expr{Kind: index.ExprIdent, Name: l.text(n), Line: at}

	case "this":
		return &index.Expr{Kind: index.ExprThis, Line: at}

	case "super":
		return &index.Expr{Kind: index.ExprSuper, Line: at}

	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return nil
		}
		return &index.Expr{Kind: index.ExprParen, X: l.expr(n.NamedChild(0)), Line: at}

	case "field_access":
		obj, field := n.ChildByFieldName("object"), n.ChildByFieldName("field")
		if field != nil && field.Type() == "this" {
			// Outer.this
			return &index.Expr{Kind: index.ExprThis, Line: at}
		}
		x := &index.Expr{Kind: index.ExprFieldAccess, X: l.expr(obj), Line: at}
		if field != nil {
			x.Name = l.text(field)
		}
		return x

	case "method_invocation":
		x := &index.Expr{Kind: index.ExprCall, Line: at}
		if name := n.ChildByFieldName("name"); name != nil {
			x.Name = l.text(name)
			x.Line = line(name)
		}
		if obj := n.ChildByFieldName("object"); obj != nil {
			x.X = l.expr(obj)
		} else if n.ChildCount() > 0 && n.Child(0).Type() == "super" {
			x.X = &index.Expr{Kind: index.ExprSuper, Line: at}
		}
		x.Args = l.args(n.ChildByFieldName("arguments"))
		return x

	case "object_creation_expression":
		x := &index.Expr{Kind: index.ExprNew, Line: at}
		if t := n.ChildByFieldName("type"); t != nil {
			x.Type = l.e.typeRef(t)
		}
		x.Args = l.args(n.ChildByFieldName("arguments"))
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if body := n.NamedChild(i); body.Type() == "class_body" {
				anon := l.e.extractAnonymous(body, x.Type)
				x.Type = index.TypeRef{Name: anon.Key()}
			}
		}
		return x

	case "method_reference":
		return l.methodRef(n)

	case "lambda_expression":
		x := &index.Expr{Kind: index.ExprLambda, Line: at}
		x.Params = l.lambdaParams(n.ChildByFieldName("parameters"))
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Type() == "block" {
				x.Body = l.block(body)
			} else if b := l.expr(body); b != nil {
				x.Body = []*index.Stmt{index.ExprStmt(b)}
			}
		}
		return x

	case "cast_expression":
		x := &index.Expr{Kind: index.ExprCast, Line: at}
		if t := n.ChildByFieldName("type"); t != nil {
			x.Type = l.e.typeRef(t)
		}
		x.X = l.expr(n.ChildByFieldName("value"))
		return x

	case "assignment_expression":
		return &index.Expr{
			Kind: index.ExprAssign,
			X:    l.expr(n.ChildByFieldName("left")),
			Args: []*index.Expr{l.expr(n.ChildByFieldName("right"))},
			Line: at,
		}

	case "string_literal", "text_block":
		return &index.Expr{Kind: index.ExprLiteral, Name: l.text(n), Type: index.TypeRef{Name: "java.lang.String"}, Line: at}

	case "class_literal":
		return &index.Expr{Kind: index.ExprLiteral, Name: l.text(n), Type: index.TypeRef{Name: "java.lang.Class"}, Line: at}

	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		return &index.Expr{Kind: index.ExprLiteral, Name: l.text(n), Type: index.TypeRef{Name: "int"}, Line: at}

	case "decimal_floating_point_literal", "hex_floating_point_literal":
		return &index.Expr{Kind: index.ExprLiteral, Name: l.text(n), Type: index.TypeRef{Name: "double"}, Line: at}

	case "true", "false":
		return &index.Expr{Kind: index.ExprLiteral, Name: l.text(n), Type: index.TypeRef{Name: "boolean"}, Line: at}

	case "character_literal":
		return &index.Expr{Kind: index.ExprLiteral, Name: l.text(n), Type: index.TypeRef{Name: "char"}, Line: at}

	case "null_literal":
		return &index.Expr{Kind: index.ExprLiteral, Name: "null", Line: at}

	case "switch_expression":
		return &index.Expr{
			Kind: index.ExprOther,
			Args: []*index.Expr{l.expr(n.ChildByFieldName("condition"))},
			Body: l.switchBody(n.ChildByFieldName("body")),
			Line: at,
		}

	case "instanceof_expression":
		return &index.Expr{Kind: index.ExprOther, Args: []*index.Expr{l.expr(n.ChildByFieldName("left"))}, Line: at}
	}

	if isTypeNode(n.Type()) {
		return nil
	}
	// Binary, unary, ternary, update, array access and creation: keep operands.
	x := &index.Expr{Kind: index.ExprOther, Line: at}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if a := l.expr(n.NamedChild(i)); a != nil {
			x.Args = append(x.Args, a)
		}
	}
	return x
}

func (l *lowerer) methodRef(n *sitter.Node) *index.Expr {
	x := &index.Expr{Kind: index.ExprMethodRef, Line: line(n)}
	afterColons := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch {
		case child.Type() == "::":
			afterColons = true
		case !afterColons && i == 0:
			switch {
			case child.Type() == "super":
				x.X = &index.Expr{Kind: index.ExprSuper}
			case isTypeNode(child.Type()) && child.Type() != "type_identifier":
				x.Type = l.e.typeRef(child)
			case child.Type() == "type_identifier":
				x.X = &index.Expr{Kind: index.ExprIdent, Name: l.text(child)}
			default:
				x.X = l.expr(child)
			}
		case afterColons && child.Type() == "new":
			x.Name = "new"
		case afterColons && child.Type() == "identifier":
			x.Name = l.text(child)
		}
	}
	return x
}

func (l *lowerer) lambdaParams(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	if n.Type() == "identifier" {
		return []string{l.text(n)}
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, l.text(child))
		case "formal_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				out = append(out, l.text(name))
			}
		}
	}
	return out
}
