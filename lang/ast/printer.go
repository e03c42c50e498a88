package ast

import (
	"fmt"
	"strings"
)

var kindNames = map[Kind]string{
	KindNull: "null", KindBool: "bool", KindInt: "int", KindFloat: "float",
	KindStr: "str", KindInterpString: "interp_str",
	KindListLit: "list", KindTupleLit: "tuple", KindMapLit: "map", KindRangeLit: "range",
	KindIdent: "ident", KindChain: "chain", KindFuncLit: "func",
	KindUnaryExpr: "unary", KindBinaryExpr: "binary",
	KindIf: "if", KindMatch: "match", KindSwitch: "switch", KindFor: "for",
	KindWhile: "while", KindUntil: "until", KindLoop: "loop",
	KindBreak: "break", KindContinue: "continue", KindReturn: "return",
	KindThrow: "throw", KindYield: "yield", KindTry: "try",
	KindAssign: "assign", KindImport: "import", KindDebug: "debug",
	KindBlock: "block", KindMainBlock: "main_block", KindExprStmt: "expr_stmt",
}

// Dump renders idx and its subtree as an indented s-expression-like text,
// for golden-file tests and the `ember parse` CLI subcommand.
func Dump(t *Tree, idx AstIndex) string {
	var sb strings.Builder
	dump(&sb, t, idx, 0)
	return sb.String()
}

func dump(sb *strings.Builder, t *Tree, idx AstIndex, depth int) {
	if idx == NoIndex {
		return
	}
	n := t.Get(idx)
	sb.WriteString(strings.Repeat("  ", depth))
	name := kindNames[n.Kind]
	if name == "" {
		name = fmt.Sprintf("kind(%d)", n.Kind)
	}
	fmt.Fprintf(sb, "(%s", name)
	switch n.Kind {
	case KindInt:
		fmt.Fprintf(sb, " %d", t.Pool.Int(n.Const))
	case KindFloat:
		fmt.Fprintf(sb, " %g", t.Pool.Float(n.Const))
	case KindStr, KindIdent:
		fmt.Fprintf(sb, " %q", t.Pool.String(n.Const))
	case KindBool:
		fmt.Fprintf(sb, " %v", n.BoolVal)
	case KindBinaryExpr, KindUnaryExpr:
		fmt.Fprintf(sb, " %s", n.Op)
	}
	kids := children(t, idx)
	if len(kids) == 0 {
		sb.WriteString(")\n")
		return
	}
	sb.WriteString("\n")
	for _, child := range kids {
		dump(sb, t, child, depth+1)
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(")\n")
}

// children returns the direct child indices of idx, in source order, for
// dumping purposes (Walk's recursive descent is not reused here since it
// doesn't expose direct-child boundaries).
func children(t *Tree, idx AstIndex) []AstIndex {
	n := t.Get(idx)
	var out []AstIndex
	add := func(i AstIndex) {
		if i != NoIndex {
			out = append(out, i)
		}
	}
	switch n.Kind {
	case KindUnaryExpr:
		add(n.Lhs)
	case KindBinaryExpr, KindRangeLit:
		add(n.Lhs)
		add(n.Rhs)
	case KindIf:
		add(n.Cond)
		add(n.Then)
		add(n.Else)
	case KindWhile, KindUntil:
		add(n.Cond)
		add(n.Then)
	case KindLoop:
		add(n.Then)
	case KindFor:
		add(n.Rhs)
		add(n.Then)
	case KindTry:
		add(n.Then)
		add(n.Cond)
		add(n.Else)
	case KindBreak, KindReturn, KindThrow, KindYield, KindExprStmt, KindDebug:
		add(n.Lhs)
	case KindFuncLit:
		add(n.Then)
	case KindChain:
		add(n.Lhs)
		for _, l := range n.Links {
			add(l.Arg)
			out = append(out, l.Args...)
		}
	case KindListLit, KindTupleLit, KindMapLit, KindInterpString, KindBlock, KindMainBlock:
		out = append(out, n.Items...)
	case KindAssign:
		out = append(out, n.Items...)
		out = append(out, n.Values...)
	case KindMatch, KindSwitch:
		add(n.Cond)
		for _, c := range n.Cases {
			add(c.Guard)
			add(c.Cond)
			add(c.Body)
		}
	}
	return out
}
