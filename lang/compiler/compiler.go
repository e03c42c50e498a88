// Package compiler lowers a lang/ast.Tree into a register-based
// lang/compiler.Program: one Chunk per function literal (plus the
// top-level Main chunk), sharing the tree's constant pool.
package compiler

import (
	"fmt"

	"github.com/mna/ember/lang/ast"
	"github.com/mna/ember/lang/token"
)

// Compile lowers tree's entry point into a Program. The returned error, if
// any, is the first internal compile error encountered (malformed AST);
// it is not a substitute for the parser's own error reporting.
func Compile(tree *ast.Tree) (*Program, error) {
	entry, ok := tree.EntryPoint()
	if !ok {
		return nil, fmt.Errorf("compiler: tree has no entry point")
	}
	c := &compiler{tree: tree}
	main := c.compileFunc("main", nil, entry, 0)
	return &Program{Pool: tree.Pool, Main: main, Funcs: c.funcs}, nil
}

// compiler holds cross-function state: the source tree and the list of
// nested function Chunks collected as their literals are compiled. Each
// function body is compiled against its own funcScope (registers, local
// names, loop/catch bookkeeping) held in the scopes stack.
type compiler struct {
	tree   *ast.Tree
	funcs  []*Chunk
	scopes []*funcScope
}

// funcScope is the compiler's per-function-body state: the assembler
// doing register allocation/byte emission, the name->register map for
// this function's own locals (including its parameters and any names
// captured from an enclosing frame, which occupy fixed low registers),
// and the stacks of pending jumps for break/continue.
type funcScope struct {
	asm    *assembler
	locals map[ast.ConstantIndex]int

	loopBreaks    [][]pendingJump // one slice per enclosing loop, for break
	loopContinues []uint32        // one back-jump target per enclosing loop
}

func (c *compiler) push(f *funcScope) { c.scopes = append(c.scopes, f) }
func (c *compiler) pop()              { c.scopes = c.scopes[:len(c.scopes)-1] }
func (c *compiler) top() *funcScope   { return c.scopes[len(c.scopes)-1] }

func (c *compiler) line(idx ast.AstIndex) int32 {
	// Span.Start is a raw token.Pos offset; translating it to a line number
	// needs the owning token.File, which the CLI's compile path keeps
	// alongside the Program for that purpose, so the line map here just
	// stores the raw position and lets the caller resolve it later.
	return int32(c.tree.Get(idx).Span.Start)
}

// compileFunc compiles the function body rooted at bodyOrBlock (a KindBlock
// or KindMainBlock) into its own Chunk. node is nil only for the top-level
// main chunk. Captures (node.Captures, in order) and then parameters each
// get a fixed low register before the body runs.
func (c *compiler) compileFunc(name string, node *ast.Node, bodyOrBlock ast.AstIndex, flags uint8) *Chunk {
	fs := &funcScope{asm: newAssembler(), locals: map[ast.ConstantIndex]int{}}
	c.push(fs)

	numParams := 0
	if node != nil {
		for _, capName := range node.Captures {
			r := fs.asm.allocReg()
			fs.locals[capName] = r
		}
		if ast.FuncFlags(flags)&ast.FuncInstance != 0 {
			selfIdx := c.tree.Pool.AddString("self")
			fs.locals[selfIdx] = fs.asm.allocReg()
		}
		for _, p := range node.Params {
			numParams++
			c.bindPattern(p, fs.asm.allocReg())
		}
	}

	c.compileFuncBody(bodyOrBlock)
	nilReg := fs.asm.allocReg()
	fs.asm.emit1(SetNull, nilReg)
	fs.asm.emit1(Return, nilReg)

	chunk := fs.asm.chunk(name, numParams, flags)
	c.pop()
	if node != nil {
		c.funcs = append(c.funcs, chunk)
	}
	return chunk
}

// localReg returns the register backing name in the current function,
// allocating a fresh one the first time name is assigned or bound.
func (c *compiler) localReg(name ast.ConstantIndex) int {
	fs := c.top()
	if r, ok := fs.locals[name]; ok {
		return r
	}
	r := fs.asm.allocReg()
	fs.locals[name] = r
	return r
}

// bindPattern declares a (possibly destructuring) parameter/catch/for
// pattern against a value already sitting in reg, allocating further
// temporary registers as needed for nested list/tuple patterns.
func (c *compiler) bindPattern(p ast.Pattern, reg int) {
	switch p.Kind {
	case ast.PatIgnore, ast.PatWildcard:
		// nothing to bind
	case ast.PatIdent:
		dst := c.localReg(p.Name)
		if dst != reg {
			c.top().asm.emit2(Copy, dst, reg)
		}
	case ast.PatRest:
		if p.Name != 0 {
			dst := c.localReg(p.Name)
			if dst != reg {
				c.top().asm.emit2(Copy, dst, reg)
			}
		}
	case ast.PatList, ast.PatTuple:
		asm := c.top().asm
		for i, sub := range p.Sub {
			if sub.Kind == ast.PatRest {
				continue // rest-binding of a slice isn't materialized in this model
			}
			elemReg := asm.allocReg()
			asm.emit3(TempIndex, elemReg, reg, i)
			c.bindPattern(sub, elemReg)
		}
	}
}

func (c *compiler) compileBlock(idx ast.AstIndex) {
	n := c.tree.Get(idx)
	for _, stmt := range n.Items {
		c.compileStmt(stmt)
	}
}

// compileFuncBody compiles a function (or main chunk) body, implicitly
// returning a trailing bare expression statement's value the same way
// compileExprAsValue treats a trailing expression as an if/match arm's
// value: `|x| x + 1` returns x+1 with no explicit `return` needed, matching
// parseExprOrBlockBody's one-liner form and spec.md's one-liner examples.
func (c *compiler) compileFuncBody(idx ast.AstIndex) {
	asm := c.top().asm
	n := c.tree.Get(idx)
	for i, stmt := range n.Items {
		stmtNode := c.tree.Get(stmt)
		if i == len(n.Items)-1 && stmtNode.Kind == ast.KindExprStmt {
			r := c.compileExpr(stmtNode.Lhs)
			asm.emit1(Return, r)
			asm.freeReg(r)
			return
		}
		c.compileStmt(stmt)
	}
}

func (c *compiler) compileStmt(idx ast.AstIndex) {
	n := c.tree.Get(idx)
	asm := c.top().asm
	asm.markLine(c.line(idx))

	switch n.Kind {
	case ast.KindExprStmt:
		r := c.compileExpr(n.Lhs)
		asm.freeReg(r)
	case ast.KindAssign:
		c.compileAssign(n)
	case ast.KindIf:
		c.compileIfStmt(idx)
	case ast.KindMatch:
		r := asm.allocReg()
		c.compileMatch(idx, r)
		asm.freeReg(r)
	case ast.KindSwitch:
		c.compileSwitch(idx)
	case ast.KindFor:
		c.compileFor(n)
	case ast.KindWhile:
		c.compileWhile(n, false)
	case ast.KindUntil:
		c.compileWhile(n, true)
	case ast.KindLoop:
		c.compileLoop(n)
	case ast.KindBreak:
		c.compileBreak(n)
	case ast.KindContinue:
		c.compileContinue()
	case ast.KindReturn:
		r := c.compileOptValue(n.Lhs)
		asm.emit1(Return, r)
	case ast.KindThrow:
		r := c.compileExpr(n.Lhs)
		asm.emit1(Throw, r)
	case ast.KindYield:
		r := c.compileExpr(n.Lhs)
		asm.emit1(Yield, r)
	case ast.KindDebug:
		r := c.compileExpr(n.Lhs)
		asm.emit1(Debug, r)
	case ast.KindTry:
		c.compileTry(n)
	case ast.KindImport:
		c.compileImport(n)
	default:
		panic(fmt.Sprintf("compiler: unexpected statement kind %d", n.Kind))
	}
}

func (c *compiler) compileOptValue(idx ast.AstIndex) int {
	if idx == ast.NoIndex {
		r := c.top().asm.allocReg()
		c.top().asm.emit1(SetNull, r)
		return r
	}
	return c.compileExpr(idx)
}

func (c *compiler) compileImport(n *ast.Node) {
	asm := c.top().asm
	dst := asm.allocReg()
	asm.emitOp(Import)
	asm.emitU8(byte(dst))
	asm.emitU16(uint16(n.Const))
	for _, p := range n.Params {
		c.bindPattern(p, dst)
	}
	asm.freeReg(dst)
}

// compileAssign lowers targets = values. Every RHS is evaluated into a
// fresh register before any store happens, so a swap (`a, b = b, a`) sees
// the pre-assignment values.
func (c *compiler) compileAssign(n *ast.Node) {
	asm := c.top().asm
	vals := make([]int, len(n.Values))
	for i, v := range n.Values {
		vals[i] = c.compileExpr(v)
	}
	exported := n.Flags&2 != 0
	for i, tgt := range n.Items {
		src := vals[i%len(vals)]
		c.storeTo(tgt, src)
		if exported {
			c.emitExport(tgt, src)
		}
	}
	for _, r := range vals {
		asm.freeReg(r)
	}
}

// emitExport records target's binding in the frame's export map, for an
// `export`-prefixed assignment. Only a plain identifier target has a name
// to export under; a chain target (`export x.y = ...`) already performed
// its field/index write via storeTo and has nothing further to export.
func (c *compiler) emitExport(target ast.AstIndex, src int) {
	n := c.tree.Get(target)
	if n.Kind != ast.KindIdent {
		return
	}
	asm := c.top().asm
	asm.emitOp(ValueExport)
	asm.emitU16(uint16(n.Const))
	asm.emitU8(byte(src))
}

// storeTo writes src into the location described by target: a plain
// identifier, or a chain ending in a `.field`/`[index]` link.
func (c *compiler) storeTo(target ast.AstIndex, src int) {
	n := c.tree.Get(target)
	asm := c.top().asm
	switch n.Kind {
	case ast.KindIdent:
		dst := c.localReg(n.Const)
		if dst != src {
			asm.emit2(Copy, dst, src)
		}
	case ast.KindChain:
		root := c.compileExpr(n.Lhs)
		links := n.Links
		for _, link := range links[:len(links)-1] {
			root = c.applyChainLink(root, link)
		}
		last := links[len(links)-1]
		switch last.Op {
		case ast.ChainField:
			key := asm.allocReg()
			asm.emitLoadConst(key, last.Name, LoadString, LoadString16, LoadString24)
			asm.emit3(SetIndex, root, key, src)
			asm.freeReg(key)
		case ast.ChainIndex:
			key := c.compileExpr(last.Arg)
			asm.emit3(SetIndex, root, key, src)
			asm.freeReg(key)
		default:
			panic("compiler: invalid assignment target chain")
		}
	default:
		panic(fmt.Sprintf("compiler: invalid assignment target kind %d", n.Kind))
	}
}

func (c *compiler) compileIfStmt(idx ast.AstIndex) {
	dst := c.top().asm.allocReg()
	c.compileIfExpr(idx, dst)
	c.top().asm.freeReg(dst)
}

// compileIfExpr compiles an if/elif/else chain, writing whichever arm ran
// into dst (used both as a statement, where dst is discarded, and as an
// expression operand).
func (c *compiler) compileIfExpr(idx ast.AstIndex, dst int) {
	n := c.tree.Get(idx)
	asm := c.top().asm
	cond := c.compileExpr(n.Cond)
	jf := asm.emitJumpFwd(JumpIfFalse, cond, true)
	asm.freeReg(cond)

	c.compileExprAsValue(n.Then, dst)
	jend := asm.emitJumpFwd(Jump, 0, false)

	asm.patchJump(jf)
	if n.Else != ast.NoIndex {
		elseNode := c.tree.Get(n.Else)
		if elseNode.Kind == ast.KindIf {
			c.compileIfExpr(n.Else, dst)
		} else {
			c.compileExprAsValue(n.Else, dst)
		}
	} else {
		asm.emit1(SetNull, dst)
	}
	asm.patchJump(jend)
}

// compileExprAsValue compiles a block/expression body used as a value
// (an if/match/function arm), writing its result into dst. For a
// KindBlock, every statement runs but only a trailing KindExprStmt (if
// any) determines the written value; other statement kinds don't
// produce one, matching how parseExprOrBlockBody wraps single-expression
// bodies.
func (c *compiler) compileExprAsValue(idx ast.AstIndex, dst int) {
	n := c.tree.Get(idx)
	if n.Kind != ast.KindBlock {
		r := c.compileExpr(idx)
		c.top().asm.emit2(Copy, dst, r)
		c.top().asm.freeReg(r)
		return
	}
	for i, stmt := range n.Items {
		stmtNode := c.tree.Get(stmt)
		if i == len(n.Items)-1 && stmtNode.Kind == ast.KindExprStmt {
			r := c.compileExpr(stmtNode.Lhs)
			c.top().asm.emit2(Copy, dst, r)
			c.top().asm.freeReg(r)
			return
		}
		c.compileStmt(stmt)
	}
	c.top().asm.emit1(SetNull, dst)
}

func (c *compiler) compileWhile(n *ast.Node, invert bool) {
	asm := c.top().asm
	fs := c.top()
	fs.loopBreaks = append(fs.loopBreaks, nil)

	top := asm.here()
	fs.loopContinues = append(fs.loopContinues, top)

	cond := c.compileExpr(n.Cond)
	if invert {
		asm.emit2(Not, cond, cond)
	}
	jexit := asm.emitJumpFwd(JumpIfFalse, cond, true)
	asm.freeReg(cond)

	c.compileBlock(n.Then)
	asm.emitJumpBack(top)
	asm.patchJump(jexit)

	c.patchBreaks()
	fs.loopContinues = fs.loopContinues[:len(fs.loopContinues)-1]
}

func (c *compiler) compileLoop(n *ast.Node) {
	asm := c.top().asm
	fs := c.top()
	fs.loopBreaks = append(fs.loopBreaks, nil)
	top := asm.here()
	fs.loopContinues = append(fs.loopContinues, top)

	c.compileBlock(n.Then)
	asm.emitJumpBack(top)

	c.patchBreaks()
	fs.loopContinues = fs.loopContinues[:len(fs.loopContinues)-1]
}

func (c *compiler) compileFor(n *ast.Node) {
	asm := c.top().asm
	fs := c.top()

	iterable := c.compileExpr(n.Rhs)
	iter := asm.allocReg()
	asm.emit2(MakeIterator, iter, iterable)
	asm.freeReg(iterable)

	fs.loopBreaks = append(fs.loopBreaks, nil)
	top := asm.here()
	fs.loopContinues = append(fs.loopContinues, top)

	elem := asm.allocReg()
	jexit := asm.emitIterJumpFwd(IterNext, elem, iter)
	c.bindPattern(n.Params[0], elem)
	asm.freeReg(elem)

	c.compileBlock(n.Then)
	asm.emitJumpBack(top)
	asm.patchJump(jexit)
	asm.freeReg(iter)

	c.patchBreaks()
	fs.loopContinues = fs.loopContinues[:len(fs.loopContinues)-1]
}

func (c *compiler) patchBreaks() {
	fs := c.top()
	n := len(fs.loopBreaks)
	pending := fs.loopBreaks[n-1]
	fs.loopBreaks = fs.loopBreaks[:n-1]
	for _, j := range pending {
		c.top().asm.patchJump(j)
	}
}

func (c *compiler) compileBreak(n *ast.Node) {
	if n.Lhs != ast.NoIndex {
		// A break-with-value is only meaningful when `loop` is itself used as
		// an expression, which isn't wired into compileExpr yet; evaluate for
		// side effects and discard here so the statement form stays correct.
		r := c.compileExpr(n.Lhs)
		c.top().asm.freeReg(r)
	}
	fs := c.top()
	j := fs.asm.emitJumpFwd(Jump, 0, false)
	top := len(fs.loopBreaks) - 1
	fs.loopBreaks[top] = append(fs.loopBreaks[top], j)
}

func (c *compiler) compileContinue() {
	fs := c.top()
	target := fs.loopContinues[len(fs.loopContinues)-1]
	fs.asm.emitJumpBack(target)
}

func (c *compiler) compileTry(n *ast.Node) {
	asm := c.top().asm
	catchReg := asm.allocReg()
	jtry := asm.emitJumpFwd(TryStart, catchReg, true)

	c.compileBlock(n.Then)
	asm.emitOp(TryEnd)
	jskipCatch := asm.emitJumpFwd(Jump, 0, false)

	asm.patchJump(jtry)
	if len(n.Params) > 0 {
		c.bindPattern(n.Params[0], catchReg)
	}
	if n.Cond != ast.NoIndex {
		c.compileBlock(n.Cond)
	}
	asm.patchJump(jskipCatch)
	asm.freeReg(catchReg)

	if n.Else != ast.NoIndex {
		c.compileBlock(n.Else)
	}
}

func (c *compiler) compileMatch(idx ast.AstIndex, dst int) {
	n := c.tree.Get(idx)
	asm := c.top().asm
	subject := c.compileExpr(n.Cond)

	var jends []pendingJump
	for _, cs := range n.Cases {
		var jnexts, joks []pendingJump
		for pi, pat := range cs.Patterns {
			matched := asm.allocReg()
			c.compilePatternTest(pat, subject, matched)
			jfail := asm.emitJumpFwd(JumpIfFalse, matched, true)
			asm.freeReg(matched)
			if pi == len(cs.Patterns)-1 {
				jnexts = append(jnexts, jfail)
			} else {
				joks = append(joks, asm.emitJumpFwd(Jump, 0, false))
				asm.patchJump(jfail)
			}
		}
		for _, j := range joks {
			asm.patchJump(j)
		}
		if cs.Guard != ast.NoIndex {
			g := c.compileExpr(cs.Guard)
			jg := asm.emitJumpFwd(JumpIfFalse, g, true)
			asm.freeReg(g)
			jnexts = append(jnexts, jg)
		}
		c.compileExprAsValue(cs.Body, dst)
		jends = append(jends, asm.emitJumpFwd(Jump, 0, false))
		for _, j := range jnexts {
			asm.patchJump(j)
		}
	}
	asm.emit1(SetNull, dst)
	for _, j := range jends {
		asm.patchJump(j)
	}
	asm.freeReg(subject)
}

// compilePatternTest writes a boolean into matched reporting whether
// subject matches pat, binding any identifiers pat introduces as a side
// effect (a failed match may still have bound names, same as a `let`
// inside a short-circuited branch - acceptable since the compiled code
// never reads those bindings past a failed guard/pattern).
func (c *compiler) compilePatternTest(pat ast.Pattern, subject, matched int) {
	asm := c.top().asm
	switch pat.Kind {
	case ast.PatIgnore, ast.PatWildcard:
		asm.emit1(SetTrue, matched)
	case ast.PatIdent:
		c.bindPattern(pat, subject)
		asm.emit1(SetTrue, matched)
	case ast.PatLiteral:
		lit := c.compileExpr(pat.Literal)
		asm.emit3(Equal, matched, subject, lit)
		asm.freeReg(lit)
	case ast.PatList, ast.PatTuple:
		if pat.Kind == ast.PatList {
			asm.emit2(IsList, matched, subject)
		} else {
			asm.emit2(IsTuple, matched, subject)
		}
		asm.emit3(CheckSize, matched, subject, len(pat.Sub))
		c.bindPattern(pat, subject)
	default:
		asm.emit1(SetTrue, matched)
	}
}

func (c *compiler) compileSwitch(idx ast.AstIndex) {
	n := c.tree.Get(idx)
	asm := c.top().asm
	var jends []pendingJump
	for _, cs := range n.Cases {
		if cs.Cond == ast.NoIndex {
			c.compileBlock(cs.Body)
			continue
		}
		cond := c.compileExpr(cs.Cond)
		jf := asm.emitJumpFwd(JumpIfFalse, cond, true)
		asm.freeReg(cond)
		c.compileBlock(cs.Body)
		jends = append(jends, asm.emitJumpFwd(Jump, 0, false))
		asm.patchJump(jf)
	}
	for _, j := range jends {
		asm.patchJump(j)
	}
}

// compileExpr compiles an expression node, returning the register holding
// its result. Callers must free that register once done with it (via the
// assembler's freeReg); it is never a local's fixed storage register.
func (c *compiler) compileExpr(idx ast.AstIndex) int {
	n := c.tree.Get(idx)
	asm := c.top().asm

	switch n.Kind {
	case ast.KindNull:
		r := asm.allocReg()
		asm.emit1(SetNull, r)
		return r
	case ast.KindBool:
		r := asm.allocReg()
		if n.BoolVal {
			asm.emit1(SetTrue, r)
		} else {
			asm.emit1(SetFalse, r)
		}
		return r
	case ast.KindInt:
		r := asm.allocReg()
		v := c.tree.Pool.Int(n.Const)
		switch {
		case v == 0:
			asm.emit1(Set0, r)
		case v == 1:
			asm.emit1(Set1, r)
		case v > 0 && v <= 0xFF:
			asm.emit2(SetNumberU8, r, int(v))
		default:
			asm.emitLoadConst(r, n.Const, LoadInt, LoadInt16, LoadInt24)
		}
		return r
	case ast.KindFloat:
		r := asm.allocReg()
		asm.emitLoadConst(r, n.Const, LoadFloat, LoadFloat16, LoadFloat24)
		return r
	case ast.KindStr:
		r := asm.allocReg()
		asm.emitLoadConst(r, n.Const, LoadString, LoadString16, LoadString24)
		return r
	case ast.KindInterpString:
		return c.compileInterpString(n)
	case ast.KindIdent:
		return c.compileIdentRead(n)
	case ast.KindListLit:
		return c.compileSequence(n.Items, SequenceToList)
	case ast.KindTupleLit:
		return c.compileSequence(n.Items, SequenceToTuple)
	case ast.KindMapLit:
		return c.compileMapLit(n)
	case ast.KindRangeLit:
		return c.compileRange(n)
	case ast.KindUnaryExpr:
		operand := c.compileExpr(n.Lhs)
		r := asm.allocReg()
		switch n.Op {
		case token.MINUS:
			asm.emit2(Negate, r, operand)
		case token.NOT:
			asm.emit2(Not, r, operand)
		}
		asm.freeReg(operand)
		return r
	case ast.KindBinaryExpr:
		return c.compileBinary(n)
	case ast.KindChain:
		return c.compileChainRead(n)
	case ast.KindFuncLit:
		return c.compileFuncLit(n)
	case ast.KindIf:
		r := asm.allocReg()
		c.compileIfExpr(idx, r)
		return r
	case ast.KindMatch:
		r := asm.allocReg()
		c.compileMatch(idx, r)
		return r
	default:
		panic(fmt.Sprintf("compiler: unexpected expression kind %d", n.Kind))
	}
}

func (c *compiler) compileIdentRead(n *ast.Node) int {
	asm := c.top().asm
	switch resolveKindOf(n.Flags) {
	case resolveGlobalFlag:
		r := asm.allocReg()
		asm.emitLoadConst(r, n.Const, LoadNonLocal, LoadNonLocal16, LoadNonLocal24)
		return r
	default: // local or capture: copied out of its fixed register into a temporary
		r := asm.allocReg()
		asm.emit2(Copy, r, c.localReg(n.Const))
		return r
	}
}

// resolveKindOf mirrors lang/parser's resolveKind enum by value, since that
// enum is unexported and only the "is this a global" bit matters here.
type resolveKindOf uint8

const (
	resolveLocalFlag   resolveKindOf = 0
	resolveCaptureFlag resolveKindOf = 1
	resolveGlobalFlag  resolveKindOf = 2
)

func (c *compiler) compileSequence(items []ast.AstIndex, to Opcode) int {
	asm := c.top().asm
	seq := asm.allocReg()
	if len(items) <= 0xFF {
		asm.emit2(SequenceStart, seq, len(items))
	} else {
		asm.emitOp(SequenceStart32)
		asm.emitU8(byte(seq))
		asm.emitU32(uint32(len(items)))
	}
	for _, it := range items {
		v := c.compileExpr(it)
		asm.emit2(SequencePush, seq, v)
		asm.freeReg(v)
	}
	dst := asm.allocReg()
	asm.emit2(to, dst, seq)
	asm.freeReg(seq)
	return dst
}

func (c *compiler) compileMapLit(n *ast.Node) int {
	asm := c.top().asm
	m := asm.allocReg()
	// Meta entries don't occupy a map slot (MetaInsert writes to the value's
	// meta-table, not its entries), so MakeMap's capacity hint only counts
	// the ordinary key/value pairs.
	npairs := 0
	for i := 0; i+1 < len(n.Items); i += 2 {
		if c.tree.Get(n.Items[i]).Kind != ast.KindMetaKey {
			npairs++
		}
	}
	if npairs <= 0xFF {
		asm.emit2(MakeMap, m, npairs)
	} else {
		asm.emitOp(MakeMap32)
		asm.emitU8(byte(m))
		asm.emitU32(uint32(npairs))
	}
	for i := 0; i+1 < len(n.Items); i += 2 {
		keyNode := c.tree.Get(n.Items[i])
		if keyNode.Kind == ast.KindMetaKey {
			v := c.compileExpr(n.Items[i+1])
			if keyNode.Flags&1 != 0 { // named: @meta name
				asm.emit3(MetaInsertNamed, m, int(keyNode.Const), v)
			} else {
				name := c.tree.Pool.String(keyNode.Const)
				key, ok := metaKeyIndex[name]
				if !ok {
					panic(fmt.Sprintf("compiler: unknown meta key %q", name))
				}
				asm.emit3(MetaInsert, m, key, v)
			}
			asm.freeReg(v)
			continue
		}
		k := c.compileExpr(n.Items[i])
		v := c.compileExpr(n.Items[i+1])
		asm.emit3(MapInsert, m, k, v)
		asm.freeReg(k)
		asm.freeReg(v)
	}
	return m
}

// metaKeyIndex mirrors lang/value.MetaKey's fixed-slot ordering by name,
// without importing lang/value: that package imports lang/compiler (for
// Function's backing Chunk), so the reverse import would cycle. Keep this
// table's values in lockstep with the MetaKey iota block in
// lang/value/metatable.go.
var metaKeyIndex = map[string]int{
	"@+": 0, "@-": 1, "@*": 2, "@/": 3, "@%": 4,
	"@==": 5, "@!=": 6,
	"@<": 7, "@<=": 8, "@>": 9, "@>=": 10,
	"@+=": 11, "@-=": 12,
	"@[]": 13, "@||": 14,
	"@iterator": 15, "@next": 16, "@next_back": 17,
	"@display": 18, "@base": 19,
}

func (c *compiler) compileRange(n *ast.Node) int {
	asm := c.top().asm
	hasLo := n.Lhs != ast.NoIndex
	hasHi := n.Rhs != ast.NoIndex
	incl := n.Flags&1 != 0

	dst := asm.allocReg()
	switch {
	case hasLo && hasHi:
		lo := c.compileExpr(n.Lhs)
		hi := c.compileExpr(n.Rhs)
		if incl {
			asm.emit3(RangeInclusive, dst, lo, hi)
		} else {
			asm.emit3(Range, dst, lo, hi)
		}
		asm.freeReg(lo)
		asm.freeReg(hi)
	case hasHi:
		hi := c.compileExpr(n.Rhs)
		if incl {
			asm.emit2(RangeToInclusive, dst, hi)
		} else {
			asm.emit2(RangeTo, dst, hi)
		}
		asm.freeReg(hi)
	case hasLo:
		lo := c.compileExpr(n.Lhs)
		asm.emit2(RangeFrom, dst, lo)
		asm.freeReg(lo)
	default:
		asm.emit1(RangeFull, dst)
	}
	return dst
}

func (c *compiler) compileInterpString(n *ast.Node) int {
	asm := c.top().asm
	dst := asm.allocReg()
	if len(n.Items) <= 0xFF {
		asm.emit2(StringStart, dst, len(n.Items))
	} else {
		asm.emitOp(StringStart32)
		asm.emitU8(byte(dst))
		asm.emitU32(uint32(len(n.Items)))
	}
	for _, it := range n.Items {
		frag := c.compileExpr(it)
		asm.emit2(StringPush, dst, frag)
		asm.freeReg(frag)
	}
	asm.emit1(StringFinish, dst)
	return dst
}

var binOps = map[token.Token]Opcode{
	token.PLUS:    Add,
	token.MINUS:   Subtract,
	token.STAR:    Multiply,
	token.SLASH:   Divide,
	token.PERCENT: Remainder,
	token.LT:      Less,
	token.LE:      LessOrEqual,
	token.GT:      Greater,
	token.GE:      GreaterOrEqual,
	token.EQEQ:    Equal,
	token.BANGEQ:  NotEqual,
}

func (c *compiler) compileBinary(n *ast.Node) int {
	asm := c.top().asm
	if n.Op == token.AND || n.Op == token.OR {
		return c.compileShortCircuit(n)
	}
	lhs := c.compileExpr(n.Lhs)
	rhs := c.compileExpr(n.Rhs)
	dst := asm.allocReg()
	op, ok := binOps[n.Op]
	if !ok {
		panic(fmt.Sprintf("compiler: unsupported binary operator %s", n.Op))
	}
	asm.emit3(op, dst, lhs, rhs)
	asm.freeReg(lhs)
	asm.freeReg(rhs)
	return dst
}

// compileShortCircuit lowers `and`/`or` without evaluating the right
// operand unless needed: `a and b` skips b's evaluation (result stays a,
// already falsy) when a is already falsy, and symmetrically for `or`.
func (c *compiler) compileShortCircuit(n *ast.Node) int {
	asm := c.top().asm
	dst := c.compileExpr(n.Lhs)
	test := asm.allocReg()
	asm.emit2(Copy, test, dst)
	if n.Op == token.OR {
		asm.emit2(Not, test, test)
	}
	j := asm.emitJumpFwd(JumpIfFalse, test, true)
	asm.freeReg(test)
	rhs := c.compileExpr(n.Rhs)
	asm.emit2(Copy, dst, rhs)
	asm.freeReg(rhs)
	asm.patchJump(j)
	return dst
}

func (c *compiler) compileChainRead(n *ast.Node) int {
	reg := c.compileExpr(n.Lhs)
	for _, link := range n.Links {
		reg = c.applyChainLink(reg, link)
	}
	return reg
}

func (c *compiler) applyChainLink(reg int, link ast.ChainLink) int {
	asm := c.top().asm
	switch link.Op {
	case ast.ChainField:
		dst := asm.allocReg()
		emitAccess(asm, dst, reg, link.Name)
		return dst
	case ast.ChainIndex:
		key := c.compileExpr(link.Arg)
		dst := asm.allocReg()
		asm.emit3(Index, dst, reg, key)
		asm.freeReg(key)
		return dst
	case ast.ChainCall:
		return c.compileCall(reg, link.Args)
	case ast.ChainOptional:
		// Optional-chaining short-circuit on a null receiver is a VM-level
		// concern (the rest of the chain becomes a no-op); compiled here as
		// a pass-through marker with no bytecode of its own.
		return reg
	default:
		panic("compiler: unknown chain link op")
	}
}

// emitAccess emits the 1/2/3-byte Access opcode variant for `recv.name`.
func emitAccess(asm *assembler, dst, src int, idx ast.ConstantIndex) {
	switch ast.EncodedWidth(idx) {
	case 1:
		asm.emit3(Access, dst, src, int(idx))
	case 2:
		asm.emitOp(Access16)
		asm.emitU8(byte(dst))
		asm.emitU8(byte(src))
		asm.emitU16(uint16(idx))
	default:
		asm.emitOp(Access24)
		asm.emitU8(byte(dst))
		asm.emitU8(byte(src))
		asm.emitU32(uint32(idx))
	}
}

func (c *compiler) compileCall(fn int, argNodes []ast.AstIndex) int {
	asm := c.top().asm
	base := asm.allocRegRange(len(argNodes))
	for i, a := range argNodes {
		v := c.compileExpr(a)
		if v != base+i {
			asm.emit2(Copy, base+i, v)
			asm.freeReg(v)
		}
	}
	dst := asm.allocReg()
	asm.emit3(Call, dst, fn, base)
	asm.emitU8(byte(len(argNodes)))
	asm.freeReg(fn)
	return dst
}

func (c *compiler) compileFuncLit(n *ast.Node) int {
	asm := c.top().asm

	chunk := c.compileFunc("<anonymous>", n, n.Then, n.Flags)
	chunkIdx := len(c.funcs) - 1 // compileFunc just appended it

	dst := asm.allocReg()
	if len(n.Captures) == 0 {
		asm.emitOp(SimpleFunction)
		asm.emitU8(byte(dst))
		asm.emitU16(uint16(chunkIdx))
		return dst
	}

	asm.emitOp(Function)
	asm.emitU8(byte(dst))
	asm.emitU16(uint16(chunkIdx))
	asm.emitU8(chunk.Flags)
	asm.emitU8(byte(len(n.Captures)))
	bodySizeAt := asm.here()
	asm.emitU16(0) // patched below once the Capture instructions are emitted

	for i, capName := range n.Captures {
		src := c.localReg(capName) // resolved within the *enclosing* frame
		asm.emitOp(Capture)
		asm.emitU8(byte(dst))
		asm.emitU8(byte(i))
		asm.emitU8(byte(src))
		asm.emitU8(0) // fromUpvalue: always a plain register in this model
	}
	size := asm.here() - bodySizeAt - 2
	if size > 0xFFFF {
		panic("compiler: function capture prologue too large")
	}
	patchU16At(asm, bodySizeAt, uint16(size))
	return dst
}

func patchU16At(asm *assembler, at uint32, v uint16) {
	asm.code[at] = byte(v)
	asm.code[at+1] = byte(v >> 8)
}
