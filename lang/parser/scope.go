package parser

import "github.com/mna/ember/lang/ast"

// scope.go folds the resolver pass into the parser: spec.md's own AST
// description assumes a function literal's capture list is already known
// by the time it's pushed into the arena, so a separate post-parse
// resolver would only duplicate the block/frame bookkeeping the parser
// already needs for indentation-driven block parsing. Each function body
// gets its own frame; each frame holds a stack of block scopes (if/for/
// while bodies introduce a new one); resolving a name walks outward
// through the current frame's blocks, then through enclosing frames,
// recording a capture on every frame it had to cross.

type blockScope struct {
	names map[string]bool
}

type funcFrame struct {
	blocks     []blockScope
	captures   []ast.ConstantIndex // names captured from an enclosing frame, in first-use order
	captureSet map[string]bool
}

type scopeStack struct {
	frames []*funcFrame
	intern func(string) ast.ConstantIndex
}

func newScopeStack() *scopeStack { return &scopeStack{} }

func (s *scopeStack) enterFunction() {
	s.frames = append(s.frames, &funcFrame{captureSet: map[string]bool{}})
	s.enterBlock()
}

// leaveFunction pops the current frame and returns the capture list
// accumulated for it, to be stored on the KindFuncLit node.
func (s *scopeStack) leaveFunction() []ast.ConstantIndex {
	s.leaveBlock()
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f.captures
}

func (s *scopeStack) enterBlock() {
	f := s.top()
	f.blocks = append(f.blocks, blockScope{names: map[string]bool{}})
}

func (s *scopeStack) leaveBlock() {
	f := s.top()
	f.blocks = f.blocks[:len(f.blocks)-1]
}

func (s *scopeStack) top() *funcFrame { return s.frames[len(s.frames)-1] }

// declare binds name in the innermost block of the current frame.
func (s *scopeStack) declare(name string) {
	f := s.top()
	f.blocks[len(f.blocks)-1].names[name] = true
}

// resolveKind classifies how an identifier reference should be compiled.
type resolveKind int

const (
	resolveLocal resolveKind = iota
	resolveCapture
	resolveGlobal // not found in any enclosing frame: a global or undeclared name
)

// resolve looks up name starting at the innermost block of the current
// frame and working outward, crossing into enclosing frames if needed. A
// cross-frame hit marks a capture on every frame it passed through.
func (s *scopeStack) resolve(name string, intern func(string) ast.ConstantIndex) resolveKind {
	cur := s.frames[len(s.frames)-1]
	for i := len(cur.blocks) - 1; i >= 0; i-- {
		if cur.blocks[i].names[name] {
			return resolveLocal
		}
	}

	for fi := len(s.frames) - 2; fi >= 0; fi-- {
		f := s.frames[fi]
		found := false
		for i := len(f.blocks) - 1; i >= 0; i-- {
			if f.blocks[i].names[name] {
				found = true
				break
			}
		}
		if found {
			for ci := fi + 1; ci < len(s.frames); ci++ {
				c := s.frames[ci]
				if !c.captureSet[name] {
					c.captureSet[name] = true
					c.captures = append(c.captures, intern(name))
				}
			}
			return resolveCapture
		}
	}
	return resolveGlobal
}
