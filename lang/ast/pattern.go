package ast

// PatternKind tags the shape of a binding pattern, used both by function
// parameters and by match/for-loop destructuring targets.
type PatternKind uint8

// List of pattern kinds.
const (
	PatIdent      PatternKind = iota // plain name binding
	PatIgnore                        // _
	PatWildcard                      // _foo (bound wildcard, same as PatIdent but never read)
	PatLiteral                       // match only: a literal value to compare against (AstIndex into Sub)
	PatList                          // [p0, p1, ...rest]
	PatTuple                         // (p0, p1, ...rest)
	PatRest                          // ...name or ... (named or anonymous rest capture)
	PatAlternation                   // match only: p0 or p1 or ...
)

// Pattern is a single binding/match pattern. Sub holds nested element
// patterns for PatList/PatTuple/PatAlternation; Name is the bound
// identifier for PatIdent/PatWildcard/PatRest; Literal is the AstIndex of
// the literal expression for PatLiteral.
type Pattern struct {
	Kind    PatternKind
	Name    ConstantIndex
	Sub     []Pattern
	Literal AstIndex
}
