package macsub

import (
	"fmt"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
)

// Run substitutes every statement in stmts in order and returns their
// combined effect as a single Seq node: the top-level driver reduces a
// statement list to one AST node, skipping empty statements and
// consuming extra statements a macro claims as part of its own
// expansion. An empty stmts reduces to an empty Seq.
func Run(ctx *Context, stmts []unit.Statement) (ast.Node, error) {
	nodes, err := runAll(ctx, stmts)
	if err != nil {
		return nil, err
	}
	return &ast.Seq{Stmts: nodes}, nil
}

// RunExpr is Run's value-producing counterpart, used for a substitution
// unit's body: the result's value is its last non-empty statement's
// value.
func RunExpr(ctx *Context, stmts []unit.Statement) (ast.Node, error) {
	nodes, err := runAll(ctx, stmts)
	if err != nil {
		return nil, err
	}
	return &ast.ExprSeq{Stmts: nodes}, nil
}

func runAll(ctx *Context, stmts []unit.Statement) ([]ast.Node, error) {
	var out []ast.Node
	for i := 0; i < len(stmts); i++ {
		st := stmts[i]
		if len(st) == 0 {
			continue
		}
		ctx.GensymSeed(st.Span())
		node, consumed := runOneNonemptyStatement(ctx, st, stmts[i+1:])
		out = append(out, node)
		i += consumed
	}
	return out, nil
}

// resolveOutcome is the three-way result of resolveMacro, mirroring the
// original's ava_macsub_resolve_macro return values.
type resolveOutcome uint8

const (
	notMacro resolveOutcome = iota
	isMacro
	ambiguousMacro
)

// stringPseudoMacroPrecedence is the fixed precedence an L-/R-/LR-string
// unit dispatches at: these units behave as a fixed precedence-10
// operator macro.
const stringPseudoMacroPrecedence = 10

// stringPseudoSymbol is the synthetic operator-macro symbol string units
// resolve to at precedence 10, matching
// ava_macsub_string_pseudosymbol (a static, otherwise-unreachable symbol:
// no caller ever looks it up by name, only resolveMacro's special case
// below ever returns it).
var stringPseudoSymbol = &symtab.Symbol{
	Type:       symtab.OperatorMacro,
	Visibility: symtab.Public,
	FullName:   "<string-pseudomacro>",
	Macro: &symtab.MacroData{
		Precedence: stringPseudoMacroPrecedence,
		Subst:      SubstFunc(stringPseudoSubst),
	},
}

// stringPseudoSubst implements the string pseudomacro: it converts the
// provoking string unit directly into a string literal node. Splicing
// adjacent statement units into a string literal's open left or right
// edge (an L-string's left edge, for instance, absorbs whatever unit
// precedes it in the statement) is purely a function of how the external
// parser tokenized adjacent text, so this substitution treats every
// string kind as already-complete text, the same as an A-string.
func stringPseudoSubst(ctx *Context, stmt unit.Statement, provoker unit.Unit, rest []unit.Statement) (Result, error) {
	lit, ok := provoker.(*unit.Lit)
	if !ok {
		return Result{}, fmt.Errorf("macsub: string pseudomacro invoked on non-literal unit %s", provoker.Kind())
	}
	return Result{Status: Done, Node: &ast.Literal{
		NodeBase: ast.NodeBase{Sp: lit.Sp},
		Kind:     ast.LitString,
		StrVal:   lit.Text,
	}}, nil
}

// resolveMacro looks up provoker as a bareword naming a macro of
// targetType at the given precedence, per the original's
// ava_macsub_resolve_macro. Ambiguity is flagged when the *total* number
// of symbols the bareword resolves to (across every type, not just ones
// matching targetType/precedence) is more than one — replicating a
// deliberate quirk of the original rather than the more "obvious" rule of
// counting only the matching candidates, so that (for example) a bareword
// that names both a variable and an operator macro is always flagged
// ambiguous even though only one of the two candidates could ever satisfy
// this particular resolution.
func resolveMacro(ctx *Context, provoker unit.Unit, targetType symtab.Type, precedence int) (*symtab.Symbol, resolveOutcome) {
	if targetType == symtab.OperatorMacro && precedence == stringPseudoMacroPrecedence {
		switch provoker.Kind() {
		case unit.KindLString, unit.KindRString, unit.KindLRString:
			return stringPseudoSymbol, isMacro
		}
	}

	bw, ok := provoker.(*unit.Bareword)
	if !ok {
		return nil, notMacro
	}
	results := ctx.Symtab.Get(bw.Name)
	for _, r := range results {
		if r.Type == targetType && r.Macro != nil && r.Macro.Precedence == precedence {
			if len(results) != 1 {
				return r, ambiguousMacro
			}
			return r, isMacro
		}
	}
	return nil, notMacro
}

// runOneNonemptyStatement dispatches one non-empty statement through the
// control-macro / operator-macro (by ascending precedence) /
// function-macro / plain-function-call chain described by ,
// re-entering the loop ("tail call") whenever a macro's substitution
// function returns Again. It directly mirrors the original's
// ava_macsub_run_one_nonempty_statement, translated from that function's
// goto-based loop into an explicit Go for loop over the same states.
func runOneNonemptyStatement(ctx *Context, stmt unit.Statement, rest []unit.Statement) (ast.Node, int) {
	total := 0
	for {
		if len(stmt) == 1 {
			return interpretStatement(ctx, stmt), total
		}
		first := stmt[0]
		if sym, outcome := resolveMacro(ctx, first, symtab.ControlMacro, 0); outcome != notMacro {
			if outcome == ambiguousMacro {
				return ctx.errorNode(first.Span(), "ambiguous reference to control macro %s", barewordName(first)), total
			}
			result, err := dispatch(ctx, sym, stmt, first, rest)
			if err != nil {
				return ctx.errorNode(stmt.Span(), "%v", err), total
			}
			total += result.Consumed
			if result.Status == Done {
				return result.Node, total
			}
			stmt = result.Statement
			continue
		}

		var macroFound bool
		for precedence := 0; precedence <= symtab.MaxOperatorMacroPrecedence && !macroFound; precedence++ {
			rtl := precedence%2 == 0
			order := unitIndices(len(stmt), rtl)
			for _, i := range order {
				u := stmt[i]
				sym, outcome := resolveMacro(ctx, u, symtab.OperatorMacro, precedence)
				if outcome == notMacro {
					continue
				}
				if outcome == ambiguousMacro {
					return ctx.errorNode(u.Span(), "ambiguous reference to operator macro %s", barewordName(u)), total
				}
				result, err := dispatch(ctx, sym, stmt, u, rest)
				if err != nil {
					return ctx.errorNode(stmt.Span(), "%v", err), total
				}
				total += result.Consumed
				if result.Status == Done {
					return result.Node, total
				}
				stmt = result.Statement
				macroFound = true
				break
			}
		}
		if macroFound {
			continue
		}

		if sym, outcome := resolveMacro(ctx, first, symtab.FunctionMacro, 0); outcome != notMacro {
			if outcome == ambiguousMacro {
				return ctx.errorNode(first.Span(), "ambiguous reference to function macro %s", barewordName(first)), total
			}
			result, err := dispatch(ctx, sym, stmt, first, rest)
			if err != nil {
				return ctx.errorNode(stmt.Span(), "%v", err), total
			}
			total += result.Consumed
			if result.Status == Done {
				return result.Node, total
			}
			stmt = result.Statement
			continue
		}

		return interpretStatement(ctx, stmt), total
	}
}

func dispatch(ctx *Context, sym *symtab.Symbol, stmt unit.Statement, provoker unit.Unit, rest []unit.Statement) (Result, error) {
	fn, ok := sym.Macro.Subst.(SubstFunc)
	if !ok {
		return Result{}, fmt.Errorf("macsub: symbol %s has no usable substitution function", sym.FullName)
	}
	return fn(ctx, stmt, provoker, rest)
}

// unitIndices returns 0..n-1 in right-to-left order when rtl, else
// left-to-right, matching  "traverse right-to-left at even
// precedences and left-to-right at odd precedences".
func unitIndices(n int, rtl bool) []int {
	out := make([]int, n)
	if rtl {
		for i := 0; i < n; i++ {
			out[i] = n - 1 - i
		}
	} else {
		for i := 0; i < n; i++ {
			out[i] = i
		}
	}
	return out
}

func barewordName(u unit.Unit) string {
	if bw, ok := u.(*unit.Bareword); ok {
		return bw.Name
	}
	return "<non-bareword>"
}

// errorNode records a compile error against sp and returns the placeholder
// node later passes (and every optional AST operation) propagate in its
// place, so compilation can accumulate errors and keep going.
func (c *Context) errorNode(sp token.Span, format string, args ...interface{}) ast.Node {
	c.Errors.Add(sp, format, args...)
	return &ast.ErrorPlaceholder{
		NodeBase: ast.NodeBase{Sp: sp},
		Err:      fmt.Errorf(format, args...),
	}
}
