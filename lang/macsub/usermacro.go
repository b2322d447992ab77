package macsub

import (
	"fmt"
	"strconv"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/macroexec"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/unit"
)

// macroDefSubst implements the `macro <name> <type> [<precedence>] <body>`
// control macro: it parses the macro's own shape (name/type/precedence),
// compiles its body block into a lang/macroexec instruction list,
// installs a symbol whose Subst closure replays that program against
// every future invocation, and emits the ast.MacroDef global so a linked
// package can reconstitute the same symbol.
//
// Unlike a four-kind macro taxonomy (expand/control/op/fun), this
// implementation only accepts "control", "op" and "fun": 's Symbol
// type enum has no fourth "expander-macro" case, and no intrinsic or
// example macro body in this pack exercises one (see DESIGN.md).
func macroDefSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) < 4 {
		return Result{}, fmt.Errorf("macro: expected `macro <name> <type> [<precedence>] <body>`")
	}
	nameUnit, ok := bareword(stmt[1])
	if !ok {
		return Result{}, fmt.Errorf("macro: expected a name")
	}
	typeUnit, ok := bareword(stmt[2])
	if !ok {
		return Result{}, fmt.Errorf("macro: expected a macro type")
	}

	var symType symtab.Type
	var pcodeType string
	switch typeUnit.Name {
	case "control":
		symType, pcodeType = symtab.ControlMacro, "control"
	case "op":
		symType, pcodeType = symtab.OperatorMacro, "operator"
	case "fun":
		symType, pcodeType = symtab.FunctionMacro, "function"
	default:
		return Result{}, fmt.Errorf("macro: unknown macro type %q (want control, op or fun)", typeUnit.Name)
	}

	precedence := 0
	bodyIdx := 3
	if symType == symtab.OperatorMacro {
		if len(stmt) != 5 {
			return Result{}, fmt.Errorf("macro: `op` macros require `macro <name> op <precedence> <body>`")
		}
		precUnit, ok := bareword(stmt[3])
		if !ok {
			return Result{}, fmt.Errorf("macro: expected a precedence")
		}
		p, err := strconv.Atoi(precUnit.Name)
		if err != nil || p < 0 || p > symtab.MaxOperatorMacroPrecedence {
			return Result{}, fmt.Errorf("macro: invalid precedence %q (want 0..%d)", precUnit.Name, symtab.MaxOperatorMacroPrecedence)
		}
		precedence = p
		bodyIdx = 4
	} else if len(stmt) != 4 {
		return Result{}, fmt.Errorf("macro: expected `macro <name> %s <body>`", typeUnit.Name)
	}

	body, ok := stmt[bodyIdx].(*unit.Block)
	if !ok {
		return Result{}, fmt.Errorf("macro: expected a body block")
	}

	instrs, err := translateMacroBody(body, macroResolverFor(ctx))
	if err != nil {
		return Result{}, fmt.Errorf("macro %s: %w", nameUnit.Name, err)
	}
	encoded, err := macroexec.Encode(instrs)
	if err != nil {
		return Result{}, fmt.Errorf("macro %s: %w", nameUnit.Name, err)
	}

	sym := &symtab.Symbol{
		Type:       symType,
		Level:      ctx.Level,
		Visibility: visibilityFor(ctx),
		FullName:   ctx.ApplyPrefix(nameUnit.Name),
		Macro: &symtab.MacroData{
			Precedence: precedence,
			Userdata:   instrs,
		},
	}
	sym.Macro.Subst = SubstFunc(func(_ *Context, stmt unit.Statement, provoker unit.Unit, rest []unit.Statement) (Result, error) {
		return runUserMacro(instrs, stmt, provoker, rest)
	})
	ctx.PutSymbol(sym, stmt.Span())

	return Result{Status: Done, Node: &ast.MacroDef{
		NodeBase:   ast.NodeBase{Sp: stmt.Span()},
		Name:       sym.FullName,
		Type:       pcodeType,
		Precedence: precedence,
		Body:       encoded,
	}}, nil
}

// macroResolverFor returns the `%x` sigil resolver bound to ctx's symbol
// table at the point the `macro` definition itself is being substituted:
// %-sigils resolve "now", at macro-definition time, not at every later
// invocation of the defined macro.
func macroResolverFor(ctx *Context) macroexec.Resolver {
	return func(name string) (string, error) {
		results := ctx.Symtab.Get(name)
		switch len(results) {
		case 0:
			return "", fmt.Errorf("macro body: %%%s: no such symbol", name)
		case 1:
			return results[0].FullName, nil
		default:
			return "", fmt.Errorf("macro body: %%%s: ambiguous symbol reference", name)
		}
	}
}

// translateMacroBody walks a macro definition's body block and compiles it
// into the flat macroexec.Instr program the user-macro interpreter runs:
// every bareword unit is itself a sigil-prefixed instruction token (parsed by
// lang/macroexec's textual grammar, since the bareword's raw source text
// already carries the sigil the parser collaborator tokenized), and every
// literal unit (A/L/R/LR-string, verbatim) emits the matching token-emit
// instruction directly from its already-decoded text, without re-parsing.
func translateMacroBody(body *unit.Block, resolve macroexec.Resolver) ([]macroexec.Instr, error) {
	var out []macroexec.Instr
	for _, st := range body.Stmts {
		for _, u := range st {
			switch v := u.(type) {
			case *unit.Bareword:
				instrs, err := macroexec.Parse(v.Name, resolve)
				if err != nil {
					return nil, err
				}
				out = append(out, instrs...)
			case *unit.Lit:
				op, ok := macroLitOp(v.K)
				if !ok {
					return nil, fmt.Errorf("macro body: unsupported literal kind %s", v.K)
				}
				out = append(out, macroexec.Instr{Op: op, Text: v.Text})
			default:
				return nil, fmt.Errorf("macro body: unsupported unit kind %s (shape/slicing/composition opcodes are written as plain barewords)", u.Kind())
			}
		}
	}
	return out, nil
}

func macroLitOp(k unit.Kind) (macroexec.Op, bool) {
	switch k {
	case unit.KindAString:
		return macroexec.OpAString, true
	case unit.KindLString:
		return macroexec.OpLString, true
	case unit.KindRString:
		return macroexec.OpRString, true
	case unit.KindLRString:
		return macroexec.OpLRString, true
	case unit.KindVerbatim:
		return macroexec.OpVerbatim, true
	default:
		return 0, false
	}
}

// runUserMacro is the Subst closure every `macro`-defined symbol installs:
// it splits stmt around provoker into the left/right contexts lang/
// macroexec's `left`/`right` instructions clone from, executes instrs
// against a fresh Machine, and hands the resulting statement back to the
// driver for re-dispatch with status again.
func runUserMacro(instrs []macroexec.Instr, stmt unit.Statement, provoker unit.Unit, rest []unit.Statement) (Result, error) {
	idx := 0
	for i, u := range stmt {
		if u == provoker {
			idx = i
			break
		}
	}
	left := append(unit.Statement{}, stmt[:idx]...)
	right := append(unit.Statement{}, stmt[idx+1:]...)

	m := macroexec.New(stmt.Span().Text(), left, right, stmt.Span())
	result, err := m.Run(instrs)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: Again, Statement: result}, nil
}
