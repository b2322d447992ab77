package macsub

import (
	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
)

// interpretStatement is the "no_macsub" fallback of : once no
// control/operator/function macro claims a statement, its first unit
// names the function to call and every remaining unit is an argument,
// mirroring the original's ava_intr_statement.
func interpretStatement(ctx *Context, stmt unit.Statement) ast.Node {
	first := stmt[0]
	args := buildArgs(ctx, stmt[1:])
	spread := len(args) > 0 && isSpread(args[len(args)-1])

	bw, ok := first.(*unit.Bareword)
	if !ok {
		callee := unitToExpr(ctx, first)
		return &ast.Funcall{
			NodeBase:     ast.NodeBase{Sp: stmt.Span()},
			Callee:       callee,
			CalleeGlobal: -1,
			Args:         args,
			Spread:       spread,
		}
	}

	funSyms := filterFunType(ctx.Symtab.Get(bw.Name))
	switch len(funSyms) {
	case 0:
		callee := unitToExpr(ctx, first)
		return &ast.Funcall{
			NodeBase:     ast.NodeBase{Sp: stmt.Span()},
			Callee:       callee,
			CalleeGlobal: -1,
			Args:         args,
			Spread:       spread,
		}
	case 1:
		return &ast.Funcall{
			NodeBase:  ast.NodeBase{Sp: stmt.Span()},
			CalleeSym: funSyms[0],
			Args:      args,
			Spread:    spread,
		}
	default:
		return ctx.errorNode(first.Span(), "ambiguous function reference %q", bw.Name)
	}
}

func filterFunType(syms []*symtab.Symbol) []*symtab.Symbol {
	var out []*symtab.Symbol
	for _, s := range syms {
		if s.Type == symtab.GlobalFun || s.Type == symtab.LocalFun {
			out = append(out, s)
		}
	}
	return out
}

func filterVarType(syms []*symtab.Symbol) []*symtab.Symbol {
	var out []*symtab.Symbol
	for _, s := range syms {
		if s.Type == symtab.GlobalVar || s.Type == symtab.LocalVar {
			out = append(out, s)
		}
	}
	return out
}

func isSpread(n ast.Node) bool {
	_, ok := n.(*ast.Spread)
	return ok
}

func buildArgs(ctx *Context, units []unit.Unit) []ast.Node {
	out := make([]ast.Node, len(units))
	for i, u := range units {
		out[i] = unitToExpr(ctx, u)
	}
	return out
}

// unitToExpr converts one parse unit into the AST node it stands for,
// using a per-kind rewrite table; it never aborts on an unresolved
// reference, instead recording the error and substituting an
// ast.ErrorPlaceholder so the rest of the statement (and the rest of the
// module) keeps getting checked ( mode 1).
func unitToExpr(ctx *Context, u unit.Unit) ast.Node {
	switch v := u.(type) {
	case *unit.Bareword:
		return variableRead(ctx, v.Name, v.Span())

	case *unit.Lit:
		switch v.K {
		case unit.KindAString, unit.KindVerbatim, unit.KindLString, unit.KindRString, unit.KindLRString:
			return &ast.Literal{NodeBase: ast.NodeBase{Sp: v.Sp}, Kind: ast.LitString, StrVal: v.Text}
		default:
			return ctx.errorNode(v.Sp, "unexpected literal unit kind %s", v.K)
		}

	case *unit.Keysym:
		return &ast.Literal{NodeBase: ast.NodeBase{Sp: v.Sp}, Kind: ast.LitString, StrVal: v.Name}

	case *unit.Expander:
		name := v.Name
		if name == "" {
			name = "$"
		}
		return variableRead(ctx, name, v.Sp)

	case *unit.Substitution:
		inner := ctx.PushMinor("")
		node, err := RunExpr(inner, v.Stmts)
		if err != nil {
			return ctx.errorNode(v.Sp, "%v", err)
		}
		return node

	case *unit.Block:
		inner := ctx.PushMinor("")
		node, err := Run(inner, v.Stmts)
		if err != nil {
			return ctx.errorNode(v.Sp, "%v", err)
		}
		return node

	case *unit.SemiLiteral:
		units := make([]ast.Node, len(v.Units))
		for i, e := range v.Units {
			units[i] = unitToExpr(ctx, e)
		}
		return &ast.SemiLiteral{NodeBase: ast.NodeBase{Sp: v.Sp}, Units: units}

	case *unit.Spread:
		return &ast.Spread{NodeBase: ast.NodeBase{Sp: v.Sp}, Inner: unitToExpr(ctx, v.Unit)}

	default:
		return ctx.errorNode(u.Span(), "unsupported parse unit kind %s", u.Kind())
	}
}

// variableRead resolves name to exactly one variable symbol and builds the
// read node for it, recording the appropriate error on a missing or
// ambiguous reference.
func variableRead(ctx *Context, name string, sp token.Span) ast.Node {
	syms := filterVarType(ctx.Symtab.Get(name))
	switch len(syms) {
	case 0:
		return ctx.errorNode(sp, "undefined reference to %q", name)
	case 1:
		return &ast.VariableRead{NodeBase: ast.NodeBase{Sp: sp}, Sym: syms[0]}
	default:
		return ctx.errorNode(sp, "ambiguous reference to %q", name)
	}
}
