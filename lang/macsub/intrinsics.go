package macsub

import (
	"fmt"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
)

// intrinsic describes one native (Go-implemented, as opposed to
// user-macro-defined) macro to install into a module's root symbol table.
type intrinsic struct {
	name       string
	typ        symtab.Type
	precedence int
	subst      SubstFunc
}

var intrinsics = []intrinsic{
	{"if", symtab.ControlMacro, 0, ifSubst},
	{"while", symtab.ControlMacro, 0, whileSubst},
	{"each", symtab.ControlMacro, 0, eachSubst},
	{"throw", symtab.ControlMacro, 0, throwSubst},
	{"defer", symtab.ControlMacro, 0, deferSubst},
	{"try", symtab.ControlMacro, 0, trySubst},
	{"var", symtab.ControlMacro, 0, varSubst},
	{"fun", symtab.ControlMacro, 0, funSubst},
	{"extern", symtab.ControlMacro, 0, externSubst},
	{"namespace", symtab.ControlMacro, 0, namespaceSubst},
	{"import", symtab.ControlMacro, 0, importSubst},
	{"alias", symtab.ControlMacro, 0, aliasSubst},
	{"#set#", symtab.ControlMacro, 0, setSubst},
	{"#update#", symtab.ControlMacro, 0, setSubst},
	{"macro", symtab.ControlMacro, 0, macroDefSubst},
}

// RegisterIntrinsics installs every native macro this package implements
// into tbl (normally a module's root frame, level 0). Each runs once at
// interpreter startup against the global symbol table.
func RegisterIntrinsics(tbl *symtab.Table) {
	for _, in := range intrinsics {
		tbl.Put(&symtab.Symbol{
			Type:       in.typ,
			Level:      0,
			Visibility: symtab.Public,
			FullName:   in.name,
			Macro: &symtab.MacroData{
				Precedence: in.precedence,
				Subst:      in.subst,
			},
		})
	}
}

func bareword(u unit.Unit) (*unit.Bareword, bool) {
	bw, ok := u.(*unit.Bareword)
	return bw, ok
}

func isBarewordNamed(u unit.Unit, name string) bool {
	bw, ok := bareword(u)
	return ok && bw.Name == name
}

// ifSubst implements `if <cond> <result> [<cond> <result>]... [else <result>]`
// (spec §4.4.1: "accepts an odd-or-even unit sequence", confirmed by
// original_source's if.c num_clauses loop): an even number of trailing
// units makes every clause conditional; an odd number makes the final
// clause an implicit else when there are exactly two clauses total, the
// classic `if <cond> <result> <else-result>` shorthand. Every result must
// uniformly be a substitution (expression form, producing a value) or a
// block (statement form, discarding it); expression form requires the
// final clause to be an else.
func ifSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	units := stmt[1:]
	n := len(units)
	if n < 2 {
		return Result{}, fmt.Errorf("if: expected at least one `<cond> <result>` clause")
	}
	numClauses := (1 + n) / 2

	clauses := make([]ast.IfClause, 0, numClauses)
	var expressionForm bool
	pos := 0
	for ix := 0; ix < numClauses; ix++ {
		last := ix == numClauses-1

		var condUnit, resUnit unit.Unit
		if pos+1 < n {
			condUnit, resUnit = units[pos], units[pos+1]
			pos += 2
		} else {
			if !last || ix == 0 || numClauses != 2 {
				return Result{}, fmt.Errorf("if: missing result for final clause")
			}
			resUnit = units[pos]
			pos++
		}

		var condNode ast.Node
		if condUnit != nil {
			if bw, ok := condUnit.(*unit.Bareword); ok && last && ix > 0 {
				if bw.Name != "else" {
					return Result{}, fmt.Errorf("if: expected `else` as the condition of the final clause, found %q", bw.Name)
				}
			} else if condUnit.Kind() != unit.KindSubstitution {
				return Result{}, fmt.Errorf("if: condition must be a parenthesized substitution")
			} else {
				condNode = unitToExpr(ctx, condUnit)
			}
		}

		var resNode ast.Node
		switch resUnit.Kind() {
		case unit.KindSubstitution:
			if ix == 0 {
				expressionForm = true
			} else if !expressionForm {
				return Result{}, fmt.Errorf("if: result form is inconsistent with an earlier clause")
			}
			resNode = unitToExpr(ctx, resUnit)
		case unit.KindBlock:
			if ix == 0 {
				expressionForm = false
			} else if expressionForm {
				return Result{}, fmt.Errorf("if: result form is inconsistent with an earlier clause")
			}
			resNode = unitToExpr(ctx, resUnit)
		default:
			return Result{}, fmt.Errorf("if: result must be a substitution or a block")
		}

		clauses = append(clauses, ast.IfClause{Cond: condNode, Result: resNode})
	}

	if expressionForm && clauses[len(clauses)-1].Cond != nil {
		return Result{}, fmt.Errorf("if: expression form requires an `else` clause")
	}

	return Result{Status: Done, Node: &ast.If{
		NodeBase:       ast.NodeBase{Sp: stmt.Span()},
		Clauses:        clauses,
		ExpressionForm: expressionForm,
	}}, nil
}

// whileSubst implements `while <cond> <body-block>` (the pre-condition
// loop shape; `each` is the other composable clause implemented natively
// (eachSubst, below) — a counted `for {init} (cond) {update}` variant would
// lower to the same ast.Loop node via synthesized step expressions, but
// isn't implemented since nothing at the unit level specifies the
// increment-expression shape to parse it from; see DESIGN.md).
func whileSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) != 3 {
		return Result{}, fmt.Errorf("while: expected `while <cond> <block>`")
	}
	cond := unitToExpr(ctx, stmt[1])
	body := unitToExpr(ctx, stmt[2])
	return Result{Status: Done, Node: &ast.Loop{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Cond:     cond, Body: body,
	}}, nil
}

// eachSubst implements the `each <var> in <list-expr> <body>` composable
// loop clause (spec §4.4.1's `loop each … in …`, registered as its own
// top-level control macro rather than behind a unifying `loop` keyword,
// consistent with how `while` is handled here — see DESIGN.md). An
// optional trailing `collect <expr>` turns the loop into an expression
// producing the collected list (spec §8 scenario 3); an optional trailing
// `else <block>` runs once at loop completion, substituting for the
// accumulator. <var> is declared as a fresh mutable local, visible to the
// body, collect expression and else clause but not to the list expression
// itself.
func eachSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) < 5 {
		return Result{}, fmt.Errorf("each: expected `each <var> in <list> <body>`")
	}
	nameUnit, ok := bareword(stmt[1])
	if !ok {
		return Result{}, fmt.Errorf("each: expected a loop variable name")
	}
	if !isBarewordNamed(stmt[2], "in") {
		return Result{}, fmt.Errorf("each: expected `in` as the third unit")
	}
	list := unitToExpr(ctx, stmt[3])

	inner := ctx.PushMinor("")
	sym := declareVar(inner, nameUnit.Name, nameUnit.Sp, true)
	body := unitToExpr(inner, stmt[4])

	var collect, elseNode ast.Node
	rest := stmt[5:]
	for len(rest) >= 2 {
		switch {
		case isBarewordNamed(rest[0], "collect"):
			collect = unitToExpr(inner, rest[1])
		case isBarewordNamed(rest[0], "else"):
			elseNode = unitToExpr(inner, rest[1])
		default:
			return Result{}, fmt.Errorf("each: unexpected clause introducer %s", rest[0].Kind())
		}
		rest = rest[2:]
	}
	if len(rest) != 0 {
		return Result{}, fmt.Errorf("each: trailing unit with no clause introducer")
	}

	return Result{Status: Done, Node: &ast.LoopEach{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		VarSym:   sym,
		List:     list,
		Body:     body,
		Collect:  collect,
		Else:     elseNode,
	}}, nil
}

// throwSubst implements `throw <value>`.
func throwSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) != 2 {
		return Result{}, fmt.Errorf("throw: expected `throw <value>`")
	}
	return Result{Status: Done, Node: &ast.Throw{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Value:    unitToExpr(ctx, stmt[1]),
	}}, nil
}

// deferSubst implements `defer <statement>`.
func deferSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) != 2 {
		return Result{}, fmt.Errorf("defer: expected `defer <statement>`")
	}
	return Result{Status: Done, Node: &ast.Defer{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Stmt:     unitToExpr(ctx, stmt[1]),
	}}, nil
}

// trySubst implements `try <body-block> [catch <catch-block>] [finally
// <finally-block>]`.
func trySubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) < 3 {
		return Result{}, fmt.Errorf("try: expected at least `try <block>`")
	}
	body := unitToExpr(ctx, stmt[1])
	var catchNode, finallyNode ast.Node
	i := 2
	for i < len(stmt) {
		switch {
		case isBarewordNamed(stmt[i], "catch") && i+1 < len(stmt):
			catchNode = unitToExpr(ctx, stmt[i+1])
			i += 2
		case isBarewordNamed(stmt[i], "finally") && i+1 < len(stmt):
			finallyNode = unitToExpr(ctx, stmt[i+1])
			i += 2
		default:
			return Result{}, fmt.Errorf("try: unexpected unit at position %d", i)
		}
	}
	return Result{Status: Done, Node: &ast.Try{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Body:     body, Catch: catchNode, Finally: finallyNode,
	}}, nil
}

// varSubst implements `var <name> [= <value>]`, declaring a new mutable
// variable symbol in the current scope and lowering any initializer to a
// plain assignment.
func varSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) != 2 && len(stmt) != 4 {
		return Result{}, fmt.Errorf("var: expected `var <name>` or `var <name> = <value>`")
	}
	nameUnit, ok := bareword(stmt[1])
	if !ok {
		return Result{}, fmt.Errorf("var: expected a name")
	}
	var value ast.Node
	if len(stmt) == 4 {
		if !isBarewordNamed(stmt[2], "=") {
			return Result{}, fmt.Errorf("var: expected `=` as the third unit")
		}
		value = unitToExpr(ctx, stmt[3])
	} else {
		value = &ast.Literal{NodeBase: ast.NodeBase{Sp: stmt.Span()}, Kind: ast.LitString, StrVal: ""}
	}

	sym := declareVar(ctx, nameUnit.Name, nameUnit.Sp, true)
	target := &ast.VariableRead{NodeBase: ast.NodeBase{Sp: nameUnit.Sp}, Sym: sym}
	return Result{Status: Done, Node: &ast.Assign{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Target:   target, Value: value,
	}}, nil
}

// visibilityFor returns the only visibility a symbol at ctx's level may
// carry into Context.PutSymbol: nested scopes are always private, matching
// the invariant lang/symtab.Table.Put enforces on insertion.
func visibilityFor(ctx *Context) symtab.Visibility {
	if ctx.Level > 0 {
		return symtab.Private
	}
	return symtab.Public
}

func declareVar(ctx *Context, name string, sp token.Span, mutable bool) *symtab.Symbol {
	typ := symtab.GlobalVar
	if ctx.Level > 0 {
		typ = symtab.LocalVar
	}
	sym := &symtab.Symbol{
		Type:       typ,
		Level:      ctx.Level,
		Visibility: visibilityFor(ctx),
		FullName:   ctx.ApplyPrefix(name),
		Var:        &symtab.VarData{Mutable: mutable, Name: name},
	}
	if ctx.Level > 0 && ctx.Varscope != nil {
		sym.Var.Scope = ctx.Varscope
		ctx.Varscope.RefVar(sym)
	}
	ctx.PutSymbol(sym, sp)
	return sym
}

// setSubst implements the #set#/#update# control sigils user-macro bodies
// emit to perform an assignment without re-entering ordinary
// operator-macro resolution; #update# is aliased to the same
// plain-assignment behavior here, since a faithful
// read-combine-write lowering needs a combinator operator this unit-level
// shape doesn't name (see DESIGN.md).
func setSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) != 3 {
		return Result{}, fmt.Errorf("#set#/#update#: expected `#set# <target> <value>`")
	}
	target := unitToExpr(ctx, stmt[1])
	value := unitToExpr(ctx, stmt[2])
	return Result{Status: Done, Node: &ast.Assign{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Target:   target, Value: value,
	}}, nil
}

// funSubst implements `fun <name> (<params...>) <body-block>`.
func funSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) != 4 {
		return Result{}, fmt.Errorf("fun: expected `fun <name> (<params>) <body>`")
	}
	nameUnit, ok := bareword(stmt[1])
	if !ok {
		return Result{}, fmt.Errorf("fun: expected a name")
	}
	paramsUnit, ok := stmt[2].(*unit.SemiLiteral)
	if !ok {
		return Result{}, fmt.Errorf("fun: expected a parameter list")
	}
	bodyUnit, ok := stmt[3].(*unit.Block)
	if !ok {
		return Result{}, fmt.Errorf("fun: expected a body block")
	}

	typ := symtab.GlobalFun
	if ctx.Level > 0 {
		typ = symtab.LocalFun
	}
	sym := &symtab.Symbol{
		Type:       typ,
		Level:      ctx.Level,
		Visibility: visibilityFor(ctx),
		FullName:   ctx.ApplyPrefix(nameUnit.Name),
		Var:        &symtab.VarData{Name: nameUnit.Name},
	}
	ctx.PutSymbol(sym, nameUnit.Sp)

	inner := ctx.PushMajor(nameUnit.Name + ":")
	params := bindParams(inner, paramsUnit)
	sym.Var.Proto = &symtab.Prototype{Args: params}
	sym.Var.Scope = inner.Varscope

	body, err := Run(inner, bodyUnit.Stmts)
	if err != nil {
		return Result{}, err
	}

	return Result{Status: Done, Node: &ast.Defun{
		NodeBase: ast.NodeBase{Sp: stmt.Span()},
		Sym:      sym, Params: params, Captures: inner.Varscope, Body: body,
	}}, nil
}

// bindParams declares each parameter bareword as a local variable of ctx
// (which must already be pushed one level into the function it belongs
// to), assigning each a stable varscope index in declaration order. This
// implementation gives declared parameters and transitively captured
// outer variables one shared index space (first-reference order) rather
// than the stricter "captures strictly precede declared parameters"
// convention lang/varscope's doc comment describes, a simplification
// recorded in DESIGN.md.
func bindParams(ctx *Context, params *unit.SemiLiteral) []symtab.ArgBinding {
	bindings := make([]symtab.ArgBinding, 0, len(params.Units))
	for _, u := range params.Units {
		bw, ok := bareword(u)
		if !ok {
			continue
		}
		declareVar(ctx, bw.Name, bw.Sp, true)
		bindings = append(bindings, symtab.ArgBinding{Kind: symtab.Positional, Name: bw.Name})
	}
	return bindings
}

// externSubst implements `extern fun <name> (<params>)` and
// `extern var <name>`.
func externSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, _ []unit.Statement) (Result, error) {
	if len(stmt) < 3 {
		return Result{}, fmt.Errorf("extern: expected `extern fun <name> (<params>)` or `extern var <name>`")
	}
	switch {
	case isBarewordNamed(stmt[1], "fun") && len(stmt) == 4:
		nameUnit, ok := bareword(stmt[2])
		if !ok {
			return Result{}, fmt.Errorf("extern fun: expected a name")
		}
		paramsUnit, ok := stmt[3].(*unit.SemiLiteral)
		if !ok {
			return Result{}, fmt.Errorf("extern fun: expected a parameter list")
		}
		sym := &symtab.Symbol{
			Type:       symtab.GlobalFun,
			Level:      ctx.Level,
			Visibility: visibilityFor(ctx),
			FullName:   ctx.ApplyPrefix(nameUnit.Name),
			Var:        &symtab.VarData{Name: nameUnit.Name},
		}
		var params []symtab.ArgBinding
		for _, u := range paramsUnit.Units {
			if bw, ok := bareword(u); ok {
				params = append(params, symtab.ArgBinding{Kind: symtab.Positional, Name: bw.Name})
			}
		}
		sym.Var.Proto = &symtab.Prototype{Args: params}
		ctx.PutSymbol(sym, nameUnit.Sp)
		return Result{Status: Done, Node: &ast.Extern{
			NodeBase: ast.NodeBase{Sp: stmt.Span()}, Sym: sym, Params: params,
		}}, nil

	case isBarewordNamed(stmt[1], "var") && len(stmt) == 3:
		nameUnit, ok := bareword(stmt[2])
		if !ok {
			return Result{}, fmt.Errorf("extern var: expected a name")
		}
		sym := &symtab.Symbol{
			Type:       symtab.GlobalVar,
			Level:      ctx.Level,
			Visibility: visibilityFor(ctx),
			FullName:   ctx.ApplyPrefix(nameUnit.Name),
			Var:        &symtab.VarData{Mutable: true, Name: nameUnit.Name},
		}
		ctx.PutSymbol(sym, nameUnit.Sp)
		return Result{Status: Done, Node: &ast.Extern{
			NodeBase: ast.NodeBase{Sp: stmt.Span()}, Sym: sym,
		}}, nil

	default:
		return Result{}, fmt.Errorf("extern: expected `fun` or `var` as the second unit")
	}
}

// namespaceSubst implements `namespace <name> <body-block>` and the
// bodyless header form `namespace <name>`, which claims the rest of the
// enclosing statement list as its body (the namespace-without-body consumed-rest case).
func namespaceSubst(ctx *Context, stmt unit.Statement, _ unit.Unit, rest []unit.Statement) (Result, error) {
	if len(stmt) != 2 && len(stmt) != 3 {
		return Result{}, fmt.Errorf("namespace: expected `namespace <name>` or `namespace <name> <block>`")
	}
	nameUnit, ok := bareword(stmt[1])
	if !ok {
		return Result{}, fmt.Errorf("namespace: expected a name")
	}

	var bodyStmts []unit.Statement
	consumed := 0
	if len(stmt) == 3 {
		block, ok := stmt[2].(*unit.Block)
		if !ok {
			return Result{}, fmt.Errorf("namespace: expected a body block")
		}
		bodyStmts = block.Stmts
	} else {
		bodyStmts = append(bodyStmts, rest...)
		consumed = len(rest)
	}

	inner := ctx.PushMinor(nameUnit.Name + ":")
	node, err := Run(inner, bodyStmts)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: Done, Node: node, Consumed: consumed}, nil
}

// importSubst/aliasSubst implement `import <old> as <new>` (a strong
// import) and `alias <old> as <new>` (a weak one).
func importSubst(ctx *Context, stmt unit.Statement, p unit.Unit, r []unit.Statement) (Result, error) {
	return doImport(ctx, stmt, true)
}

func aliasSubst(ctx *Context, stmt unit.Statement, p unit.Unit, r []unit.Statement) (Result, error) {
	return doImport(ctx, stmt, false)
}

func doImport(ctx *Context, stmt unit.Statement, strong bool) (Result, error) {
	if len(stmt) != 4 {
		return Result{}, fmt.Errorf("import/alias: expected `<keyword> <old-prefix> as <new-prefix>`")
	}
	oldUnit, ok := bareword(stmt[1])
	if !ok {
		return Result{}, fmt.Errorf("import/alias: expected an old prefix")
	}
	if !isBarewordNamed(stmt[2], "as") {
		return Result{}, fmt.Errorf("import/alias: expected `as` as the third unit")
	}
	newUnit, ok := bareword(stmt[3])
	if !ok {
		return Result{}, fmt.Errorf("import/alias: expected a new prefix")
	}

	absolutised, ambiguous := ctx.Symtab.Import(oldUnit.Name, newUnit.Name, false, strong)
	if ambiguous {
		ctx.Errors.Add(stmt.Span(), "import alias %s is already ambiguous", newUnit.Name)
	}
	return Result{Status: Done, Node: &ast.ImportAlias{
		NodeBase:  ast.NodeBase{Sp: stmt.Span()},
		OldPrefix: absolutised, NewPrefix: newUnit.Name, Absolute: false, Strong: strong,
	}}, nil
}
