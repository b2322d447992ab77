package ast

import (
	"fmt"

	"github.com/ava-lang/avc/lang/codegen"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/token"
)

// Module is the root node of one compiled module: an ordered sequence of
// top-level definitions (Defun/Extern/ImportAlias/struct-defs, and plain
// statements, which lower into the module's synthesized init function
// global).
type Module struct {
	NodeBase
	Name  string
	Stmts []Node
}

func (n *Module) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
func (n *Module) String() string { return fmt.Sprintf("module %s", n.Name) }

// CgDefine code-generates every top-level definition, then synthesizes and
// registers the module's init function from any statements among Stmts
// that aren't themselves definitions (plain expressions/assignments run at
// module load time).
func (n *Module) CgDefine(ctx *codegen.Context) error {
	var initStmts []Node
	var definers []Node
	for _, s := range n.Stmts {
		if _, ok := s.(Definer); ok {
			definers = append(definers, s)
			continue
		}
		initStmts = append(initStmts, s)
	}

	// Declare every top-level global before generating any body, so a
	// function appearing earlier in the file can still call one appearing
	// later (and mutually-recursive functions can call each other). A
	// failure to even declare one definer's global is recorded and skipped
	// rather than aborting the rest of the module (spec §7 mode 1): every
	// other definer's declaration, and every codegen problem downstream of
	// it, is still worth reporting in the same run.
	for _, s := range definers {
		if err := DeclareGlobal(s, ctx); err != nil {
			ctx.AddError(spanOf(s), "%v", err)
		}
	}
	// A module-level `var` lowers to a plain Assign (its target is just a
	// VariableRead, not a Definer: there is no declaration-time distinction
	// between it and a local var), so unlike Defun/Extern it never went
	// through DeclareGlobal above. Register its GVar global here, before any
	// init-function body runs, so forward references from a function
	// defined earlier in the file still resolve.
	declareTopLevelVars(initStmts, ctx)
	for _, s := range definers {
		if err := CgDefine(s, ctx); err != nil {
			ctx.AddError(spanOf(s), "%v", err)
		}
	}
	if len(initStmts) == 0 {
		return nil
	}

	initFn := &Defun{
		NodeBase: n.NodeBase,
		Sym:      &symtab.Symbol{Type: symtab.GlobalFun, FullName: n.Name + ":init"},
		Body:     &Seq{NodeBase: n.NodeBase, Stmts: initStmts},
	}
	if err := CgDefine(initFn, ctx); err != nil {
		ctx.AddError(initFn.Sp, "%v", err)
		return nil
	}
	ctx.Globals.AddInit(initFn.globalIndex)
	return nil
}

// spanOf reports the source span of a definer node, for attaching a
// declare/codegen failure that's caught outside the node's own CgDefine
// (which would otherwise have no span to report against).
func spanOf(n Node) token.Span {
	if b, ok := n.(interface{ Span() token.Span }); ok {
		return b.Span()
	}
	return token.Span{}
}

// declareTopLevelVars scans stmts for module-level `var` declarations
// (Assign nodes whose target is a level-0 VariableRead) and gives each one
// a GVar global slot, so that the init function's own CgDefine pass (which
// runs after this) can emit ld-glob/set-glob against an already-assigned
// P-Code index. It does not recurse into nested statements: a `var` nested
// inside an `if`/`while` at the top level is still a level-0 symbol (level
// tracks lexical scope, not syntactic nesting), but it is unreachable until
// that branch executes, so walking only the immediate statement list
// mirrors where macsub's varSubst actually inserts the Assign.
func declareTopLevelVars(stmts []Node, ctx *codegen.Context) {
	for _, s := range stmts {
		assign, ok := s.(*Assign)
		if !ok {
			continue
		}
		vr, ok := assign.Target.(*VariableRead)
		if !ok || vr.Sym.Level != 0 || vr.Sym.HasPCodeIndex {
			continue
		}
		idx := ctx.Globals.AddVar(vr.Sym.FullName)
		vr.Sym.PCodeIndex = idx
		vr.Sym.HasPCodeIndex = true
	}
}
