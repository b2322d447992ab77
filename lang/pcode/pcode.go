// Package pcode implements the P-Code model and builder: the
// instruction set, typed registers and the two layered builders (a global
// builder accumulating top-level items and per-function executable
// builders).
//
// Its Program/Func shapes and closed instruction set are modeled on an
// expression-bytecode VM's Funcode/opcode design, generalized to typed
// register stacks (push/pop on separate data/int/list/parm/function
// stacks instead of one untyped operand stack) and a ten-kind
// global-item list instead of a flat function table.
package pcode

import (
	"fmt"

	"github.com/ava-lang/avc/lang/token"
)

// RegType identifies one of the disjoint register index spaces.
type RegType uint8

const (
	RegVar RegType = iota
	RegData
	RegInt
	RegList
	RegParm
	RegFunction
)

func (t RegType) String() string {
	switch t {
	case RegVar:
		return "var"
	case RegData:
		return "data"
	case RegInt:
		return "int"
	case RegList:
		return "list"
	case RegParm:
		return "parm"
	case RegFunction:
		return "function"
	default:
		return "<invalid reg type>"
	}
}

// Reg is a single P-Code register reference: a type tag plus an index
// within that type's stack (or, for RegVar, within the function's named
// variable space).
type Reg struct {
	Type  RegType
	Index int
}

func (r Reg) String() string { return fmt.Sprintf("%s%d", r.Type, r.Index) }

// IsZero reports whether r is the unset zero Reg (RegVar index 0 is a valid
// register, so callers that need an "absent register" sentinel should use a
// *Reg or a separate boolean instead of relying on IsZero).
func (r Reg) IsZero() bool { return r == Reg{} }

// Op is one of the closed set of P-Code executable instruction operations.
// The set is closed: adding a new operation requires a corresponding
// update to lang/xcode's validator.
type Op uint8

const ( //nolint:revive
	// stack manipulation
	Push Op = iota
	Pop
	Label

	// control flow (structural: terminal with jump target and optional
	// fallthrough)
	Jump      // unconditional jump to Label
	BranchIf  // conditional jump to Label if Src1 is truthy, else fallthrough
	Ret       // return Src1 (or no value if Src1 is zero)

	// exception-stack manipulators
	Try                    // push a try frame with landing pad Label
	Yrt                    // pop the current try frame (normal exit)
	Rethrow                // re-throw the currently-caught exception
	RequireEmptyException  // assert no exception is currently in flight
	RequireCaughtException // assert an exception is currently being handled

	// value movement
	LdImmInt // Dst = ImmInt
	LdImmStr // Dst = ImmStr
	LdImmData
	LdReg  // Dst = Src1
	LdGlob // Dst = globals[GlobalIndex]
	SetGlob

	// list operations
	LEmpty
	LAppend
	LCat
	LHead
	LBehead
	LFlatten
	LIndex
	LLength

	// integer operations
	IAdd
	IAddImm
	// ICmp: Dst = 1 if the three-way comparison of Src1 to Src2 (-1/0/1,
	// as Src1<Src2/==Src2/>Src2) is NOT ImmInt, else 0. Fuses the original
	// bytecode's separate icmp + branch(cmp, target, invert=true, label)
	// pair into one instruction, since this model's BranchIf only tests a
	// single register for truthiness; a bounded loop tests index-vs-length
	// with ImmInt = -1 (branch away once the index is no longer less than
	// the length).
	ICmp
	Bool

	// function operations
	InvokeSS // static callee, static args            (Dst = Src1(args Lo..Hi))
	InvokeSD // static callee, dynamic (spread) args
	InvokeDD // dynamic callee, dynamic args
	Partial  // partial application

	numOps
)

var opNames = [...]string{
	Push: "push", Pop: "pop", Label: "label",
	Jump: "jmp", BranchIf: "branch", Ret: "ret",
	Try: "try", Yrt: "yrt", Rethrow: "rethrow",
	RequireEmptyException: "require-empty-exception", RequireCaughtException: "require-caught-exception",
	LdImmInt: "ld-imm-int", LdImmStr: "ld-imm-str", LdImmData: "ld-imm-data",
	LdReg: "ld-reg", LdGlob: "ld-glob", SetGlob: "set-glob",
	LEmpty: "lempty", LAppend: "lappend", LCat: "lcat", LHead: "lhead",
	LBehead: "lbehead", LFlatten: "lflatten", LIndex: "lindex", LLength: "llength",
	IAdd: "iadd", IAddImm: "iadd-imm", ICmp: "icmp", Bool: "bool",
	InvokeSS: "invoke-ss", InvokeSD: "invoke-sd", InvokeDD: "invoke-dd", Partial: "partial",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("<invalid op %d>", op)
}

// IsTerminal reports whether op ends a basic block (pass 1):
// after a terminal instruction, a new block begins. Try is terminal too,
// even though it falls through to the next block: lang/xcode's
// exception-stack inference (pass 5) only ever examines the last
// instruction of a block for a pushed landing pad, so Try must always be
// block-final.
func (op Op) IsTerminal() bool {
	switch op {
	case Jump, BranchIf, Ret, Rethrow, Try:
		return true
	default:
		return false
	}
}

// IsTerminalNoFallthrough reports whether op, besides ending its block,
// also has no fallthrough successor at all: the block's only continuation
// is whatever its jump target names (or, for Ret/Rethrow, nothing in this
// function). BranchIf and Try are terminal but still fall through to the
// next block when their condition is false / when no exception is thrown.
func (op Op) IsTerminalNoFallthrough() bool {
	switch op {
	case Jump, Ret, Rethrow:
		return true
	default:
		return false
	}
}

// IsThrowing reports whether op may transfer control to an exception
// landing pad, requiring an extra successor edge in block linking.
func (op Op) IsThrowing() bool {
	switch op {
	case InvokeSS, InvokeSD, InvokeDD, Rethrow, LIndex:
		return true
	default:
		return false
	}
}

// IsPushLandingPad reports whether op pushes a new try-frame onto the
// function's exception stack (pass 5).
func (op Op) IsPushLandingPad() bool { return op == Try }

// IsPopException reports whether op pops the current try-frame on its
// normal (non-exceptional) exit path.
func (op Op) IsPopException() bool { return op == Yrt }

// StackEffect returns the net change in register-stack height that i causes
// on the stack its Dst/Src1 register names, used by lang/xcode's
// register-count tallying pass.
func (i Insn) StackEffect() int {
	switch i.Op {
	case Push:
		return +1
	case Pop:
		return -1
	default:
		return 0
	}
}

// RegReads returns every register insn reads, in an unspecified order,
// for lang/xcode's register-existence check and φ-dataflow init-check
// (passes 2 and 6). It is the read-side counterpart of
// RegWrites; together they are the only place in the compiler that needs
// to know, per opcode, which Insn fields name registers. The operand
// shapes mirror lang/pcode/asm.go's serializer exactly, since both were
// derived from the same per-op encoding table. Push and Pop are
// deliberately absent from both: they only grow or shrink a stack's
// height (lang/codegen's own height counters track that directly), they
// never read or write a register's value.
func RegReads(insn Insn) []Reg {
	var out []Reg
	add := func(r Reg) { out = append(out, r) }
	switch insn.Op {
	case BranchIf:
		add(insn.Src1)
	case Ret:
		if insn.Src1 != (Reg{}) {
			add(insn.Src1)
		}
	case Rethrow:
		// operates on the implicit current exception, no explicit register
	case LdReg:
		add(insn.Src1)
	case SetGlob:
		add(insn.Src1)
	case LAppend, LCat:
		add(insn.Src1)
		add(insn.Src2)
	case LHead, LBehead, LFlatten, LLength:
		add(insn.Src1)
	case LIndex:
		add(insn.Src1)
		add(insn.Src2)
	case IAdd:
		add(insn.Src1)
		add(insn.Src2)
	case IAddImm:
		add(insn.Src1)
	case ICmp:
		add(insn.Src1)
		add(insn.Src2)
	case Bool:
		add(insn.Src1)
	case InvokeSS:
		if lo, hi, ok := SpecialDataRange(insn); ok {
			for i := lo; i < hi; i++ {
				add(Reg{Type: RegData, Index: i})
			}
		}
	case InvokeSD:
		if lo, hi, ok := SpecialDataRange(insn); ok {
			for i := lo; i < hi; i++ {
				add(Reg{Type: RegData, Index: i})
			}
		}
	case InvokeDD:
		add(insn.Src1)
		if lo, hi, ok := SpecialDataRange(insn); ok {
			for i := lo; i < hi; i++ {
				add(Reg{Type: RegData, Index: i})
			}
		}
	}
	return out
}

// RegWrites returns every register insn defines, for the same two
// lang/xcode passes RegReads serves.
func RegWrites(insn Insn) []Reg {
	switch insn.Op {
	case LdImmInt, LdImmStr, LdImmData, LdReg, LdGlob,
		LEmpty, LAppend, LCat, LHead, LBehead, LFlatten, LIndex, LLength,
		IAdd, IAddImm, ICmp, Bool,
		InvokeSS, InvokeSD, InvokeDD, Partial:
		return []Reg{insn.Dst}
	default:
		return nil
	}
}

// SpecialDataRange returns the [lo, hi) RegData range an InvokeSS/InvokeSD/
// InvokeDD instruction reads its arguments from ('s "special data
// range" operand), per lang/ast/exprs.go's Funcall.CgEvaluate: every invoke
// variant this compiler emits pushes its arguments onto the RegData stack
// before invoking, so the range is always over RegData regardless of
// variant. Partial's NArgs is a plain count, not a range, so ok is false
// for it.
func SpecialDataRange(insn Insn) (lo, hi int, ok bool) {
	switch insn.Op {
	case InvokeSS, InvokeSD, InvokeDD:
		return insn.ArgLo, insn.ArgHi, true
	default:
		return 0, 0, false
	}
}

// Insn is one P-Code instruction. Instructions are immutable after
// construction: a pass that needs to change a single field
// (jump-target renumbering, landing-pad renumbering) produces a new Insn
// value via With* rather than mutating one in place, so any slice of Insn
// already handed to another pass stays valid.
type Insn struct {
	Op  Op
	Pos token.Span // emitted by codegen only when it differs from the previous instruction's

	Dst, Src1, Src2 Reg

	Label       string // pre-xcode jump target (by label name)
	BlockTarget int     // post-xcode jump target (by basic-block index); -1 until rewritten
	Fallthrough bool

	ImmInt int64
	ImmStr string

	GlobalIndex int // ld-glob / set-glob / invoke-ss / invoke-sd / partial
	ArgLo, ArgHi int // invoke-sd parameter range (inclusive..exclusive) on the data stack
	NArgs       int
}

// WithLabel returns a copy of i with its jump-target label replaced,
// leaving i itself untouched. Used by lang/xcode when relabeling gensym'd
// landing pads without mutating the shared instruction stream.
func (i Insn) WithLabel(label string) Insn {
	c := i
	c.Label = label
	return c
}

// WithBlockTarget returns a copy of i with its jump target rewritten from a
// label name to a basic-block index, the "with-field" combinator 
// describes for the validator's label->block-index renumbering pass.
func (i Insn) WithBlockTarget(blockIdx int) Insn {
	c := i
	c.BlockTarget = blockIdx
	return c
}

// NewInsn constructs a zero-initialized instruction for op, with
// BlockTarget defaulted to -1 (meaning "not yet rewritten by lang/xcode").
func NewInsn(op Op) Insn {
	return Insn{Op: op, BlockTarget: -1}
}

// Executable is a P-Code executable (function body): an ordered list of
// instructions.
type Executable struct {
	Insns []Insn
}

// GlobalKind identifies the variant of one top-level Global item: one of
// src-pos, ext-var, ext-fun, var, fun, init, macro, keysym, struct-def,
// import-alias.
type GlobalKind uint8

const (
	GSrcPos GlobalKind = iota
	GExtVar
	GExtFun
	GVar
	GFun
	GInit
	GMacro
	GKeysym
	GStructDef
	GImportAlias
)

func (k GlobalKind) String() string {
	switch k {
	case GSrcPos:
		return "src-pos"
	case GExtVar:
		return "ext-var"
	case GExtFun:
		return "ext-fun"
	case GVar:
		return "var"
	case GFun:
		return "fun"
	case GInit:
		return "init"
	case GMacro:
		return "macro"
	case GKeysym:
		return "keysym"
	case GStructDef:
		return "struct"
	case GImportAlias:
		return "import"
	default:
		return "<invalid global kind>"
	}
}

// Global is one top-level item of a P-Code program. Each
// addressable global has a stable, 0-based Index assigned at append time by
// the GlobalBuilder.
type Global struct {
	Kind  GlobalKind
	Index int
	Name  string

	// var / ext-var
	Mutable bool

	// fun
	Proto    []ArgProto
	Captures []string
	Body     *Executable

	// init
	FunRef int

	// macro
	MacroType      string // "control", "operator" or "function"
	Precedence     int
	MacroBody      []byte // encoded C7 macro instructions; opaque to this package

	// keysym: Name only

	// struct-def
	Fields []string

	// import-alias
	OldPrefix, NewPrefix string
	Absolute, Strong     bool
}

// ArgProto is the serializable form of one symtab.ArgBinding, kept here
// (rather than importing lang/symtab) so that lang/pcode has no dependency
// on the symbol table: by the time an AST node emits a fun/extern global,
// the binding spec has already been validated and only its shape is
// needed.
type ArgProto struct {
	Kind    string // "positional", "positional-default", "named", "named-default", "varargs", "empty"
	Name    string
	Default string // serialized default value, if any
}

// Program is a P-Code program: the ordered list of global items.
type Program struct {
	Globals []*Global
}

// GlobalBuilder accumulates top-level items for one Program. It assigns
// each appended Global a stable index and performs no validation — that is
// lang/xcode's job.
type GlobalBuilder struct {
	prog *Program
}

// NewGlobalBuilder returns a builder for a fresh, empty Program.
func NewGlobalBuilder() *GlobalBuilder {
	return &GlobalBuilder{prog: &Program{}}
}

// Program returns the Program under construction. It may be called at any
// time; the returned pointer remains valid (and keeps growing) across
// further Add* calls.
func (b *GlobalBuilder) Program() *Program { return b.prog }

func (b *GlobalBuilder) append(g *Global) int {
	g.Index = len(b.prog.Globals)
	b.prog.Globals = append(b.prog.Globals, g)
	return g.Index
}

// AddSrcPos appends a src-pos marker global, used to annotate subsequent
// globals with their originating source location without needing to attach
// a Span to every single one.
func (b *GlobalBuilder) AddSrcPos(name string) int {
	return b.append(&Global{Kind: GSrcPos, Name: name})
}

// AddExtVar appends an external-variable declaration.
func (b *GlobalBuilder) AddExtVar(name string) int {
	return b.append(&Global{Kind: GExtVar, Name: name})
}

// AddExtFun appends an external-function declaration.
func (b *GlobalBuilder) AddExtFun(name string, proto []ArgProto) int {
	return b.append(&Global{Kind: GExtFun, Name: name, Proto: proto})
}

// AddVar appends a global variable slot.
func (b *GlobalBuilder) AddVar(name string) int {
	return b.append(&Global{Kind: GVar, Name: name, Mutable: true})
}

// AddFun appends a function definition global. body may be nil initially
// and filled in later via SetBody once the ExecBuilder has produced the
// instruction stream (functions are often registered before their body is
// fully code-generated, e.g. for forward references and recursion).
func (b *GlobalBuilder) AddFun(name string, proto []ArgProto, captures []string) int {
	return b.append(&Global{Kind: GFun, Name: name, Proto: proto, Captures: captures})
}

// SetBody attaches the code-generated body to the GFun global at index.
func (b *GlobalBuilder) SetBody(index int, body *Executable) {
	b.prog.Globals[index].Body = body
}

// AddInit appends an init global referencing the function at funRef, run
// once at module load time.
func (b *GlobalBuilder) AddInit(funRef int) int {
	return b.append(&Global{Kind: GInit, FunRef: funRef})
}

// AddMacro appends a user-macro definition global, whose body is the
// caller-encoded C7 macro-instruction stream.
func (b *GlobalBuilder) AddMacro(name, macroType string, precedence int, body []byte) int {
	return b.append(&Global{Kind: GMacro, Name: name, MacroType: macroType, Precedence: precedence, MacroBody: body})
}

// AddKeysym appends a keyword-symbol global.
func (b *GlobalBuilder) AddKeysym(name string) int {
	return b.append(&Global{Kind: GKeysym, Name: name})
}

// AddStructDef appends a struct-definition global.
func (b *GlobalBuilder) AddStructDef(name string, fields []string) int {
	return b.append(&Global{Kind: GStructDef, Name: name, Fields: fields})
}

// AddImportAlias appends an import-alias global recording a namespace
// rewrite rule, mirroring a lang/symtab.Table.Import call so it can be
// replayed when the compiled module is later linked against others.
func (b *GlobalBuilder) AddImportAlias(oldPrefix, newPrefix string, absolute, strong bool) int {
	return b.append(&Global{Kind: GImportAlias, OldPrefix: oldPrefix, NewPrefix: newPrefix, Absolute: absolute, Strong: strong})
}

// ExecBuilder accumulates instructions for one function body. Like
// GlobalBuilder, it performs no validation; lang/codegen drives it while
// tracking register-stack heights, and lang/xcode validates the result.
type ExecBuilder struct {
	insns []Insn
}

// NewExecBuilder returns an empty executable builder.
func NewExecBuilder() *ExecBuilder { return &ExecBuilder{} }

// Append adds insn to the instruction stream and returns its index.
func (b *ExecBuilder) Append(insn Insn) int {
	b.insns = append(b.insns, insn)
	return len(b.insns) - 1
}

// Len reports how many instructions have been appended so far.
func (b *ExecBuilder) Len() int { return len(b.insns) }

// At returns the instruction at index, for passes that need to inspect
// (not mutate) what has been emitted so far.
func (b *ExecBuilder) At(index int) Insn { return b.insns[index] }

// Build finalizes the instruction stream into an immutable Executable.
func (b *ExecBuilder) Build() *Executable {
	out := make([]Insn, len(b.insns))
	copy(out, b.insns)
	return &Executable{Insns: out}
}
