// Package xcode implements the X-Code structurer/validator:
// converting one P-Code function's linear instruction stream into a graph of
// basic blocks, renaming its stack-discipline registers to a
// position-independent identifier space, inferring and validating the
// exception stack at every block boundary, and running a φ-dataflow
// initialization check over the result.
//
// The eight-pass validator uses []bool bitsets and plain slices rather
// than packed words and arena allocation, and *srcerr.List accumulation
// rather than a linked error list.
package xcode

import (
	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/srcerr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// noBlock marks the absence of a successor edge.
const noBlock = -1

// Block is one basic block of a structured function (pass 1/3):
// a maximal run of instructions with a single entry (a label, or the start
// of the function) and, after linking, up to three successor edges.
type Block struct {
	Label string // the label this block starts at, "" for the entry block
	Insns []pcode.Insn

	// Successor edges, each a Blocks index or noBlock. Fallthrough is the
	// implicit "next instruction" edge (absent when the block ends in a
	// no-fallthrough terminal); Jump is the explicit jmp/branch target;
	// LandingPad is the exception-handler edge, assigned either by a
	// trailing `try` (the frame it pushes) or by a throwing instruction at
	// a non-empty exception depth (pass 5).
	Fallthrough int
	Jump        int
	LandingPad  int

	// ExcIn/ExcOut are the inferred exception stacks at this block's entry
	// and exit (pass 5), each a stack of landing-pad block
	// indices, innermost last.
	ExcIn, ExcOut []int

	// Dataflow bitsets from the φ-initialization check (pass 7),
	// indexed by the flat register id space described on Function.
	PhiIExist, PhiOExist []bool
	PhiEffect            []bool
	PhiIInit, PhiOInit   []bool
}

// Function is the structured, validated view of one P-Code function.
type Function struct {
	Name   string
	Blocks []*Block

	// NumRegs is the size of the flat register-id bitset space used by the
	// Phi* fields above: ids [0, NumVars) name var registers by their
	// original index (the one register kind whose identity survives a
	// push/pop cycle, pass 4); ids [NumVars, NumRegs) name one
	// lifetime each of a push'd stack register, renamed position-
	// independently of which raw index it reused.
	NumVars, NumRegs int

	// renameIDs[i] is the id lookup computed at the i-th instruction of the
	// function's original linear stream (see renameRegisters); insnOffset
	// maps a block instruction's address back to that linear index, since
	// block partitioning only ever slices the original stream rather than
	// copying it. Both are internal bookkeeping for idsFor.
	renameIDs  []map[pcode.Reg]regID
	insnOffset map[*pcode.Insn]int
}

// regID maps one pcode.Reg, as referenced at one specific instruction, to
// its flat id in a Function's renamed register space.
type regID = int

// Validate structures and validates every fun global in prog, reporting
// problems to errs and returning the successfully structured functions
// keyed by their global index. A function that fails an early pass (block
// partitioning, register tallying) is omitted from the result and later
// passes are skipped for it once a pass produces an error; a function
// that only fails a late
// pass (exception-stack or φ-init validation) is still returned so callers
// needing the structural shape (e.g. a disassembler) can use it.
func Validate(errs *srcerr.List, prog *pcode.Program) map[int]*Function {
	out := make(map[int]*Function)
	for _, g := range prog.Globals {
		if g.Kind != pcode.GFun || g.Body == nil {
			continue
		}
		if fn, ok := validateFunction(errs, g); ok {
			out[g.Index] = fn
		}
	}
	validateGlobalXrefs(errs, prog)
	return out
}

func validateFunction(errs *srcerr.List, g *pcode.Global) (*Function, bool) {
	insns := g.Body.Insns

	blocks, labelBlock, ok := partitionBlocks(errs, g.Name, insns)
	if !ok {
		return nil, false
	}
	if !tallyRegisters(errs, g.Name, insns) {
		return nil, false
	}
	linkBlocks(errs, g.Name, blocks, labelBlock)

	fn := &Function{Name: g.Name, Blocks: blocks}
	renameRegisters(fn, insns)
	inferExceptionStacks(errs, fn)
	runPhiInitCheck(errs, fn)
	return fn, true
}

// partitionBlocks is pass 1: a new block starts at index 0, at
// every label instruction, and immediately after any terminal or throwing
// instruction.
func partitionBlocks(errs *srcerr.List, fnName string, insns []pcode.Insn) ([]*Block, map[string]int, bool) {
	if len(insns) == 0 {
		return nil, nil, true
	}

	startSet := map[int]bool{0: true}
	for i, insn := range insns {
		if insn.Op == pcode.Label {
			startSet[i] = true
		}
		if (insn.Op.IsTerminal() || insn.Op.IsThrowing()) && i+1 < len(insns) {
			startSet[i+1] = true
		}
	}
	starts := maps.Keys(startSet)
	slices.Sort(starts)

	blocks := make([]*Block, 0, len(starts))
	labelBlock := make(map[string]int)
	ok := true
	for bi, start := range starts {
		end := len(insns)
		if bi+1 < len(starts) {
			end = starts[bi+1]
		}
		blk := &Block{Insns: insns[start:end], Fallthrough: noBlock, Jump: noBlock, LandingPad: noBlock}
		if insns[start].Op == pcode.Label {
			blk.Label = insns[start].Label
			if _, dup := labelBlock[blk.Label]; dup {
				errs.Add(insns[start].Pos, "xcode: function %s: duplicate label %q", fnName, blk.Label)
				ok = false
			} else {
				labelBlock[blk.Label] = bi
			}
		}
		blocks = append(blocks, blk)
	}
	return blocks, labelBlock, ok
}

// tallyRegisters is pass 2: tracks per-type stack height through
// push/pop, rejecting an imbalanced pop, an out-of-bounds register
// reference, and a function that doesn't end every non-var stack at height
// zero.
func tallyRegisters(errs *srcerr.List, fnName string, insns []pcode.Insn) bool {
	ok := true
	var height [int(pcode.RegFunction) + 1]int
	inBounds := func(r pcode.Reg) bool {
		if r.Type == pcode.RegVar {
			return true
		}
		return r.Index >= 0 && r.Index < height[r.Type]
	}
	for _, insn := range insns {
		switch insn.Op {
		case pcode.Push:
			height[insn.Dst.Type]++
		case pcode.Pop:
			if height[insn.Dst.Type] == 0 {
				errs.Add(insn.Pos, "xcode: function %s: pop on empty %s stack", fnName, insn.Dst.Type)
				ok = false
				continue
			}
			height[insn.Dst.Type]--
		}
		for _, r := range pcode.RegReads(insn) {
			if !inBounds(r) {
				errs.Add(insn.Pos, "xcode: function %s: read of out-of-range register %s", fnName, r)
				ok = false
			}
		}
		for _, r := range pcode.RegWrites(insn) {
			if !inBounds(r) {
				errs.Add(insn.Pos, "xcode: function %s: write to out-of-range register %s", fnName, r)
				ok = false
			}
		}
		if lo, hi, has := pcode.SpecialDataRange(insn); has {
			if lo < 0 || hi < lo || hi > height[pcode.RegData] {
				errs.Add(insn.Pos, "xcode: function %s: argument range [%d,%d) out of bounds for data%d", fnName, lo, hi, height[pcode.RegData])
				ok = false
			}
		}
	}
	for t := pcode.RegType(0); t <= pcode.RegFunction; t++ {
		if t == pcode.RegVar {
			continue
		}
		if height[t] != 0 {
			errs.Add(insns[len(insns)-1].Pos, "xcode: function %s: %s stack left at height %d, want 0", fnName, t, height[t])
			ok = false
		}
	}
	return ok
}

// linkBlocks is pass 3: resolves each block's fallthrough and
// explicit jump edges, rewriting label targets to block indices.
func linkBlocks(errs *srcerr.List, fnName string, blocks []*Block, labelBlock map[string]int) {
	resolve := func(insn pcode.Insn) int {
		bi, ok := labelBlock[insn.Label]
		if !ok {
			errs.Add(insn.Pos, "xcode: function %s: reference to undefined label %q", fnName, insn.Label)
			return noBlock
		}
		return bi
	}
	for bi, blk := range blocks {
		if len(blk.Insns) == 0 {
			if bi+1 < len(blocks) {
				blk.Fallthrough = bi + 1
			}
			continue
		}
		last := blk.Insns[len(blk.Insns)-1]
		if !last.Op.IsTerminalNoFallthrough() && bi+1 < len(blocks) {
			blk.Fallthrough = bi + 1
		}
		switch last.Op {
		case pcode.Jump, pcode.BranchIf:
			blk.Jump = resolve(last)
		case pcode.Try:
			blk.LandingPad = resolve(last)
		}
	}
}

// renameRegisters is pass 4: var registers keep their original
// index (the one kind of register whose identity outlives a push/pop
// cycle); every push of a stack register instead gets a fresh,
// position-independent id, so that a later pop-then-push reusing the same
// raw index is never confused with the lifetime it replaced.
//
// It walks the function's original linear instruction order rather than
// the block graph: lang/codegen only ever emits a push/pop pair balanced
// within the single linear region that produced it, so a single
// top-to-bottom sweep sees every push before the reads/pop that consume it
// regardless of which block the CFG later splits
// it into.
func renameRegisters(fn *Function, insns []pcode.Insn) {
	maxVar := -1
	for _, insn := range insns {
		for _, r := range append(append([]pcode.Reg{}, pcode.RegReads(insn)...), pcode.RegWrites(insn)...) {
			if r.Type == pcode.RegVar && r.Index > maxVar {
				maxVar = r.Index
			}
		}
	}
	numVars := maxVar + 1
	fn.NumVars = numVars

	var stack [int(pcode.RegFunction) + 1][]regID
	next := numVars

	// ids[i] holds the flat id bound to Dst/Src1/Src2/ArgLo..ArgHi at
	// instruction i, looked up by (type, raw index) against the live
	// stack-slot state at that point in the sweep.
	lookup := func(r pcode.Reg) regID {
		if r.Type == pcode.RegVar {
			return r.Index
		}
		s := stack[r.Type]
		if r.Index < 0 || r.Index >= len(s) {
			return -1
		}
		return s[r.Index]
	}

	idAt := make([]map[pcode.Reg]regID, len(insns))
	for i, insn := range insns {
		m := make(map[pcode.Reg]regID)
		if insn.Op == pcode.Push {
			id := next
			next++
			stack[insn.Dst.Type] = append(stack[insn.Dst.Type], id)
			m[insn.Dst] = id
		} else {
			for _, r := range pcode.RegReads(insn) {
				m[r] = lookup(r)
			}
			for _, r := range pcode.RegWrites(insn) {
				m[r] = lookup(r)
			}
			if lo, hi, has := pcode.SpecialDataRange(insn); has {
				for idx := lo; idx < hi; idx++ {
					r := pcode.Reg{Type: pcode.RegData, Index: idx}
					m[r] = lookup(r)
				}
			}
			if insn.Op == pcode.Pop {
				s := stack[insn.Dst.Type]
				if n := len(s); n > 0 {
					stack[insn.Dst.Type] = s[:n-1]
				}
			}
		}
		idAt[i] = m
	}
	fn.renameIDs = idAt
	fn.NumRegs = next

	assignBlockInsnIDs(fn, insns)
}

func assignBlockInsnIDs(fn *Function, insns []pcode.Insn) {
	fn.insnOffset = make(map[*pcode.Insn]int, len(insns))
	offset := 0
	for _, blk := range fn.Blocks {
		for i := range blk.Insns {
			fn.insnOffset[&blk.Insns[i]] = offset + i
		}
		offset += len(blk.Insns)
	}
}

func (fn *Function) idsFor(blk *Block, i int, insn pcode.Insn) map[pcode.Reg]regID {
	base := fn.insnOffset[&blk.Insns[i]]
	return fn.renameIDs[base]
}

// excState is one inferred exception stack: a stack of landing-pad block
// indices, innermost last. known false means "not yet computed" (the
// fixed-point bottom element), distinct from a known empty stack (known
// true with a nil or empty stack).
type excState struct {
	known bool
	stack []int
}

func excEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// inferExceptionStacks is passes 5 and 6: walks the block graph
// to a fixed point assigning each block an entry/exit exception stack, then
// validates require-empty-exception/require-caught-exception against it and
// checks the function leaves an empty stack wherever it can exit normally.
func inferExceptionStacks(errs *srcerr.List, fn *Function) {
	if len(fn.Blocks) == 0 {
		return
	}
	states := make([]excState, len(fn.Blocks))
	states[0] = excState{known: true, stack: nil}

	preds := predecessors(fn.Blocks)

	var scratch srcerr.List
	changed := true
	for changed {
		changed = false
		for bi, blk := range fn.Blocks {
			in, _ := joinExcStates(bi, states, preds[bi])
			if in.known {
				blk.ExcIn = in.stack
			}
			out, unresolved := excWalkBlock(&scratch, fn.Name, blk, in)
			if unresolved {
				continue
			}
			if !states[bi].known || !excEqual(states[bi].stack, out.stack) {
				states[bi] = out
				blk.ExcOut = out.stack
				changed = true
			}
		}
	}

	// Fixed point reached: re-walk once more, this time actually reporting
	// require-*/yrt diagnostics and any predecessor conflict, so each is
	// emitted exactly once against the converged state rather than once per
	// iteration.
	for bi, blk := range fn.Blocks {
		in, conflicted := joinExcStates(bi, states, preds[bi])
		if conflicted && len(blk.Insns) > 0 {
			errs.Add(blk.Insns[0].Pos, "xcode: function %s: inconsistent exception stack among predecessors of block %d", fn.Name, bi)
		}
		excWalkBlock(errs, fn.Name, blk, in)
	}

	for _, blk := range fn.Blocks {
		if blk.Fallthrough == noBlock && blk.Jump == noBlock && len(blk.Insns) > 0 {
			last := blk.Insns[len(blk.Insns)-1]
			if last.Op == pcode.Ret && len(blk.ExcOut) != 0 {
				errs.Add(last.Pos, "xcode: function %s: function may return with %d exception frame(s) still open", fn.Name, len(blk.ExcOut))
			}
		}
	}
}

func joinExcStates(bi int, states []excState, preds []int) (excState, bool) {
	if bi == 0 {
		return states[0], false
	}
	var joined excState
	conflicted := false
	for _, p := range preds {
		if !states[p].known {
			continue
		}
		if !joined.known {
			joined = excState{known: true, stack: states[p].stack}
			continue
		}
		if !excEqual(joined.stack, states[p].stack) {
			// Conflicting predecessor exception stacks; keep the first
			// seen so the walk below still produces a stable (if
			// ultimately erroneous) result instead of oscillating.
			conflicted = true
		}
	}
	return joined, conflicted
}

// excWalkBlock applies blk's try/yrt/require-* instructions to the entry
// state in, returning the resulting exit state. A require-* mismatch is
// reported once per occurrence and does not stop the walk.
func excWalkBlock(errs *srcerr.List, fnName string, blk *Block, in excState) (excState, bool) {
	if !in.known {
		return excState{}, true
	}
	stack := append([]int(nil), in.stack...)
	for _, insn := range blk.Insns {
		switch insn.Op {
		case pcode.Try:
			stack = append(stack, blk.LandingPad)
		case pcode.Yrt:
			if len(stack) == 0 {
				errs.Add(insn.Pos, "xcode: function %s: yrt with no open try frame", fnName)
				continue
			}
			stack = stack[:len(stack)-1]
		case pcode.RequireEmptyException:
			if len(stack) != 0 {
				errs.Add(insn.Pos, "xcode: function %s: require-empty-exception with %d frame(s) open", fnName, len(stack))
			}
		case pcode.RequireCaughtException:
			if len(stack) == 0 {
				errs.Add(insn.Pos, "xcode: function %s: require-caught-exception with no exception caught", fnName)
			}
		}
	}
	if len(blk.Insns) > 0 {
		last := blk.Insns[len(blk.Insns)-1]
		if last.Op.IsThrowing() && len(stack) > 0 {
			blk.LandingPad = stack[len(stack)-1]
		}
	}
	return excState{known: true, stack: stack}, false
}

// predecessors derives each block's incoming edges from the others'
// Fallthrough/Jump/LandingPad successor fields.
func predecessors(blocks []*Block) [][]int {
	preds := make([][]int, len(blocks))
	add := func(from, to int) {
		if to != noBlock {
			preds[to] = append(preds[to], from)
		}
	}
	for i, blk := range blocks {
		add(i, blk.Fallthrough)
		add(i, blk.Jump)
		add(i, blk.LandingPad)
	}
	return preds
}

// runPhiInitCheck is pass 7: computes, for every block, which
// registers are in scope and which are definitely initialized at entry and
// exit, iterating both to a fixed point over the (possibly cyclic, thanks to
// `while`) block graph, then re-walks every instruction once more to flag
// the first read of a register that isn't definitely initialized.
func runPhiInitCheck(errs *srcerr.List, fn *Function) {
	n := len(fn.Blocks)
	if n == 0 {
		return
	}
	preds := predecessors(fn.Blocks)

	for _, blk := range fn.Blocks {
		blk.PhiEffect = make([]bool, fn.NumRegs)
		for i, insn := range blk.Insns {
			ids := fn.idsFor(blk, i, insn)
			for _, r := range pcode.RegWrites(insn) {
				if id, ok := ids[r]; ok && id >= 0 {
					blk.PhiEffect[id] = true
				}
			}
		}
	}
	oexistByBlock := make([][]bool, n)
	iexistByBlock := make([][]bool, n)
	for bi := range fn.Blocks {
		iexistByBlock[bi] = make([]bool, fn.NumRegs)
		oexistByBlock[bi] = make([]bool, fn.NumRegs)
	}
	for i := 0; i < fn.NumVars; i++ {
		for bi := range fn.Blocks {
			iexistByBlock[bi][i] = true
			oexistByBlock[bi][i] = true
		}
	}

	changed := true
	for changed {
		changed = false
		for bi, blk := range fn.Blocks {
			in := make([]bool, fn.NumRegs)
			for _, p := range preds[bi] {
				orInto(in, oexistByBlock[p])
			}
			for i := fn.NumVars; i < fn.NumRegs; i++ {
				in[i] = in[i] || iexistByBlock[bi][i]
			}
			out := blockLiveOut(blk, fn, in)
			if !equalBits(in, iexistByBlock[bi]) || !equalBits(out, oexistByBlock[bi]) {
				changed = true
			}
			iexistByBlock[bi] = in
			oexistByBlock[bi] = out
			blk.PhiIExist = in
			blk.PhiOExist = out
		}
	}

	// init sets: a "must" analysis, starting optimistic (all bits set
	// except the entry block's unknown locals) and narrowing via
	// intersection until fixed.
	iinit := make([][]bool, n)
	oinit := make([][]bool, n)
	// preinit is the entry block's initial init set: every bit false,
	// since this package has no visibility into which leading var indices
	// are function parameters/captures (that binding lives in
	// lang/symtab/lang/varscope, outside pcode's scope) — a var is only
	// ever marked initialized by an actual write reaching it.
	preinit := make([]bool, fn.NumRegs)
	allOnes := make([]bool, fn.NumRegs)
	for i := range allOnes {
		allOnes[i] = true
	}
	for bi := range fn.Blocks {
		if bi == 0 {
			iinit[bi] = preinit
		} else {
			iinit[bi] = append([]bool(nil), allOnes...)
		}
		oinit[bi] = append([]bool(nil), allOnes...)
	}

	changed = true
	for changed {
		changed = false
		for bi, blk := range fn.Blocks {
			var in []bool
			if bi == 0 {
				in = preinit
			} else {
				in = nil
				for _, p := range preds[bi] {
					if in == nil {
						in = append([]bool(nil), oinit[p]...)
					} else {
						andInto(in, oinit[p])
					}
				}
				if in == nil {
					in = append([]bool(nil), allOnes...)
				}
			}
			out := append([]bool(nil), blk.PhiEffect...)
			orInto(out, in)
			andInto(out, oexistByBlock[bi])

			if !equalBits(in, iinit[bi]) || !equalBits(out, oinit[bi]) {
				changed = true
			}
			iinit[bi] = in
			oinit[bi] = out
			blk.PhiIInit = in
			blk.PhiOInit = out
		}
	}

	for _, blk := range fn.Blocks {
		running := append([]bool(nil), blk.PhiIInit...)
		for i, insn := range blk.Insns {
			ids := fn.idsFor(blk, i, insn)
			for _, r := range pcode.RegReads(insn) {
				id, ok := ids[r]
				if !ok || id < 0 {
					continue
				}
				if !running[id] {
					errs.Add(insn.Pos, "xcode: function %s: use of uninitialized register %s", fn.Name, r)
				}
			}
			for _, r := range pcode.RegWrites(insn) {
				if id, ok := ids[r]; ok && id >= 0 {
					running[id] = true
				}
			}
		}
	}
}

// blockLiveOut computes the exist bitset leaving blk given in: a copy of
// in with every register the block pushes marked as existing. Pops are not
// replayed, so a register already set in in stays set in the result.
func blockLiveOut(blk *Block, fn *Function, in []bool) []bool {
	out := append([]bool(nil), in...)
	for i, insn := range blk.Insns {
		ids := fn.idsFor(blk, i, insn)
		if insn.Op == pcode.Push {
			if id, ok := ids[insn.Dst]; ok && id >= 0 {
				out[id] = true
			}
		}
	}
	return out
}

func orInto(dst, src []bool) {
	for i := range dst {
		if src[i] {
			dst[i] = true
		}
	}
}

func andInto(dst, src []bool) {
	for i := range dst {
		if !src[i] {
			dst[i] = false
		}
	}
}

func equalBits(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// validateGlobalXrefs is pass 8: every referenced global index
// must exist and denote the expected kind, and a static call's argument
// range must satisfy the target function's declared arity.
func validateGlobalXrefs(errs *srcerr.List, prog *pcode.Program) {
	for _, g := range prog.Globals {
		if g.Kind != pcode.GFun || g.Body == nil {
			continue
		}
		for _, insn := range g.Body.Insns {
			validateXrefInsn(errs, prog, g.Name, insn)
		}
	}
}

func validateXrefInsn(errs *srcerr.List, prog *pcode.Program, fnName string, insn pcode.Insn) {
	switch insn.Op {
	case pcode.LdGlob:
		checkGlobalKind(errs, prog, fnName, insn, insn.GlobalIndex, pcode.GVar, pcode.GExtVar)
	case pcode.SetGlob:
		target := checkGlobalKind(errs, prog, fnName, insn, insn.GlobalIndex, pcode.GVar, pcode.GExtVar)
		if target != nil && !target.Mutable {
			errs.Add(insn.Pos, "xcode: function %s: set-glob of immutable global %q", fnName, target.Name)
		}
	case pcode.InvokeSS, pcode.InvokeSD:
		target := checkGlobalKind(errs, prog, fnName, insn, insn.GlobalIndex, pcode.GFun, pcode.GExtFun)
		if target != nil && insn.Op == pcode.InvokeSS {
			checkArity(errs, fnName, insn, target, insn.ArgHi-insn.ArgLo)
		}
	case pcode.Partial:
		target := checkGlobalKind(errs, prog, fnName, insn, insn.GlobalIndex, pcode.GFun, pcode.GExtFun)
		if target != nil && insn.NArgs > len(target.Proto) {
			errs.Add(insn.Pos, "xcode: function %s: partial application of %q supplies %d args, declared with only %d", fnName, target.Name, insn.NArgs, len(target.Proto))
		}
	}
}

func checkGlobalKind(errs *srcerr.List, prog *pcode.Program, fnName string, insn pcode.Insn, index int, want ...pcode.GlobalKind) *pcode.Global {
	if index < 0 || index >= len(prog.Globals) {
		errs.Add(insn.Pos, "xcode: function %s: global index %d out of range", fnName, index)
		return nil
	}
	g := prog.Globals[index]
	for _, k := range want {
		if g.Kind == k {
			return g
		}
	}
	errs.Add(insn.Pos, "xcode: function %s: global %q has kind %s, want one of %v", fnName, g.Name, g.Kind, want)
	return nil
}

// checkArity validates a static call's argument count against target's
// declared parameter list: at least every non-default positional parameter
// must be supplied, and no more than the full parameter list unless target
// ends in a varargs parameter.
func checkArity(errs *srcerr.List, fnName string, insn pcode.Insn, target *pcode.Global, nargs int) {
	required, max, varargs := 0, 0, false
	for _, p := range target.Proto {
		switch p.Kind {
		case "positional":
			required++
			max++
		case "positional-default", "named", "named-default":
			max++
		case "varargs":
			varargs = true
		case "empty":
		default:
			max++
		}
	}
	if nargs < required {
		errs.Add(insn.Pos, "xcode: function %s: call to %q supplies %d args, needs at least %d", fnName, target.Name, nargs, required)
	}
	if !varargs && nargs > max {
		errs.Add(insn.Pos, "xcode: function %s: call to %q supplies %d args, declared with only %d", fnName, target.Name, nargs, max)
	}
}
