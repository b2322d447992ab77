package pcode

// This file implements the canonical textual ("assembler") serialization
// of a P-Code Program: the entire Program serialises to a list-of-lists
// textual form, and parsing it back must reconstruct an equal Program.
// It is modeled on a human-readable bytecode assembler format, adapted
// from a stack-VM opcode stream to this package's typed register-stack
// instructions and ten-kind global-item list.

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders prog in the canonical textual form.
func Serialize(prog *Program) string {
	var b strings.Builder
	fmt.Fprintln(&b, "pcode v1")
	for _, g := range prog.Globals {
		serializeGlobal(&b, g)
	}
	return b.String()
}

func serializeGlobal(b *strings.Builder, g *Global) {
	switch g.Kind {
	case GSrcPos:
		fmt.Fprintf(b, "global src-pos %s\n", quote(g.Name))
	case GExtVar:
		fmt.Fprintf(b, "global ext-var %s\n", quote(g.Name))
	case GExtFun:
		fmt.Fprintf(b, "global ext-fun %s %s\n", quote(g.Name), serializeProto(g.Proto))
	case GVar:
		fmt.Fprintf(b, "global var %s\n", quote(g.Name))
	case GKeysym:
		fmt.Fprintf(b, "global keysym %s\n", quote(g.Name))
	case GStructDef:
		fmt.Fprintf(b, "global struct %s %s\n", quote(g.Name), strings.Join(g.Fields, ","))
	case GImportAlias:
		fmt.Fprintf(b, "global import %s %s %s %s\n", quote(g.OldPrefix), quote(g.NewPrefix), boolStr(g.Absolute), boolStr(g.Strong))
	case GMacro:
		enc := base64.StdEncoding.EncodeToString(g.MacroBody)
		fmt.Fprintf(b, "global macro %s %s %d %s\n", quote(g.Name), g.MacroType, g.Precedence, enc)
	case GInit:
		fmt.Fprintf(b, "global init %d\n", g.FunRef)
	case GFun:
		fmt.Fprintf(b, "fun %s %s captures=%s\n", quote(g.Name), serializeProto(g.Proto), strings.Join(g.Captures, ","))
		if g.Body != nil {
			for _, insn := range g.Body.Insns {
				fmt.Fprintf(b, "\t%s\n", serializeInsn(insn))
			}
		}
		fmt.Fprintln(b, "endfun")
	}
}

func boolStr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func serializeProto(proto []ArgProto) string {
	parts := make([]string, len(proto))
	for i, p := range proto {
		parts[i] = fmt.Sprintf("%s:%s:%s", p.Kind, p.Name, quote(p.Default))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func parseProto(s string) ([]ArgProto, error) {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]ArgProto, len(parts))
	for i, p := range parts {
		fields := strings.SplitN(p, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid proto entry: %q", p)
		}
		out[i] = ArgProto{Kind: fields[0], Name: fields[1], Default: unquote(fields[2])}
	}
	return out, nil
}

func quote(s string) string {
	return strconv.Quote(s)
}

func unquote(s string) string {
	v, err := strconv.Unquote(s)
	if err != nil {
		return s
	}
	return v
}

func serializeInsn(i Insn) string {
	var b strings.Builder
	b.WriteString(i.Op.String())
	switch i.Op {
	case Push, Pop:
		fmt.Fprintf(&b, " %s", i.Dst.Type)
	case Label:
		fmt.Fprintf(&b, " %s", i.Label)
	case Jump:
		fmt.Fprintf(&b, " %s", i.Label)
	case BranchIf:
		fmt.Fprintf(&b, " %s %s", i.Src1, i.Label)
	case Ret:
		fmt.Fprintf(&b, " %s", i.Src1)
	case Try:
		fmt.Fprintf(&b, " %s", i.Label)
	case Yrt, Rethrow, RequireEmptyException, RequireCaughtException:
		// no operands
	case LdImmInt:
		fmt.Fprintf(&b, " %s %d", i.Dst, i.ImmInt)
	case LdImmStr:
		fmt.Fprintf(&b, " %s %s", i.Dst, quote(i.ImmStr))
	case LdImmData:
		fmt.Fprintf(&b, " %s %s", i.Dst, quote(i.ImmStr))
	case LdReg:
		fmt.Fprintf(&b, " %s %s", i.Dst, i.Src1)
	case LdGlob:
		fmt.Fprintf(&b, " %s %d", i.Dst, i.GlobalIndex)
	case SetGlob:
		fmt.Fprintf(&b, " %s %d", i.Src1, i.GlobalIndex)
	case LEmpty:
		fmt.Fprintf(&b, " %s", i.Dst)
	case LAppend, LCat:
		fmt.Fprintf(&b, " %s %s %s", i.Dst, i.Src1, i.Src2)
	case LHead, LBehead, LFlatten, LLength:
		fmt.Fprintf(&b, " %s %s", i.Dst, i.Src1)
	case LIndex:
		fmt.Fprintf(&b, " %s %s %s", i.Dst, i.Src1, i.Src2)
	case IAdd:
		fmt.Fprintf(&b, " %s %s %s", i.Dst, i.Src1, i.Src2)
	case IAddImm:
		fmt.Fprintf(&b, " %s %s %d", i.Dst, i.Src1, i.ImmInt)
	case ICmp:
		fmt.Fprintf(&b, " %s %s %s %d", i.Dst, i.Src1, i.Src2, i.ImmInt)
	case Bool:
		fmt.Fprintf(&b, " %s %s", i.Dst, i.Src1)
	case InvokeSS:
		fmt.Fprintf(&b, " %s %d %d %d", i.Dst, i.GlobalIndex, i.ArgLo, i.ArgHi)
	case InvokeSD:
		fmt.Fprintf(&b, " %s %d %d %d", i.Dst, i.GlobalIndex, i.ArgLo, i.ArgHi)
	case InvokeDD:
		fmt.Fprintf(&b, " %s %s %d %d", i.Dst, i.Src1, i.ArgLo, i.ArgHi)
	case Partial:
		fmt.Fprintf(&b, " %s %d %d", i.Dst, i.GlobalIndex, i.NArgs)
	}
	return b.String()
}

func parseReg(s string) (Reg, error) {
	i := 0
	for i < len(s) && (s[i] < '0' || s[i] > '9') {
		i++
	}
	typ := s[:i]
	idxStr := s[i:]
	idx := 0
	if idxStr != "" {
		v, err := strconv.Atoi(idxStr)
		if err != nil {
			return Reg{}, fmt.Errorf("invalid register index in %q: %w", s, err)
		}
		idx = v
	}
	var rt RegType
	switch typ {
	case "var":
		rt = RegVar
	case "data":
		rt = RegData
	case "int":
		rt = RegInt
	case "list":
		rt = RegList
	case "parm":
		rt = RegParm
	case "function":
		rt = RegFunction
	default:
		return Reg{}, fmt.Errorf("invalid register type: %q", s)
	}
	return Reg{Type: rt, Index: idx}, nil
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for op := Op(0); op < numOps; op++ {
		m[op.String()] = op
	}
	return m
}()

func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ' ' && !inQuote:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func parseInsn(line string) (Insn, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return Insn{}, fmt.Errorf("empty instruction line")
	}
	op, ok := opByName[fields[0]]
	if !ok {
		return Insn{}, fmt.Errorf("unknown opcode: %q", fields[0])
	}
	insn := NewInsn(op)
	args := fields[1:]
	reg := func(i int) (Reg, error) { return parseReg(args[i]) }

	var err error
	switch op {
	case Push, Pop:
		insn.Dst, err = reg(0)
	case Label, Jump, Try:
		insn.Label = args[0]
	case BranchIf:
		insn.Src1, err = reg(0)
		insn.Label = args[1]
	case Ret:
		if len(args) > 0 {
			insn.Src1, err = reg(0)
		}
	case Yrt, Rethrow, RequireEmptyException, RequireCaughtException:
	case LdImmInt:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.ImmInt, err = strconv.ParseInt(args[1], 10, 64)
		}
	case LdImmStr, LdImmData:
		insn.Dst, err = reg(0)
		insn.ImmStr = unquote(args[1])
	case LdReg:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.Src1, err = reg(1)
		}
	case LdGlob:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.GlobalIndex, err = strconv.Atoi(args[1])
		}
	case SetGlob:
		insn.Src1, err = reg(0)
		if err == nil {
			insn.GlobalIndex, err = strconv.Atoi(args[1])
		}
	case LEmpty:
		insn.Dst, err = reg(0)
	case LAppend, LCat, LIndex, IAdd:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.Src1, err = reg(1)
		}
		if err == nil {
			insn.Src2, err = reg(2)
		}
	case LHead, LBehead, LFlatten, LLength, Bool:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.Src1, err = reg(1)
		}
	case IAddImm:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.Src1, err = reg(1)
		}
		if err == nil {
			insn.ImmInt, err = strconv.ParseInt(args[2], 10, 64)
		}
	case ICmp:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.Src1, err = reg(1)
		}
		if err == nil {
			insn.Src2, err = reg(2)
		}
		if err == nil {
			insn.ImmInt, err = strconv.ParseInt(args[3], 10, 64)
		}
	case InvokeSS, InvokeSD:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.GlobalIndex, err = strconv.Atoi(args[1])
		}
		if err == nil {
			insn.ArgLo, err = strconv.Atoi(args[2])
		}
		if err == nil {
			insn.ArgHi, err = strconv.Atoi(args[3])
		}
	case InvokeDD:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.Src1, err = reg(1)
		}
		if err == nil {
			insn.ArgLo, err = strconv.Atoi(args[2])
		}
		if err == nil {
			insn.ArgHi, err = strconv.Atoi(args[3])
		}
	case Partial:
		insn.Dst, err = reg(0)
		if err == nil {
			insn.GlobalIndex, err = strconv.Atoi(args[1])
		}
		if err == nil {
			insn.NArgs, err = strconv.Atoi(args[2])
		}
	default:
		return Insn{}, fmt.Errorf("unsupported opcode for parsing: %s", op)
	}
	if err != nil {
		return Insn{}, fmt.Errorf("invalid operands for %s: %w", op, err)
	}
	return insn, nil
}

// Parse reads the canonical textual form produced by Serialize back into a
// Program. Parse(Serialize(p)) must reconstruct a Program equal in every
// field that Serialize preserves.
func Parse(data string) (*Program, error) {
	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("pcode: empty input")
	}
	if strings.TrimSpace(sc.Text()) != "pcode v1" {
		return nil, fmt.Errorf("pcode: missing version header")
	}

	prog := &Program{}
	var curFun *Global
	var execBuilder *ExecBuilder

	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(line, "\t") {
			if curFun == nil {
				return nil, fmt.Errorf("pcode: instruction line outside fun block: %q", line)
			}
			insn, err := parseInsn(trimmed)
			if err != nil {
				return nil, err
			}
			execBuilder.Append(insn)
			continue
		}

		fields := splitFields(trimmed)
		switch fields[0] {
		case "endfun":
			if curFun == nil {
				return nil, fmt.Errorf("pcode: endfun without matching fun")
			}
			curFun.Body = execBuilder.Build()
			curFun.Index = len(prog.Globals)
			prog.Globals = append(prog.Globals, curFun)
			curFun, execBuilder = nil, nil

		case "fun":
			name := unquote(fields[1])
			proto, err := parseProto(fields[2])
			if err != nil {
				return nil, err
			}
			var captures []string
			if strings.HasPrefix(fields[3], "captures=") {
				capStr := strings.TrimPrefix(fields[3], "captures=")
				if capStr != "" {
					captures = strings.Split(capStr, ",")
				}
			}
			curFun = &Global{Kind: GFun, Name: name, Proto: proto, Captures: captures}
			execBuilder = NewExecBuilder()

		case "global":
			g, err := parseGlobal(fields[1:])
			if err != nil {
				return nil, err
			}
			g.Index = len(prog.Globals)
			prog.Globals = append(prog.Globals, g)

		default:
			return nil, fmt.Errorf("pcode: unexpected line: %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if curFun != nil {
		return nil, fmt.Errorf("pcode: unterminated fun block for %q", curFun.Name)
	}
	return prog, nil
}

func parseGlobal(fields []string) (*Global, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("pcode: empty global line")
	}
	switch fields[0] {
	case "src-pos":
		return &Global{Kind: GSrcPos, Name: unquote(fields[1])}, nil
	case "ext-var":
		return &Global{Kind: GExtVar, Name: unquote(fields[1])}, nil
	case "ext-fun":
		proto, err := parseProto(fields[2])
		if err != nil {
			return nil, err
		}
		return &Global{Kind: GExtFun, Name: unquote(fields[1]), Proto: proto}, nil
	case "var":
		return &Global{Kind: GVar, Name: unquote(fields[1]), Mutable: true}, nil
	case "keysym":
		return &Global{Kind: GKeysym, Name: unquote(fields[1])}, nil
	case "struct":
		var fieldNames []string
		if len(fields) > 2 && fields[2] != "" {
			fieldNames = strings.Split(fields[2], ",")
		}
		return &Global{Kind: GStructDef, Name: unquote(fields[1]), Fields: fieldNames}, nil
	case "import":
		return &Global{
			Kind:      GImportAlias,
			OldPrefix: unquote(fields[1]),
			NewPrefix: unquote(fields[2]),
			Absolute:  fields[3] == "1",
			Strong:    fields[4] == "1",
		}, nil
	case "macro":
		precedence, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, err
		}
		body, err := base64.StdEncoding.DecodeString(fields[4])
		if err != nil {
			return nil, err
		}
		return &Global{Kind: GMacro, Name: unquote(fields[1]), MacroType: fields[2], Precedence: precedence, MacroBody: body}, nil
	case "init":
		ref, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, err
		}
		return &Global{Kind: GInit, FunRef: ref}, nil
	default:
		return nil, fmt.Errorf("pcode: unknown global kind: %q", fields[0])
	}
}
