package macroexec

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver looks up a name at macro-parse time for the `%x` sigil, which
// resolves x immediately and emits its visibility-checked full name,
// returning the symbol's fully-qualified name. The macro-substitution
// driver (lang/macsub) supplies this, backed by its lang/symtab.Table, so
// this package never needs a symtab import of its own.
type Resolver func(name string) (fullName string, err error)

// Parse compiles a macro body written in the sigil-driven textual grammar
// into an instruction list executable by Machine.Run. Tokens are
// whitespace-separated; the shape/context/slicing/append/control keywords
// below have no sigil and select those instructions directly.
func Parse(source string, resolve Resolver) ([]Instr, error) {
	var out []Instr
	for _, tok := range strings.Fields(source) {
		instr, err := parseToken(tok, resolve)
		if err != nil {
			return nil, fmt.Errorf("macroexec: %q: %w", tok, err)
		}
		out = append(out, instr)
	}
	return out, nil
}

func parseToken(tok string, resolve Resolver) (Instr, error) {
	switch {
	case tok == "$":
		return Instr{Op: OpBareword, Text: "$"}, nil
	case tok == "statement":
		return Instr{Op: OpStatement}, nil
	case tok == "subst":
		return Instr{Op: OpSubst}, nil
	case tok == "block":
		return Instr{Op: OpBlock}, nil
	case tok == "semilit":
		return Instr{Op: OpSemilit}, nil
	case tok == "spread":
		return Instr{Op: OpSpread}, nil
	case tok == "left":
		return Instr{Op: OpLeft}, nil
	case tok == "right":
		return Instr{Op: OpRight}, nil
	case tok == "nonempty":
		return Instr{Op: OpNonempty}, nil
	case tok == "singular":
		return Instr{Op: OpSingular}, nil
	case tok == "append":
		return Instr{Op: OpAppend}, nil
	case strings.HasPrefix(tok, "die:"):
		return Instr{Op: OpDie, Text: strings.TrimPrefix(tok, "die:")}, nil
	case strings.HasPrefix(tok, "context:"):
		return Instr{Op: OpContext, Text: strings.TrimPrefix(tok, "context:")}, nil

	case strings.HasPrefix(tok, "!"):
		return Instr{Op: OpBareword, Text: tok[1:]}, nil
	case strings.HasPrefix(tok, "#") && strings.HasSuffix(tok, "#") && len(tok) >= 2:
		return Instr{Op: OpBareword, Text: tok}, nil
	case strings.HasPrefix(tok, "?"):
		return Instr{Op: OpGensym, Text: tok[1:]}, nil
	case strings.HasPrefix(tok, "%"):
		if resolve == nil {
			return Instr{}, fmt.Errorf("%%-sigil requires a Resolver")
		}
		full, err := resolve(tok[1:])
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: OpBareword, Text: full}, nil

	case strings.HasPrefix(tok, "<"):
		return parseTail(tok[1:], true)
	case strings.HasPrefix(tok, ">"):
		return parseTail(tok[1:], false)

	case strings.HasPrefix(tok, "a\""):
		return Instr{Op: OpAString, Text: unquoteBody(tok)}, nil
	case strings.HasPrefix(tok, "l\""):
		return Instr{Op: OpLString, Text: unquoteBody(tok)}, nil
	case strings.HasPrefix(tok, "r\""):
		return Instr{Op: OpRString, Text: unquoteBody(tok)}, nil
	case strings.HasPrefix(tok, "lr\""):
		return Instr{Op: OpLRString, Text: unquoteBody(tok)}, nil
	case strings.HasPrefix(tok, "v\""):
		return Instr{Op: OpVerbatim, Text: unquoteBody(tok)}, nil

	default:
		return Instr{}, fmt.Errorf("unrecognized macro-body token")
	}
}

func unquoteBody(tok string) string {
	i := strings.IndexByte(tok, '"')
	body := tok[i:]
	if v, err := strconv.Unquote(body); err == nil {
		return v
	}
	return strings.Trim(body, "\"")
}

// parseTail parses the numeric range with optional trailing +/* modifier
// that `<tail` / `>tail` carry: a slicing program parsed from a numeric
// range with optional trailing + or * modifier. This implementation
// supports the common case of a bare count: `<n` keeps the
// first n units (head), `>n` keeps the last n (tail); a trailing `+` is
// accepted and has no effect of its own (head/tail already return an error
// whenever the statement has fewer than n units); a trailing `*` selects the
// complementary drop operation (behead/curtail) instead of keep.
func parseTail(spec string, left bool) (Instr, error) {
	star := strings.HasSuffix(spec, "*")
	spec = strings.TrimSuffix(spec, "*")
	spec = strings.TrimSuffix(spec, "+")
	n, err := strconv.Atoi(spec)
	if err != nil {
		return Instr{}, fmt.Errorf("invalid tail-slice count %q: %w", spec, err)
	}
	switch {
	case left && !star:
		return Instr{Op: OpHead, N: n}, nil
	case left && star:
		return Instr{Op: OpBehead, N: n}, nil
	case !left && !star:
		return Instr{Op: OpTail, N: n}, nil
	default:
		return Instr{Op: OpCurtail, N: n}, nil
	}
}
