// Package maincmd implements the command dispatch for cmd/avc, the
// external program driving this repository's compiler core: reflection-
// based subcommand dispatch on top of github.com/mna/mainer's flag
// parsing. The parser collaborator is treated as an external, excluded
// component, so this CLI's subcommands operate on the one textual
// surface this repository's core owns end to end — the P-Code string
// form — rather than reimplementing a source-text parser of its own.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "avc"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...]
       %[1]s -h|--help
       %[1]s -v|--version

Driver for the core compiler pipeline of the Avalanche language: the
macro-substitution engine, symbol table, AST lowering, P-Code builder and
X-Code structurer/validator. The parser, value/string/list/map runtime
and LLVM backend are separate external programs this tool does not
implement.

The <command> can be one of:
       validate                  Parse each argument as a P-Code program
                                 in its canonical textual form, run the
                                 X-Code structurer/validator over every
                                 function body, and report accumulated
                                 compile errors.
       roundtrip                 Parse each argument, re-serialise the
                                 resulting Program, and fail if the two
                                 textual forms differ.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

More information on the Avalanche language's reference implementation:
       https://github.com/AvalancheLang/avalanche
`, binName)
)

// Cmd is the CLI's flag/argument holder, populated by mainer.Parser.Parse
// before Main dispatches to the matching subcommand method.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its errors, just return with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// cmdNames maps a command method's Go name to the word a user types on the
// command line. A plain strings.ToLower(name) would work for most command
// methods, but "Validate" is already spoken for by mainer's own
// Cmd.Validate() flag-validation hook, so the method implementing the
// "validate" command is named ValidateCmd and needs an explicit entry.
var cmdNames = map[string]string{
	"ValidateCmd":  "validate",
	"RoundtripCmd": "roundtrip",
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}

		name, ok := cmdNames[m.Name]
		if !ok {
			name = strings.ToLower(m.Name)
		}
		cmds[name] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
