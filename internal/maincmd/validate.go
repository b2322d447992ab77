package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/srcerr"
	"github.com/ava-lang/avc/lang/xcode"
	"github.com/mna/mainer"
)

// ValidateCmd parses each named file as a P-Code program in its canonical
// textual form and runs the X-Code structurer/validator over every
// function body, printing any accumulated compile errors to stderr. It
// exits non-zero if any file fails to parse or fails validation.
// Dispatched as the "validate" command; see the cmdNames table in
// maincmd.go (its Go method name can't be "Validate", which mainer's
// Parser already uses for flag validation).
func (c *Cmd) ValidateCmd(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		data, err := readFile(stdio, path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}

		prog, err := pcode.Parse(data)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}

		var errs srcerr.List
		xcode.Validate(&errs, prog)
		if errs.Len() > 0 {
			// Render assumes every Error's Span carries a *token.File to
			// quote the offending source line; P-Code parsed back from its
			// textual form never has one (positions aren't round-tripped
			// through the text form, only src-pos marker names), so report
			// with the go/scanner-shaped Err() instead.
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, errs.Err())
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func readFile(stdio mainer.Stdio, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdio.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
