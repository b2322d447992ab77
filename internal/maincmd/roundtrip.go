package maincmd

import (
	"context"
	"fmt"

	"github.com/ava-lang/avc/lang/pcode"
	"github.com/mna/mainer"
)

// RoundtripCmd parses each named file, re-serialises the resulting
// Program, and fails if the two textual forms differ byte for byte. It
// exercises the round-trip property Serialize/Parse is meant to hold.
// Dispatched as the "roundtrip" command.
func (c *Cmd) RoundtripCmd(ctx context.Context, stdio mainer.Stdio, args []string) error {
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

		again := pcode.Serialize(prog)
		if again != data {
			fmt.Fprintf(stdio.Stderr, "%s: round-trip mismatch\n", path)
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("round-trip check failed")
	}
	return nil
}
