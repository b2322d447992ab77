package macroexec

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Encode serialises instrs into the opaque byte form lang/pcode's GMacro
// global carries as MacroBody. The encoding only needs to be deterministic
// for identical
// input and losslessly invertible by Decode; gob satisfies both for a
// plain fixed-shape struct slice like Instr, so this package doesn't grow
// its own bespoke wire format for something lang/pcode already treats as
// opaque bytes.
func Encode(instrs []Instr) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(instrs); err != nil {
		return nil, fmt.Errorf("macroexec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is Encode's inverse, used when a macro symbol is reconstituted
// from a linked P-Code interface package rather than from a freshly
// substituted `macro` definition in the same compile.
func Decode(data []byte) ([]Instr, error) {
	var instrs []Instr
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&instrs); err != nil {
		return nil, fmt.Errorf("macroexec: decode: %w", err)
	}
	return instrs, nil
}
