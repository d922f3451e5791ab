// Package splitters segments a test input into the atomic units the
// reducer operates on. Atoms keep every byte of the input (line atoms
// retain their terminators), so concatenating the atoms of a
// configuration reproduces the exact bytes the tester should see.
package splitters

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rhodovan/picire/internal/dd"
)

// Splitter turns input content into atoms.
type Splitter interface {
	Split(content string) []string
}

// Line splits into lines, each keeping its terminator.
type Line struct{}

func (Line) Split(content string) []string {
	var out []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			out = append(out, content[start:i+1])
			start = i + 1
		}
	}
	if start < len(content) {
		out = append(out, content[start:])
	}
	return out
}

// Char splits into individual runes. A byte that is not valid UTF-8
// becomes an atom of its own.
type Char struct{}

func (Char) Split(content string) []string {
	out := make([]string, 0, len(content))
	for i := 0; i < len(content); {
		_, size := utf8.DecodeRuneInString(content[i:])
		out = append(out, content[i:i+size])
		i += size
	}
	return out
}

// Parse maps a CLI atom name to its splitter.
func Parse(name string) (Splitter, error) {
	switch name {
	case "line":
		return Line{}, nil
	case "char":
		return Char{}, nil
	default:
		return nil, fmt.Errorf("unknown atom %q (valid: line, char)", name)
	}
}

// Builder returns the serialisation function for a configuration over
// atoms: the concatenation of the selected atoms in order.
func Builder(atoms []string) func(dd.Config) string {
	return func(cfg dd.Config) string {
		var b strings.Builder
		for _, u := range cfg {
			b.WriteString(atoms[u])
		}
		return b.String()
	}
}
