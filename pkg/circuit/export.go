package circuit

import (
	"fmt"
	"strings"

	"github.com/flebeau/GPAClib/pkg/gate"
)

// ToCode renders the circuit as a sequence of gate declarations in the
// specification format, so that parsing the result reconstructs an
// equivalent circuit. This is String with the surrounding definition kept.
func (c *Circuit) ToCode() string {
	return c.String()
}

// ToDot renders the circuit in Graphviz dot form: one rectangular node per
// gate, constants labelled with their value, the other kinds with their
// operator symbol, the output gate double-bordered in red. The variable
// edge of a normalized integration gate is omitted (integration over t is
// implied); other variable edges into integration gates are dashed.
func (c *Circuit) ToDot() string {
	var b strings.Builder
	name := c.name
	if name == "" {
		name = "circuit"
	}
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("\tnode [shape = box];\n\n")

	usesTime := false
	for _, gname := range c.GateNames() {
		g := c.gates[gname]
		if !g.Binary() {
			continue
		}
		if g.X == gate.Time || (g.Y == gate.Time && g.Kind != gate.Int) {
			usesTime = true
		}
	}
	if usesTime || c.output == gate.Time {
		b.WriteString("\tnode [label = \"t\"]; t;\n")
	}

	kindLabel := func(g *gate.Gate) string {
		switch g.Kind {
		case gate.Constant:
			return g.String()
		case gate.Add:
			return "+"
		case gate.Prod:
			return "×"
		default:
			return "∫"
		}
	}
	for _, gname := range c.GateNames() {
		g := c.gates[gname]
		fmt.Fprintf(&b, "\tnode [label = %q]; %q", kindLabel(g), gname)
		if gname == c.output {
			b.WriteString(" [color = red, fontcolor = red, peripheries = 2]")
		}
		b.WriteString(";\n")
	}
	b.WriteString("\n")

	for _, gname := range c.GateNames() {
		g := c.gates[gname]
		if !g.Binary() {
			continue
		}
		fmt.Fprintf(&b, "\t%q -> %q;\n", g.X, gname)
		if g.Kind == gate.Int {
			if g.Y == gate.Time {
				continue
			}
			fmt.Fprintf(&b, "\t%q -> %q [style = dashed];\n", g.Y, gname)
			continue
		}
		fmt.Fprintf(&b, "\t%q -> %q;\n", g.Y, gname)
	}
	b.WriteString("}\n")
	return b.String()
}
