// Package visualization renders machine definitions as Graphviz DOT.
package visualization

import (
	"fmt"
	"os"
	"strings"

	"github.com/anggasct/crossing/pkg/core"
)

// DOTOptions configures the DOT generation
type DOTOptions struct {
	Name          string
	ShowEvents    bool
	RankDirection string // "TB", "LR", "BT", "RL"
	NodeShape     string
}

// DefaultDOTOptions returns the options used when none are given
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		Name:          "StateMachine",
		ShowEvents:    true,
		RankDirection: "LR",
		NodeShape:     "box",
	}
}

// DOTGenerator generates Graphviz DOT for a machine definition
type DOTGenerator struct {
	definition core.MachineDefinition
	options    DOTOptions
}

// NewDOTGenerator creates a new DOT generator for the given machine definition
func NewDOTGenerator(definition core.MachineDefinition, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	return &DOTGenerator{definition: definition, options: opts}
}

// Generate creates a DOT representation of the machine. States and edges
// appear in declaration order, so output is stable.
func (g *DOTGenerator) Generate() (string, error) {
	if g.definition == nil {
		return "", core.NewConfigurationError("DOTGenerator", "no machine definition")
	}

	var dot strings.Builder
	fmt.Fprintf(&dot, "digraph %q {\n", g.options.Name)
	fmt.Fprintf(&dot, "  rankdir=%s;\n", g.options.RankDirection)
	fmt.Fprintf(&dot, "  node [shape=%s];\n", g.options.NodeShape)
	dot.WriteString("  edge [fontsize=10];\n\n")

	final := make(map[string]bool)
	for _, t := range g.definition.Transitions() {
		final[t.SourceState] = false
	}

	initial := g.definition.InitialState()
	for _, id := range g.definition.States() {
		shape, fill, label := g.options.NodeShape, "lightblue", id
		if id == initial {
			fill = "lightgreen"
			label += "\\n(initial)"
		}
		if _, hasOutgoing := final[id]; !hasOutgoing {
			shape, fill = "doublecircle", "lightcoral"
		}
		fmt.Fprintf(&dot, "  %q [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n", id, shape, fill, label)
	}
	dot.WriteString("\n")

	for _, t := range g.definition.Transitions() {
		if g.options.ShowEvents {
			fmt.Fprintf(&dot, "  %q -> %q [label=%q];\n", t.SourceState, t.TargetState, t.EventName)
		} else {
			fmt.Fprintf(&dot, "  %q -> %q;\n", t.SourceState, t.TargetState)
		}
	}

	dot.WriteString("}\n")
	return dot.String(), nil
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}
