package visualization_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anggasct/crossing"
	"github.com/anggasct/crossing/visualization"
)

func TestDOTGeneration_CarLifecycle(t *testing.T) {
	generator := visualization.NewDOTGenerator(crossing.CarLifecycle())

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	for _, want := range []string{
		`digraph "StateMachine"`,
		`"arrived" -> "waiting" [label="queue"]`,
		`"waiting" -> "crossing" [label="enter"]`,
		`"crossing" -> "exited" [label="leave"]`,
		"lightgreen",
		"doublecircle",
	} {
		if !strings.Contains(dotContent, want) {
			t.Errorf("DOT content should contain %s\n%s", want, dotContent)
		}
	}
}

func TestDOTGeneration_LightCycleWithoutEvents(t *testing.T) {
	opts := visualization.DefaultDOTOptions()
	opts.Name = "Light"
	opts.ShowEvents = false
	generator := visualization.NewDOTGenerator(crossing.LightLifecycle(), opts)

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, `"YELLOW" -> "RED";`) {
		t.Errorf("DOT content should contain the yellow to red edge\n%s", dotContent)
	}
	if strings.Contains(dotContent, "label=\"next\"") {
		t.Error("DOT content should not contain event labels")
	}
	if strings.Contains(dotContent, "doublecircle") {
		t.Error("a cycle has no final state")
	}
}

func TestDOTGenerator_Stable(t *testing.T) {
	generator := visualization.NewDOTGenerator(crossing.CarLifecycle())
	first, _ := generator.Generate()
	second, _ := generator.Generate()
	if first != second {
		t.Error("DOT output should be deterministic")
	}
}

func TestDOTGenerator_GenerateToFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "car.dot")
	generator := visualization.NewDOTGenerator(crossing.CarLifecycle())

	if err := generator.GenerateToFile(filename); err != nil {
		t.Fatalf("Failed to write DOT file: %v", err)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read DOT file: %v", err)
	}
	if !strings.Contains(string(content), "digraph") {
		t.Error("file should contain a DOT graph")
	}
}

func TestDOTGenerator_NilDefinition(t *testing.T) {
	if _, err := visualization.NewDOTGenerator(nil).Generate(); err == nil {
		t.Error("Expected error for missing definition")
	}
}
