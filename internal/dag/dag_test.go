package dag

import (
	"strings"
	"testing"
)

func mustDefinition(t *testing.T, nodes []Node) *Definition {
	t.Helper()
	d, err := NewDefinition(nodes)
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	return d
}

func TestValidate_OK(t *testing.T) {
	d := mustDefinition(t, []Node{
		{Stage: "parse", Dependencies: nil},
		{Stage: "blocks", Dependencies: []StageID{"parse"}},
		{Stage: "questions", Dependencies: []StageID{"blocks"}},
		{Stage: "faq", Dependencies: []StageID{"parse", "questions"}},
	})

	ok, errs := d.Validate()
	if !ok {
		t.Fatalf("expected valid definition, got errors: %v", errs)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	// Both a dangling dependency and a cycle: both must be reported.
	d := mustDefinition(t, []Node{
		{Stage: "a", Dependencies: []StageID{"b", "ghost"}},
		{Stage: "b", Dependencies: []StageID{"a"}},
	})

	ok, errs := d.Validate()
	if ok {
		t.Fatal("expected invalid definition")
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}

	var sawDangling, sawCycle bool
	for _, e := range errs {
		if strings.Contains(e, "undeclared") {
			sawDangling = true
		}
		if strings.Contains(e, "cycle") {
			sawCycle = true
		}
	}
	if !sawDangling || !sawCycle {
		t.Errorf("expected dangling + cycle errors, got %v", errs)
	}
}

func TestValidate_SelfCycle(t *testing.T) {
	d := mustDefinition(t, []Node{
		{Stage: "a", Dependencies: []StageID{"a"}},
	})
	if ok, errs := d.Validate(); ok || len(errs) == 0 {
		t.Fatalf("self-dependency should be a cycle, got ok=%v errs=%v", ok, errs)
	}
}

func TestNewDefinition_DuplicateStage(t *testing.T) {
	_, err := NewDefinition([]Node{{Stage: "a"}, {Stage: "a"}})
	if err == nil {
		t.Fatal("expected error for duplicate stage")
	}
}

func TestExecutionOrder_DependenciesFirst(t *testing.T) {
	// The original pipeline shape: a diamond ending in a render stage.
	d := mustDefinition(t, []Node{
		{Stage: "parse"},
		{Stage: "blocks", Dependencies: []StageID{"parse"}},
		{Stage: "questions", Dependencies: []StageID{"blocks"}},
		{Stage: "faq", Dependencies: []StageID{"parse", "questions"}},
		{Stage: "product", Dependencies: []StageID{"parse", "blocks"}},
		{Stage: "comparison", Dependencies: []StageID{"parse", "blocks"}},
		{Stage: "render", Dependencies: []StageID{"faq", "product", "comparison"}},
	})
	if ok, errs := d.Validate(); !ok {
		t.Fatalf("unexpected validation errors: %v", errs)
	}

	order := d.ExecutionOrder()
	if len(order) != d.Len() {
		t.Fatalf("order has %d stages, want %d", len(order), d.Len())
	}

	pos := make(map[StageID]int, len(order))
	for i, s := range order {
		if _, dup := pos[s]; dup {
			t.Fatalf("stage %s appears twice in %v", s, order)
		}
		pos[s] = i
	}
	for _, n := range d.Nodes() {
		for _, dep := range n.Dependencies {
			if pos[dep] > pos[n.Stage] {
				t.Errorf("stage %s ordered before its dependency %s: %v", n.Stage, dep, order)
			}
		}
	}
}

func TestExecutionOrder_DeterministicDeclarationOrder(t *testing.T) {
	// Independent stages must keep declared relative order on every call.
	d := mustDefinition(t, []Node{
		{Stage: "root"},
		{Stage: "left", Dependencies: []StageID{"root"}},
		{Stage: "middle", Dependencies: []StageID{"root"}},
		{Stage: "right", Dependencies: []StageID{"root"}},
	})

	want := []StageID{"root", "left", "middle", "right"}
	for i := 0; i < 20; i++ {
		got := d.ExecutionOrder()
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("iteration %d: order %v, want %v", i, got, want)
			}
		}
	}
}
