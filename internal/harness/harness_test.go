package harness

import (
	"strings"
	"testing"

	"github.com/Sankatt/cruisegrader/internal/requirement"
	"github.com/Sankatt/cruisegrader/internal/testgen"
)

func renderDefault() string {
	return Render(testgen.Generate(requirement.Active(requirement.DefaultActive)))
}

func TestRenderStructure(t *testing.T) {
	t.Parallel()

	src := renderDefault()

	for _, want := range []string{
		"package es.upm.grise.profundizacion.cruiseControl;",
		"public class RigorousGraderTest {",
		`System.out.println("TESTING_START");`,
		`System.out.println("TESTING_END");`,
		"new Speedometer() { public int getCurrentSpeed() { return 50; } }",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("rendered source missing %q", want)
		}
	}

	start := strings.Index(src, "TESTING_START")
	end := strings.Index(src, "TESTING_END")
	if start == -1 || end == -1 || start > end {
		t.Error("sentinel markers missing or out of order")
	}
}

func TestRenderOneBlockPerCase(t *testing.T) {
	t.Parallel()

	cases := testgen.Generate(requirement.Active(requirement.DefaultActive))
	src := Render(cases)

	if got := strings.Count(src, "new CruiseControl("); got != len(cases) {
		t.Errorf("constructed %d subjects, want one per case (%d)", got, len(cases))
	}
	for _, tc := range cases {
		if !strings.Contains(src, "// "+tc.ID+": ") {
			t.Errorf("missing block for %s", tc.ID)
		}
	}
	// Every case is isolated: the outer catch reports unexpected crashes
	// instead of letting them propagate and kill later cases.
	if got := strings.Count(src, "UNEXPECTED_EXCEPTION"); got != len(cases) {
		t.Errorf("%d outer catch blocks, want %d", got, len(cases))
	}
}

func TestRenderInitializationCase(t *testing.T) {
	t.Parallel()

	src := renderDefault()

	if !strings.Contains(src, "if (cc.getSpeedSet() == null) {") {
		t.Error("R1 init case must assert getSpeedSet() == null")
	}
	if !strings.Contains(src, `System.out.println("PASS:R1:R1_INIT_01");`) {
		t.Error("missing R1 PASS line")
	}
}

func TestRenderExceptionCase(t *testing.T) {
	t.Parallel()

	src := renderDefault()

	// The zero boundary case must report a missing exception distinctly.
	if !strings.Contains(src, `System.out.println("FAIL:R4:R4_INVALID_0000:NO_EXCEPTION");`) {
		t.Error("missing NO_EXCEPTION fallthrough for the zero boundary case")
	}
	// Kind matching is by simple-name substring, with alternatives.
	if !strings.Contains(src, `e.getClass().getSimpleName().contains("IncorrectSpeedSet")`) {
		t.Error("missing primary error-kind match for R4")
	}
	if !strings.Contains(src, `contains("SpeedSetAboveSpeedLimit") || e.getClass().getSimpleName().contains("AboveLimit")`) {
		t.Error("missing alternative error-kind match for R6")
	}
}

func TestRenderStatePreservation(t *testing.T) {
	t.Parallel()

	src := renderDefault()

	// The state-transition case asserts the prior value survives the
	// rejected mutation.
	if !strings.Contains(src, "cc.getSpeedSet() != null && cc.getSpeedSet() == 50") {
		t.Error("state-transition case must re-check the preserved value inside the catch")
	}
	if !strings.Contains(src, "STATE_CHANGED") {
		t.Error("missing STATE_CHANGED failure reason")
	}
}

func TestRenderValueCheckGuardsNull(t *testing.T) {
	t.Parallel()

	src := renderDefault()

	if !strings.Contains(src, "cc.getSpeedSet() != null && cc.getSpeedSet() == 1000") {
		t.Error("value assertions must null-guard before unboxing")
	}
}

func TestRenderSetupBeforeProbe(t *testing.T) {
	t.Parallel()

	src := renderDefault()

	// For the R6 boundary pair the limit must be applied before the probe.
	limitIdx := strings.Index(src, "cc.setSpeedLimit(100);")
	if limitIdx == -1 {
		t.Fatal("missing setSpeedLimit(100) setup call")
	}
	block := src[strings.Index(src, "// R6_EXCEED_LIMIT_0101"):]
	setup := strings.Index(block, "cc.setSpeedLimit(100);")
	probe := strings.Index(block, "cc.setSpeedSet(101);")
	if setup == -1 || probe == -1 || setup > probe {
		t.Error("setup must precede the probe in the R6 boundary block")
	}
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()

	if renderDefault() != renderDefault() {
		t.Error("rendering the same cases twice must produce identical source")
	}
}
