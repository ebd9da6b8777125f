package grader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sankatt/cruisegrader/internal/config"
	"github.com/Sankatt/cruisegrader/internal/grading"
)

const studentImplementation = `package es.upm.grise.profundizacion.cruiseControl;

public class CruiseControl {

	private Integer speedSet;
	private Integer speedLimit;

	public CruiseControl(Speedometer speedometer) {
		this.speedSet = null;
		this.speedLimit = null;
	}

	public void setSpeedSet(int speedSet) throws IncorrectSpeedSetException, SpeedSetAboveSpeedLimitException {
		if (speedSet <= 0) {
			throw new IncorrectSpeedSetException();
		}
		if (speedLimit != null && speedSet > speedLimit) {
			throw new SpeedSetAboveSpeedLimitException();
		}
		this.speedSet = speedSet;
	}

	public Integer getSpeedSet() {
		return speedSet;
	}
}
`

// allPassOutput emits one passing line per default requirement.
const allPassOutput = `TESTING_START\nPASS:R1:T1\nPASS:R2:T2\nPASS:R3:T3\nPASS:R4:T4\nPASS:R5:T5\nPASS:R6:T6\nTESTING_END\n`

func writeImplementation(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CruiseControl.java")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// stubConfig returns a config whose toolchain is replaced by shell stand-ins.
func stubConfig(t *testing.T, runScript string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Toolchain.BuildCommand = []string{"true"}
	cfg.Toolchain.RunCommand = []string{"sh", "-c", runScript}
	cfg.Output.PendingReviewFile = filepath.Join(t.TempDir(), "pending.yaml")
	return cfg
}

func TestGradeSubjectFullPass(t *testing.T) {
	t.Parallel()

	cfg := stubConfig(t, "printf '"+allPassOutput+"'")
	g := New(cfg)

	report := g.GradeSubject(context.Background(), "s1", writeImplementation(t, studentImplementation), "")

	if report.Failure != "" {
		t.Fatalf("Failure = %q, want none", report.Failure)
	}
	if len(report.Missing) != 0 {
		t.Errorf("Missing = %v, want none", report.Missing)
	}
	if report.Grade != 10.0 {
		t.Errorf("Grade = %v, want 10.0", report.Grade)
	}
}

func TestGradeSubjectBuildFailureFallsBackToStatic(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Toolchain.BuildCommand = []string{"sh", "-c", "echo 'error: missing symbol' >&2; exit 1"}
	g := New(cfg)

	report := g.GradeSubject(context.Background(), "s2", writeImplementation(t, studentImplementation), "")

	if report.Failure != "BUILD_ERROR" {
		t.Fatalf("Failure = %q, want BUILD_ERROR", report.Failure)
	}
	// The implementation shows R1..R6 shapes statically, so the grade is
	// not zeroed by the broken build.
	if report.Grade == 0 {
		t.Error("Grade = 0, want static-evidence credit")
	}
	for _, v := range report.Verdicts {
		if v.Satisfied && v.Source == grading.SourceExecution {
			t.Errorf("%s credited to execution despite build failure", v.Requirement)
		}
	}
}

func TestGradeSubjectRunTimeout(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Toolchain.BuildCommand = []string{"true"}
	cfg.Toolchain.RunCommand = []string{"sh", "-c", "exec sleep 30"}
	cfg.Toolchain.RunTimeoutSeconds = 1
	g := New(cfg)

	// An implementation with no recognizable shapes: nothing to fall back on.
	report := g.GradeSubject(context.Background(), "s3", writeImplementation(t, "public class CruiseControl {}"), "")

	if report.Failure != "RUN_TIMEOUT" {
		t.Fatalf("Failure = %q, want RUN_TIMEOUT", report.Failure)
	}
	if report.Grade != 0 {
		t.Errorf("Grade = %v, want 0", report.Grade)
	}
}

func TestGradeSubjectUngeneratedRequirementFallsBackToStatic(t *testing.T) {
	t.Parallel()

	// R7 has no generated execution cases; a clean run that says nothing
	// about it must leave the verdict to static inspection instead of
	// recording a zero-rate execution result.
	cfg := stubConfig(t, "printf 'TESTING_START\\nTESTING_END\\n'")
	cfg.Grading.ActiveRequirements = []string{"R7"}
	g := New(cfg)

	impl := `package es.upm.grise.profundizacion.cruiseControl;

public class CruiseControl {

	private Integer speedLimit;

	public void setSpeedLimit(int speedLimit) throws IncorrectSpeedLimitException {
		if (speedLimit <= 0) {
			throw new IncorrectSpeedLimitException();
		}
		this.speedLimit = speedLimit;
	}
}
`
	report := g.GradeSubject(context.Background(), "s7", writeImplementation(t, impl), "")

	if report.Failure != "" {
		t.Fatalf("Failure = %q, want none", report.Failure)
	}
	if len(report.Verdicts) != 1 || report.Verdicts[0].Requirement != "R7" {
		t.Fatalf("Verdicts = %+v, want exactly R7", report.Verdicts)
	}
	v := report.Verdicts[0]
	if !v.Satisfied {
		t.Fatalf("R7 not satisfied: %+v", v)
	}
	if v.Source != grading.SourceStatic {
		t.Errorf("R7 source = %q, want static-pattern", v.Source)
	}
	if report.Grade != 10.0 {
		t.Errorf("Grade = %v, want the normalized ceiling 10.0", report.Grade)
	}
}

func TestGradeSubjectMissingMarkers(t *testing.T) {
	t.Parallel()

	cfg := stubConfig(t, "printf 'PASS:R1:T1\\n'")
	g := New(cfg)

	report := g.GradeSubject(context.Background(), "s4", writeImplementation(t, "public class CruiseControl {}"), "")

	if report.Failure != "PARSE_ERROR" {
		t.Fatalf("Failure = %q, want PARSE_ERROR", report.Failure)
	}
	// Unmarked output is never trusted as satisfaction.
	if len(report.Satisfied) != 0 {
		t.Errorf("Satisfied = %v from unmarked output", report.Satisfied)
	}
}

func TestGradeSubjectMissingImplementation(t *testing.T) {
	t.Parallel()

	cfg := stubConfig(t, "true")
	g := New(cfg)

	report := g.GradeSubject(context.Background(), "s5", filepath.Join(t.TempDir(), "nope.java"), "")

	if report.Failure != "ENV_ERROR" {
		t.Fatalf("Failure = %q, want ENV_ERROR", report.Failure)
	}
	if report.Grade != 0 {
		t.Errorf("Grade = %v, want 0", report.Grade)
	}
}

func TestGradeSubjectTestFileEvidence(t *testing.T) {
	t.Parallel()

	// Build is broken and the implementation is shapeless, so any credit
	// must come from the student's own test file via logic verification.
	cfg := config.Default()
	cfg.Toolchain.BuildCommand = []string{"false"}
	cfg.Output.PendingReviewFile = filepath.Join(t.TempDir(), "pending.yaml")
	g := New(cfg)

	testPath := filepath.Join(t.TempDir(), "CruiseControlTest.java")
	testSource := `
	@Test
	public void testNegativeRejected() {
		CruiseControl cc = new CruiseControl(speedometer);
		assertThrows(IncorrectSpeedSetException.class, () -> cc.setSpeedSet(-10));
	}

	@Test
	public void testSomethingUnrecognizable() {
		helperDance();
	}
`
	if err := os.WriteFile(testPath, []byte(testSource), 0o644); err != nil {
		t.Fatal(err)
	}

	report := g.GradeSubject(context.Background(), "s6",
		writeImplementation(t, "public class CruiseControl {}"), testPath)

	var r4 *grading.Verdict
	for i := range report.Verdicts {
		if report.Verdicts[i].Requirement == "R4" {
			r4 = &report.Verdicts[i]
		}
	}
	if r4 == nil || !r4.Satisfied {
		t.Fatalf("R4 not satisfied from test-file evidence: %+v", report.Verdicts)
	}
	if r4.Source != grading.SourceLogic {
		t.Errorf("R4 source = %q, want logic-verification", r4.Source)
	}

	// The unrecognizable method lands in the pending-review log.
	if _, err := os.Stat(cfg.Output.PendingReviewFile); err != nil {
		t.Errorf("pending-review file not written: %v", err)
	}
}
