package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Sankatt/cruisegrader/internal/requirement"
)

var defaultIDs = []requirement.ID{"R1", "R2", "R3", "R4", "R5", "R6"}

const studentTestFile = `package es.upm.grise.profundizacion.cruiseControl;

import org.junit.jupiter.api.Test;
import static org.junit.jupiter.api.Assertions.*;

public class CruiseControlTest {

	Speedometer speedometer = new Speedometer() { public int getCurrentSpeed() { return 50; } };

	@Test
	public void testInitialSpeedSetIsNull() {
		CruiseControl cc = new CruiseControl(speedometer);
		assertNull(cc.getSpeedSet());
	}

	@Test
	public void testInitialSpeedLimitIsNull() {
		CruiseControl cc = new CruiseControl(speedometer);
		assertNull(cc.getSpeedLimit());
	}

	@Test
	public void testPositiveSpeedAccepted() throws Exception {
		CruiseControl cc = new CruiseControl(speedometer);
		cc.setSpeedSet(90);
		assertEquals(Integer.valueOf(90), cc.getSpeedSet());
	}

	@Test
	public void testZeroSpeedRejected() {
		CruiseControl cc = new CruiseControl(speedometer);
		assertThrows(IncorrectSpeedSetException.class, () -> cc.setSpeedSet(0));
	}

	@Test
	public void testSpeedWithinLimitAccepted() throws Exception {
		CruiseControl cc = new CruiseControl(speedometer);
		cc.setSpeedLimit(100);
		// el speedSet respeta el límite configurado
		cc.setSpeedSet(80);
		assertEquals(Integer.valueOf(80), cc.getSpeedSet());
	}

	@Test
	public void testExceedingLimitThrows() throws Exception {
		CruiseControl cc = new CruiseControl(speedometer);
		cc.setSpeedLimit(100);
		assertThrows(SpeedSetAboveSpeedLimitException.class, () -> cc.setSpeedSet(150));
	}
}
`

func TestExtractTestMethods(t *testing.T) {
	t.Parallel()

	methods := ExtractTestMethods(studentTestFile)
	if len(methods) != 6 {
		t.Fatalf("extracted %d methods, want 6", len(methods))
	}
	if methods[0].Name != "testInitialSpeedSetIsNull" {
		t.Errorf("first method = %q", methods[0].Name)
	}
	if !strings.Contains(methods[2].Body, "setSpeedSet(90)") {
		t.Errorf("body of %q missing probe call", methods[2].Name)
	}
}

func TestExtractTestMethodsAnnotationVariants(t *testing.T) {
	t.Parallel()

	src := `
	@org.junit.Test
	void plainJUnit4() {
		assertNull(cc.getSpeedSet());
	}

	@org.junit.jupiter.api.Test
	public void fullyQualifiedJupiter() throws Exception {
		cc.setSpeedSet(10);
	}
`
	methods := ExtractTestMethods(src)
	if len(methods) != 2 {
		t.Fatalf("extracted %d methods, want 2 (got %+v)", len(methods), methods)
	}
}

func TestExtractTestMethodsNestedBraces(t *testing.T) {
	t.Parallel()

	// A braced lambda must not cut the extracted body short.
	src := `
	@Test
	public void testWithBlockLambda() {
		assertThrows(IncorrectSpeedSetException.class, () -> {
			cc.setSpeedSet(-5);
		});
		assertNull(cc.getSpeedSet());
	}
`
	methods := ExtractTestMethods(src)
	if len(methods) != 1 {
		t.Fatalf("extracted %d methods, want 1", len(methods))
	}
	if !strings.Contains(methods[0].Body, "assertNull(cc.getSpeedSet())") {
		t.Errorf("body truncated before the trailing assertion: %q", methods[0].Body)
	}
}

func TestAnalyzeTestsFullCoverage(t *testing.T) {
	t.Parallel()

	report, err := AnalyzeTests(studentTestFile, defaultIDs)
	if err != nil {
		t.Fatalf("AnalyzeTests() error = %v", err)
	}

	if len(report.Missing) != 0 {
		t.Errorf("Missing = %v, want none", report.Missing)
	}
	if len(report.Covered) != 6 {
		t.Errorf("Covered = %v, want all six", report.Covered)
	}
	if report.TotalMethods != 6 {
		t.Errorf("TotalMethods = %d, want 6", report.TotalMethods)
	}
	if len(report.Unmatched) != 0 {
		t.Errorf("Unmatched = %v, want none", report.Unmatched)
	}
}

func TestAnalyzeTestsLogicRejectsKeywordCoincidence(t *testing.T) {
	t.Parallel()

	// Mentions the limit everywhere but never exercises the subject: the
	// keyword matches must not add up to coverage.
	src := `
	@Test
	public void testLimitKeywordsOnly() {
		// limit limite speedLimit above exceed
		int limit = 100;
		assertTrue(true);
	}
`
	report, err := AnalyzeTests(src, defaultIDs)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Covered) != 0 {
		t.Errorf("Covered = %v, want none for a keyword-only method", report.Covered)
	}
	if len(report.Unmatched) != 1 {
		t.Errorf("Unmatched = %d, want 1", len(report.Unmatched))
	}
}

func TestAnalyzeTestsR5RequiresIntentComment(t *testing.T) {
	t.Parallel()

	// Same calls and assertion as a valid R5 test, minus the limit comment:
	// the values are consistent with R5 by coincidence only.
	src := `
	@Test
	public void testSetAndGet() throws Exception {
		CruiseControl cc = new CruiseControl(speedometer);
		cc.setSpeedLimit(100);
		cc.setSpeedSet(80);
		assertEquals(Integer.valueOf(80), cc.getSpeedSet());
	}
`
	report, err := AnalyzeTests(src, []requirement.ID{"R5"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Covered) != 0 {
		t.Errorf("R5 covered without an intent comment: %+v", report.PerRequirement)
	}
}

func TestAnalyzeTestsR5AcceptsAccentedComment(t *testing.T) {
	t.Parallel()

	src := `
	@Test
	public void testRespetaLimite() throws Exception {
		CruiseControl cc = new CruiseControl(speedometer);
		cc.setSpeedLimit(100);
		// comprobamos que respeta el límite
		cc.setSpeedSet(100);
		assertEquals(Integer.valueOf(100), cc.getSpeedSet());
	}
`
	report, err := AnalyzeTests(src, []requirement.ID{"R5"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Covered) != 1 {
		t.Fatalf("R5 not covered: %+v", report.PerRequirement)
	}
	match := report.PerRequirement["R5"][0]
	if !match.LogicVerified {
		t.Errorf("match not logic-verified: %+v", match)
	}
	if !strings.Contains(match.Reason, "boundary") {
		t.Errorf("Reason = %q, want the boundary case called out", match.Reason)
	}
}

func TestAnalyzeTestsR6RejectsValuesWithinLimit(t *testing.T) {
	t.Parallel()

	// Asserts the right exception but sets a value below the limit; the
	// claimed scenario can never occur.
	src := `
	@Test
	public void testAboveLimit() throws Exception {
		CruiseControl cc = new CruiseControl(speedometer);
		cc.setSpeedLimit(100);
		assertThrows(SpeedSetAboveSpeedLimitException.class, () -> cc.setSpeedSet(50));
	}
`
	report, err := AnalyzeTests(src, []requirement.ID{"R6"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Covered) != 0 {
		t.Error("R6 covered although no value exceeds the limit")
	}
}

func TestAnalyzeTestsR4NegativeOnlySuffices(t *testing.T) {
	t.Parallel()

	src := `
	@Test
	public void testNegativeRejected() {
		CruiseControl cc = new CruiseControl(speedometer);
		assertThrows(IncorrectSpeedSetException.class, () -> cc.setSpeedSet(-10));
	}
`
	report, err := AnalyzeTests(src, []requirement.ID{"R4"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Covered) != 1 {
		t.Fatalf("R4 not covered by a negative-value test: %+v", report.PerRequirement)
	}
	if !strings.Contains(report.PerRequirement["R4"][0].Reason, "-10") {
		t.Errorf("Reason = %q, want the negative value named", report.PerRequirement["R4"][0].Reason)
	}
}

func TestAppendPendingReview(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pending_review.yaml")

	methods := []TestMethod{{Name: "testMystery", Body: "assertTrue(true);"}}
	if err := AppendPendingReview(path, "student42", methods); err != nil {
		t.Fatalf("AppendPendingReview() error = %v", err)
	}
	// Appending again must preserve the first entry.
	if err := AppendPendingReview(path, "student43", methods); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var pending map[string]PendingEntry
	if err := yaml.Unmarshal(data, &pending); err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending entries = %d, want 2", len(pending))
	}
	entry, ok := pending["test_candidate_001"]
	if !ok {
		t.Fatal("missing test_candidate_001")
	}
	if entry.Student != "student42" || entry.Status != "NEEDS_MANUAL_REVIEW" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestAppendPendingReviewNoMethods(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pending_review.yaml")
	if err := AppendPendingReview(path, "student", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created although there was nothing to record")
	}
}
