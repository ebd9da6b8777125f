package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sankatt/cruisegrader/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// layoutSubmissions builds a submissions tree with two students: one Maven
// layout with a test file, one flat layout without.
func layoutSubmissions(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	maven := filepath.Join(root, "student_a")
	writeFile(t, filepath.Join(maven, "src", "main", "java", "es", "upm", "CruiseControl.java"),
		"public class CruiseControl {}")
	writeFile(t, filepath.Join(maven, "src", "test", "java", "es", "upm", "CruiseControlTest.java"),
		"public class CruiseControlTest {}")
	// Decoy in a test directory: must not be picked as the implementation.
	writeFile(t, filepath.Join(maven, "test", "fixtures", "CruiseControl.java"),
		"public class CruiseControl { /* fixture */ }")

	flat := filepath.Join(root, "student_b")
	writeFile(t, filepath.Join(flat, "CruiseControl.java"), "public class CruiseControl {}")

	return root
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := layoutSubmissions(t)
	subs, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("found %d submissions, want 2", len(subs))
	}

	a, b := subs[0], subs[1]
	if a.ID != "student_a" || b.ID != "student_b" {
		t.Fatalf("ids = %q, %q; want sorted student_a, student_b", a.ID, b.ID)
	}
	if !strings.Contains(a.ImplPath, filepath.Join("src", "main")) {
		t.Errorf("student_a impl = %q, want the src/main copy, not the fixture", a.ImplPath)
	}
	if !strings.HasSuffix(a.TestPath, "CruiseControlTest.java") {
		t.Errorf("student_a test = %q", a.TestPath)
	}
	if b.ImplPath == "" {
		t.Error("student_b implementation not found in flat layout")
	}
	if b.TestPath != "" {
		t.Errorf("student_b test = %q, want none", b.TestPath)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Discover() succeeded on a missing directory")
	}
}

func TestDiscoverEmptyImplementation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "student_c", "notes.txt"), "no java here")

	subs, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].ImplPath != "" {
		t.Errorf("subs = %+v, want one entry with empty ImplPath", subs)
	}
}

func TestRunWritesReports(t *testing.T) {
	t.Parallel()

	root := layoutSubmissions(t)

	cfg := config.Default()
	cfg.Toolchain.BuildCommand = []string{"true"}
	cfg.Toolchain.RunCommand = []string{"sh", "-c",
		"printf 'TESTING_START\\nPASS:R1:T1\\nTESTING_END\\n'"}
	cfg.Output.ResultsDir = filepath.Join(t.TempDir(), "results")
	cfg.Output.PendingReviewFile = filepath.Join(t.TempDir(), "pending.yaml")

	summary, err := Run(context.Background(), cfg, root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.TotalStudents != 2 || summary.Successful != 2 {
		t.Errorf("summary = %+v, want 2 graded students", summary)
	}

	date := time.Now().Format("20060102")
	for _, id := range []string{"student_a", "student_b"} {
		path := filepath.Join(cfg.Output.ResultsDir, id+"_report_"+date+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("per-subject report missing: %v", err)
		}
		var result Result
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("report not valid JSON: %v", err)
		}
		if result.StudentID != id {
			t.Errorf("report student = %q, want %q", result.StudentID, id)
		}
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output.ResultsDir, cfg.Output.SummaryFile))
	if err != nil {
		t.Fatalf("summary file missing: %v", err)
	}
	var persisted Summary
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	if persisted.TotalStudents != 2 || len(persisted.Results) != 2 {
		t.Errorf("persisted summary = %+v", persisted)
	}
}

func TestRunRecordsMissingImplementation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "student_x", "readme.md"), "empty submission")

	cfg := config.Default()
	cfg.Output.ResultsDir = filepath.Join(t.TempDir(), "results")

	summary, err := Run(context.Background(), cfg, root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Successful != 0 || summary.TotalStudents != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if got := summary.Results[0].Error; !strings.Contains(got, "student_x") || !strings.Contains(got, "CruiseControl.java") {
		t.Errorf("Error = %q, want the subject id and the missing file named", got)
	}
	if summary.AverageGrade != 0 {
		t.Errorf("AverageGrade = %v, want 0", summary.AverageGrade)
	}
}
