// Package batch grades a directory of student submissions sequentially and
// writes per-subject JSON reports plus an aggregate summary.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sankatt/cruisegrader/internal/config"
	graderrors "github.com/Sankatt/cruisegrader/internal/errors"
	"github.com/Sankatt/cruisegrader/internal/grader"
	"github.com/Sankatt/cruisegrader/internal/grading"
)

// Submission is one discovered student directory.
type Submission struct {
	ID       string
	ImplPath string
	TestPath string // empty when the student submitted no test file
}

// Result pairs a submission with its grade report for serialization.
type Result struct {
	StudentID string              `json:"student_id"`
	Timestamp string              `json:"timestamp"`
	Success   bool                `json:"success"`
	Grade     float64             `json:"grade"`
	Report    grading.GradeReport `json:"report"`
	Error     string              `json:"error,omitempty"`
}

// Summary aggregates a full batch run.
type Summary struct {
	Timestamp     string   `json:"timestamp"`
	TotalStudents int      `json:"total_students"`
	Successful    int      `json:"successful"`
	AverageGrade  float64  `json:"average_grade"`
	Results       []Result `json:"results"`
}

// testSearchDirs are the locations checked, in order, for the student's own
// test file within a submission.
var testSearchDirs = []string{
	filepath.Join("src", "test", "java"),
	filepath.Join("src", "test"),
	"test",
	"",
}

// Discover lists the submissions under root: every direct subdirectory is a
// student id. Directories without a findable implementation are still
// returned (they grade to zero with an error) so the summary accounts for
// every student.
func Discover(root string) ([]Submission, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, graderrors.Environmentf("read submissions directory: %v", err)
	}

	var submissions []Submission
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		submissions = append(submissions, Submission{
			ID:       entry.Name(),
			ImplPath: findImplementation(dir),
			TestPath: findTestFile(dir),
		})
	}
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].ID < submissions[j].ID })
	return submissions, nil
}

// findImplementation searches the submission recursively for
// CruiseControl.java, skipping test trees. Maven layouts keep production
// code under src/main, so a path through src/main is accepted even when a
// parent directory name contains "test".
func findImplementation(dir string) string {
	var found string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return filepath.SkipAll
		}
		if d.IsDir() || d.Name() != "CruiseControl.java" {
			return nil
		}
		lower := strings.ToLower(path)
		inMain := strings.Contains(path, filepath.Join("src", "main"))
		if strings.Contains(lower, "test") && !inMain {
			return nil
		}
		found = path
		return filepath.SkipAll
	})
	return found
}

// findTestFile returns the first *Test.java under the known search roots.
func findTestFile(dir string) string {
	for _, sub := range testSearchDirs {
		root := filepath.Join(dir, sub)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		var found string
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || found != "" {
				return filepath.SkipAll
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), "Test.java") {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// Run grades every submission under root and writes the report files.
func Run(ctx context.Context, cfg *config.Config, root string) (Summary, error) {
	submissions, err := Discover(root)
	if err != nil {
		return Summary{}, err
	}

	g := grader.New(cfg)
	summary := Summary{
		Timestamp:     time.Now().Format(time.RFC3339),
		TotalStudents: len(submissions),
	}

	for _, sub := range submissions {
		result := Result{
			StudentID: sub.ID,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if sub.ImplPath == "" {
			fail := graderrors.StageError(graderrors.KindEnvironment, sub.ID, "discovery", "no CruiseControl.java found")
			result.Error = fail.Error()
			log.Warn().Str("subject", sub.ID).Msg("no implementation file found")
		} else {
			report := g.GradeSubject(ctx, sub.ID, sub.ImplPath, sub.TestPath)
			result.Report = report
			result.Grade = report.Grade
			result.Success = true
		}
		summary.Results = append(summary.Results, result)
	}

	var gradeSum float64
	for _, r := range summary.Results {
		if r.Success {
			summary.Successful++
			gradeSum += r.Grade
		}
	}
	if summary.Successful > 0 {
		summary.AverageGrade = gradeSum / float64(summary.Successful)
	}

	if err := writeReports(cfg, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// writeReports persists one JSON file per subject plus the batch summary.
// Reports are write-once artifacts; nothing ever reads them back.
func writeReports(cfg *config.Config, summary Summary) error {
	dir := cfg.Output.ResultsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return graderrors.Environmentf("create results directory: %v", err)
	}

	date := time.Now().Format("20060102")
	for _, result := range summary.Results {
		name := fmt.Sprintf("%s_report_%s.json", result.StudentID, date)
		if err := writeJSON(filepath.Join(dir, name), result); err != nil {
			return err
		}
	}
	return writeJSON(filepath.Join(dir, cfg.Output.SummaryFile), summary)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return graderrors.Wrap(err, "encode report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return graderrors.Environmentf("write %s: %v", path, err)
	}
	return nil
}
