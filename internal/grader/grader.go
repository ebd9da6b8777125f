// Package grader drives the per-subject pipeline: generate test cases,
// synthesize the harness, build and run the subject, parse the protocol
// output, collect static evidence, and reconcile everything into a grade.
//
// Pipeline failures are not process failures. A subject whose build breaks
// or whose run times out still gets a completed report, graded on whatever
// static evidence its sources yield.
package grader

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Sankatt/cruisegrader/internal/analysis"
	"github.com/Sankatt/cruisegrader/internal/config"
	"github.com/Sankatt/cruisegrader/internal/grading"
	"github.com/Sankatt/cruisegrader/internal/harness"
	"github.com/Sankatt/cruisegrader/internal/protocol"
	"github.com/Sankatt/cruisegrader/internal/requirement"
	"github.com/Sankatt/cruisegrader/internal/subject"
	"github.com/Sankatt/cruisegrader/internal/testgen"
)

// Pipeline stages, logged as the subject moves through them.
const (
	stageEnvironmentSetup = "ENVIRONMENT_SETUP"
	stageBuild            = "BUILD"
	stageTestExecution    = "TEST_EXECUTION"
	stageResultParsed     = "RESULT_PARSED"
	stageReconciled       = "RECONCILED"
)

// parseFailure marks harness output that lacked the sentinel markers.
const parseFailure = "PARSE_ERROR"

// Static evidence quality levels. Logic-verified findings checked the
// literal values in play; bare pattern matches only saw shapes.
const (
	qualityLogicVerified = 90
	qualityPatternMatch  = 60
)

// Grader grades subjects against the configured requirement set.
type Grader struct {
	cfg *config.Config
}

// New returns a grader over the given configuration.
func New(cfg *config.Config) *Grader {
	return &Grader{cfg: cfg}
}

// GradeSubject runs the full pipeline for one subject. implPath is the
// student's CruiseControl.java; testPath is their own test file and may be
// empty when none was submitted.
func (g *Grader) GradeSubject(ctx context.Context, subjectID, implPath, testPath string) grading.GradeReport {
	active := g.cfg.ActiveIDs()
	policy := g.policy()
	cases := testgen.Generate(requirement.Active(active))

	var evidence []grading.EvidenceRecord
	results, failure := g.executeHarness(ctx, subjectID, implPath, cases)
	if failure == nil {
		evidence = append(evidence, executionEvidence(results, cases, active)...)
	}

	evidence = append(evidence, g.staticEvidence(subjectID, implPath, testPath, active)...)

	report := grading.Reconcile(subjectID, active, evidence, policy)
	if failure != nil {
		report.Failure = string(failure.Mode)
		report.FailureDetail = failure.Detail
	}
	log.Debug().Str("subject", subjectID).Str("stage", stageReconciled).
		Float64("grade", report.Grade).Msg("subject graded")
	return report
}

func (g *Grader) policy() grading.Policy {
	return grading.Policy{
		Mode:              g.cfg.Grading.Mode,
		PassThreshold:     *g.cfg.Grading.PassThreshold,
		MaxGrade:          g.cfg.Grading.MaxGrade,
		FullCoverageBonus: g.cfg.Grading.FullCoverageBonus,
		WeightFor:         g.cfg.WeightFor,
	}
}

// executeHarness builds and runs the subject against the generated cases
// and parses the protocol output. Cleanup of the working tree is
// unconditional.
func (g *Grader) executeHarness(ctx context.Context, subjectID string, implPath string, cases []testgen.TestCase) (protocol.Results, *subject.Failure) {
	source := harness.Render(cases)

	workDir, err := os.MkdirTemp("", "cruisegrader-"+subjectID+"-*")
	if err != nil {
		return protocol.Results{}, &subject.Failure{Mode: subject.ModeEnvError, Detail: err.Error()}
	}
	defer os.RemoveAll(workDir)

	mainClass := harness.PackageName + "." + harness.ClassName
	runner := subject.NewRunner(workDir, mainClass, g.cfg.RuntimeToolchain())
	defer runner.Cleanup()

	log.Debug().Str("subject", subjectID).Str("stage", stageEnvironmentSetup).Msg("preparing build context")
	if fail := runner.Setup(implPath, harness.FileName, source); fail != nil {
		return protocol.Results{}, fail
	}

	log.Debug().Str("subject", subjectID).Str("stage", stageBuild).Msg("compiling")
	if fail := runner.Build(ctx); fail != nil {
		return protocol.Results{}, fail
	}

	log.Debug().Str("subject", subjectID).Str("stage", stageTestExecution).Msg("running harness")
	stdout, fail := runner.Run(ctx)
	if fail != nil {
		return protocol.Results{}, fail
	}

	results := protocol.Parse(stdout)
	if !results.Complete {
		return protocol.Results{}, &subject.Failure{
			Mode:   parseFailure,
			Detail: "harness output missing sentinel markers",
		}
	}
	log.Debug().Str("subject", subjectID).Str("stage", stageResultParsed).
		Int("requirements", len(results.ByRequirement)).Msg("output parsed")
	return results, nil
}

// executionEvidence converts parsed harness results into evidence records.
// Requirements the generator emitted no cases for and that no output line
// claimed get no record at all: the run observed nothing about them, so
// static evidence must be free to decide.
func executionEvidence(results protocol.Results, cases []testgen.TestCase, active []requirement.ID) []grading.EvidenceRecord {
	generated := testgen.ByRequirement(cases)
	var evidence []grading.EvidenceRecord
	for _, id := range active {
		if len(generated[id]) == 0 && len(results.ByRequirement[id]) == 0 {
			continue
		}
		rate := results.SatisfactionRate(id)
		var reasons []string
		for _, f := range results.Failures(id) {
			reasons = append(reasons, f.TestID+": "+f.Reason)
		}
		evidence = append(evidence, grading.EvidenceRecord{
			Requirement: id,
			Source:      grading.SourceExecution,
			Supports:    rate > 0,
			Quality:     rate,
			Reasons:     reasons,
		})
	}
	return evidence
}

// staticEvidence collects implementation-shape and test-coverage findings.
// Unreadable or absent sources simply contribute nothing.
func (g *Grader) staticEvidence(subjectID, implPath, testPath string, active []requirement.ID) []grading.EvidenceRecord {
	var evidence []grading.EvidenceRecord

	if data, err := os.ReadFile(implPath); err == nil {
		satisfied := analysis.AnalyzeImplementation(string(data)).SatisfiedSet()
		for _, id := range active {
			evidence = append(evidence, grading.EvidenceRecord{
				Requirement: id,
				Source:      grading.SourceStatic,
				Supports:    satisfied[id],
				Quality:     qualityPatternMatch,
			})
		}
	} else {
		log.Warn().Str("subject", subjectID).Err(err).Msg("implementation source unreadable; skipping static analysis")
	}

	if testPath == "" {
		return evidence
	}
	data, err := os.ReadFile(testPath)
	if err != nil {
		log.Warn().Str("subject", subjectID).Err(err).Msg("test file unreadable; skipping test analysis")
		return evidence
	}

	report, err := analysis.AnalyzeTests(string(data), active)
	if err != nil {
		log.Warn().Str("subject", subjectID).Err(err).Msg("test analysis failed")
		return evidence
	}
	for _, id := range report.Covered {
		matches := report.PerRequirement[id]
		var reasons []string
		for _, m := range matches {
			if m.Reason != "" {
				reasons = append(reasons, m.Method+": "+m.Reason)
			}
		}
		quality := float64(qualityPatternMatch)
		for _, m := range matches {
			if m.LogicVerified {
				quality = qualityLogicVerified
				break
			}
		}
		evidence = append(evidence, grading.EvidenceRecord{
			Requirement: id,
			Source:      grading.SourceLogic,
			Supports:    true,
			Quality:     quality,
			Reasons:     reasons,
		})
	}

	if len(report.Unmatched) > 0 && g.cfg.Output.PendingReviewFile != "" {
		if err := analysis.AppendPendingReview(g.cfg.Output.PendingReviewFile, subjectID, report.Unmatched); err != nil {
			log.Warn().Str("subject", subjectID).Err(err).Msg("could not record pending-review entries")
		}
	}
	return evidence
}
