// Package grading reconciles evidence from the execution harness and the
// static analyzers into per-requirement verdicts and a final grade.
//
// Evidence sources are ranked: execution results are primary, static
// findings are fallback for subjects that never ran (build failures,
// timeouts). When both exist and disagree the disagreement is logged as an
// anomaly and execution wins; static evidence never overrides an observed
// run.
package grading

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/Sankatt/cruisegrader/internal/requirement"
)

// Source identifies where a piece of evidence came from.
type Source string

const (
	SourceExecution Source = "execution"
	SourceStatic    Source = "static-pattern"
	SourceLogic     Source = "logic-verification"
)

// Policy modes.
const (
	ModeStrict  = "strict"
	ModeLenient = "lenient"
)

// EvidenceRecord is one source's claim about one requirement. Quality is a
// 0..100 score: for execution evidence the test pass rate, for static
// evidence the analyzer's confidence scaled to the same range.
type EvidenceRecord struct {
	Requirement requirement.ID
	Source      Source
	Supports    bool
	Quality     float64
	Reasons     []string
}

// Verdict is the reconciled outcome for one requirement.
type Verdict struct {
	Requirement requirement.ID `json:"requirement"`
	Satisfied   bool           `json:"satisfied"`
	Source      Source         `json:"source,omitempty"` // winning source; empty when nothing supported it
	Quality     float64        `json:"quality"`
	Reasons     []string       `json:"reasons,omitempty"`
}

// Policy holds the grading knobs.
type Policy struct {
	Mode              string
	PassThreshold     float64 // percent; strict mode satisfaction bar
	MaxGrade          float64
	FullCoverageBonus float64
	WeightFor         func(requirement.ID) float64
}

// GradeReport is the full result for one subject.
type GradeReport struct {
	Subject   string           `json:"subject"`
	Verdicts  []Verdict        `json:"verdicts"`
	Satisfied []requirement.ID `json:"satisfied"`
	Missing   []requirement.ID `json:"missing"`
	Grade     float64          `json:"grade"`

	// Failure carries a fatal stage failure (BUILD_ERROR, RUN_TIMEOUT, ...)
	// when execution never produced results. The report is still a
	// completed grading: such subjects score on static evidence alone.
	Failure       string `json:"failure,omitempty"`
	FailureDetail string `json:"failure_detail,omitempty"`
}

// Reconcile folds all evidence for the active requirements into verdicts
// and computes the grade.
func Reconcile(subject string, active []requirement.ID, evidence []EvidenceRecord, policy Policy) GradeReport {
	byReq := make(map[requirement.ID][]EvidenceRecord)
	for _, ev := range evidence {
		byReq[ev.Requirement] = append(byReq[ev.Requirement], ev)
	}

	report := GradeReport{Subject: subject}
	for _, id := range active {
		v := reconcileOne(subject, id, byReq[id], policy)
		report.Verdicts = append(report.Verdicts, v)
		if v.Satisfied {
			report.Satisfied = append(report.Satisfied, id)
		} else {
			report.Missing = append(report.Missing, id)
		}
	}

	report.Grade = computeGrade(active, report.Satisfied, policy)
	return report
}

// reconcileOne decides a single requirement from its evidence records.
func reconcileOne(subject string, id requirement.ID, records []EvidenceRecord, policy Policy) Verdict {
	verdict := Verdict{Requirement: id}

	var execution *EvidenceRecord
	var staticBest *EvidenceRecord
	for i := range records {
		rec := &records[i]
		switch rec.Source {
		case SourceExecution:
			execution = rec
		default:
			if rec.Supports && (staticBest == nil || rec.Quality > staticBest.Quality) {
				staticBest = rec
			}
		}
	}

	if execution != nil {
		satisfied := execution.Supports
		if policy.Mode != ModeLenient {
			satisfied = execution.Quality >= policy.PassThreshold
		}
		verdict.Satisfied = satisfied
		verdict.Quality = execution.Quality
		verdict.Reasons = execution.Reasons
		if satisfied {
			verdict.Source = SourceExecution
		}

		// Disagreement between sources is worth a look even though it
		// never changes the verdict.
		if (staticBest != nil) != satisfied {
			log.Warn().
				Str("subject", subject).
				Str("requirement", string(id)).
				Bool("execution_satisfied", satisfied).
				Bool("static_supports", staticBest != nil).
				Msg("execution and static evidence disagree")
		}
		return verdict
	}

	// No execution evidence: static fallback.
	if staticBest != nil {
		verdict.Satisfied = true
		verdict.Source = staticBest.Source
		verdict.Quality = staticBest.Quality
		verdict.Reasons = staticBest.Reasons
		return verdict
	}

	verdict.Reasons = []string{"no supporting evidence from any source"}
	return verdict
}

// computeGrade sums the weights of satisfied requirements. When the active
// set's weights do not cover the grade ceiling (custom subsets), earned
// weight is scaled so full satisfaction still reaches the ceiling. The
// full-coverage bonus applies only when every active requirement passed,
// and the cap always holds.
func computeGrade(active, satisfied []requirement.ID, policy Policy) float64 {
	var total, earned float64
	for _, id := range active {
		total += policy.WeightFor(id)
	}
	for _, id := range satisfied {
		earned += policy.WeightFor(id)
	}

	grade := earned
	if total > 0 && math.Abs(total-policy.MaxGrade) > 1e-9 {
		grade = policy.MaxGrade * earned / total
	}

	if len(active) > 0 && len(satisfied) == len(active) {
		grade += policy.FullCoverageBonus
	}

	if grade > policy.MaxGrade {
		grade = policy.MaxGrade
	}
	return math.Round(grade*100) / 100
}
