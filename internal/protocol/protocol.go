// Package protocol parses the line-oriented output stream emitted by the
// synthesized harness.
//
// The harness prints a sentinel start marker, one PASS/FAIL line per test
// case, and a sentinel end marker:
//
//	TESTING_START
//	PASS:R3:R3_VALID_0050
//	FAIL:R4:R4_INVALID_0000:NO_EXCEPTION
//	TESTING_END
//
// Lines outside the markers or not matching the PASS/FAIL shape are ignored;
// students print all sorts of things. Duplicate PASS lines for the same test
// are counted once.
package protocol

import (
	"regexp"
	"strings"

	"github.com/Sankatt/cruisegrader/internal/requirement"
)

// Sentinel markers bounding harness output.
const (
	MarkerStart = "TESTING_START"
	MarkerEnd   = "TESTING_END"
)

// resultLineRegex matches one harness verdict line:
// PASS:<req>:<testid> or FAIL:<req>:<testid>[:<reason>].
var resultLineRegex = regexp.MustCompile(`^(PASS|FAIL):(R[0-9]+):([A-Za-z0-9_]+)(?::(.*))?$`)

// TestResult is one parsed verdict line.
type TestResult struct {
	Requirement requirement.ID
	TestID      string
	Passed      bool
	Reason      string // empty for PASS lines
}

// Results holds the parsed output of one harness run.
type Results struct {
	ByRequirement map[requirement.ID][]TestResult

	// Complete is true when both sentinel markers were present. Output
	// without markers is not trusted: it usually means the harness never
	// ran to completion.
	Complete bool
}

// Parse extracts per-requirement verdicts from captured harness stdout.
func Parse(output string) Results {
	res := Results{ByRequirement: make(map[requirement.ID][]TestResult)}

	started := false
	seenPass := make(map[string]bool)
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimRight(raw, "\r")
		switch {
		case line == MarkerStart:
			started = true
			continue
		case line == MarkerEnd:
			if started {
				res.Complete = true
			}
			// Nothing after the end marker is trusted.
			return res
		case !started:
			continue
		}

		m := resultLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		passed := m[1] == "PASS"
		req := requirement.ID(m[2])
		testID := m[3]

		if passed {
			key := string(req) + ":" + testID
			if seenPass[key] {
				continue
			}
			seenPass[key] = true
		}

		res.ByRequirement[req] = append(res.ByRequirement[req], TestResult{
			Requirement: req,
			TestID:      testID,
			Passed:      passed,
			Reason:      m[4],
		})
	}

	return res
}

// SatisfactionRate returns passed/total for the requirement as a percentage
// in [0,100]. A requirement with no recorded lines rates 0: absence of
// evidence is never evidence of satisfaction.
func (r Results) SatisfactionRate(id requirement.ID) float64 {
	results := r.ByRequirement[id]
	if len(results) == 0 {
		return 0
	}
	passed := 0
	for _, tr := range results {
		if tr.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(results)) * 100
}

// Failures returns the failed results for the requirement.
func (r Results) Failures(id requirement.ID) []TestResult {
	var failures []TestResult
	for _, tr := range r.ByRequirement[id] {
		if !tr.Passed {
			failures = append(failures, tr)
		}
	}
	return failures
}
