package analysis

import (
	"regexp"
	"strings"

	"github.com/Sankatt/cruisegrader/internal/requirement"
)

// Region headers. The body itself is extracted by brace counting
// (bodyAfter); a pure regex over nested braces either truncates at the
// first inner close or needs recursion the engine does not have.
var (
	constructorHeadRe = regexp.MustCompile(`public\s+CruiseControl\s*\([^)]*\)\s*\{`)
	setSpeedSetHeadRe = regexp.MustCompile(`public\s+void\s+setSpeedSet\s*\([^)]*\)\s*(?:throws[^{]*)?\{`)
	setLimitHeadRe    = regexp.MustCompile(`public\s+void\s+setSpeedLimit\s*\([^)]*\)\s*(?:throws[^{]*)?\{`)
	disableHeadRe     = regexp.MustCompile(`public\s+void\s+disable\s*\(\s*\)\s*\{`)
	nextCommandHeadRe = regexp.MustCompile(`public\s+Response\s+nextCommand\s*\(\s*\)\s*\{`)
)

var (
	speedSetNullRe       = regexp.MustCompile(`speedSet\s*=\s*null`)
	speedSetDeclNullRe   = regexp.MustCompile(`private\s+Integer\s+speedSet\s*=\s*null`)
	speedSetDeclBareRe   = regexp.MustCompile(`private\s+Integer\s+speedSet\s*;`)
	speedSetNumericRe    = regexp.MustCompile(`speedSet\s*=\s*\d`)
	speedLimitNullRe     = regexp.MustCompile(`speedLimit\s*=\s*null`)
	speedLimitDeclNullRe = regexp.MustCompile(`private\s+Integer\s+speedLimit\s*=\s*null`)
	speedLimitDeclBareRe = regexp.MustCompile(`private\s+Integer\s+speedLimit\s*;`)
	speedLimitNumericRe  = regexp.MustCompile(`speedLimit\s*=\s*\d`)
	speedLimitAssignRe   = regexp.MustCompile(`speedLimit\s*=`)

	setGuardRe        = regexp.MustCompile(`if\s*\([^)]*speedSet\s*<=\s*0|if\s*\([^)]*speedSet\s*<\s*1`)
	setThrowRe        = regexp.MustCompile(`throw\s+new\s+\w*IncorrectSpeedSet\w*Exception`)
	setAssignRe       = regexp.MustCompile(`this\.speedSet\s*=\s*speedSet|speedSet\s*=\s*speedSet`)
	limitCompareRe    = regexp.MustCompile(`speedSet\s*>\s*[^;]*speedLimit|speedLimit\s*<\s*speedSet`)
	aboveLimitThrowRe = regexp.MustCompile(`throw\s+new\s+\w*SpeedSetAboveSpeedLimit\w*Exception`)
	limitGuardRe      = regexp.MustCompile(`if\s*\([^)]*speedLimit\s*<=\s*0|if\s*\([^)]*speedLimit\s*<\s*1`)
	limitThrowRe      = regexp.MustCompile(`throw\s+new\s+\w*IncorrectSpeedLimit\w*Exception`)
	limitAssignSelfRe = regexp.MustCompile(`this\.speedLimit\s*=\s*speedLimit`)
	setNotNullGuardRe = regexp.MustCompile(`if\s*\([^)]*speedSet\s*!=\s*null`)
	cannotSetThrowRe  = regexp.MustCompile(`throw\s+new\s+\w*CannotSetSpeedLimit\w*Exception`)
)

// ImplementationReport is the static verdict over one CruiseControl.java.
type ImplementationReport struct {
	Satisfied []requirement.ID
	Missing   []requirement.ID
}

// SatisfiedSet returns the satisfied requirements as a lookup set.
func (r ImplementationReport) SatisfiedSet() map[requirement.ID]bool {
	set := make(map[requirement.ID]bool, len(r.Satisfied))
	for _, id := range r.Satisfied {
		set[id] = true
	}
	return set
}

// AnalyzeImplementation checks the implementation source for the code shapes
// each catalog requirement demands and reports which ones are evidenced.
func AnalyzeImplementation(source string) ImplementationReport {
	satisfied := make(map[requirement.ID]bool)

	checkInitialization(source, satisfied)
	checkSetSpeedSet(source, satisfied)
	checkSetSpeedLimit(source, satisfied)
	checkDisable(source, satisfied)
	checkNextCommand(source, satisfied)

	var report ImplementationReport
	for _, req := range requirement.All() {
		if satisfied[req.ID] {
			report.Satisfied = append(report.Satisfied, req.ID)
		} else {
			report.Missing = append(report.Missing, req.ID)
		}
	}
	return report
}

// checkInitialization covers R1 and R2: both fields start out null, whether
// assigned in the constructor, initialized at declaration, or left to the
// Integer default.
func checkInitialization(source string, satisfied map[requirement.ID]bool) {
	body, ok := bodyAfter(source, constructorHeadRe)
	if !ok {
		return
	}

	switch {
	case speedSetNullRe.MatchString(body),
		speedSetDeclNullRe.MatchString(source),
		speedSetDeclBareRe.MatchString(source) && !speedSetNumericRe.MatchString(body):
		satisfied["R1"] = true
	}
	switch {
	case speedLimitNullRe.MatchString(body),
		speedLimitDeclNullRe.MatchString(source),
		speedLimitDeclBareRe.MatchString(source) && !speedLimitNumericRe.MatchString(body):
		satisfied["R2"] = true
	}
}

// checkSetSpeedSet covers R3..R6, all evidenced inside the setSpeedSet body.
func checkSetSpeedSet(source string, satisfied map[requirement.ID]bool) {
	body, ok := bodyAfter(source, setSpeedSetHeadRe)
	if !ok {
		return
	}

	if setGuardRe.MatchString(body) && setThrowRe.MatchString(body) {
		satisfied["R4"] = true
	}
	// The assignment alone is not enough: an unconditional throw means
	// positive values never get stored.
	if setAssignRe.MatchString(body) &&
		(!strings.Contains(body, "throw") || strings.Contains(body, "if")) {
		satisfied["R3"] = true
	}
	if limitCompareRe.MatchString(body) {
		satisfied["R5"] = true
		if aboveLimitThrowRe.MatchString(body) {
			satisfied["R6"] = true
		}
	}
}

// checkSetSpeedLimit covers R7..R9.
func checkSetSpeedLimit(source string, satisfied map[requirement.ID]bool) {
	body, ok := bodyAfter(source, setLimitHeadRe)
	if !ok {
		return
	}

	if limitGuardRe.MatchString(body) && limitThrowRe.MatchString(body) {
		satisfied["R8"] = true
	}
	if limitAssignSelfRe.MatchString(body) &&
		(!strings.Contains(body, "throw") || strings.Contains(body, "if")) {
		satisfied["R7"] = true
	}
	if setNotNullGuardRe.MatchString(body) && cannotSetThrowRe.MatchString(body) {
		satisfied["R9"] = true
	}
}

// checkDisable covers R10 and R11. R11 is an absence check: disable must not
// touch speedLimit.
func checkDisable(source string, satisfied map[requirement.ID]bool) {
	body, ok := bodyAfter(source, disableHeadRe)
	if !ok {
		return
	}

	if speedSetNullRe.MatchString(body) {
		satisfied["R10"] = true
	}
	if !speedLimitAssignRe.MatchString(body) {
		satisfied["R11"] = true
	}
}

// checkNextCommand covers the command-selection requirements that have a
// recognizable static shape. R13, R15, and R18 describe behavior across
// consecutive readings and cannot be distinguished from a single method
// body; they are left to execution evidence.
func checkNextCommand(source string, satisfied map[requirement.ID]bool) {
	raw, ok := bodyAfter(source, nextCommandHeadRe)
	if !ok {
		return
	}
	body := strings.ToLower(raw)

	if strings.Contains(body, "speedset") && strings.Contains(body, "null") && strings.Contains(body, "idle") {
		satisfied["R12"] = true
	}
	if strings.Contains(body, "reduce") && strings.Contains(body, ">") {
		satisfied["R14"] = true
	}
	if strings.Contains(body, "increase") && strings.Contains(body, "<") {
		satisfied["R16"] = true
	}
	if strings.Contains(body, "speedlimit") && strings.Contains(body, "reduce") {
		satisfied["R17"] = true
	}
	if strings.Contains(body, "keep") && strings.Contains(body, "==") {
		satisfied["R19"] = true
	}
}
