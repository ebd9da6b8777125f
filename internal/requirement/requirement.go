// Package requirement defines the catalog of gradable behavioral requirements
// for the cruise control exercise.
//
// The catalog is pure data: descriptions, formal contracts, weights, and the
// accepted exception-kind tags per requirement. It is loaded once at process
// start and never mutated.
package requirement

import (
	"fmt"
	"sort"
)

// ID identifies a single requirement (R1..R19).
type ID string

// Requirement is one named, independently gradable behavioral contract.
type Requirement struct {
	ID            ID
	Description   string
	Precondition  string
	Postcondition string
	Invariant     string

	// Weight is the default contribution to the grade when the requirement
	// is satisfied. Weights for the default active set (R1..R6) sum to the
	// 10.0 grade ceiling; other sets are normalized by the grading policy.
	Weight float64

	// ErrorKinds lists the accepted exception-kind tags for requirements
	// whose postcondition is a thrown exception. A raised error matches
	// when its simple class name contains any of these fragments; student
	// exception class names vary, so matching is by substring, not
	// equality.
	ErrorKinds []string
}

// ExpectsException reports whether the requirement's postcondition is a
// thrown exception rather than a state change.
func (r Requirement) ExpectsException() bool {
	return len(r.ErrorKinds) > 0
}

// DefaultActive is the requirement set graded by default. The remaining
// requirements (R7..R19) are available for the extended execution grader and
// static inspection but carry no default test cases.
var DefaultActive = []ID{"R1", "R2", "R3", "R4", "R5", "R6"}

// catalog holds every requirement in declaration order.
//
// Descriptions and contracts follow the course specification for the
// CruiseControl class: an Integer speedSet and speedLimit, both null until
// set, with setters that validate their argument and a nextCommand operation
// that compares the speedometer reading against the configured speeds.
var catalog = []Requirement{
	{
		ID:            "R1",
		Description:   "speedSet initializes to null",
		Precondition:  "constructor called",
		Postcondition: "speedSet == null",
		Invariant:     "speedSet is Integer type",
		Weight:        1.67,
	},
	{
		ID:            "R2",
		Description:   "speedLimit initializes to null",
		Precondition:  "constructor called",
		Postcondition: "speedLimit == null",
		Invariant:     "speedLimit is Integer type",
		Weight:        1.67,
	},
	{
		ID:            "R3",
		Description:   "setSpeedSet accepts positive values",
		Precondition:  "speedSet > 0",
		Postcondition: "this.speedSet == speedSet parameter",
		Invariant:     "speedSet > 0 implies no exception thrown",
		Weight:        1.67,
	},
	{
		ID:            "R4",
		Description:   "setSpeedSet throws IncorrectSpeedSetException for speedSet <= 0",
		Precondition:  "speedSet <= 0",
		Postcondition: "IncorrectSpeedSetException thrown, state unchanged",
		Invariant:     "forall speedSet <= 0: throws IncorrectSpeedSetException",
		Weight:        1.67,
		ErrorKinds:    []string{"IncorrectSpeedSet", "IncorrectSpeed"},
	},
	{
		ID:            "R5",
		Description:   "speedSet respects speedLimit when set",
		Precondition:  "speedLimit != null AND speedSet <= speedLimit",
		Postcondition: "this.speedSet == speedSet parameter",
		Invariant:     "speedLimit != null implies speedSet <= speedLimit",
		Weight:        1.67,
	},
	{
		ID:            "R6",
		Description:   "setSpeedSet throws SpeedSetAboveSpeedLimitException when speedSet > speedLimit",
		Precondition:  "speedLimit != null AND speedSet > speedLimit",
		Postcondition: "SpeedSetAboveSpeedLimitException thrown, state unchanged",
		Invariant:     "speedLimit != null AND speedSet > speedLimit implies exception",
		Weight:        1.65, // trimmed so the default set sums to exactly 10.0
		ErrorKinds:    []string{"SpeedSetAboveSpeedLimit", "AboveLimit"},
	},
	{
		ID:            "R7",
		Description:   "setSpeedLimit accepts positive values",
		Precondition:  "speedLimit > 0",
		Postcondition: "this.speedLimit == speedLimit parameter",
		Invariant:     "speedLimit > 0 implies no exception thrown",
		Weight:        2,
	},
	{
		ID:            "R8",
		Description:   "setSpeedLimit throws IncorrectSpeedLimitException for speedLimit <= 0",
		Precondition:  "speedLimit <= 0",
		Postcondition: "IncorrectSpeedLimitException thrown, state unchanged",
		Invariant:     "forall speedLimit <= 0: throws IncorrectSpeedLimitException",
		Weight:        2,
		ErrorKinds:    []string{"IncorrectSpeedLimit", "SpeedLimit"},
	},
	{
		ID:            "R9",
		Description:   "setSpeedLimit throws CannotSetSpeedLimitException when speedSet already set",
		Precondition:  "speedSet != null",
		Postcondition: "CannotSetSpeedLimitException thrown, state unchanged",
		Invariant:     "speedSet != null implies setSpeedLimit throws",
		Weight:        3,
		ErrorKinds:    []string{"CannotSetSpeedLimit", "Cannot"},
	},
	{
		ID:            "R10",
		Description:   "disable sets speedSet to null",
		Precondition:  "disable called",
		Postcondition: "speedSet == null",
		Invariant:     "disable implies speedSet == null",
		Weight:        1,
	},
	{
		ID:            "R11",
		Description:   "disable does not alter speedLimit",
		Precondition:  "disable called",
		Postcondition: "speedLimit unchanged",
		Invariant:     "disable implies speedLimit' == speedLimit",
		Weight:        1,
	},
	{
		ID:            "R12",
		Description:   "nextCommand returns IDLE when speedSet is not initialized",
		Precondition:  "speedSet == null",
		Postcondition: "nextCommand() == IDLE",
		Invariant:     "speedSet == null implies IDLE",
		Weight:        1,
	},
	{
		ID:            "R13",
		Description:   "nextCommand returns IDLE after disable",
		Precondition:  "disable called",
		Postcondition: "nextCommand() == IDLE",
		Invariant:     "disabled implies IDLE",
		Weight:        1,
	},
	{
		ID:            "R14",
		Description:   "nextCommand returns REDUCE when current speed exceeds speedSet",
		Precondition:  "speedSet != null AND currentSpeed > speedSet",
		Postcondition: "nextCommand() == REDUCE",
		Invariant:     "currentSpeed > speedSet implies REDUCE",
		Weight:        1,
	},
	{
		ID:            "R15",
		Description:   "nextCommand keeps returning REDUCE while current speed stays above speedSet",
		Precondition:  "speedSet != null AND currentSpeed > speedSet on consecutive readings",
		Postcondition: "nextCommand() == REDUCE on each reading",
		Invariant:     "REDUCE is repeated until currentSpeed <= speedSet",
		Weight:        1,
	},
	{
		ID:            "R16",
		Description:   "nextCommand returns INCREASE when current speed is below speedSet",
		Precondition:  "speedSet != null AND currentSpeed < speedSet",
		Postcondition: "nextCommand() == INCREASE",
		Invariant:     "currentSpeed < speedSet implies INCREASE",
		Weight:        1,
	},
	{
		ID:            "R17",
		Description:   "nextCommand returns REDUCE when current speed exceeds speedLimit",
		Precondition:  "speedLimit != null AND currentSpeed > speedLimit",
		Postcondition: "nextCommand() == REDUCE",
		Invariant:     "currentSpeed > speedLimit implies REDUCE",
		Weight:        1,
	},
	{
		ID:            "R18",
		Description:   "nextCommand never returns INCREASE when at or above speedLimit",
		Precondition:  "speedLimit != null AND currentSpeed >= speedLimit",
		Postcondition: "nextCommand() != INCREASE",
		Invariant:     "currentSpeed >= speedLimit implies not INCREASE",
		Weight:        1,
	},
	{
		ID:            "R19",
		Description:   "nextCommand returns KEEP when current speed equals speedSet",
		Precondition:  "speedSet != null AND currentSpeed == speedSet",
		Postcondition: "nextCommand() == KEEP",
		Invariant:     "currentSpeed == speedSet implies KEEP",
		Weight:        1,
	},
}

var byID = func() map[ID]Requirement {
	m := make(map[ID]Requirement, len(catalog))
	for _, r := range catalog {
		m[r.ID] = r
	}
	return m
}()

// Get returns the requirement with the given id.
// An unknown id is a programming error, not a grading-time condition.
func Get(id ID) Requirement {
	r, ok := byID[id]
	if !ok {
		panic(fmt.Sprintf("requirement: unknown id %q", id))
	}
	return r
}

// Known reports whether the id names a catalog requirement. Unlike Get it
// never panics; configuration references go through here first.
func Known(id ID) bool {
	_, ok := byID[id]
	return ok
}

// All returns every requirement in catalog order.
func All() []Requirement {
	result := make([]Requirement, len(catalog))
	copy(result, catalog)
	return result
}

// Active returns the requirements for the given ids in catalog order.
// Unknown ids panic, same as Get.
func Active(ids []ID) []Requirement {
	want := make(map[ID]bool, len(ids))
	for _, id := range ids {
		Get(id) // validate
		want[id] = true
	}
	var result []Requirement
	for _, r := range catalog {
		if want[r.ID] {
			result = append(result, r)
		}
	}
	return result
}

// TotalWeight returns the sum of weights for the given requirements.
func TotalWeight(reqs []Requirement) float64 {
	var total float64
	for _, r := range reqs {
		total += r.Weight
	}
	return total
}

// SortIDs orders requirement ids numerically (R2 before R10).
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool {
		return numericID(ids[i]) < numericID(ids[j])
	})
}

func numericID(id ID) int {
	var n int
	fmt.Sscanf(string(id), "R%d", &n)
	return n
}
