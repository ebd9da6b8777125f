package requirement

import (
	"math"
	"testing"
)

func TestCatalogCoversR1ThroughR19(t *testing.T) {
	t.Parallel()

	all := All()
	if len(all) != 19 {
		t.Fatalf("catalog has %d requirements, want 19", len(all))
	}
	for _, r := range all {
		if r.Description == "" {
			t.Errorf("%s has empty description", r.ID)
		}
		if r.Invariant == "" {
			t.Errorf("%s has empty invariant", r.ID)
		}
		if r.Weight <= 0 {
			t.Errorf("%s has non-positive weight %v", r.ID, r.Weight)
		}
	}
}

func TestDefaultActiveWeightsSumToCeiling(t *testing.T) {
	t.Parallel()

	total := TotalWeight(Active(DefaultActive))
	if math.Abs(total-10.0) > 1e-9 {
		t.Errorf("default active weights sum to %v, want 10.0", total)
	}
}

func TestGetUnknownPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("Get with unknown id should panic")
		}
	}()
	Get("R99")
}

func TestExceptionRequirementsDeclareKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   ID
		want string
	}{
		{"R4", "IncorrectSpeedSet"},
		{"R6", "SpeedSetAboveSpeedLimit"},
		{"R8", "IncorrectSpeedLimit"},
		{"R9", "CannotSetSpeedLimit"},
	}

	for _, tt := range tests {
		r := Get(tt.id)
		if !r.ExpectsException() {
			t.Errorf("%s should expect an exception", tt.id)
			continue
		}
		if r.ErrorKinds[0] != tt.want {
			t.Errorf("%s primary error kind = %q, want %q", tt.id, r.ErrorKinds[0], tt.want)
		}
	}

	if Get("R1").ExpectsException() {
		t.Error("R1 should not expect an exception")
	}
}

func TestActivePreservesCatalogOrder(t *testing.T) {
	t.Parallel()

	reqs := Active([]ID{"R6", "R1", "R4"})
	wantOrder := []ID{"R1", "R4", "R6"}
	if len(reqs) != len(wantOrder) {
		t.Fatalf("got %d requirements, want %d", len(reqs), len(wantOrder))
	}
	for i, r := range reqs {
		if r.ID != wantOrder[i] {
			t.Errorf("position %d: got %s, want %s", i, r.ID, wantOrder[i])
		}
	}
}

func TestSortIDsNumeric(t *testing.T) {
	t.Parallel()

	ids := []ID{"R10", "R2", "R1", "R19"}
	SortIDs(ids)
	want := []ID{"R1", "R2", "R10", "R19"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("SortIDs = %v, want %v", ids, want)
		}
	}
}
