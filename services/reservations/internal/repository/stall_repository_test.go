package repository

import (
	"errors"
	"reflect"
	"testing"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

func TestPlanReserve(t *testing.T) {
	state := map[string]domain.Stall{
		"A1": {ID: "A1"},
		"A2": {ID: "A2", Reserved: true, ReservedBy: "pub@x.com"},
		"A3": {ID: "A3", Reserved: true, ReservedBy: "other@x.com"},
	}
	lookup := func(id string) (domain.Stall, bool) {
		s, ok := state[id]
		return s, ok
	}

	tests := []struct {
		name          string
		ids           []string
		wantTargets   []string
		wantFresh     []string
		wantUnknown   []string
		wantConflicts []string
	}{
		{
			name:        "free and own stalls are targets",
			ids:         []string{"A1", "A2"},
			wantTargets: []string{"A1", "A2"},
			wantFresh:   []string{"A1"},
		},
		{
			name:        "unknown ids kept in order",
			ids:         []string{"Z1", "A1", "Z2"},
			wantTargets: []string{"A1"},
			wantFresh:   []string{"A1"},
			wantUnknown: []string{"Z1", "Z2"},
		},
		{
			name:          "another holder conflicts",
			ids:           []string{"A1", "A3"},
			wantTargets:   []string{"A1"},
			wantFresh:     []string{"A1"},
			wantConflicts: []string{"A3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := planReserve(tt.ids, "pub@x.com", lookup)

			if !reflect.DeepEqual(p.targets, tt.wantTargets) {
				t.Errorf("targets = %v, want %v", p.targets, tt.wantTargets)
			}
			if !reflect.DeepEqual(p.unknown, tt.wantUnknown) {
				t.Errorf("unknown = %v, want %v", p.unknown, tt.wantUnknown)
			}
			if !reflect.DeepEqual(p.conflicts, tt.wantConflicts) {
				t.Errorf("conflicts = %v, want %v", p.conflicts, tt.wantConflicts)
			}
			if len(p.fresh) != len(tt.wantFresh) {
				t.Errorf("fresh = %v, want %v", p.fresh, tt.wantFresh)
			}
			for _, id := range tt.wantFresh {
				if !p.fresh[id] {
					t.Errorf("%s should be fresh", id)
				}
			}

			err := p.conflictErr()
			if len(tt.wantConflicts) == 0 {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrStallUnavailable) {
				t.Errorf("expected ErrStallUnavailable, got %v", err)
			}
		})
	}
}

func TestReservePlanRecord(t *testing.T) {
	p := reservePlan{fresh: map[string]bool{"A1": true}}
	out := &ReserveOutcome{}
	p.record(out, domain.Stall{ID: "A1"})
	p.record(out, domain.Stall{ID: "A2"})

	if got := out.ReservedIDs(); !reflect.DeepEqual(got, []string{"A1", "A2"}) {
		t.Errorf("reserved = %v", got)
	}
	if len(out.Acquired) != 1 || out.Acquired[0].ID != "A1" {
		t.Errorf("acquired = %+v", out.Acquired)
	}
}
