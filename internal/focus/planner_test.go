package focus

import "testing"

// netDisplacement replays a planned sequence against a model counter.
func netDisplacement(seq []KeyEvent, dir Direction) int {
	total := 0
	for _, ev := range seq {
		total += ev.Displacement(dir)
	}
	return total
}

func TestPlanMovementSequences(t *testing.T) {
	far := keymaps[NearToFar]

	tests := []struct {
		name  string
		steps uint
		want  []KeyEvent
	}{
		{
			name:  "zero steps plans nothing",
			steps: 0,
			want:  nil,
		},
		{
			name:  "small movement uses singles",
			steps: 10,
			want:  repeat(far.single, 10),
		},
		{
			name:  "boundary at 26 overshoots and walks back",
			steps: 26,
			want:  append([]KeyEvent{{Code: far.large}}, repeat(far.opposite, 24)...),
		},
		{
			name:  "25 stays on singles",
			steps: 25,
			want:  repeat(far.single, 25),
		},
		{
			name:  "exact large step",
			steps: 50,
			want:  []KeyEvent{{Code: far.large}},
		},
		{
			name:  "large then singles",
			steps: 75,
			want:  append([]KeyEvent{{Code: far.large}}, repeat(far.single, 25)...),
		},
		{
			name:  "two large then singles",
			steps: 120,
			want:  append([]KeyEvent{{Code: far.large}, {Code: far.large}}, repeat(far.single, 20)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanMovement(tt.steps, NearToFar)
			if len(got) != len(tt.want) {
				t.Fatalf("PlanMovement(%d) produced %d events, want %d", tt.steps, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPlanMovementExactDisplacement(t *testing.T) {
	for _, dir := range []Direction{NearToFar, FarToNear} {
		for steps := uint(0); steps <= 1000; steps++ {
			seq := PlanMovement(steps, dir)
			if net := netDisplacement(seq, dir); net != int(steps) {
				t.Fatalf("dir=%v steps=%d: net displacement %d", dir, steps, net)
			}
		}
	}
}

func TestPlanMovementMinimality(t *testing.T) {
	for steps := uint(0); steps <= 1000; steps++ {
		got := len(PlanMovement(steps, NearToFar))
		naive := int(steps)
		if got > naive {
			t.Fatalf("steps=%d: planned %d events, naive needs %d", steps, got, naive)
		}
		if steps >= backAdjustCutoff && got >= naive {
			t.Fatalf("steps=%d: expected strictly fewer than %d events, got %d", steps, naive, got)
		}
		if steps < backAdjustCutoff && got != naive {
			t.Fatalf("steps=%d: expected %d single events, got %d", steps, naive, got)
		}
	}
}

func TestDirectionKeymaps(t *testing.T) {
	// The single key of one direction doubles as the other's back-adjust key.
	if keymaps[NearToFar].opposite != keymaps[FarToNear].single {
		t.Error("near-to-far opposite key should match far-to-near single key")
	}
	if keymaps[FarToNear].opposite != keymaps[NearToFar].single {
		t.Error("far-to-near opposite key should match near-to-far single key")
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("near to far"); err != nil || d != NearToFar {
		t.Errorf("ParseDirection(near to far) = %v, %v", d, err)
	}
	if d, err := ParseDirection("far to near"); err != nil || d != FarToNear {
		t.Errorf("ParseDirection(far to near) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func repeat(code Key, n int) []KeyEvent {
	out := make([]KeyEvent, n)
	for i := range out {
		out[i] = KeyEvent{Code: code}
	}
	return out
}
