package rps

import "testing"

func TestResolveTable(t *testing.T) {
	cases := []struct {
		a, b Move
		want Outcome
	}{
		{Rock, Rock, OutcomeTie},
		{Rock, Paper, OutcomeB},
		{Rock, Scissors, OutcomeA},
		{Paper, Rock, OutcomeA},
		{Paper, Paper, OutcomeTie},
		{Paper, Scissors, OutcomeB},
		{Scissors, Rock, OutcomeB},
		{Scissors, Paper, OutcomeA},
		{Scissors, Scissors, OutcomeTie},
	}
	for _, c := range cases {
		if got := Resolve(c.a, c.b); got != c.want {
			t.Fatalf("Resolve(%s,%s)=%s want %s", c.a, c.b, got, c.want)
		}
	}
}

func TestResolveAntisymmetric(t *testing.T) {
	for _, a := range Moves {
		if Resolve(a, a) != OutcomeTie {
			t.Fatalf("Resolve(%s,%s) should tie", a, a)
		}
		for _, b := range Moves {
			if Resolve(a, b) != Resolve(b, a).Flip() {
				t.Fatalf("antisymmetry broken for %s/%s", a, b)
			}
		}
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("  RoCk ")
	if err != nil || m != Rock {
		t.Fatalf("ParseMove rock: %v %q", err, m)
	}
	for _, bad := range []string{"", "lizard", "rocks", "spock"} {
		if _, err := ParseMove(bad); err != ErrInvalidMove {
			t.Fatalf("ParseMove(%q) expected ErrInvalidMove, got %v", bad, err)
		}
	}
}

func TestRandomMoveValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		if m := RandomMove(); !m.Valid() {
			t.Fatalf("RandomMove returned %q", m)
		}
	}
}
