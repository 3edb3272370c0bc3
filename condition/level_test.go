package condition

import "testing"

func TestParseLevelKnownValues(t *testing.T) {
	cases := map[string]Level{
		"Good":   Good,
		"good":   Good,
		"FAIR":   Fair,
		"Poor":   Poor,
		"bad":    Bad,
		" fair ": Fair,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestParseLevelCoercesUnknownToFair(t *testing.T) {
	for _, input := range []string{"", "excellent", "3", "unknown"} {
		if got := ParseLevel(input); got != Fair {
			t.Fatalf("ParseLevel(%q) = %s, want Fair", input, got)
		}
	}
}

func TestWorseOrdering(t *testing.T) {
	if Worse(Good, Fair) != Fair {
		t.Fatalf("Fair should beat Good")
	}
	if Worse(Poor, Fair) != Poor {
		t.Fatalf("Poor should beat Fair")
	}
	if Worse(Bad, Poor) != Bad {
		t.Fatalf("Bad should beat Poor")
	}
	if Worse(Good, Good) != Good {
		t.Fatalf("Worse of equals should be the same level")
	}
}
