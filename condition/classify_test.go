package condition

import (
	"strings"
	"testing"
)

func testVocabulary() Vocabulary {
	return NewVocabulary(
		[]string{"crack", "mold", "leak", "broken", "damage"},
		[]string{"scuffed", "faded", "worn", "scratched"},
		[]string{"bed", "sofa", "clothing", "clutter"},
		[]string{"clean", "intact"},
	)
}

func TestClassifySevereDominatesMinor(t *testing.T) {
	v := testVocabulary()
	tags := []Tag{
		{Name: "scuffed", Confidence: 0.9},
		{Name: "faded", Confidence: 0.8},
		{Name: "crack", Confidence: 0.3},
	}
	res := v.Classify(tags, "", "Walls")
	if res.Condition != Poor {
		t.Fatalf("expected Poor, got %s", res.Condition)
	}
	if !strings.Contains(res.Note, "crack") {
		t.Fatalf("note should mention the defect: %q", res.Note)
	}
}

func TestClassifyMinorOnlyIsFair(t *testing.T) {
	v := testVocabulary()
	res := v.Classify([]Tag{{Name: "scuffed", Confidence: 0.7}}, "", "Door")
	if res.Condition != Fair {
		t.Fatalf("expected Fair, got %s", res.Condition)
	}
	if !strings.Contains(res.Note, "light wear") || !strings.Contains(res.Note, "scuffed") {
		t.Fatalf("unexpected note: %q", res.Note)
	}
}

func TestClassifyIgnoredTagsNeverScore(t *testing.T) {
	v := testVocabulary()
	res := v.Classify([]Tag{{Name: "bed", Confidence: 0.95}, {Name: "clutter", Confidence: 0.9}}, "", "Carpet")
	if res.Condition != Good {
		t.Fatalf("expected Good for ignored-only tags, got %s", res.Condition)
	}
}

func TestClassifyIgnoredFiltersBeforeScoring(t *testing.T) {
	v := testVocabulary()
	tags := []Tag{{Name: "crack", Confidence: 0.9}, {Name: "bed", Confidence: 0.8}}
	res := v.Classify(tags, "", "Walls")
	if res.Condition != Poor {
		t.Fatalf("expected Poor, got %s", res.Condition)
	}
	if !strings.Contains(res.Note, "crack") {
		t.Fatalf("note should mention crack: %q", res.Note)
	}
	if strings.Contains(res.Note, "bed") {
		t.Fatalf("note must not mention ignored tag: %q", res.Note)
	}
}

func TestClassifyEmptyTagsIsClean(t *testing.T) {
	v := testVocabulary()
	res := v.Classify(nil, "", "Ceiling")
	if res.Condition != Good {
		t.Fatalf("expected Good, got %s", res.Condition)
	}
	if res.Note != "The ceiling appears clean and well-maintained." {
		t.Fatalf("unexpected default note: %q", res.Note)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	v := testVocabulary()
	tags := []Tag{{Name: "worn", Confidence: 0.5}, {Name: "faded", Confidence: 0.4}}
	first := v.Classify(tags, "a worn surface", "Floor")
	for i := 0; i < 5; i++ {
		again := v.Classify(tags, "a worn surface", "Floor")
		if again != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestClassifyDuplicateTagsListedOnce(t *testing.T) {
	v := testVocabulary()
	tags := []Tag{{Name: "crack", Confidence: 0.9}, {Name: "crack", Confidence: 0.5}, {Name: "mold", Confidence: 0.6}}
	res := v.Classify(tags, "", "Bathroom wall")
	if got := strings.Count(res.Note, "crack"); got != 1 {
		t.Fatalf("expected crack listed once, found %d in %q", got, res.Note)
	}
	if !strings.Contains(res.Note, "crack and mold") {
		t.Fatalf("expected readable keyword list, got %q", res.Note)
	}
}

func TestClassifyConfidenceIgnoredByDefault(t *testing.T) {
	v := testVocabulary()
	res := v.Classify([]Tag{{Name: "mold", Confidence: 0.01}}, "", "Ceiling")
	if res.Condition != Poor {
		t.Fatalf("low-confidence tags must still count by default, got %s", res.Condition)
	}
}

func TestClassifyMinConfidenceThreshold(t *testing.T) {
	v := testVocabulary()
	v.MinConfidence = 0.5
	res := v.Classify([]Tag{{Name: "mold", Confidence: 0.2}}, "", "Ceiling")
	if res.Condition != Good {
		t.Fatalf("expected tag below threshold to be dropped, got %s", res.Condition)
	}
}

func TestNewVocabularyIgnoredWinsOverlap(t *testing.T) {
	v := NewVocabulary([]string{"stain"}, []string{"stain"}, []string{"stain"}, nil)
	res := v.Classify([]Tag{{Name: "stain", Confidence: 0.9}}, "", "Rug")
	if res.Condition != Good {
		t.Fatalf("ignored keyword must never drive scoring, got %s", res.Condition)
	}
}

func TestClassifyPositivePhrasing(t *testing.T) {
	v := testVocabulary()
	res := v.Classify([]Tag{{Name: "clean", Confidence: 0.9}}, "", "Kitchen counter")
	if res.Condition != Good {
		t.Fatalf("expected Good, got %s", res.Condition)
	}
	if !strings.Contains(res.Note, "clean") {
		t.Fatalf("positive match should shape the note: %q", res.Note)
	}
}
