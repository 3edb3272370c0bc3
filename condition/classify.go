package condition

import (
	"fmt"
	"strings"
)

// Tag is one label returned by a vision provider for a photo.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Result is the classification outcome for one photo, and the unit of
// input for merging.
type Result struct {
	Condition Level  `json:"condition"`
	Note      string `json:"note"`
}

// Vocabulary holds the keyword sets driving classification. Build it once
// at startup and treat it as read-only; Classify holds no state and is safe
// from any goroutine.
type Vocabulary struct {
	negative map[string]struct{}
	minor    map[string]struct{}
	ignored  map[string]struct{}
	positive map[string]struct{}

	// MinConfidence drops tags below the threshold before scoring.
	// Zero keeps every tag regardless of the provider's certainty.
	MinConfidence float64
}

// NewVocabulary lowercases and indexes the keyword sets. The ignored set is
// authoritative: a keyword listed there is removed from the scoring sets so
// it can never drive a rating.
func NewVocabulary(negative, minor, ignored, positive []string) Vocabulary {
	v := Vocabulary{
		negative: toSet(negative),
		minor:    toSet(minor),
		ignored:  toSet(ignored),
		positive: toSet(positive),
	}
	for word := range v.ignored {
		delete(v.negative, word)
		delete(v.minor, word)
		delete(v.positive, word)
	}
	return v
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Classify rates one photo from its provider tags. Severe findings dominate
// minor ones regardless of counts; ignored tags never count. The caption is
// accepted for symmetry with the provider contract but does not influence
// the rating.
func (v Vocabulary) Classify(tags []Tag, caption, itemLabel string) Result {
	var matchedNegative, matchedMinor, matchedPositive []string
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		if v.MinConfidence > 0 && tag.Confidence < v.MinConfidence {
			continue
		}
		if _, skip := v.ignored[name]; skip {
			continue
		}
		if _, ok := v.negative[name]; ok {
			matchedNegative = appendDistinct(matchedNegative, name)
		}
		if _, ok := v.minor[name]; ok {
			matchedMinor = appendDistinct(matchedMinor, name)
		}
		if _, ok := v.positive[name]; ok {
			matchedPositive = appendDistinct(matchedPositive, name)
		}
	}

	switch {
	case len(matchedNegative) > 0:
		return Result{Condition: Poor, Note: poorNote(itemLabel, matchedNegative)}
	case len(matchedMinor) > 0:
		return Result{Condition: Fair, Note: fairNote(itemLabel, matchedMinor)}
	default:
		return Result{Condition: Good, Note: goodNote(itemLabel, matchedPositive)}
	}
}

func appendDistinct(list []string, word string) []string {
	for _, existing := range list {
		if existing == word {
			return list
		}
	}
	return append(list, word)
}

func goodNote(itemLabel string, positives []string) string {
	if len(positives) > 0 {
		return fmt.Sprintf("The %s looks %s and in good overall condition.", labelText(itemLabel), humanList(positives))
	}
	return defaultNote(itemLabel)
}

func fairNote(itemLabel string, minors []string) string {
	if len(minors) > 0 {
		return fmt.Sprintf("The %s shows light wear (%s); cosmetic attention recommended.", labelText(itemLabel), humanList(minors))
	}
	return fmt.Sprintf("The %s shows light wear; cosmetic attention recommended.", labelText(itemLabel))
}

func poorNote(itemLabel string, negatives []string) string {
	if len(negatives) > 0 {
		return fmt.Sprintf("Visible damage on the %s (%s); repair recommended.", labelText(itemLabel), humanList(negatives))
	}
	return fmt.Sprintf("Visible damage on the %s; repair recommended.", labelText(itemLabel))
}

func defaultNote(itemLabel string) string {
	return fmt.Sprintf("The %s appears clean and well-maintained.", labelText(itemLabel))
}

func labelText(itemLabel string) string {
	label := strings.ToLower(strings.TrimSpace(itemLabel))
	if label == "" {
		return "item"
	}
	return label
}

// humanList renders keywords as a readable phrase: "a", "a and b",
// "a, b and c".
func humanList(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}
