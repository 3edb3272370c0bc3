package config

// VocabularyConfig captures the keyword sets driving photo classification.
// The lists can be customized via config.yaml (JSON is also accepted
// because it is a subset of YAML 1.2); an empty list keeps the baked-in
// default for that set.
type VocabularyConfig struct {
	Negative      []string `json:"negative" yaml:"negative"`
	Minor         []string `json:"minor" yaml:"minor"`
	Ignored       []string `json:"ignored" yaml:"ignored"`
	Positive      []string `json:"positive" yaml:"positive"`
	MinConfidence float64  `json:"min_confidence" yaml:"min_confidence"`
}

// DefaultVocabularyConfig returns the baked-in keyword sets.
//
// "scratched" appeared in both the defect and wear lists in earlier
// deployments; it lives in the minor set here, and the classifier's
// severe-wins precedence covers any remaining overlap from file overrides.
func DefaultVocabularyConfig() VocabularyConfig {
	return VocabularyConfig{
		Negative: []string{
			"crack", "cracked", "mold", "mould", "leak", "leaking", "water damage",
			"broken", "shattered", "hole", "rot", "rust", "damage", "damaged",
			"stain", "stained", "peeling", "burn", "burnt",
		},
		Minor: []string{
			"scuff", "scuffed", "scratch", "scratched", "faded", "worn", "wear",
			"chipped", "dirty", "dusty", "smudge", "fingerprints",
		},
		Ignored: []string{
			"bed", "sofa", "couch", "chair", "table", "clothing", "clothes",
			"clutter", "box", "boxes", "toy", "toys", "person", "furniture",
			"indoor", "room", "wall", "floor", "ceiling", "window", "door",
		},
		Positive: []string{
			"clean", "tidy", "intact", "new", "fresh",
		},
	}
}

// MergeVocabularyConfig overlays non-empty lists onto the base config.
func MergeVocabularyConfig(base VocabularyConfig, override VocabularyConfig) VocabularyConfig {
	if len(override.Negative) > 0 {
		base.Negative = append([]string{}, override.Negative...)
	}
	if len(override.Minor) > 0 {
		base.Minor = append([]string{}, override.Minor...)
	}
	if len(override.Ignored) > 0 {
		base.Ignored = append([]string{}, override.Ignored...)
	}
	if len(override.Positive) > 0 {
		base.Positive = append([]string{}, override.Positive...)
	}
	if override.MinConfidence > 0 && override.MinConfidence <= 1 {
		base.MinConfidence = override.MinConfidence
	}
	return base
}
