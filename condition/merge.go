package condition

import "strings"

// Merge combines per-photo results for one inspection item into a single
// rating and note. The merged condition is the worst across inputs; notes
// keep encounter order, deduplicated on the full string, one "- " marker
// per distinct note. An empty input is a clean item, never an error.
func Merge(results []Result, itemLabel string) Result {
	if len(results) == 0 {
		return Result{Condition: Good, Note: defaultNote(itemLabel)}
	}

	worst := Good
	seen := make(map[string]struct{}, len(results))
	var lines []string
	for _, r := range results {
		worst = Worse(worst, r.Condition)
		note := strings.TrimSpace(r.Note)
		if note == "" {
			continue
		}
		if _, dup := seen[note]; dup {
			continue
		}
		seen[note] = struct{}{}
		lines = append(lines, "- "+note)
	}
	if len(lines) == 0 {
		return Result{Condition: worst, Note: defaultNote(itemLabel)}
	}
	return Result{Condition: worst, Note: strings.Join(lines, "\n")}
}
